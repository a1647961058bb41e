package compression

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		path     string
		alg      Algorithm
		stripped string
	}{
		{"data.xlsx", None, "data.xlsx"},
		{"data.xlsx.gz", Gzip, "data.xlsx"},
		{"data.xlsx.ZST", Zstd, "data.xlsx"},
		{"dir/data.xlsx.lz4", LZ4, "dir/data.xlsx"},
		{"data.xlsx.sz", Snappy, "data.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			alg, stripped := Detect(tt.path)
			assert.Equal(t, tt.alg, alg)
			assert.Equal(t, tt.stripped, stripped)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("PK\x03\x04 spreadsheet bytes "), 512)

	for _, alg := range []Algorithm{None, Gzip, Zstd, LZ4, Snappy} {
		t.Run(string(alg), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, alg)
			require.NoError(t, err)
			_, err = w.Write(payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			r, err := NewReader(&buf, alg)
			require.NoError(t, err)
			defer r.Close()

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := NewReader(bytes.NewReader(nil), Algorithm("bzip3"))
	assert.Error(t, err)
	_, err = NewWriter(io.Discard, Algorithm("bzip3"))
	assert.Error(t, err)
}
