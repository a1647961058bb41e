package performance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/xlsx2parquet/pkg/errors"
)

func TestProfilerWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	cfg := ProfilerConfig{
		CPUProfile: filepath.Join(dir, "cpu.prof"),
		MemProfile: filepath.Join(dir, "mem.prof"),
	}
	require.True(t, cfg.Enabled())

	p, err := StartProfiler(cfg)
	require.NoError(t, err)

	sum := 0
	for i := 0; i < 1_000_000; i++ {
		sum += i
	}
	assert.Positive(t, sum)

	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())

	for _, path := range []string{cfg.CPUProfile, cfg.MemProfile} {
		st, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, st.Size(), path)
	}
}

func TestProfilerDisabled(t *testing.T) {
	cfg := ProfilerConfig{}
	assert.False(t, cfg.Enabled())

	p, err := StartProfiler(cfg)
	require.NoError(t, err)
	assert.NoError(t, p.Stop())
}

func TestProfilerBadPath(t *testing.T) {
	_, err := StartProfiler(ProfilerConfig{CPUProfile: filepath.Join(t.TempDir(), "missing", "cpu.prof")})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
