package parquet

import (
	"strings"

	"github.com/apache/arrow-go/v18/parquet/compress"

	"github.com/ajitpratap0/xlsx2parquet/pkg/errors"
)

// Codec names accepted by ParseCodec. "fast" and "high" are aliases for the
// usual speed/ratio trade-off.
const (
	CodecNone   = "none"
	CodecSnappy = "snappy"
	CodecGzip   = "gzip"
	CodecBrotli = "brotli"
	CodecZstd   = "zstd"
	CodecLZ4    = "lz4"
)

var codecs = map[string]compress.Compression{
	"":             compress.Codecs.Snappy,
	CodecNone:      compress.Codecs.Uncompressed,
	"uncompressed": compress.Codecs.Uncompressed,
	CodecSnappy:    compress.Codecs.Snappy,
	"fast":         compress.Codecs.Snappy,
	CodecGzip:      compress.Codecs.Gzip,
	"high":         compress.Codecs.Gzip,
	CodecBrotli:    compress.Codecs.Brotli,
	CodecZstd:      compress.Codecs.Zstd,
	CodecLZ4:       compress.Codecs.Lz4Raw,
	"lz4_raw":      compress.Codecs.Lz4Raw,
}

// ParseCodec maps a codec name to its Parquet compression. Unknown names fail
// with write_failure.
func ParseCodec(name string) (compress.Compression, error) {
	c, ok := codecs[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return compress.Codecs.Uncompressed, errors.Newf(errors.ErrorTypeWriteFailure, "unsupported compression codec %q", name).
			WithDetail("codec", name)
	}
	return c, nil
}

// CodecName returns the lower-case Parquet name of c, e.g. "snappy"
func CodecName(c compress.Compression) string {
	return strings.ToLower(c.String())
}
