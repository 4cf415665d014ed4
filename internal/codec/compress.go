package codec

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm names a column compression algorithm.
type Algorithm string

const (
	// Snappy is the block format used by the source tables
	Snappy Algorithm = "snappy"
	// Zstd is zstandard frame format
	Zstd Algorithm = "zstd"
	// LZ4 is lz4 frame format
	LZ4 Algorithm = "lz4"
)

// Compressor compresses and decompresses column payloads.
// Implementations are safe for concurrent use.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Algorithm() Algorithm
}

// NewCompressor returns the compressor for name. An empty name selects snappy.
func NewCompressor(name string) (Compressor, error) {
	switch Algorithm(strings.ToLower(name)) {
	case "", Snappy:
		return snappyCompressor{}, nil
	case Zstd:
		return newZstdCompressor()
	case LZ4:
		return lz4Compressor{}, nil
	default:
		return nil, fmt.Errorf("codec: unsupported compression algorithm %q", name)
	}
}

type snappyCompressor struct{}

func (snappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (snappyCompressor) Decompress(data []byte) ([]byte, error) {
	return snappy.Decode(nil, data)
}

func (snappyCompressor) Algorithm() Algorithm { return Snappy }

// zstdCompressor shares one encoder and one decoder; both support concurrent
// EncodeAll/DecodeAll calls.
type zstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstdCompressor() (*zstdCompressor, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("codec: failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("codec: failed to create zstd decoder: %w", err)
	}
	return &zstdCompressor{enc: enc, dec: dec}, nil
}

func (z *zstdCompressor) Compress(data []byte) ([]byte, error) {
	return z.enc.EncodeAll(data, nil), nil
}

func (z *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	return z.dec.DecodeAll(data, nil)
}

func (z *zstdCompressor) Algorithm() Algorithm { return Zstd }

type lz4Compressor struct{}

func (lz4Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (lz4Compressor) Decompress(data []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
}

func (lz4Compressor) Algorithm() Algorithm { return LZ4 }
