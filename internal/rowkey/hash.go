package rowkey

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"
)

// Hash algorithm names accepted in row key definitions.
const (
	Murmur3 = "murmur3"
	XXH3    = "xxh3"
)

// Hasher computes the bucket hash a key's hashed segment is cut from.
type Hasher interface {
	// Sum returns the hash of data as big-endian bytes.
	Sum(data []byte) []byte
	// Bits is the width of the hash.
	Bits() int
	Name() string
}

// NewHasher returns the hasher for name. An empty name selects murmur3.
func NewHasher(name string) (Hasher, error) {
	switch strings.ToLower(name) {
	case "", Murmur3:
		return murmurHasher{}, nil
	case XXH3:
		return xxh3Hasher{}, nil
	}
	return nil, fmt.Errorf("unsupported hash algorithm %q", name)
}

// murmurHasher is murmur3 x64 128-bit; the high word comes first.
type murmurHasher struct{}

func (murmurHasher) Sum(data []byte) []byte {
	h1, h2 := murmur3.Sum128(data)
	out := make([]byte, 16)
	binary.BigEndian.PutUint64(out[:8], h1)
	binary.BigEndian.PutUint64(out[8:], h2)
	return out
}

func (murmurHasher) Bits() int { return 128 }
func (murmurHasher) Name() string { return Murmur3 }

type xxh3Hasher struct{}

func (xxh3Hasher) Sum(data []byte) []byte {
	return binary.BigEndian.AppendUint64(nil, xxh3.Hash(data))
}

func (xxh3Hasher) Bits() int { return 64 }
func (xxh3Hasher) Name() string { return XXH3 }

// bitAt returns bit i of b, counting from the most significant bit of b[0].
func bitAt(b []byte, i int) byte {
	return (b[i/8] >> (7 - uint(i%8))) & 1
}
