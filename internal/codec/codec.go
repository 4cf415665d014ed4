package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	merrors "github.com/GSTNIndia/HBase-To-Hive-sub001/internal/errors"
)

// Null sentinels written by upstream loaders for SQL NULL. The codec treats them as
// ordinary text; the merge and recon layers decide what they mean.
const (
	NullLiteral = "null"
	HiveNull    = `\N`
)

// IsNullSentinel reports whether s is one of the textual NULL markers.
func IsNullSentinel(s string) bool {
	return s == NullLiteral || s == HiveNull
}

// Codec encodes and decodes cell values. The zero value is not usable; use New.
type Codec struct {
	compressor Compressor
	decimals   DecimalContext
	onFallback func(DataType)
}

// Option configures a Codec.
type Option func(*Codec)

// WithCompressor sets the compressor used for compressed kinds.
func WithCompressor(c Compressor) Option {
	return func(cd *Codec) { cd.compressor = c }
}

// WithFallbackHook registers fn to be called whenever a compressed payload does not
// decompress and is returned as plain text.
func WithFallbackHook(fn func(DataType)) Option {
	return func(cd *Codec) { cd.onFallback = fn }
}

// New creates a codec using snappy for compressed kinds unless overridden.
func New(opts ...Option) *Codec {
	c := &Codec{
		compressor: snappyCompressor{},
		decimals:   DefaultDecimalContext(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compressor returns the configured compressor.
func (c *Codec) Compressor() Compressor {
	return c.compressor
}

// Decode converts raw cell bytes to their string form. A nil slice means the cell is
// absent and returns ok=false. Compressed kinds never fail: bytes that do not
// decompress are returned as plain text.
func (c *Codec) Decode(b []byte, t DataType) (value string, ok bool, err error) {
	if b == nil {
		return "", false, nil
	}

	switch t {
	case Boolean:
		if len(b) != 1 {
			return "", false, widthError(t, len(b))
		}
		return strconv.FormatBool(b[0] != 0), true, nil
	case Short:
		if len(b) != 2 {
			return "", false, widthError(t, len(b))
		}
		return strconv.FormatInt(int64(int16(binary.BigEndian.Uint16(b))), 10), true, nil
	case Integer:
		if len(b) != 4 {
			return "", false, widthError(t, len(b))
		}
		return strconv.FormatInt(int64(int32(binary.BigEndian.Uint32(b))), 10), true, nil
	case Long:
		if len(b) != 8 {
			return "", false, widthError(t, len(b))
		}
		return strconv.FormatInt(int64(binary.BigEndian.Uint64(b)), 10), true, nil
	case Float:
		if len(b) != 4 {
			return "", false, widthError(t, len(b))
		}
		f := math.Float32frombits(binary.BigEndian.Uint32(b))
		return strconv.FormatFloat(float64(f), 'f', -1, 32), true, nil
	case Double:
		if len(b) != 8 {
			return "", false, widthError(t, len(b))
		}
		f := math.Float64frombits(binary.BigEndian.Uint64(b))
		return strconv.FormatFloat(f, 'f', -1, 64), true, nil
	case Decimal:
		d, err := decodeDecimal(b)
		if err != nil {
			return "", false, merrors.NewCodecError(merrors.CodeDecodeFailed, "invalid decimal payload", err)
		}
		return FormatDecimal(d), true, nil
	case String, Character, JSON:
		return string(b), true, nil
	case CompressedText, CompressedJSON:
		raw, err := c.compressor.Decompress(b)
		if err != nil {
			if c.onFallback != nil {
				c.onFallback(t)
			}
			return string(b), true, nil
		}
		return string(raw), true, nil
	}
	return "", false, unknownType(t)
}

// Encode converts the string form of a value to its stored bytes.
func (c *Codec) Encode(s string, t DataType) ([]byte, error) {
	switch t {
	case Boolean:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, encodeError(t, s, err)
		}
		if v {
			return []byte{0xff}, nil
		}
		return []byte{0x00}, nil
	case Short:
		v, err := strconv.ParseInt(s, 10, 16)
		if err != nil {
			return nil, encodeError(t, s, err)
		}
		return binary.BigEndian.AppendUint16(nil, uint16(v)), nil
	case Integer:
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, encodeError(t, s, err)
		}
		return binary.BigEndian.AppendUint32(nil, uint32(v)), nil
	case Long:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, encodeError(t, s, err)
		}
		return binary.BigEndian.AppendUint64(nil, uint64(v)), nil
	case Float:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, encodeError(t, s, err)
		}
		return binary.BigEndian.AppendUint32(nil, math.Float32bits(float32(v))), nil
	case Double:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, encodeError(t, s, err)
		}
		return binary.BigEndian.AppendUint64(nil, math.Float64bits(v)), nil
	case Decimal:
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, encodeError(t, s, err)
		}
		return encodeDecimal(d), nil
	case String:
		return []byte(s), nil
	case Character:
		if utf8.RuneCountInString(s) != 1 {
			return nil, encodeError(t, s, fmt.Errorf("expected a single character"))
		}
		return []byte(s), nil
	case JSON:
		if !json.Valid([]byte(s)) {
			return nil, encodeError(t, s, fmt.Errorf("invalid JSON document"))
		}
		return []byte(s), nil
	case CompressedText:
		return c.compress(t, []byte(s))
	case CompressedJSON:
		if !json.Valid([]byte(s)) {
			return nil, encodeError(t, s, fmt.Errorf("invalid JSON document"))
		}
		return c.compress(t, []byte(s))
	}
	return nil, unknownType(t)
}

// ParseTyped converts the string form of a value to its Go representation:
// bool, int16, int32, int64, float32, float64, decimal.Decimal, string, rune, or the
// decoded JSON value. Null sentinels parse to nil.
func (c *Codec) ParseTyped(s string, t DataType) (interface{}, error) {
	if IsNullSentinel(s) {
		return nil, nil
	}

	switch t {
	case Boolean:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, parseError(t, s, err)
		}
		return v, nil
	case Short:
		v, err := strconv.ParseInt(s, 10, 16)
		if err != nil {
			return nil, parseError(t, s, err)
		}
		return int16(v), nil
	case Integer:
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, parseError(t, s, err)
		}
		return int32(v), nil
	case Long:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, parseError(t, s, err)
		}
		return v, nil
	case Float:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, parseError(t, s, err)
		}
		return float32(v), nil
	case Double:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, parseError(t, s, err)
		}
		return v, nil
	case Decimal:
		d, err := c.decimals.Parse(s)
		if err != nil {
			return nil, parseError(t, s, err)
		}
		return d, nil
	case String, CompressedText:
		return s, nil
	case Character:
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError || size != len(s) {
			return nil, parseError(t, s, fmt.Errorf("expected a single character"))
		}
		return r, nil
	case JSON, CompressedJSON:
		var v interface{}
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, parseError(t, s, err)
		}
		return v, nil
	}
	return nil, unknownType(t)
}

// ParseDecimal parses any numeric string form in the codec's decimal context.
func (c *Codec) ParseDecimal(s string) (decimal.Decimal, error) {
	return c.decimals.Parse(s)
}

// Decimals returns the codec's decimal context.
func (c *Codec) Decimals() DecimalContext {
	return c.decimals
}

func (c *Codec) compress(t DataType, b []byte) ([]byte, error) {
	out, err := c.compressor.Compress(b)
	if err != nil {
		return nil, merrors.NewCodecError(merrors.CodeEncodeFailed,
			fmt.Sprintf("%s compression failed", c.compressor.Algorithm()), err)
	}
	return out, nil
}

func widthError(t DataType, n int) error {
	return merrors.NewCodecError(merrors.CodeDecodeFailed,
		fmt.Sprintf("%s needs %d bytes, got %d", t, t.Width(), n), nil)
}

func encodeError(t DataType, s string, cause error) error {
	return merrors.NewCodecError(merrors.CodeEncodeFailed,
		fmt.Sprintf("cannot encode %q as %s", s, t), cause)
}

func parseError(t DataType, s string, cause error) error {
	return merrors.NewCodecError(merrors.CodeDecodeFailed,
		fmt.Sprintf("cannot parse %q as %s", s, t), cause)
}

func unknownType(t DataType) error {
	return merrors.NewCodecError(merrors.CodeDecodeFailed, fmt.Sprintf("unsupported data type %s", t), nil)
}
