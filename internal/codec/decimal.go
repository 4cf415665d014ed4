package codec

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// DefaultPrecision is the number of significant digits kept by every decimal
// operation. Partial sums computed on different workers only combine to the same
// total when each step rounds in the same context.
const DefaultPrecision = 30

// DecimalContext rounds results to a fixed number of significant digits using
// half-up rounding.
type DecimalContext struct {
	Precision int
}

// DefaultDecimalContext returns the 30-digit context used for reconciliation sums.
func DefaultDecimalContext() DecimalContext {
	return DecimalContext{Precision: DefaultPrecision}
}

// Round rounds d to the context precision.
func (c DecimalContext) Round(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() || c.Precision <= 0 {
		return d
	}
	digits := len(new(big.Int).Abs(d.Coefficient()).String())
	if digits <= c.Precision {
		return d
	}
	places := -d.Exponent() - int32(digits-c.Precision)
	return d.Round(places)
}

// Add returns a+b rounded to the context precision.
func (c DecimalContext) Add(a, b decimal.Decimal) decimal.Decimal {
	return c.Round(a.Add(b))
}

// Sum folds values left to right, rounding after every step.
func (c DecimalContext) Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = c.Add(total, v)
	}
	return total
}

// Parse converts s to a decimal rounded to the context precision.
func (c DecimalContext) Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	return c.Round(d), nil
}

// FormatDecimal renders d keeping its scale, so "1.50" stays "1.50".
func FormatDecimal(d decimal.Decimal) string {
	if d.Exponent() < 0 {
		return d.StringFixed(-d.Exponent())
	}
	return d.String()
}

// encodeDecimal writes the 4-byte big-endian scale followed by the big-endian
// two's-complement unscaled value.
func encodeDecimal(d decimal.Decimal) []byte {
	scale := -d.Exponent()
	unscaled := twosComplement(d.Coefficient())
	out := make([]byte, 4+len(unscaled))
	binary.BigEndian.PutUint32(out, uint32(scale))
	copy(out[4:], unscaled)
	return out
}

func decodeDecimal(b []byte) (decimal.Decimal, error) {
	if len(b) < 5 {
		return decimal.Zero, fmt.Errorf("decimal needs at least 5 bytes, got %d", len(b))
	}
	scale := int32(binary.BigEndian.Uint32(b[:4]))
	return decimal.NewFromBigInt(fromTwosComplement(b[4:]), -scale), nil
}

// twosComplement returns the minimal big-endian two's-complement encoding of v.
func twosComplement(v *big.Int) []byte {
	switch v.Sign() {
	case 0:
		return []byte{0}
	case 1:
		b := v.Bytes()
		if b[0]&0x80 != 0 {
			b = append([]byte{0}, b...)
		}
		return b
	}
	// negative values are stored as 2^(8n) + v
	n := (v.BitLen() + 8) / 8
	mod := new(big.Int).Lsh(big.NewInt(1), uint(n*8))
	b := new(big.Int).Add(mod, v).Bytes()
	for len(b) < n {
		b = append([]byte{0xff}, b...)
	}
	// strip redundant sign bytes
	for len(b) > 1 && b[0] == 0xff && b[1]&0x80 != 0 {
		b = b[1:]
	}
	return b
}

func fromTwosComplement(b []byte) *big.Int {
	v := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return v
}
