package codec

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func TestDecimalContext_RoundsToThirtyDigits(t *testing.T) {
	ctx := DefaultDecimalContext()

	d := decimal.RequireFromString("1.2345678901234567890123456789015")
	got := ctx.Round(d)
	want := decimal.RequireFromString("1.23456789012345678901234567890")
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}

	// half-up
	d = decimal.RequireFromString("1.000000000000000000000000000005")
	got = ctx.Round(d)
	want = decimal.RequireFromString("1.00000000000000000000000000001")
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}

	small := decimal.RequireFromString("123.45")
	if !ctx.Round(small).Equal(small) {
		t.Fatalf("values within precision must be unchanged")
	}
}

func TestDecimalContext_MillionTinyValues(t *testing.T) {
	ctx := DefaultDecimalContext()
	tiny := decimal.RequireFromString("0.000000000000000000000000000001")
	want := decimal.RequireFromString("0.000000000000000000000001")

	sequential := decimal.Zero
	for i := 0; i < 1_000_000; i++ {
		sequential = ctx.Add(sequential, tiny)
	}
	if !sequential.Equal(want) {
		t.Fatalf("sequential sum = %s, want %s", sequential, want)
	}

	// 1000 groups of 1000, combined afterwards
	grouped := decimal.Zero
	for g := 0; g < 1000; g++ {
		partial := decimal.Zero
		for i := 0; i < 1000; i++ {
			partial = ctx.Add(partial, tiny)
		}
		grouped = ctx.Add(grouped, partial)
	}
	if !grouped.Equal(sequential) {
		t.Fatalf("grouped sum %s != sequential sum %s", grouped, sequential)
	}
}

func TestTwosComplement(t *testing.T) {
	tests := []struct {
		v    int64
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x00, 0x80}},
		{-1, []byte{0xff}},
		{-128, []byte{0x80}},
		{-129, []byte{0xff, 0x7f}},
		{-256, []byte{0xff, 0x00}},
		{-32768, []byte{0x80, 0x00}},
	}
	for _, tt := range tests {
		got := twosComplement(big.NewInt(tt.v))
		if string(got) != string(tt.want) {
			t.Errorf("twosComplement(%d) = %x, want %x", tt.v, got, tt.want)
		}
		if back := fromTwosComplement(got).Int64(); back != tt.v {
			t.Errorf("fromTwosComplement(%x) = %d, want %d", got, back, tt.v)
		}
	}
}

// TestProperty_DecimalEncoding checks that every decimal survives encode/decode
// and that context addition of exact values does not depend on operand order.
func TestProperty_DecimalEncoding(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("decimal bytes round trip", prop.ForAll(
		func(unscaled int64, scale int32) bool {
			d := decimal.New(unscaled, -scale)
			back, err := decodeDecimal(encodeDecimal(d))
			if err != nil {
				return false
			}
			return back.Equal(d) && back.Exponent() == d.Exponent()
		},
		gen.Int64(),
		gen.Int32Range(0, 30),
	))

	properties.Property("context addition is commutative and associative", prop.ForAll(
		func(a, b, c int64) bool {
			ctx := DefaultDecimalContext()
			da, db, dc := decimal.New(a, -4), decimal.New(b, -4), decimal.New(c, -4)
			left := ctx.Add(ctx.Add(da, db), dc)
			right := ctx.Add(da, ctx.Add(db, dc))
			swapped := ctx.Add(ctx.Add(db, da), dc)
			return left.Equal(right) && left.Equal(swapped)
		},
		gen.Int64Range(-1_000_000_000_000, 1_000_000_000_000),
		gen.Int64Range(-1_000_000_000_000, 1_000_000_000_000),
		gen.Int64Range(-1_000_000_000_000, 1_000_000_000_000),
	))

	properties.TestingRun(t)
}
