package rowkey

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"

	merrors "github.com/GSTNIndia/HBase-To-Hive-sub001/internal/errors"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/pkg/types"
)

func mustKey(t *testing.T, def types.RowKeyDef) *CompositeKey {
	t.Helper()
	k, err := FromDef(def)
	if err != nil {
		t.Fatalf("FromDef: %v", err)
	}
	return k
}

func returnKeyDef() types.RowKeyDef {
	return types.RowKeyDef{
		Delimiter: "|",
		Fields: []types.KeyFieldDef{
			{Name: "rtin", Hashed: true, BitStart: 0, BitEnd: 8},
			{Name: "fp"},
			{Name: "stin"},
			{Name: "rtin"},
			{Name: "statecode", Literal: true, Value: "07"},
		},
	}
}

func TestCompositeKey_IsAValidRowKey(t *testing.T) {
	k := mustKey(t, returnKeyDef())

	if !k.IsAValidRowKey([]string{"fp", "stin", "rtin"}) {
		t.Errorf("all value fields supplied: want valid")
	}
	if k.IsAValidRowKey([]string{"fp", "stin"}) {
		t.Errorf("rtin missing: want invalid")
	}
	if k.IsAValidRowKey([]string{"fp", "rtin", "statecode"}) {
		t.Errorf("stin missing: want invalid even with literal supplied")
	}
	if !k.IsAValidRowKey([]string{"stin", "fp", "rtin", "unrelated"}) {
		t.Errorf("extra names must not invalidate the key")
	}
}

func TestCompositeKey_IsColumnPresent(t *testing.T) {
	k := mustKey(t, returnKeyDef())
	for _, name := range []string{"rtin", "fp", "stin", "statecode"} {
		if !k.IsColumnPresent(name) {
			t.Errorf("IsColumnPresent(%q) = false", name)
		}
	}
	if k.IsColumnPresent("gstin") {
		t.Errorf("IsColumnPresent(gstin) = true")
	}
	if got := k.ValueFields(); strings.Join(got, ",") != "fp,stin,rtin" {
		t.Errorf("ValueFields = %v", got)
	}
}

func TestCompositeKey_HashSizeBytes(t *testing.T) {
	tests := []struct {
		name   string
		ranges [][2]int
		want   int
		hashed bool
	}{
		{"none", nil, 0, false},
		{"one byte", [][2]int{{0, 8}}, 1, true},
		{"nine bits", [][2]int{{0, 4}, {8, 13}}, 2, true},
		{"two bytes", [][2]int{{0, 8}, {8, 16}}, 2, true},
		{"single bit", [][2]int{{63, 64}}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := types.RowKeyDef{Fields: []types.KeyFieldDef{{Name: "id"}}}
			for i, r := range tt.ranges {
				def.Fields = append(def.Fields, types.KeyFieldDef{
					Name: "h" + string(rune('a'+i)), Hashed: true, BitStart: r[0], BitEnd: r[1],
				})
			}
			k := mustKey(t, def)
			if k.HashSizeBytes() != tt.want {
				t.Errorf("HashSizeBytes = %d, want %d", k.HashSizeBytes(), tt.want)
			}
			if k.IsHashed() != tt.hashed {
				t.Errorf("IsHashed = %v, want %v", k.IsHashed(), tt.hashed)
			}
		})
	}
}

func TestCompositeKey_OverlappingBits(t *testing.T) {
	_, err := FromDef(types.RowKeyDef{Fields: []types.KeyFieldDef{
		{Name: "a", Hashed: true, BitStart: 0, BitEnd: 8},
		{Name: "b", Hashed: true, BitStart: 7, BitEnd: 12},
	}})
	if err == nil {
		t.Fatal("expected overlap error")
	}
	if !errors.Is(err, types.ErrOverlappingBits) {
		t.Errorf("error %v does not wrap ErrOverlappingBits", err)
	}
	if merrors.GetCode(err) != merrors.CodeInvalidSchema {
		t.Errorf("code = %s, want %s", merrors.GetCode(err), merrors.CodeInvalidSchema)
	}
}

func TestKeyField_ExactlyOneRole(t *testing.T) {
	bad := []types.KeyFieldDef{
		{Name: "x", Literal: true, Hashed: true, BitEnd: 8},
		{Name: "x", Hashed: true, BitStart: 4, BitEnd: 4},
		{Name: "x", Hashed: true, BitEnd: 8, Value: "v"},
		{Name: "x", Literal: true, Value: "07", BitEnd: 8},
		{Name: "x", Value: "v"},
		{Name: ""},
	}
	for _, def := range bad {
		if _, err := NewKeyField(def); err == nil {
			t.Errorf("NewKeyField(%+v) accepted an invalid field", def)
		}
	}

	f, err := NewKeyField(types.KeyFieldDef{Name: "statecode", Literal: true, Value: "07"})
	if err != nil {
		t.Fatalf("NewKeyField: %v", err)
	}
	if f.Role() != RoleLiteral || !f.IsLiteral() || f.IsHashed() {
		t.Errorf("role = %s", f.Role())
	}
	if f.Name() != "statecode" || f.LiteralValue() != "07" {
		t.Errorf("literal field = %s/%q", f.Name(), f.LiteralValue())
	}
}

func TestCompositeKey_BitRangeBeyondHash(t *testing.T) {
	_, err := FromDef(types.RowKeyDef{
		HashAlgorithm: XXH3,
		Fields:        []types.KeyFieldDef{{Name: "a", Hashed: true, BitStart: 60, BitEnd: 70}},
	})
	if err == nil {
		t.Fatal("xxh3 has 64 bits; range ending at 70 must fail")
	}
	_, err = FromDef(types.RowKeyDef{
		HashAlgorithm: "md5",
		Fields:        []types.KeyFieldDef{{Name: "a"}},
	})
	if err == nil {
		t.Fatal("unknown hash algorithm must fail")
	}
}

func TestCompositeKey_Build(t *testing.T) {
	k := mustKey(t, returnKeyDef())

	key, err := k.Build(map[string]string{"rtin": "29ABCDE1234F1Z5", "fp": "042024", "stin": "07XYZ"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	h1, _ := murmur3.Sum128([]byte("29ABCDE1234F1Z5"))
	if key[0] != byte(h1>>56) {
		t.Errorf("hash byte = %#x, want %#x", key[0], byte(h1>>56))
	}
	if got := string(key[1:]); got != "042024|07XYZ|29ABCDE1234F1Z5|07" {
		t.Errorf("key tail = %q", got)
	}

	parts, err := k.Split(key)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if parts["fp"] != "042024" || parts["stin"] != "07XYZ" || parts["rtin"] != "29ABCDE1234F1Z5" {
		t.Errorf("Split = %v", parts)
	}
}

func TestCompositeKey_BuildMissingValue(t *testing.T) {
	k := mustKey(t, returnKeyDef())
	_, err := k.Build(map[string]string{"fp": "042024", "stin": "07XYZ"})
	if err == nil {
		t.Fatal("expected missing field error")
	}
	if !errors.Is(err, types.ErrMissingKeyField) {
		t.Errorf("error %v does not wrap ErrMissingKeyField", err)
	}
	if merrors.GetCategory(err) != merrors.ErrCategoryRowKey {
		t.Errorf("category = %s", merrors.GetCategory(err))
	}
}

func TestCompositeKey_PacksBitRangesInOrder(t *testing.T) {
	k := mustKey(t, types.RowKeyDef{
		HashAlgorithm: XXH3,
		Fields: []types.KeyFieldDef{
			{Name: "id", Hashed: true, BitStart: 4, BitEnd: 8},
			{Name: "id", Hashed: true, BitStart: 0, BitEnd: 4},
			{Name: "id"},
		},
	})
	key, err := k.Build(map[string]string{"id": "abc"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	top := byte(xxh3.Hash([]byte("abc")) >> 56)
	want := top<<4 | top>>4
	if key[0] != want {
		t.Errorf("hash byte = %#x, want nibble-swapped %#x", key[0], want)
	}
	if string(key[1:]) != "abc" {
		t.Errorf("tail = %q", key[1:])
	}
}

func TestCompositeKey_FixedLengthSplit(t *testing.T) {
	k := mustKey(t, types.RowKeyDef{Fields: []types.KeyFieldDef{
		{Name: "state", Literal: true, Value: "07"},
		{Name: "period", Length: 6},
		{Name: "seq", Length: 4},
	}})

	key, err := k.Build(map[string]string{"period": "042024", "seq": "0001"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if string(key) != "070420240001" {
		t.Fatalf("key = %q", key)
	}
	parts, err := k.Split(key)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if parts["period"] != "042024" || parts["seq"] != "0001" {
		t.Errorf("Split = %v", parts)
	}

	if _, err := k.Build(map[string]string{"period": "42024", "seq": "0001"}); err == nil {
		t.Error("short fixed-length value must fail")
	}
	if _, err := k.Split([]byte("080420240001")); err == nil {
		t.Error("wrong literal must fail")
	}
}

// TestProperty_HashSegmentWidth checks that the hashed segment is always
// ceil(total bits / 8) bytes and that building the same key twice is stable.
func TestProperty_HashSegmentWidth(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("segment width matches bit count", prop.ForAll(
		func(w1, w2 int, value string) bool {
			k, err := FromDef(types.RowKeyDef{
				Delimiter: "|",
				Fields: []types.KeyFieldDef{
					{Name: "id", Hashed: true, BitStart: 0, BitEnd: w1},
					{Name: "id", Hashed: true, BitStart: 64, BitEnd: 64 + w2},
					{Name: "id"},
				},
			})
			if err != nil {
				return false
			}
			want := (w1 + w2 + 7) / 8
			if k.HashSizeBytes() != want {
				return false
			}
			a, err := k.Build(map[string]string{"id": value})
			if err != nil {
				return false
			}
			b, _ := k.Build(map[string]string{"id": value})
			return len(a) == want+len(value) && string(a) == string(b)
		},
		gen.IntRange(1, 64),
		gen.IntRange(1, 64),
		gen.AlphaString(),
	))

	properties.Property("split inverts build", prop.ForAll(
		func(a, b string) bool {
			k, err := FromDef(types.RowKeyDef{
				Delimiter: "#",
				Fields: []types.KeyFieldDef{
					{Name: "a", Hashed: true, BitStart: 0, BitEnd: 12},
					{Name: "a"},
					{Name: "b"},
				},
			})
			if err != nil {
				return false
			}
			key, err := k.Build(map[string]string{"a": a, "b": b})
			if err != nil {
				return false
			}
			parts, err := k.Split(key)
			return err == nil && parts["a"] == a && parts["b"] == b
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestHasher_BigEndianLayout(t *testing.T) {
	h, err := NewHasher("")
	if err != nil {
		t.Fatal(err)
	}
	sum := h.Sum([]byte("key"))
	h1, h2 := murmur3.Sum128([]byte("key"))
	if binary.BigEndian.Uint64(sum[:8]) != h1 || binary.BigEndian.Uint64(sum[8:]) != h2 {
		t.Errorf("murmur3 layout mismatch")
	}
	if h.Bits() != 128 || h.Name() != Murmur3 {
		t.Errorf("murmur3 hasher reports %s/%d", h.Name(), h.Bits())
	}

	x, _ := NewHasher("XXH3")
	if binary.BigEndian.Uint64(x.Sum([]byte("key"))) != xxh3.Hash([]byte("key")) {
		t.Errorf("xxh3 layout mismatch")
	}
}
