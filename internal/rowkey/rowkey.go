// Package rowkey builds and validates composite row keys. A key is an ordered list
// of fields; each field is a literal, a slice of bits from a bucket hash, or a value
// copied from the row.
package rowkey

import (
	"bytes"
	"fmt"
	"sort"

	merrors "github.com/GSTNIndia/HBase-To-Hive-sub001/internal/errors"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/pkg/types"
)

// Role is the kind of a key field.
type Role int

const (
	RoleValue Role = iota
	RoleLiteral
	RoleHashed
)

func (r Role) String() string {
	switch r {
	case RoleLiteral:
		return "literal"
	case RoleHashed:
		return "hashed"
	default:
		return "value"
	}
}

// KeyField is one component of a composite row key.
type KeyField struct {
	name     string
	role     Role
	literal  string
	bitStart int
	bitEnd   int
	length   int
}

// NewKeyField validates def. A field is exactly one of literal, hashed or value.
func NewKeyField(def types.KeyFieldDef) (*KeyField, error) {
	if def.Name == "" {
		return nil, schemaError("key field name is required", nil)
	}
	if def.Literal && def.Hashed {
		return nil, schemaError(fmt.Sprintf("key field %q cannot be both literal and hashed", def.Name), nil)
	}

	f := &KeyField{name: def.Name, length: def.Length}
	switch {
	case def.Hashed:
		if def.Value != "" || def.Length != 0 {
			return nil, schemaError(fmt.Sprintf("hashed key field %q cannot carry a value or length", def.Name), nil)
		}
		if def.BitStart < 0 || def.BitStart >= def.BitEnd {
			return nil, schemaError(fmt.Sprintf("key field %q has invalid bit range [%d, %d)",
				def.Name, def.BitStart, def.BitEnd), nil)
		}
		f.role = RoleHashed
		f.bitStart, f.bitEnd = def.BitStart, def.BitEnd
	case def.Literal:
		if def.BitStart != 0 || def.BitEnd != 0 {
			return nil, schemaError(fmt.Sprintf("literal key field %q cannot have a bit range", def.Name), nil)
		}
		if def.Length != 0 && def.Length != len(def.Value) {
			return nil, schemaError(fmt.Sprintf("literal key field %q is %d bytes, length says %d",
				def.Name, len(def.Value), def.Length), nil)
		}
		f.role = RoleLiteral
		f.literal = def.Value
	default:
		if def.Value != "" || def.BitStart != 0 || def.BitEnd != 0 {
			return nil, schemaError(fmt.Sprintf("value key field %q cannot have a literal or bit range", def.Name), nil)
		}
		if def.Length < 0 {
			return nil, schemaError(fmt.Sprintf("key field %q has negative length", def.Name), nil)
		}
		f.role = RoleValue
	}
	return f, nil
}

// Name returns the field name used in Build and Split maps.
func (f *KeyField) Name() string { return f.name }

// Role returns how the field contributes to the key.
func (f *KeyField) Role() Role { return f.role }

// IsLiteral reports whether the field is a fixed literal segment.
func (f *KeyField) IsLiteral() bool { return f.role == RoleLiteral }

// IsHashed reports whether the field feeds the key hash prefix.
func (f *KeyField) IsHashed() bool { return f.role == RoleHashed }

// LiteralValue returns the fixed text of a literal field, or "" otherwise.
func (f *KeyField) LiteralValue() string { return f.literal }

// Bits returns the hashed bit range [start, end).
func (f *KeyField) Bits() (start, end int) { return f.bitStart, f.bitEnd }

// Length returns the fixed byte width, or 0 when the width is variable.
func (f *KeyField) Length() int {
	if f.role == RoleLiteral {
		return len(f.literal)
	}
	return f.length
}

// Options configures a CompositeKey.
type Options struct {
	// Delimiter separates literal and value components
	Delimiter string
	// HashAlgorithm names the bucket hash (murmur3 or xxh3)
	HashAlgorithm string
}

// CompositeKey is an ordered sequence of key fields.
type CompositeKey struct {
	fields    []*KeyField
	delimiter []byte
	hasher    Hasher
	hashBits  int
}

// NewCompositeKey validates the field list. Hashed bit ranges must fit the hash and
// must not overlap; value field names must be unique.
func NewCompositeKey(fields []*KeyField, opts Options) (*CompositeKey, error) {
	if len(fields) == 0 {
		return nil, schemaError("row key needs at least one field", nil)
	}
	hasher, err := NewHasher(opts.HashAlgorithm)
	if err != nil {
		return nil, schemaError("invalid row key hash", err)
	}

	var hashed []*KeyField
	values := make(map[string]bool)
	for _, f := range fields {
		switch f.role {
		case RoleHashed:
			if f.bitEnd > hasher.Bits() {
				return nil, schemaError(fmt.Sprintf("key field %q bit range ends at %d, %s has %d bits",
					f.name, f.bitEnd, hasher.Name(), hasher.Bits()), nil)
			}
			hashed = append(hashed, f)
		case RoleValue:
			if values[f.name] {
				return nil, schemaError(fmt.Sprintf("duplicate value key field %q", f.name), nil)
			}
			values[f.name] = true
		}
	}

	sorted := make([]*KeyField, len(hashed))
	copy(sorted, hashed)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].bitStart < sorted[j].bitStart })
	bits := 0
	for i, f := range sorted {
		if i > 0 && f.bitStart < sorted[i-1].bitEnd {
			return nil, schemaError(fmt.Sprintf("key fields %q and %q overlap", sorted[i-1].name, f.name),
				types.ErrOverlappingBits)
		}
		bits += f.bitEnd - f.bitStart
	}

	out := make([]*KeyField, len(fields))
	copy(out, fields)
	return &CompositeKey{
		fields:    out,
		delimiter: []byte(opts.Delimiter),
		hasher:    hasher,
		hashBits:  bits,
	}, nil
}

// FromDef builds a CompositeKey from its serialisable definition.
func FromDef(def types.RowKeyDef) (*CompositeKey, error) {
	fields := make([]*KeyField, 0, len(def.Fields))
	for _, fd := range def.Fields {
		f, err := NewKeyField(fd)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return NewCompositeKey(fields, Options{Delimiter: def.Delimiter, HashAlgorithm: def.HashAlgorithm})
}

// Fields returns the key fields in declared order.
func (k *CompositeKey) Fields() []*KeyField {
	out := make([]*KeyField, len(k.fields))
	copy(out, k.fields)
	return out
}

// ValueFields returns the names of the value fields in declared order.
func (k *CompositeKey) ValueFields() []string {
	var names []string
	for _, f := range k.fields {
		if f.role == RoleValue {
			names = append(names, f.name)
		}
	}
	return names
}

// Hasher returns the bucket hasher.
func (k *CompositeKey) Hasher() Hasher { return k.hasher }

// IsHashed reports whether any field is hashed.
func (k *CompositeKey) IsHashed() bool {
	return k.hashBits > 0
}

// HashSizeBytes is the byte width of the hashed segment.
func (k *CompositeKey) HashSizeBytes() int {
	return (k.hashBits + 7) / 8
}

// IsColumnPresent reports whether any field, of any role, is called name.
func (k *CompositeKey) IsColumnPresent(name string) bool {
	for _, f := range k.fields {
		if f.name == name {
			return true
		}
	}
	return false
}

// IsAValidRowKey reports whether every value field is among names. Literal and
// hashed fields are not consulted.
func (k *CompositeKey) IsAValidRowKey(names []string) bool {
	provided := make(map[string]bool, len(names))
	for _, n := range names {
		provided[n] = true
	}
	for _, f := range k.fields {
		if f.role == RoleValue && !provided[f.name] {
			return false
		}
	}
	return true
}

// Build assembles the stored key from row values. The hashed segment comes first;
// it packs the bit ranges of every hashed field, in declared order, taken from one
// hash over the values the hashed fields name.
func (k *CompositeKey) Build(values map[string]string) ([]byte, error) {
	var buf bytes.Buffer

	if k.IsHashed() {
		seg, err := k.hashSegment(values)
		if err != nil {
			return nil, err
		}
		buf.Write(seg)
	}

	first := true
	for _, f := range k.fields {
		var part string
		switch f.role {
		case RoleHashed:
			continue
		case RoleLiteral:
			part = f.literal
		case RoleValue:
			v, ok := values[f.name]
			if !ok {
				return nil, merrors.NewRowKeyError(fmt.Sprintf("no value for key field %q", f.name),
					types.ErrMissingKeyField)
			}
			if f.length > 0 && len(v) != f.length {
				return nil, merrors.NewRowKeyError(fmt.Sprintf("key field %q must be %d bytes, got %d",
					f.name, f.length, len(v)), nil)
			}
			part = v
		}
		if !first {
			buf.Write(k.delimiter)
		}
		buf.WriteString(part)
		first = false
	}
	return buf.Bytes(), nil
}

func (k *CompositeKey) hashSegment(values map[string]string) ([]byte, error) {
	var input bytes.Buffer
	seen := make(map[string]bool)
	for _, f := range k.fields {
		if f.role != RoleHashed || seen[f.name] {
			continue
		}
		seen[f.name] = true
		v, ok := values[f.name]
		if !ok {
			return nil, merrors.NewRowKeyError(fmt.Sprintf("no value for hashed key field %q", f.name),
				types.ErrMissingKeyField)
		}
		input.WriteString(v)
	}

	sum := k.hasher.Sum(input.Bytes())
	seg := make([]byte, k.HashSizeBytes())
	pos := 0
	for _, f := range k.fields {
		if f.role != RoleHashed {
			continue
		}
		for i := f.bitStart; i < f.bitEnd; i++ {
			if bitAt(sum, i) == 1 {
				seg[pos/8] |= 1 << (7 - uint(pos%8))
			}
			pos++
		}
	}
	return seg, nil
}

// Split recovers the value fields from a stored key. The key needs either a
// delimiter or a fixed length on every non-hashed field.
func (k *CompositeKey) Split(key []byte) (map[string]string, error) {
	n := k.HashSizeBytes()
	if len(key) < n {
		return nil, merrors.NewRowKeyError(fmt.Sprintf("key is %d bytes, hashed segment needs %d", len(key), n), nil)
	}
	rest := key[n:]

	var parts []*KeyField
	for _, f := range k.fields {
		if f.role != RoleHashed {
			parts = append(parts, f)
		}
	}

	var raw [][]byte
	if len(k.delimiter) > 0 {
		raw = bytes.SplitN(rest, k.delimiter, len(parts))
		if len(raw) != len(parts) {
			return nil, merrors.NewRowKeyError(fmt.Sprintf("key has %d components, want %d", len(raw), len(parts)), nil)
		}
	} else {
		for _, f := range parts {
			w := f.Length()
			if w == 0 {
				return nil, merrors.NewRowKeyError(fmt.Sprintf("key field %q has no fixed length and no delimiter is set", f.name), nil)
			}
			if len(rest) < w {
				return nil, merrors.NewRowKeyError("key is shorter than its fixed-length fields", nil)
			}
			raw = append(raw, rest[:w])
			rest = rest[w:]
		}
		if len(rest) != 0 {
			return nil, merrors.NewRowKeyError(fmt.Sprintf("key has %d trailing bytes", len(rest)), nil)
		}
	}

	out := make(map[string]string)
	for i, f := range parts {
		switch f.role {
		case RoleLiteral:
			if string(raw[i]) != f.literal {
				return nil, merrors.NewRowKeyError(fmt.Sprintf("literal key field %q is %q, want %q",
					f.name, raw[i], f.literal), nil)
			}
		case RoleValue:
			out[f.name] = string(raw[i])
		}
	}
	return out, nil
}

func schemaError(msg string, cause error) error {
	return merrors.NewSchemaError(merrors.CodeInvalidSchema, msg, cause)
}
