package shv

import "sort"

// Type tags the variant carried by a Value.
type Type int

const (
	TypeUndefined Type = iota
	TypeNull
	TypeBool
	TypeInt
	TypeUInt
	TypeDouble
	TypeDecimal
	TypeBlob
	TypeString
	TypeDateTime
	TypeList
	TypeMap
	TypeIMap
)

func (t Type) String() string {
	switch t {
	case TypeUndefined:
		return "Undefined"
	case TypeNull:
		return "Null"
	case TypeBool:
		return "Bool"
	case TypeInt:
		return "Int"
	case TypeUInt:
		return "UInt"
	case TypeDouble:
		return "Double"
	case TypeDecimal:
		return "Decimal"
	case TypeBlob:
		return "Blob"
	case TypeString:
		return "String"
	case TypeDateTime:
		return "DateTime"
	case TypeList:
		return "List"
	case TypeMap:
		return "Map"
	case TypeIMap:
		return "IMap"
	default:
		return "Unknown"
	}
}

// Decimal is an arbitrary-precision-looking fixed-point number: a signed
// mantissa and a signed base-10 exponent, such that the value equals
// Mantissa * 10^Exponent.
type Decimal struct {
	Mantissa int64
	Exponent int
}

// DateTime is epoch milliseconds plus a UTC offset in minutes. ChainPack
// stores the offset at 15-minute granularity; the offset here is always
// in minutes so callers don't need to know the wire quantization.
type DateTime struct {
	EpochMs      int64
	UtcOffsetMin int
}

// Meta is the optional key/value annotation attached to a Value. Keys are
// either int64 or string; absent meta is represented by a nil Meta, which
// is serialized without a meta prefix, distinct from an empty-but-present
// Meta{}.
type Meta map[any]Value

// Get looks up key, which must be an int64 or a string.
func (m Meta) Get(key any) (Value, bool) {
	v, ok := m[key]
	return v, ok
}

// Set stores val under key (int64 or string), creating no new Meta -
// callers own allocation.
func (m Meta) Set(key any, val Value) {
	m[key] = val
}

// IntKeys returns the integer keys present in m, ascending.
func (m Meta) IntKeys() []int64 {
	var keys []int64
	for k := range m {
		if ik, ok := k.(int64); ok {
			keys = append(keys, ik)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// StringKeys returns the text keys present in m, lexicographically
// ascending.
func (m Meta) StringKeys() []string {
	var keys []string
	for k := range m {
		if sk, ok := k.(string); ok {
			keys = append(keys, sk)
		}
	}
	sort.Strings(keys)
	return keys
}

// Value is a tagged algebraic value with an optional Meta annotation.
// The concrete Go type stored in Val is determined by Type:
//
//	Null       nil
//	Bool       bool
//	Int        int64
//	UInt       uint64
//	Double     float64
//	Decimal    Decimal
//	Blob       []byte
//	String     string
//	DateTime   DateTime
//	List       []Value
//	Map        map[string]Value
//	IMap       map[int64]Value
//
// Undefined is never transmitted: writers degrade it to Null on output.
type Value struct {
	Type Type
	Val  any
	Meta Meta
}

// IsValid reports whether v carries a concrete (non-Undefined) type.
func (v Value) IsValid() bool {
	return v.Type != TypeUndefined
}

// HasMeta reports whether v carries a (possibly empty) meta map.
func (v Value) HasMeta() bool {
	return v.Meta != nil
}

// NewUndefined returns the zero-ish value used to mean "no params at
// all" (distinct from an explicit Null), e.g. a request with no
// Params key on the wire.
func NewUndefined() Value                 { return Value{Type: TypeUndefined} }
func NewNull() Value                      { return Value{Type: TypeNull} }
func NewBool(b bool) Value                { return Value{Type: TypeBool, Val: b} }
func NewInt(n int64) Value                { return Value{Type: TypeInt, Val: n} }
func NewUInt(n uint64) Value              { return Value{Type: TypeUInt, Val: n} }
func NewDouble(f float64) Value           { return Value{Type: TypeDouble, Val: f} }
func NewDecimal(mantissa int64, exp int) Value {
	return Value{Type: TypeDecimal, Val: Decimal{Mantissa: mantissa, Exponent: exp}}
}
func NewBlob(b []byte) Value     { return Value{Type: TypeBlob, Val: b} }
func NewString(s string) Value   { return Value{Type: TypeString, Val: s} }
func NewDateTime(dt DateTime) Value { return Value{Type: TypeDateTime, Val: dt} }
func NewList(items []Value) Value   { return Value{Type: TypeList, Val: items} }
func NewMap(m map[string]Value) Value { return Value{Type: TypeMap, Val: m} }
func NewIMap(m map[int64]Value) Value { return Value{Type: TypeIMap, Val: m} }

// AsInt returns the Int payload and true, or (0, false) if v is not Int.
func (v Value) AsInt() (int64, bool) {
	n, ok := v.Val.(int64)
	return n, ok && v.Type == TypeInt
}

// AsUInt returns the UInt payload and true, or (0, false) if v is not UInt.
func (v Value) AsUInt() (uint64, bool) {
	n, ok := v.Val.(uint64)
	return n, ok && v.Type == TypeUInt
}

// AsString returns the String payload and true, or ("", false) otherwise.
func (v Value) AsString() (string, bool) {
	s, ok := v.Val.(string)
	return s, ok && v.Type == TypeString
}

// AsBlob returns the Blob payload and true, or (nil, false) otherwise.
func (v Value) AsBlob() ([]byte, bool) {
	b, ok := v.Val.([]byte)
	return b, ok && v.Type == TypeBlob
}

// AsBool returns the Bool payload and true, or (false, false) otherwise.
func (v Value) AsBool() (bool, bool) {
	b, ok := v.Val.(bool)
	return b, ok && v.Type == TypeBool
}

// AsList returns the List payload and true, or (nil, false) otherwise.
func (v Value) AsList() ([]Value, bool) {
	l, ok := v.Val.([]Value)
	return l, ok && v.Type == TypeList
}

// AsMap returns the Map payload and true, or (nil, false) otherwise.
func (v Value) AsMap() (map[string]Value, bool) {
	m, ok := v.Val.(map[string]Value)
	return m, ok && v.Type == TypeMap
}

// AsIMap returns the IMap payload and true, or (nil, false) otherwise.
func (v Value) AsIMap() (map[int64]Value, bool) {
	m, ok := v.Val.(map[int64]Value)
	return m, ok && v.Type == TypeIMap
}

// AsDateTime returns the DateTime payload and true, or (zero, false)
// otherwise.
func (v Value) AsDateTime() (DateTime, bool) {
	dt, ok := v.Val.(DateTime)
	return dt, ok && v.Type == TypeDateTime
}

// AsDecimal returns the Decimal payload and true, or (zero, false)
// otherwise.
func (v Value) AsDecimal() (Decimal, bool) {
	d, ok := v.Val.(Decimal)
	return d, ok && v.Type == TypeDecimal
}

// IsFalsy reports whether v is the kind of "no"/zero result a method
// that returns a boolean-ish success flag uses to signal failure: Null,
// Bool(false), Int(0), or UInt(0). Anything else, including Undefined,
// is truthy.
func (v Value) IsFalsy() bool {
	switch v.Type {
	case TypeNull:
		return true
	case TypeBool:
		return !v.Val.(bool)
	case TypeInt:
		return v.Val.(int64) == 0
	case TypeUInt:
		return v.Val.(uint64) == 0
	default:
		return false
	}
}

// WithMeta returns a copy of v with its Meta replaced wholesale.
func (v Value) WithMeta(meta Meta) Value {
	v.Meta = meta
	return v
}
