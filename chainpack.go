package shv

import (
	"encoding/binary"
	"math"
	"sort"
)

// ChainPack type tag bytes (spec.md §4.2).
const (
	cpNull    byte = 128
	cpUInt    byte = 129
	cpInt     byte = 130
	cpDouble  byte = 131
	cpBool    byte = 132
	cpBlob    byte = 133
	cpString  byte = 134
	cpList    byte = 136
	cpMap     byte = 137
	cpIMap    byte = 138
	cpMetaMap byte = 139
	cpDecimal byte = 140
	cpDateTime byte = 141
	cpCString byte = 142
	cpFalse   byte = 253
	cpTrue    byte = 254
	cpTerm    byte = 255
)

// tinyIntFlag is bit 6 of a tag byte below 128: set means a tiny Int,
// clear means a tiny UInt, in both cases with the magnitude in the low
// 6 bits.
const tinyIntFlag byte = 1 << 6

// SHVEpochMs is the SHV epoch (2018-02-02 00:00:00 UTC) in Unix epoch
// milliseconds, used as a bias for DateTime encoding.
const SHVEpochMs int64 = 1517529600000

// WriteChainPack encodes v (and its Meta, if present) to ChainPack bytes.
func WriteChainPack(v Value) ([]byte, error) {
	w := &chainPackWriter{ctx: NewWriteCtx()}
	if err := w.write(v); err != nil {
		return nil, err
	}
	return w.ctx.Bytes(), nil
}

// ReadChainPack decodes a single ChainPack-encoded Value from data. It
// does not require the whole buffer to be consumed.
func ReadChainPack(data []byte) (Value, error) {
	r := &chainPackReader{ctx: NewReadCtx(data)}
	return r.read()
}

// ReadChainPackCtx decodes a single Value from an existing ReadCtx,
// leaving the cursor positioned right after the value. Used by the
// framing layer, which shares one ReadCtx across the length prefix, the
// protocol byte, and the body.
func ReadChainPackCtx(ctx *ReadCtx) (Value, error) {
	r := &chainPackReader{ctx: ctx}
	return r.read()
}

type chainPackReader struct {
	ctx *ReadCtx
}

func (r *chainPackReader) read() (Value, error) {
	tag, err := r.ctx.GetByte()
	if err != nil {
		return Value{}, err
	}

	var meta Meta
	if tag == cpMetaMap {
		meta, err = r.readMapBody()
		if err != nil {
			return Value{}, err
		}
		tag, err = r.ctx.GetByte()
		if err != nil {
			return Value{}, err
		}
	}

	v, err := r.readByTag(tag)
	if err != nil {
		return Value{}, err
	}
	v.Meta = meta
	return v, nil
}

func (r *chainPackReader) readByTag(tag byte) (Value, error) {
	if tag < 128 {
		if tag&tinyIntFlag != 0 {
			return NewInt(int64(tag &^ tinyIntFlag)), nil
		}
		return NewUInt(uint64(tag)), nil
	}

	switch tag {
	case cpNull:
		return NewNull(), nil
	case cpTrue:
		return NewBool(true), nil
	case cpFalse:
		return NewBool(false), nil
	case cpInt:
		n, err := r.readIntData()
		if err != nil {
			return Value{}, err
		}
		return NewInt(n), nil
	case cpUInt:
		n, err := r.readUintData()
		if err != nil {
			return Value{}, err
		}
		return NewUInt(n), nil
	case cpDouble:
		raw, err := r.ctx.GetBytes(8)
		if err != nil {
			return Value{}, err
		}
		bits := binary.LittleEndian.Uint64(raw)
		return NewDouble(math.Float64frombits(bits)), nil
	case cpDecimal:
		mant, err := r.readIntData()
		if err != nil {
			return Value{}, err
		}
		exp, err := r.readIntData()
		if err != nil {
			return Value{}, err
		}
		return NewDecimal(mant, int(exp)), nil
	case cpDateTime:
		return r.readDateTime()
	case cpMap:
		m, err := r.readMapBody()
		if err != nil {
			return Value{}, err
		}
		return NewMap(metaToStringMap(m)), nil
	case cpIMap:
		m, err := r.readMapBody()
		if err != nil {
			return Value{}, err
		}
		return NewIMap(metaToIntMap(m)), nil
	case cpList:
		items, err := r.readList()
		if err != nil {
			return Value{}, err
		}
		return NewList(items), nil
	case cpBlob:
		n, err := r.readUintData()
		if err != nil {
			return Value{}, err
		}
		raw, err := r.ctx.GetBytes(int(n))
		if err != nil {
			return Value{}, err
		}
		return NewBlob(append([]byte(nil), raw...)), nil
	case cpString:
		n, err := r.readUintData()
		if err != nil {
			return Value{}, err
		}
		raw, err := r.ctx.GetBytes(int(n))
		if err != nil {
			return Value{}, err
		}
		return NewString(string(raw)), nil
	case cpCString:
		s, err := r.readCString()
		if err != nil {
			return Value{}, err
		}
		return NewString(s), nil
	default:
		return Value{}, &MalformedInputError{Reason: "invalid chainpack type tag"}
	}
}

func (r *chainPackReader) readCString() (string, error) {
	w := NewWriteCtx()
	for {
		b, err := r.ctx.GetByte()
		if err != nil {
			return "", err
		}
		if b == '\\' {
			b, err = r.ctx.GetByte()
			if err != nil {
				return "", err
			}
			switch b {
			case '\\':
				w.PutByte('\\')
			case '0':
				w.PutByte(0)
			default:
				w.PutByte(b)
			}
			continue
		}
		if b == 0 {
			break
		}
		w.PutByte(b)
	}
	return string(w.Bytes()), nil
}

func (r *chainPackReader) readDateTime() (Value, error) {
	d, err := r.readIntData()
	if err != nil {
		return Value{}, err
	}
	hasOffset := d&1 != 0
	hasNotMsec := d&2 != 0
	d >>= 2
	offset := int64(0)
	if hasOffset {
		offset = d & 0x7F
		if offset&0b01000000 != 0 {
			offset -= 128
		}
		d >>= 7
	}
	if hasNotMsec {
		d *= 1000
	}
	d += SHVEpochMs
	return NewDateTime(DateTime{EpochMs: d, UtcOffsetMin: int(offset) * 15}), nil
}

func (r *chainPackReader) readList() ([]Value, error) {
	var out []Value
	for {
		if r.ctx.PeekByte() == int(cpTerm) {
			r.ctx.GetByte()
			break
		}
		v, err := r.read()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// readMapBody reads alternating key/value pairs up to a TERM sentinel.
// Keys are read as Values and normalized to int64 or string; this is
// shared by Map, IMap, and Meta, which all use the same wire shape and
// differ only in how the caller interprets the keys.
func (r *chainPackReader) readMapBody() (Meta, error) {
	m := Meta{}
	for {
		if r.ctx.PeekByte() == int(cpTerm) {
			r.ctx.GetByte()
			break
		}
		key, err := r.read()
		if err != nil {
			return nil, err
		}
		val, err := r.read()
		if err != nil {
			return nil, err
		}
		switch key.Type {
		case TypeString:
			m[key.Val.(string)] = val
		case TypeInt:
			m[key.Val.(int64)] = val
		case TypeUInt:
			m[int64(key.Val.(uint64))] = val
		default:
			return nil, &MalformedInputError{Reason: "malformed map key"}
		}
	}
	return m, nil
}

func metaToStringMap(m Meta) map[string]Value {
	out := make(map[string]Value, len(m))
	for k, v := range m {
		if sk, ok := k.(string); ok {
			out[sk] = v
		}
	}
	return out
}

func metaToIntMap(m Meta) map[int64]Value {
	out := make(map[int64]Value, len(m))
	for k, v := range m {
		if ik, ok := k.(int64); ok {
			out[ik] = v
		}
	}
	return out
}

// readUintDataHelper decodes the prefix-length unsigned integer scheme
// (spec.md §4.2) and returns the value along with the bit width it was
// decoded at, which the signed variant needs to locate the sign bit.
func (r *chainPackReader) readUintDataHelper() (uint64, int, error) {
	head, err := r.ctx.GetByte()
	if err != nil {
		return 0, 0, err
	}

	var extra int
	var num uint64
	var bitlen int
	switch {
	case head&0x80 == 0:
		extra = 0
		num = uint64(head & 0x7F)
		bitlen = 7
	case head&0x40 == 0:
		extra = 1
		num = uint64(head & 0x3F)
		bitlen = 6 + 8
	case head&0x20 == 0:
		extra = 2
		num = uint64(head & 0x1F)
		bitlen = 5 + 2*8
	case head&0x10 == 0:
		extra = 3
		num = uint64(head & 0x0F)
		bitlen = 4 + 3*8
	default:
		extra = int(head&0x0F) + 4
		bitlen = extra * 8
	}

	for i := 0; i < extra; i++ {
		b, err := r.ctx.GetByte()
		if err != nil {
			return 0, 0, err
		}
		num = (num << 8) | uint64(b)
	}
	return num, bitlen, nil
}

func (r *chainPackReader) readUintData() (uint64, error) {
	num, _, err := r.readUintDataHelper()
	return num, err
}

func (r *chainPackReader) readIntData() (int64, error) {
	num, bitlen, err := r.readUintDataHelper()
	if err != nil {
		return 0, err
	}
	signMask := uint64(1) << (bitlen - 1)
	neg := num&signMask != 0
	if neg {
		num &^= signMask
		return -int64(num), nil
	}
	return int64(num), nil
}

type chainPackWriter struct {
	ctx *WriteCtx
}

func (w *chainPackWriter) write(v Value) error {
	if v.Meta != nil {
		w.writeMapLike(cpMetaMap, v.Meta)
	}
	switch v.Type {
	case TypeUndefined, TypeNull:
		w.ctx.PutByte(cpNull)
	case TypeBool:
		if v.Val.(bool) {
			w.ctx.PutByte(cpTrue)
		} else {
			w.ctx.PutByte(cpFalse)
		}
	case TypeBlob:
		w.writeBlob(v.Val.([]byte))
	case TypeString:
		w.writeString(v.Val.(string))
	case TypeUInt:
		w.writeUint(v.Val.(uint64))
	case TypeInt:
		w.writeInt(v.Val.(int64))
	case TypeDouble:
		w.writeDouble(v.Val.(float64))
	case TypeDecimal:
		w.writeDecimal(v.Val.(Decimal))
	case TypeList:
		return w.writeList(v.Val.([]Value))
	case TypeMap:
		return w.writeMap(v.Val.(map[string]Value))
	case TypeIMap:
		return w.writeIMap(v.Val.(map[int64]Value))
	case TypeDateTime:
		return w.writeDateTime(v.Val.(DateTime))
	default:
		return &InvalidValueError{Reason: "unrecognized value type " + v.Type.String()}
	}
	return nil
}

func (w *chainPackWriter) writeUint(n uint64) {
	if n < 64 {
		w.ctx.PutByte(byte(n))
		return
	}
	w.ctx.PutByte(cpUInt)
	w.writeUintData(n)
}

func (w *chainPackWriter) writeInt(n int64) {
	if n >= 0 && n < 64 {
		w.ctx.PutByte(byte(n) | tinyIntFlag)
		return
	}
	w.ctx.PutByte(cpInt)
	w.writeIntData(n)
}

func (w *chainPackWriter) writeDouble(f float64) {
	w.ctx.PutByte(cpDouble)
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:], math.Float64bits(f))
	w.ctx.WriteBytes(raw[:])
}

func (w *chainPackWriter) writeDecimal(d Decimal) {
	w.ctx.PutByte(cpDecimal)
	w.writeIntData(d.Mantissa)
	w.writeIntData(int64(d.Exponent))
}

func (w *chainPackWriter) writeDateTime(dt DateTime) error {
	w.ctx.PutByte(cpDateTime)
	offset := dt.UtcOffsetMin / 15
	if offset < -63 || offset > 63 {
		return &InvalidValueError{Reason: "DateTime UTC offset out of range"}
	}
	msecs := dt.EpochMs - SHVEpochMs
	hasOffset := offset != 0
	ms := ((msecs % 1000) + 1000) % 1000
	hasNotMsec := ms == 0
	if hasNotMsec {
		msecs /= 1000
	}
	if hasOffset {
		msecs <<= 7
		msecs |= int64(offset) & 0x7F
	}
	msecs <<= 2
	if hasOffset {
		msecs |= 1
	}
	if hasNotMsec {
		msecs |= 2
	}
	w.writeIntData(msecs)
	return nil
}

func (w *chainPackWriter) writeBlob(data []byte) {
	w.ctx.PutByte(cpBlob)
	w.writeUintData(uint64(len(data)))
	w.ctx.WriteBytes(data)
}

func (w *chainPackWriter) writeString(s string) {
	w.ctx.PutByte(cpString)
	w.writeUintData(uint64(len(s)))
	w.ctx.WriteString(s)
}

func (w *chainPackWriter) writeList(items []Value) error {
	w.ctx.PutByte(cpList)
	for _, item := range items {
		if err := w.write(item); err != nil {
			return err
		}
	}
	w.ctx.PutByte(cpTerm)
	return nil
}

func (w *chainPackWriter) writeMap(m map[string]Value) error {
	w.ctx.PutByte(cpMap)
	return w.writeMapBody(stringMapKeys(m), m, nil)
}

func (w *chainPackWriter) writeIMap(m map[int64]Value) error {
	w.ctx.PutByte(cpIMap)
	return w.writeMapBody(nil, nil, intMapPairs(m))
}

// writeMapLike writes a Meta map under the given tag; it never fails
// because Meta values (from a reader or a well-formed builder) are
// already valid Values.
func (w *chainPackWriter) writeMapLike(tag byte, m Meta) {
	w.ctx.PutByte(tag)
	for _, k := range m.IntKeys() {
		w.writeInt(k)
		_ = w.write(m[k])
	}
	for _, k := range m.StringKeys() {
		w.writeString(k)
		_ = w.write(m[k])
	}
	w.ctx.PutByte(cpTerm)
}

type intValuePair struct {
	key int64
	val Value
}

// Map/IMap key order is not wire-significant for ChainPack, but a
// deterministic (sorted) write order is what makes the
// ChainPack-to-value-to-ChainPack round trip byte-identical despite Go's
// randomized map iteration - matching the Cpon writer's own key
// ordering (spec.md §4.3) keeps the two codecs' notion of "canonical
// order" consistent.
func intMapPairs(m map[int64]Value) []intValuePair {
	pairs := make([]intValuePair, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, intValuePair{k, v})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })
	return pairs
}

func stringMapKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (w *chainPackWriter) writeMapBody(strKeys []string, strMap map[string]Value, intPairs []intValuePair) error {
	for _, p := range intPairs {
		w.writeInt(p.key)
		if err := w.write(p.val); err != nil {
			return err
		}
	}
	for _, k := range strKeys {
		w.writeString(k)
		if err := w.write(strMap[k]); err != nil {
			return err
		}
	}
	w.ctx.PutByte(cpTerm)
	return nil
}

// significantBits returns the number of bits needed to hold num, minimum
// 1 (so that num==0 still encodes in one byte).
func significantBits(num uint64) int {
	length := 0
	if num&0xFFFFFFFF00000000 != 0 {
		length += 32
		num >>= 32
	}
	if num&0xFFFF0000 != 0 {
		length += 16
		num >>= 16
	}
	if num&0xFF00 != 0 {
		length += 8
		num >>= 8
	}
	if num&0xF0 != 0 {
		length += 4
		num >>= 4
	}
	length += sigTable4Bit[num]
	if length < 1 {
		length = 1
	}
	return length
}

var sigTable4Bit = [16]int{0, 1, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4, 4, 4, 4, 4}

// bytesNeeded returns the number of bytes the prefix-length scheme uses
// to encode a value with the given significant bit length.
func bytesNeeded(bitLen int) int {
	if bitLen <= 28 {
		return (bitLen-1)/7 + 1
	}
	return (bitLen-1)/8 + 2
}

// expandBitLen returns the usable payload bit width for the byte count
// bytesNeeded(bitLen) chose - i.e. the width the sign bit is placed
// within for the signed variant.
func expandBitLen(bitLen int) int {
	byteCnt := bytesNeeded(bitLen)
	if bitLen <= 28 {
		return byteCnt*(8-1) - 1
	}
	return (byteCnt-1)*8 - 1
}

func (w *chainPackWriter) writeUintDataHelper(num uint64, bitLen int) {
	byteCnt := bytesNeeded(bitLen)
	data := make([]byte, byteCnt)
	n := num
	for i := byteCnt - 1; i >= 0; i-- {
		data[i] = byte(n & 0xFF)
		n >>= 8
	}
	if bitLen <= 28 {
		mask := byte(0xF0 << (4 - byteCnt))
		data[0] &^= mask
		mask = (mask << 1) & 0xFF
		data[0] |= mask
	} else {
		data[0] = 0xF0 | byte(byteCnt-5)
	}
	w.ctx.WriteBytes(data)
}

func (w *chainPackWriter) writeUintData(num uint64) {
	bitlen := significantBits(num)
	w.writeUintDataHelper(num, bitlen)
}

func (w *chainPackWriter) writeIntData(snum int64) {
	neg := snum < 0
	num := uint64(snum)
	if neg {
		num = uint64(-snum)
	}
	bitlen := significantBits(num) + 1
	if neg {
		signPos := expandBitLen(bitlen)
		num |= uint64(1) << signPos
	}
	w.writeUintDataHelper(num, bitlen)
}
