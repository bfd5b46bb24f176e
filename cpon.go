package shv

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// WriterOptions configures the Cpon writer. The zero value renders fully
// inline Cpon (see spec.md §4.3's 10-item/no-nested-container rule);
// setting Indent switches block-form containers to one item per line,
// prefixed by Indent repeated by nesting depth.
type WriterOptions struct {
	Indent []byte
}

// ReadCpon decodes a single Cpon-encoded Value from data.
func ReadCpon(data []byte) (Value, error) {
	r := &cponReader{ctx: NewReadCtx(data)}
	return r.read()
}

// WriteCpon encodes v (and its Meta, if present) to Cpon text. opts may
// be nil for the default (no indent, maximally inline) behavior.
func WriteCpon(v Value, opts *WriterOptions) ([]byte, error) {
	if opts == nil {
		opts = &WriterOptions{}
	}
	w := &cponWriter{ctx: NewWriteCtx(), opts: opts}
	if err := w.write(v); err != nil {
		return nil, err
	}
	return w.ctx.Bytes(), nil
}

type cponReader struct {
	ctx *ReadCtx
}

func (r *cponReader) skipWhiteInsignificant() error {
	for {
		b := r.ctx.PeekByte()
		if b < 0 {
			return nil
		}
		if b > ' ' {
			switch b {
			case '/':
				r.ctx.GetByte()
				c, err := r.ctx.GetByte()
				if err != nil {
					return err
				}
				switch c {
				case '*':
					for {
						d, err := r.ctx.GetByte()
						if err != nil {
							return err
						}
						if d == '*' {
							e, err := r.ctx.GetByte()
							if err != nil {
								return err
							}
							if e == '/' {
								break
							}
						}
					}
				case '/':
					for {
						d, err := r.ctx.GetByte()
						if err != nil {
							return err
						}
						if d == '\n' {
							break
						}
					}
				default:
					return &MalformedInputError{Reason: "malformed comment"}
				}
			case ':', ',':
				r.ctx.GetByte()
			default:
				return nil
			}
		} else {
			r.ctx.GetByte()
		}
	}
}

func (r *cponReader) read() (Value, error) {
	var meta Meta
	if err := r.skipWhiteInsignificant(); err != nil {
		return Value{}, err
	}
	if r.ctx.PeekByte() == '<' {
		m, err := r.readMap('>')
		if err != nil {
			return Value{}, err
		}
		meta = m
	}

	if err := r.skipWhiteInsignificant(); err != nil {
		return Value{}, err
	}
	b := r.ctx.PeekByte()
	var v Value
	var err error
	switch {
	case b >= '0' && b <= '9' || b == '+' || b == '-':
		v, err = r.readNumber()
	case b == '"':
		var s string
		s, err = r.readCString()
		v = NewString(s)
	case b == '[':
		var items []Value
		items, err = r.readList()
		v = NewList(items)
	case b == '{':
		var m map[string]Value
		m, err = r.readMapAsString()
		v = NewMap(m)
	case b == 'i':
		r.ctx.GetByte()
		if r.ctx.PeekByte() != '{' {
			return Value{}, &MalformedInputError{Reason: "invalid imap prefix"}
		}
		var m map[int64]Value
		m, err = r.readMapAsInt()
		v = NewIMap(m)
	case b == 'd':
		r.ctx.GetByte()
		if r.ctx.PeekByte() != '"' {
			return Value{}, &MalformedInputError{Reason: "invalid datetime prefix"}
		}
		var dt DateTime
		dt, err = r.readDateTime()
		v = NewDateTime(dt)
	case b == 'b':
		r.ctx.GetByte()
		if r.ctx.PeekByte() != '"' {
			return Value{}, &MalformedInputError{Reason: "invalid blob prefix"}
		}
		var blob []byte
		blob, err = r.readBlob()
		v = NewBlob(blob)
	case b == 'x':
		r.ctx.GetByte()
		if r.ctx.PeekByte() != '"' {
			return Value{}, &MalformedInputError{Reason: "invalid hex blob prefix"}
		}
		var blob []byte
		blob, err = r.readHexBlob()
		v = NewBlob(blob)
	case b == 't':
		err = r.ctx.ExpectBytes([]byte("true"))
		v = NewBool(true)
	case b == 'f':
		err = r.ctx.ExpectBytes([]byte("false"))
		v = NewBool(false)
	case b == 'n':
		err = r.ctx.ExpectBytes([]byte("null"))
		v = NewNull()
	default:
		return Value{}, &MalformedInputError{Reason: "malformed cpon input"}
	}
	if err != nil {
		return Value{}, err
	}
	v.Meta = meta
	return v, nil
}

func (r *cponReader) readDateTime() (DateTime, error) {
	r.ctx.GetByte() // eat '"'
	if r.ctx.PeekByte() == '"' {
		return DateTime{}, &MalformedInputError{Reason: "empty datetime literal"}
	}

	year, err := r.readInt()
	if err != nil {
		return DateTime{}, err
	}
	if err := r.expectByte('-'); err != nil {
		return DateTime{}, err
	}
	month, err := r.readInt()
	if err != nil {
		return DateTime{}, err
	}
	if err := r.expectByte('-'); err != nil {
		return DateTime{}, err
	}
	day, err := r.readInt()
	if err != nil {
		return DateTime{}, err
	}
	sep, err := r.ctx.GetByte()
	if err != nil {
		return DateTime{}, err
	}
	if sep != ' ' && sep != 'T' {
		return DateTime{}, &MalformedInputError{Reason: "malformed date-time separator"}
	}
	hour, err := r.readInt()
	if err != nil {
		return DateTime{}, err
	}
	if err := r.expectByte(':'); err != nil {
		return DateTime{}, err
	}
	minute, err := r.readInt()
	if err != nil {
		return DateTime{}, err
	}
	if err := r.expectByte(':'); err != nil {
		return DateTime{}, err
	}
	sec, err := r.readInt()
	if err != nil {
		return DateTime{}, err
	}

	msec := int64(0)
	if r.ctx.PeekByte() == '.' {
		r.ctx.GetByte()
		msec, err = r.readInt()
		if err != nil {
			return DateTime{}, err
		}
	}

	utcOffsetMin := int64(0)
	switch r.ctx.PeekByte() {
	case 'Z':
		r.ctx.GetByte()
	case '+', '-':
		sign, _ := r.ctx.GetByte()
		start := r.ctx.Pos()
		val, err := r.readInt()
		if err != nil {
			return DateTime{}, err
		}
		n := r.ctx.Pos() - start
		switch n {
		case 2:
			utcOffsetMin = 60 * val
		case 4:
			utcOffsetMin = 60*(val/100) + val%100
		default:
			return DateTime{}, &MalformedInputError{Reason: "malformed timezone offset in datetime"}
		}
		if sign == '-' {
			utcOffsetMin = -utcOffsetMin
		}
	}

	end, err := r.ctx.GetByte()
	if err != nil {
		return DateTime{}, err
	}
	if end != '"' {
		return DateTime{}, &MalformedInputError{Reason: "datetime literal not terminated by '\"'"}
	}

	epochMs := civilToEpochMs(int(year), int(month), int(day), int(hour), int(minute), int(sec)) - utcOffsetMin*60*1000
	return DateTime{EpochMs: epochMs + msec, UtcOffsetMin: int(utcOffsetMin)}, nil
}

func (r *cponReader) expectByte(want byte) error {
	got, err := r.ctx.GetByte()
	if err != nil {
		return err
	}
	if got != want {
		return &MalformedInputError{Reason: fmt.Sprintf("expected %q", want)}
	}
	return nil
}

func hexDigit(b byte) (int, error) {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0'), nil
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10, nil
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10, nil
	default:
		return 0, &MalformedInputError{Reason: "invalid hex digit"}
	}
}

func (r *cponReader) readBlob() ([]byte, error) {
	w := NewWriteCtx()
	r.ctx.GetByte() // eat '"'
	for {
		b, err := r.ctx.GetByte()
		if err != nil {
			return nil, err
		}
		if b == '\\' {
			b, err = r.ctx.GetByte()
			if err != nil {
				return nil, err
			}
			switch b {
			case '\\':
				w.PutByte('\\')
			case '"':
				w.PutByte('"')
			case 'n':
				w.PutByte('\n')
			case 'r':
				w.PutByte('\r')
			case 't':
				w.PutByte('\t')
			default:
				lo, err := r.ctx.GetByte()
				if err != nil {
					return nil, err
				}
				hi, err := hexDigit(b)
				if err != nil {
					return nil, err
				}
				loN, err := hexDigit(lo)
				if err != nil {
					return nil, err
				}
				w.PutByte(byte(16*hi + loN))
			}
			continue
		}
		if b == '"' {
			break
		}
		w.PutByte(b)
	}
	return w.Bytes(), nil
}

func (r *cponReader) readHexBlob() ([]byte, error) {
	w := NewWriteCtx()
	r.ctx.GetByte() // eat '"'
	for {
		b, err := r.ctx.GetByte()
		if err != nil {
			return nil, err
		}
		if b == '"' {
			break
		}
		lo, err := r.ctx.GetByte()
		if err != nil {
			return nil, err
		}
		hi, err := hexDigit(b)
		if err != nil {
			return nil, err
		}
		loN, err := hexDigit(lo)
		if err != nil {
			return nil, err
		}
		w.PutByte(byte(16*hi + loN))
	}
	return w.Bytes(), nil
}

func (r *cponReader) readCString() (string, error) {
	w := NewWriteCtx()
	r.ctx.GetByte() // eat '"'
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
			case 'b':
				w.PutByte('\b')
			case '"':
				w.PutByte('"')
			case 'f':
				w.PutByte('\f')
			case 'n':
				w.PutByte('\n')
			case 'r':
				w.PutByte('\r')
			case 't':
				w.PutByte('\t')
			case '0':
				w.PutByte(0)
			default:
				w.PutByte(b)
			}
			continue
		}
		if b == '"' {
			break
		}
		w.PutByte(b)
	}
	return string(w.Bytes()), nil
}

func (r *cponReader) readList() ([]Value, error) {
	var out []Value
	r.ctx.GetByte() // eat '['
	for {
		if err := r.skipWhiteInsignificant(); err != nil {
			return nil, err
		}
		if r.ctx.PeekByte() == ']' {
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

// readMap reads a brace/angle-bracket delimited map body and returns it
// as a Meta (key type preserved as int64 or string), used for meta maps.
func (r *cponReader) readMap(terminator byte) (Meta, error) {
	m := Meta{}
	r.ctx.GetByte() // eat '<' or '{'
	for {
		if err := r.skipWhiteInsignificant(); err != nil {
			return nil, err
		}
		if byte(r.ctx.PeekByte()) == terminator {
			r.ctx.GetByte()
			break
		}
		keyVal, err := r.read()
		if err != nil {
			return nil, err
		}
		var key any
		switch keyVal.Type {
		case TypeString:
			key = keyVal.Val.(string)
		case TypeUInt:
			key = int64(keyVal.Val.(uint64))
		case TypeInt:
			key = keyVal.Val.(int64)
		default:
			return nil, &MalformedInputError{Reason: "malformed map key"}
		}
		if err := r.skipWhiteInsignificant(); err != nil {
			return nil, err
		}
		val, err := r.read()
		if err != nil {
			return nil, err
		}
		m[key] = val
	}
	return m, nil
}

func (r *cponReader) readMapAsString() (map[string]Value, error) {
	m, err := r.readMap('}')
	if err != nil {
		return nil, err
	}
	return metaToStringMap(m), nil
}

func (r *cponReader) readMapAsInt() (map[int64]Value, error) {
	m, err := r.readMap('}')
	if err != nil {
		return nil, err
	}
	return metaToIntMap(m), nil
}

// readInt reads a bare decimal or 0x-prefixed hex integer, with optional
// leading sign, stopping at the first byte that doesn't extend it.
func (r *cponReader) readInt() (int64, error) {
	base := int64(10)
	var val int64
	neg := false
	n := -1
	for {
		n++
		b := r.ctx.PeekByte()
		if b < 0 {
			break
		}
		switch {
		case b == '+' || b == '-':
			if n > 0 {
				return applySign(val, neg), nil
			}
			r.ctx.GetByte()
			neg = b == '-'
		case b == 'x':
			if n != 1 {
				return applySign(val, neg), nil
			}
			r.ctx.GetByte()
			base = 16
		case b >= '0' && b <= '9':
			r.ctx.GetByte()
			val = val*base + int64(b-'0')
		case b >= 'A' && b <= 'F':
			if base != 16 {
				return applySign(val, neg), nil
			}
			r.ctx.GetByte()
			val = val*base + int64(b-'A') + 10
		case b >= 'a' && b <= 'f':
			if base != 16 {
				return applySign(val, neg), nil
			}
			r.ctx.GetByte()
			val = val*base + int64(b-'a') + 10
		default:
			return applySign(val, neg), nil
		}
	}
	return applySign(val, neg), nil
}

func applySign(val int64, neg bool) int64 {
	if neg {
		return -val
	}
	return val
}

func (r *cponReader) readNumber() (Value, error) {
	isNeg := false
	if r.ctx.PeekByte() == '-' {
		isNeg = true
	}
	mantissa, err := r.readInt()
	if err != nil {
		return Value{}, err
	}

	isDecimal := false
	isUint := false
	decimals := int64(0)
	decCnt := 0
	exponent := 0

	b := r.ctx.PeekByte()
	if b == 'u' {
		r.ctx.GetByte()
		isUint = true
	} else {
		if b == '.' {
			isDecimal = true
			r.ctx.GetByte()
			start := r.ctx.Pos()
			decimals, err = r.readInt()
			if err != nil {
				return Value{}, err
			}
			decCnt = r.ctx.Pos() - start
			b = r.ctx.PeekByte()
		}
		if b == 'e' || b == 'E' {
			isDecimal = true
			r.ctx.GetByte()
			start := r.ctx.Pos()
			exp64, err := r.readInt()
			if err != nil {
				return Value{}, err
			}
			if r.ctx.Pos() == start {
				return Value{}, &MalformedInputError{Reason: "malformed number exponent"}
			}
			exponent = int(exp64)
		}
	}

	if isDecimal {
		// mantissa already carries its sign (readInt consumed the
		// leading '-'); fold the fractional digits into the magnitude
		// and reapply the sign once, rather than stacking it on top of
		// what readInt already applied.
		abs := mantissa
		if isNeg {
			abs = -abs
		}
		for i := 0; i < decCnt; i++ {
			abs *= 10
		}
		abs += decimals
		if isNeg {
			abs = -abs
		}
		return NewDecimal(abs, exponent-decCnt), nil
	}
	if isUint {
		return NewUInt(uint64(mantissa)), nil
	}
	return NewInt(mantissa), nil
}

// --- writer ---

type cponWriter struct {
	ctx       *WriteCtx
	opts      *WriterOptions
	nestLevel int
}

func (w *cponWriter) write(v Value) error {
	if v.Meta != nil {
		w.writeMeta(v.Meta)
	}
	switch v.Type {
	case TypeNull, TypeUndefined:
		w.ctx.WriteString("null")
	case TypeBool:
		if v.Val.(bool) {
			w.ctx.WriteString("true")
		} else {
			w.ctx.WriteString("false")
		}
	case TypeBlob:
		w.writeBlob(v.Val.([]byte))
	case TypeString:
		w.writeCString(v.Val.(string))
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

func (w *cponWriter) indentItem(oneline bool, itemIndex int) {
	if len(w.opts.Indent) == 0 {
		return
	}
	if oneline {
		if itemIndex > 0 {
			w.ctx.PutByte(' ')
		}
		return
	}
	w.ctx.PutByte('\n')
	for i := 0; i < w.nestLevel; i++ {
		w.ctx.WriteBytes(w.opts.Indent)
	}
}

func nibbleToHex(n int) byte {
	if n < 10 {
		return byte('0' + n)
	}
	return byte('a' + n - 10)
}

func (w *cponWriter) writeBlob(data []byte) {
	w.ctx.WriteString(`b"`)
	for _, b := range data {
		switch {
		case b == '\\':
			w.ctx.WriteString(`\\`)
		case b == '\t':
			w.ctx.WriteString(`\t`)
		case b == '\r':
			w.ctx.WriteString(`\r`)
		case b == '\n':
			w.ctx.WriteString(`\n`)
		case b == '"':
			w.ctx.WriteString(`\"`)
		case b >= 0x7F:
			w.ctx.PutByte('\\')
			w.ctx.PutByte(nibbleToHex(int(b) / 16))
			w.ctx.PutByte(nibbleToHex(int(b) % 16))
		default:
			w.ctx.PutByte(b)
		}
	}
	w.ctx.PutByte('"')
}

func (w *cponWriter) writeCString(s string) {
	w.ctx.PutByte('"')
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch b {
		case 0:
			w.ctx.WriteString(`\0`)
		case '\\':
			w.ctx.WriteString(`\\`)
		case '\t':
			w.ctx.WriteString(`\t`)
		case '\b':
			w.ctx.WriteString(`\b`)
		case '\r':
			w.ctx.WriteString(`\r`)
		case '\n':
			w.ctx.WriteString(`\n`)
		case '"':
			w.ctx.WriteString(`\"`)
		default:
			w.ctx.PutByte(b)
		}
	}
	w.ctx.PutByte('"')
}

func (w *cponWriter) writeDateTime(dt DateTime) error {
	if dt.UtcOffsetMin < -15*63 || dt.UtcOffsetMin > 15*63 {
		return &InvalidValueError{Reason: "DateTime UTC offset out of range"}
	}
	year, month, day, hour, minute, sec, msec := epochMsToCivil(dt.EpochMs + int64(dt.UtcOffsetMin)*60*1000)
	w.ctx.WriteString(`d"`)
	w.ctx.WriteString(fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d", year, month, day, hour, minute, sec))
	if msec != 0 {
		w.ctx.WriteString(fmt.Sprintf(".%03d", msec))
	}
	switch {
	case dt.UtcOffsetMin == 0:
		w.ctx.PutByte('Z')
	default:
		sign := byte('+')
		off := dt.UtcOffsetMin
		if off < 0 {
			sign = '-'
			off = -off
		}
		w.ctx.PutByte(sign)
		w.ctx.WriteString(fmt.Sprintf("%02d", off/60))
		if off%60 != 0 {
			w.ctx.WriteString(fmt.Sprintf("%02d", off%60))
		}
	}
	w.ctx.PutByte('"')
	return nil
}

func (w *cponWriter) writeMeta(m Meta) {
	w.ctx.PutByte('<')
	w.writeMapContent(m)
	w.ctx.PutByte('>')
}

func (w *cponWriter) writeMap(m map[string]Value) error {
	w.ctx.PutByte('{')
	err := w.writeMapContentTyped(nil, m)
	w.ctx.PutByte('}')
	return err
}

func (w *cponWriter) writeIMap(m map[int64]Value) error {
	w.ctx.WriteString("i{")
	err := w.writeMapContentTyped(m, nil)
	w.ctx.PutByte('}')
	return err
}

func isOnelineContainer(entries int, hasNestedContainer bool) bool {
	return entries <= 10 && !hasNestedContainer
}

func (w *cponWriter) writeMapContent(m Meta) {
	w.nestLevel++
	hasNested := false
	for _, v := range m {
		if v.Type == TypeMap || v.Type == TypeIMap || v.Type == TypeList {
			hasNested = true
			break
		}
	}
	oneline := isOnelineContainer(len(m), hasNested)
	intKeys := m.IntKeys()
	strKeys := m.StringKeys()
	i := 0
	for _, k := range intKeys {
		if i > 0 {
			w.ctx.PutByte(',')
		}
		w.indentItem(oneline, i)
		w.writeInt(k)
		w.ctx.PutByte(':')
		_ = w.write(m[k])
		i++
	}
	for _, k := range strKeys {
		if i > 0 {
			w.ctx.PutByte(',')
		}
		w.indentItem(oneline, i)
		w.writeCString(k)
		w.ctx.PutByte(':')
		_ = w.write(m[k])
		i++
	}
	w.nestLevel--
	w.indentItem(oneline, 0)
}

func (w *cponWriter) writeMapContentTyped(intMap map[int64]Value, strMap map[string]Value) error {
	w.nestLevel++
	hasNested := false
	total := len(intMap) + len(strMap)
	for _, v := range intMap {
		if v.Type == TypeMap || v.Type == TypeIMap || v.Type == TypeList {
			hasNested = true
		}
	}
	for _, v := range strMap {
		if v.Type == TypeMap || v.Type == TypeIMap || v.Type == TypeList {
			hasNested = true
		}
	}
	oneline := isOnelineContainer(total, hasNested)

	intKeys := make([]int64, 0, len(intMap))
	for k := range intMap {
		intKeys = append(intKeys, k)
	}
	sort.Slice(intKeys, func(i, j int) bool { return intKeys[i] < intKeys[j] })
	strKeys := make([]string, 0, len(strMap))
	for k := range strMap {
		strKeys = append(strKeys, k)
	}
	sort.Strings(strKeys)

	i := 0
	var err error
	for _, k := range intKeys {
		if i > 0 {
			w.ctx.PutByte(',')
		}
		w.indentItem(oneline, i)
		w.writeInt(k)
		w.ctx.PutByte(':')
		if err = w.write(intMap[k]); err != nil {
			return err
		}
		i++
	}
	for _, k := range strKeys {
		if i > 0 {
			w.ctx.PutByte(',')
		}
		w.indentItem(oneline, i)
		w.writeCString(k)
		w.ctx.PutByte(':')
		if err = w.write(strMap[k]); err != nil {
			return err
		}
		i++
	}
	w.nestLevel--
	w.indentItem(oneline, 0)
	return nil
}

func (w *cponWriter) writeList(items []Value) error {
	w.nestLevel++
	hasNested := false
	for _, item := range items {
		if item.Type == TypeMap || item.Type == TypeIMap || item.Type == TypeList {
			hasNested = true
			break
		}
	}
	oneline := isOnelineContainer(len(items), hasNested)
	w.ctx.PutByte('[')
	for i, item := range items {
		if i > 0 {
			w.ctx.PutByte(',')
		}
		w.indentItem(oneline, i)
		if err := w.write(item); err != nil {
			return err
		}
	}
	w.nestLevel--
	w.indentItem(oneline, 0)
	w.ctx.PutByte(']')
	return nil
}

func (w *cponWriter) writeUint(n uint64) {
	w.ctx.WriteString(strconv.FormatUint(n, 10))
	w.ctx.PutByte('u')
}

func (w *cponWriter) writeInt(n int64) {
	w.ctx.WriteString(strconv.FormatInt(n, 10))
}

func (w *cponWriter) writeDouble(f float64) {
	w.ctx.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
}

func (w *cponWriter) writeDecimal(d Decimal) {
	mantissa := d.Mantissa
	if mantissa < 0 {
		mantissa = -mantissa
		w.ctx.PutByte('-')
	}
	mstr := strconv.FormatInt(mantissa, 10)
	n := len(mstr)
	decPlaces := -d.Exponent
	switch {
	case decPlaces > 0 && decPlaces < n:
		dotIx := n - decPlaces
		mstr = mstr[:dotIx] + "." + mstr[dotIx:]
	case decPlaces > 0 && decPlaces <= 3:
		mstr = "0." + strings.Repeat("0", decPlaces-n) + mstr
	case decPlaces < 0 && n+d.Exponent <= 9:
		mstr = mstr + strings.Repeat("0", d.Exponent) + "."
	case decPlaces == 0:
		mstr = mstr + "."
	default:
		mstr = mstr + "e" + strconv.Itoa(d.Exponent)
	}
	w.ctx.WriteString(mstr)
}
