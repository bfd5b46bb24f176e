package shv

import "testing"

// S2: CponRead("0xab") round-tripped back to Cpon yields "171".
func TestCponHexIntRoundTrip(t *testing.T) {
	v, err := ReadCpon([]byte("0xab"))
	if err != nil {
		t.Fatalf("ReadCpon() error = %v", err)
	}
	n, ok := v.AsInt()
	if !ok || n != 171 {
		t.Fatalf("ReadCpon(\"0xab\") = %v, want Int(171)", v)
	}
	out, err := WriteCpon(v, nil)
	if err != nil {
		t.Fatalf("WriteCpon() error = %v", err)
	}
	if string(out) != "171" {
		t.Errorf("WriteCpon() = %q, want %q", out, "171")
	}
}

// S3: CponRead("12.3e-10") yields Decimal(mantissa=123, exponent=-11);
// written back as "123e-11".
func TestCponDecimalExponent(t *testing.T) {
	v, err := ReadCpon([]byte("12.3e-10"))
	if err != nil {
		t.Fatalf("ReadCpon() error = %v", err)
	}
	d, ok := v.AsDecimal()
	if !ok {
		t.Fatalf("ReadCpon(\"12.3e-10\") = %v, want Decimal", v)
	}
	if d.Mantissa != 123 || d.Exponent != -11 {
		t.Errorf("Decimal = {%d %d}, want {123 -11}", d.Mantissa, d.Exponent)
	}
	out, err := WriteCpon(v, nil)
	if err != nil {
		t.Fatalf("WriteCpon() error = %v", err)
	}
	if string(out) != "123e-11" {
		t.Errorf("WriteCpon() = %q, want %q", out, "123e-11")
	}
}

func TestCponNegativeDecimal(t *testing.T) {
	v, err := ReadCpon([]byte("-12.3"))
	if err != nil {
		t.Fatalf("ReadCpon() error = %v", err)
	}
	d, ok := v.AsDecimal()
	if !ok {
		t.Fatalf("ReadCpon(\"-12.3\") = %v, want Decimal", v)
	}
	if d.Mantissa != -123 || d.Exponent != -1 {
		t.Errorf("Decimal = {%d %d}, want {-123 -1}", d.Mantissa, d.Exponent)
	}
}

// S4: trailing commas and whitespace are insignificant; output
// canonicalizes to sorted keys.
func TestCponMapCanonicalization(t *testing.T) {
	v, err := ReadCpon([]byte(`{ "foo":"bar", "baz":1, }`))
	if err != nil {
		t.Fatalf("ReadCpon() error = %v", err)
	}
	out, err := WriteCpon(v, nil)
	if err != nil {
		t.Fatalf("WriteCpon() error = %v", err)
	}
	if want := `{"baz":1,"foo":"bar"}`; string(out) != want {
		t.Errorf("WriteCpon() = %q, want %q", out, want)
	}
}

// S5: integer keys precede text keys in a meta map.
func TestCponMetaKeyOrdering(t *testing.T) {
	v, err := ReadCpon([]byte(`<"foo":"bar",1:2>i{1:<7:8>9}`))
	if err != nil {
		t.Fatalf("ReadCpon() error = %v", err)
	}
	out, err := WriteCpon(v, nil)
	if err != nil {
		t.Fatalf("WriteCpon() error = %v", err)
	}
	if want := `<1:2,"foo":"bar">i{1:<7:8>9}`; string(out) != want {
		t.Errorf("WriteCpon() = %q, want %q", out, want)
	}
}

// S6: all of these decode to the same epoch-ms.
func TestCponDateTimeEquivalentForms(t *testing.T) {
	inputs := []string{
		`d"2017-05-03T18:30:00Z"`,
		`d"2017-05-03T22:30:00+04"`,
		`d"2017-05-03T11:30:00-0700"`,
		`d"2017-05-03T15:00:00-0330"`,
	}
	const want = int64(1493836200000)
	for _, in := range inputs {
		v, err := ReadCpon([]byte(in))
		if err != nil {
			t.Fatalf("ReadCpon(%q) error = %v", in, err)
		}
		dt, ok := v.AsDateTime()
		if !ok {
			t.Fatalf("ReadCpon(%q) = %v, want DateTime", in, v)
		}
		if dt.EpochMs != want {
			t.Errorf("ReadCpon(%q).EpochMs = %d, want %d", in, dt.EpochMs, want)
		}
	}
}

// S7: a hex blob round-trips through the escaped blob writer form.
func TestCponHexBlobRoundTrip(t *testing.T) {
	v, err := ReadCpon([]byte(`x"abcd"`))
	if err != nil {
		t.Fatalf("ReadCpon() error = %v", err)
	}
	out, err := WriteCpon(v, nil)
	if err != nil {
		t.Fatalf("WriteCpon() error = %v", err)
	}
	if want := `b"\ab\cd"`; string(out) != want {
		t.Errorf("WriteCpon() = %q, want %q", out, want)
	}
}

func TestCponCommentsAndTrailingComma(t *testing.T) {
	in := `[1, /* two */ 2, 3,] // trailing`
	v, err := ReadCpon([]byte(in))
	if err != nil {
		t.Fatalf("ReadCpon() error = %v", err)
	}
	items, ok := v.AsList()
	if !ok || len(items) != 3 {
		t.Fatalf("ReadCpon(%q) = %v, want 3-element List", in, v)
	}
}

// P1: Cpon -> value -> ChainPack -> value -> Cpon reaches a fixed point
// after one canonicalization pass.
func TestCponChainPackCponRoundTrip(t *testing.T) {
	in := `{ "baz" : 1 , "foo":"bar" }`
	v1, err := ReadCpon([]byte(in))
	if err != nil {
		t.Fatalf("ReadCpon() error = %v", err)
	}
	cp, err := WriteChainPack(v1)
	if err != nil {
		t.Fatalf("WriteChainPack() error = %v", err)
	}
	v2, err := ReadChainPack(cp)
	if err != nil {
		t.Fatalf("ReadChainPack() error = %v", err)
	}
	out, err := WriteCpon(v2, nil)
	if err != nil {
		t.Fatalf("WriteCpon() error = %v", err)
	}
	canon, err := WriteCpon(v1, nil)
	if err != nil {
		t.Fatalf("WriteCpon() error = %v", err)
	}
	if string(out) != string(canon) {
		t.Errorf("Cpon->ChainPack->Cpon = %q, want canonical form %q", out, canon)
	}
}

// A container holding a nested container always renders in block form
// when an Indent is configured; a flat, small (<=10 item) container
// nested within it still renders inline.
func TestCponIndent(t *testing.T) {
	v := NewList([]Value{NewInt(1), NewList([]Value{NewInt(2)})})
	out, err := WriteCpon(v, &WriterOptions{Indent: []byte("  ")})
	if err != nil {
		t.Fatalf("WriteCpon() error = %v", err)
	}
	want := "[\n  1,\n  [2]\n]"
	if string(out) != want {
		t.Errorf("WriteCpon() with indent = %q, want %q", out, want)
	}
}
