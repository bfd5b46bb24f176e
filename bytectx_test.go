package shv

import "testing"

func TestReadCtxGetByte(t *testing.T) {
	r := NewReadCtx([]byte{1, 2, 3})
	for _, want := range []byte{1, 2, 3} {
		got, err := r.GetByte()
		if err != nil {
			t.Fatalf("GetByte() error = %v", err)
		}
		if got != want {
			t.Errorf("GetByte() = %v, want %v", got, want)
		}
	}
	if _, err := r.GetByte(); err != ErrBufferUnderflow {
		t.Errorf("GetByte() past end error = %v, want ErrBufferUnderflow", err)
	}
}

func TestReadCtxPeekByte(t *testing.T) {
	r := NewReadCtx([]byte{0xAB})
	if got := r.PeekByte(); got != 0xAB {
		t.Errorf("PeekByte() = %v, want 0xAB", got)
	}
	if got := r.Pos(); got != 0 {
		t.Errorf("PeekByte() advanced pos to %v", got)
	}
	r.GetByte()
	if got := r.PeekByte(); got != noByte {
		t.Errorf("PeekByte() at end = %v, want noByte", got)
	}
}

func TestReadCtxGetBytes(t *testing.T) {
	r := NewReadCtx([]byte{1, 2, 3, 4})
	got, err := r.GetBytes(2)
	if err != nil {
		t.Fatalf("GetBytes() error = %v", err)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("GetBytes() = %v, want [1 2]", got)
	}
	if _, err := r.GetBytes(10); err != ErrBufferUnderflow {
		t.Errorf("GetBytes() overrun error = %v, want ErrBufferUnderflow", err)
	}
}

func TestReadCtxExpectBytes(t *testing.T) {
	r := NewReadCtx([]byte("abc"))
	if err := r.ExpectBytes([]byte("ab")); err != nil {
		t.Fatalf("ExpectBytes() error = %v", err)
	}
	r2 := NewReadCtx([]byte("xyz"))
	if err := r2.ExpectBytes([]byte("ab")); !IsMalformedInput(err) {
		t.Errorf("ExpectBytes() mismatch error = %v, want MalformedInputError", err)
	}
}

func TestWriteCtx(t *testing.T) {
	w := NewWriteCtx()
	w.PutByte('a')
	w.WriteString("bc")
	w.WriteBytes([]byte{'d', 'e'})
	if got, want := string(w.Bytes()), "abcde"; got != want {
		t.Errorf("WriteCtx built %q, want %q", got, want)
	}
	if w.Len() != 5 {
		t.Errorf("Len() = %v, want 5", w.Len())
	}
}
