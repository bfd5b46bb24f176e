package shv

import "testing"

func TestRpcMessageClassification(t *testing.T) {
	req := NewRpcMessage(MakeRequest(1, "sub/path", "get", NewNull()))
	if !req.IsRequest() {
		t.Errorf("request IsRequest() = false, want true")
	}
	if req.IsResponse() || req.IsSignal() {
		t.Errorf("request classified as response/signal")
	}
	if m, ok := req.Method(); !ok || m != "get" {
		t.Errorf("Method() = %q, %v, want \"get\", true", m, ok)
	}
	if p, ok := req.ShvPath(); !ok || p != "sub/path" {
		t.Errorf("ShvPath() = %q, %v, want \"sub/path\", true", p, ok)
	}

	resp, err := MakeResponse(req, NewInt(42))
	if err != nil {
		t.Fatalf("MakeResponse() error = %v", err)
	}
	respMsg := NewRpcMessage(resp)
	if !respMsg.IsResponse() {
		t.Errorf("response IsResponse() = false, want true")
	}
	result, ok := respMsg.Result()
	if !ok {
		t.Fatalf("Result() ok = false")
	}
	if n, _ := result.AsInt(); n != 42 {
		t.Errorf("Result() = %v, want Int(42)", result)
	}

	sig := NewRpcMessage(MakeSignal("sub/path", "chng", NewInt(7)))
	if !sig.IsSignal() {
		t.Errorf("signal IsSignal() = false, want true")
	}
}

func TestRpcMessageErrorResponse(t *testing.T) {
	req := NewRpcMessage(MakeRequest(5, "", "unknownMethod", NewNull()))
	resp, err := MakeErrorResponse(req, ErrCodeMethodNotFound, "no such method")
	if err != nil {
		t.Fatalf("MakeErrorResponse() error = %v", err)
	}
	respMsg := NewRpcMessage(resp)
	methodErr, ok := respMsg.Error()
	if !ok {
		t.Fatalf("Error() ok = false, want true")
	}
	if !IsMethodCallError(methodErr) {
		t.Errorf("Error() not a *MethodCallError")
	}
}

func TestRpcMessageCallerIdsPreserved(t *testing.T) {
	req := MakeRequest(1, "", "get", NewNull())
	req = req.WithMeta(req.Meta)
	req.Meta[MetaKeyCallerIds] = NewList([]Value{NewInt(10), NewInt(20)})
	msg := NewRpcMessage(req)

	resp, err := MakeResponse(msg, NewNull())
	if err != nil {
		t.Fatalf("MakeResponse() error = %v", err)
	}
	respMsg := NewRpcMessage(resp)
	callers := respMsg.CallerIds()
	if len(callers) != 2 || callers[0] != 10 || callers[1] != 20 {
		t.Errorf("CallerIds() = %v, want [10 20]", callers)
	}
}

func TestMakeResponseRequiresRequestId(t *testing.T) {
	signal := NewRpcMessage(MakeSignal("", "chng", NewNull()))
	if _, err := MakeResponse(signal, NewNull()); !IsInvalidValue(err) {
		t.Errorf("MakeResponse() on signal error = %v, want InvalidValueError", err)
	}
}
