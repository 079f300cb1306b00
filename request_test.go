package iotproto

import "testing"

func TestHeaders_GetSet(t *testing.T) {
	var h Headers
	h = h.Set("model", "x100")
	h = h.Set("fw", "1.2.3")

	v, ok := h.Get("model")
	if !ok || v != "x100" {
		t.Errorf("Get(model) = (%q, %v), want (%q, true)", v, ok, "x100")
	}

	if _, ok := h.Get("missing"); ok {
		t.Error("Get(missing) ok = true, want false")
	}
}

func TestHeaders_SetAllowsDuplicateKeys(t *testing.T) {
	var h Headers
	h = h.Set("a", "1")
	h = h.Set("a", "2")

	if len(h) != 2 {
		t.Fatalf("len(h) = %d, want 2", len(h))
	}
	v, _ := h.Get("a")
	if v != "1" {
		t.Errorf("Get(a) = %q, want first-match %q", v, "1")
	}
}

func TestRequest_VersionDefault(t *testing.T) {
	r := &Request{}
	if v := r.version(); v != DefaultVersion {
		t.Errorf("version() = %d, want %d", v, DefaultVersion)
	}
	r.Version = 7
	if v := r.version(); v != 7 {
		t.Errorf("version() = %d, want 7", v)
	}
}

func TestRequest_Complete(t *testing.T) {
	r := &Request{BodyLength: 3, TotalBodyLength: 10}
	if r.Complete() {
		t.Error("Complete() = true for a partial body")
	}
	r.BodyLength = 10
	if !r.Complete() {
		t.Error("Complete() = false for a fully received body")
	}
}

func TestRequest_Clone(t *testing.T) {
	orig := &Request{
		Path:    "/a",
		Headers: Headers{{Key: "k", Value: "v"}},
		Body:    []byte("hello"),
	}
	clone := orig.clone()

	clone.Headers[0].Value = "changed"
	clone.Body[0] = 'H'

	if orig.Headers[0].Value != "v" {
		t.Error("clone mutation leaked into original headers")
	}
	if orig.Body[0] != 'h' {
		t.Error("clone mutation leaked into original body")
	}
}
