package iotproto

import "testing"

func TestMethod_String(t *testing.T) {
	cases := map[Method]string{
		Signal:             "SIGNAL",
		MethodRequest:      "REQUEST",
		Response:           "RESPONSE",
		Streaming:          "STREAMING",
		AliveRequest:       "ALIVE_REQUEST",
		AliveResponse:      "ALIVE_RESPONSE",
		BufferSizeRequest:  "BUFFER_SIZE_REQUEST",
		BufferSizeResponse: "BUFFER_SIZE_RESPONSE",
		Method(63):         "UNKNOWN",
	}
	for m, want := range cases {
		if got := m.String(); got != want {
			t.Errorf("Method(%d).String() = %q, want %q", m, got, want)
		}
	}
}

func TestMethod_HasID(t *testing.T) {
	for _, m := range []Method{Signal, AliveRequest, AliveResponse, BufferSizeRequest, BufferSizeResponse} {
		if m.hasID() {
			t.Errorf("%s.hasID() = true, want false", m)
		}
	}
	for _, m := range []Method{MethodRequest, Response, Streaming} {
		if !m.hasID() {
			t.Errorf("%s.hasID() = false, want true", m)
		}
	}
}

func TestMethod_BodyLenWidth(t *testing.T) {
	cases := map[Method]int{
		Signal:             1,
		BufferSizeRequest:  1,
		BufferSizeResponse: 1,
		MethodRequest:      2,
		Response:           2,
		Streaming:          4,
		AliveRequest:       0,
		AliveResponse:      0,
	}
	for m, want := range cases {
		if got := m.bodyLenWidth(); got != want {
			t.Errorf("%s.bodyLenWidth() = %d, want %d", m, got, want)
		}
	}
}

func TestMethod_MaxBodyLen(t *testing.T) {
	if Signal.maxBodyLen() != 1<<8-1 {
		t.Errorf("Signal.maxBodyLen() = %d, want %d", Signal.maxBodyLen(), 1<<8-1)
	}
	if MethodRequest.maxBodyLen() != 1<<16-1 {
		t.Errorf("MethodRequest.maxBodyLen() = %d, want %d", MethodRequest.maxBodyLen(), 1<<16-1)
	}
	if Streaming.maxBodyLen() != 1<<32-1 {
		t.Errorf("Streaming.maxBodyLen() = %d, want %d", Streaming.maxBodyLen(), 1<<32-1)
	}
	if AliveRequest.maxBodyLen() != 0 {
		t.Errorf("AliveRequest.maxBodyLen() = %d, want 0", AliveRequest.maxBodyLen())
	}
}
