package iotproto

import "testing"

func TestRunChain_OrderAndTermination(t *testing.T) {
	var order []int
	mws := []Middleware{
		func(req *Request, next func()) { order = append(order, 1); next() },
		func(req *Request, next func()) { order = append(order, 2) }, // stops here
		func(req *Request, next func()) { order = append(order, 3); next() },
	}
	runChain(mws, &Request{})

	want := []int{1, 2}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRunChain_Empty(t *testing.T) {
	runChain(nil, &Request{}) // must not panic
}

func TestRunChain_AllCallNext(t *testing.T) {
	count := 0
	mws := make([]Middleware, 5)
	for i := range mws {
		mws[i] = func(req *Request, next func()) { count++; next() }
	}
	runChain(mws, &Request{})
	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}
}
