package iotproto

import "testing"

func TestIDAllocator_ReserveAvoidsZero(t *testing.T) {
	a := newIDAllocator()
	for i := 0; i < 1000; i++ {
		id, err := a.reserve(nil)
		if err != nil {
			t.Fatalf("reserve failed: %v", err)
		}
		if id == 0 {
			t.Fatal("reserve returned 0")
		}
		if id < idAllocMin || id > idAllocMax {
			t.Fatalf("reserve returned %d, out of [%d,%d]", id, idAllocMin, idAllocMax)
		}
	}
}

func TestIDAllocator_ReserveAvoidsTaken(t *testing.T) {
	a := newIDAllocator()
	taken := map[uint16]bool{}
	for i := 0; i < 50; i++ {
		id, err := a.reserve(func(id uint16) bool { return taken[id] })
		if err != nil {
			t.Fatalf("reserve failed: %v", err)
		}
		if taken[id] {
			t.Fatalf("reserve returned already-taken id %d", id)
		}
		taken[id] = true
	}
}

func TestIDAllocator_ExhaustionReturnsError(t *testing.T) {
	a := newIDAllocator()
	_, err := a.reserve(func(uint16) bool { return true }) // every candidate is taken
	if err != ErrIDAllocationExhausted {
		t.Errorf("err = %v, want ErrIDAllocationExhausted", err)
	}
}
