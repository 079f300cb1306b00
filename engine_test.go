package iotproto

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestEngine_UseAppendsInOrder(t *testing.T) {
	e := NewEngine()
	var order []int
	e.Use(func(*Request, func()) { order = append(order, 1) })
	e.Use(func(*Request, func()) { order = append(order, 2) })

	mws := e.middlewares()
	if len(mws) != 2 {
		t.Fatalf("len(middlewares()) = %d, want 2", len(mws))
	}
	for _, mw := range mws {
		mw(&Request{}, func() {})
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("middlewares ran in order %v, want [1 2]", order)
	}
}

func TestEngine_ListenAppliesEngineOptions(t *testing.T) {
	server, client := createTestTCPPair(t)
	defer client.Close()

	e := NewEngine(BufferSizeOption(4096), AliveIntervalOption(0))
	conns := make(chan *Conn, 1)
	e.Use(func(req *Request, next func()) { conns <- req.Conn })

	go e.Listen(server)

	clientConn := newConn(NewEngine(), client, defaultConnOptions())
	if err := clientConn.Signal(&Request{Path: "/x"}); err != nil {
		t.Fatalf("Signal failed: %v", err)
	}

	select {
	case c := <-conns:
		if c.BufferSize() != 4096 {
			t.Errorf("BufferSize() = %d, want 4096", c.BufferSize())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for middleware")
	}
}

func TestEngine_ListenPerCallOptionOverridesEngineOption(t *testing.T) {
	server, client := createTestTCPPair(t)
	defer client.Close()

	e := NewEngine(BufferSizeOption(4096), AliveIntervalOption(0))
	conns := make(chan *Conn, 1)
	e.Use(func(req *Request, next func()) { conns <- req.Conn })

	go e.Listen(server, BufferSizeOption(1024))

	clientConn := newConn(NewEngine(), client, defaultConnOptions())
	if err := clientConn.Signal(&Request{Path: "/x"}); err != nil {
		t.Fatalf("Signal failed: %v", err)
	}

	select {
	case c := <-conns:
		if c.BufferSize() != 1024 {
			t.Errorf("BufferSize() = %d, want 1024", c.BufferSize())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for middleware")
	}
}

func TestEngine_DialRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen failed: %v", err)
	}
	defer ln.Close()

	serverEngine := NewEngine(ConnLoggerOption(nil), AliveIntervalOption(0))
	received := make(chan *Request, 1)
	serverEngine.Use(func(req *Request, next func()) { received <- req })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		serverEngine.Listen(conn)
	}()

	clientEngine := NewEngine(ConnLoggerOption(nil), AliveIntervalOption(0))
	clientConn, err := clientEngine.Dial(context.Background(), "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer clientConn.Close()

	if err := clientConn.Signal(&Request{Path: "/dialed", Body: []byte("hi")}); err != nil {
		t.Fatalf("Signal failed: %v", err)
	}

	select {
	case req := <-received:
		if req.Path != "/dialed" || string(req.Body) != "hi" {
			t.Errorf("got path=%q body=%q, want /dialed, hi", req.Path, req.Body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for dialed signal")
	}
}
