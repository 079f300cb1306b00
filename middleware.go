package iotproto

// Middleware handles one inbound SIGNAL, REQUEST or STREAMING frame that did
// not match a pending response. Call next() to continue to the next
// middleware in the chain; returning without calling it terminates the
// chain for this frame. There is no built-in error propagation: a
// middleware that needs to signal failure does so over the wire itself,
// typically via Conn.Response.
type Middleware func(req *Request, next func())

// runChain runs mws in order against req, starting at the first entry. A
// middleware that never calls next silently stops the chain.
func runChain(mws []Middleware, req *Request) {
	if len(mws) == 0 {
		return
	}
	var step func(i int)
	step = func(i int) {
		if i >= len(mws) {
			return
		}
		mws[i](req, func() { step(i + 1) })
	}
	step(0)
}
