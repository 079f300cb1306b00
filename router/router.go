// Package router provides path-based dispatch for SIGNAL, REQUEST and
// STREAMING frames, layered on top of iotproto.Engine's middleware chain
// rather than replacing it.
package router

import (
	"sort"
	"strings"
	"sync"

	"github.com/mistvale-labs/iotproto"
)

// HandlerFunc handles one frame matched by path.
type HandlerFunc func(req *iotproto.Request)

// Router is an exact-match and longest-prefix-match path table. It holds
// no state about the protocol itself; it only decides, given a completed
// frame's Path, which HandlerFunc (if any) should run.
type Router struct {
	mu       sync.RWMutex
	exact    map[string]HandlerFunc
	prefix   []prefixRoute
	notFound HandlerFunc
}

type prefixRoute struct {
	prefix  string
	handler HandlerFunc
}

// New constructs an empty Router.
func New() *Router {
	return &Router{exact: make(map[string]HandlerFunc)}
}

// Handle registers fn for an exact path match, e.g. "/sensor/temperature".
func (r *Router) Handle(path string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exact[path] = fn
}

// HandlePrefix registers fn for every path beginning with prefix, e.g.
// "/sensor/" matches "/sensor/temperature" and "/sensor/humidity/avg".
// When multiple registered prefixes match, the longest wins.
func (r *Router) HandlePrefix(prefix string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefix = append(r.prefix, prefixRoute{prefix: prefix, handler: fn})
	sort.Slice(r.prefix, func(i, j int) bool {
		return len(r.prefix[i].prefix) > len(r.prefix[j].prefix)
	})
}

// NotFound registers a fallback handler invoked when no route matches. If
// unset, an unmatched frame simply falls through to the next middleware.
func (r *Router) NotFound(fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notFound = fn
}

func (r *Router) lookup(path string) HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if fn, ok := r.exact[path]; ok {
		return fn
	}
	for _, p := range r.prefix {
		if strings.HasPrefix(path, p.prefix) {
			return p.handler
		}
	}
	return r.notFound
}

// Middleware adapts the router into an iotproto.Middleware suitable for
// Engine.Use. A matched route terminates the chain by not calling next; an
// unmatched path (and no NotFound handler) calls next so later middleware
// still gets a chance at the frame.
func (r *Router) Middleware() iotproto.Middleware {
	return func(req *iotproto.Request, next func()) {
		fn := r.lookup(req.Path)
		if fn == nil {
			next()
			return
		}
		fn(req)
	}
}
