package server

import (
	"sync"

	"github.com/saifulbkhan/gmpack/mpack"
)

// Handler answers one RPC request. A non-nil error is framed by the
// server as a response with a nil result and the message of the
// error's root cause (errors.Cause) carried in the error field (spec
// section 4.6, section 7 item 4).
type Handler func(args mpack.Value, userData interface{}) (result mpack.Value, err error)

type binding struct {
	id       uint32
	method   string
	handler  Handler
	userData interface{}
	destroy  func(interface{})
}

// Registry is the server's method <-> handler bind table. Unlike the
// original C reference's linear rebind scan (spec section 9's Open
// Questions, flagged as a bug in the REDESIGN FLAGS), it keeps a
// name->id reverse index alongside the forward id->binding table so
// Bind (including rebinding an already-bound name), Unbind, and Lookup
// are all O(1).
type Registry struct {
	mu       sync.Mutex
	byID     map[uint32]*binding
	byMethod map[string]uint32
	nextID   uint32
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[uint32]*binding),
		byMethod: make(map[string]uint32),
	}
}

// Bind registers handler for method, with optional userData passed to
// every invocation and an optional destroy callback that is run on
// that userData when a later Bind of the same method replaces it or
// when the method is unbound. Rebinding an already-bound method name
// updates the handler, userData and destroy in place, runs the
// previous binding's destroy (if any) on the superseded userData, and
// returns the
// previously issued id (spec section 4.6: "Re-binding the same method
// name updates the handler in place and returns the previously issued
// id").
func (r *Registry) Bind(method string, handler Handler, userData interface{}, destroy func(interface{})) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byMethod[method]; ok {
		old := r.byID[id]
		if old.destroy != nil {
			old.destroy(old.userData)
		}
		old.handler = handler
		old.userData = userData
		old.destroy = destroy
		return id
	}

	id := r.nextID
	r.nextID++
	r.byID[id] = &binding{id: id, method: method, handler: handler, userData: userData, destroy: destroy}
	r.byMethod[method] = id
	return id
}

// Unbind removes the binding for method, if any, running its destroy
// callback on the stored userData.
func (r *Registry) Unbind(method string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byMethod[method]
	if !ok {
		return false
	}
	b := r.byID[id]
	delete(r.byMethod, method)
	delete(r.byID, id)
	if b.destroy != nil {
		b.destroy(b.userData)
	}
	return true
}

// Lookup returns the binding for method, if bound.
func (r *Registry) Lookup(method string) (Handler, interface{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byMethod[method]
	if !ok {
		return nil, nil, false
	}
	b := r.byID[id]
	return b.handler, b.userData, true
}
