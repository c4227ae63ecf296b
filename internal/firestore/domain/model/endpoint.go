package model

// Descriptor is the untyped view of an endpoint the service dispatches on.
type Descriptor interface {
	RequestDTO() any
	Method() Method
	Target() Accessible
	Reference() Reference
}

// Endpoint describes one request: an optional payload, the method tag and
// the target. T is the response DTO the caller decodes into.
type Endpoint[T any] struct {
	request any
	method  Method
	target  Accessible
}

// NewEndpoint builds an endpoint. request may be nil.
func NewEndpoint[T any](request any, method Method, target Accessible) Endpoint[T] {
	return Endpoint[T]{request: request, method: method, target: target}
}

func (e Endpoint[T]) RequestDTO() any    { return e.request }
func (e Endpoint[T]) Method() Method     { return e.method }
func (e Endpoint[T]) Target() Accessible { return e.target }

// Reference resolves the target. A nil target resolves to nil.
func (e Endpoint[T]) Reference() Reference {
	if e.target == nil {
		return nil
	}
	return ResolveReference(e.target)
}

// Empty is the response type of endpoints that return nothing.
type Empty struct{}
