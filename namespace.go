package stowage

import "context"

// Namespace yields a key prefix for object stores. It is evaluated on every
// operation, so it may depend on request-scoped values in ctx.
type Namespace interface {
	Resolve(ctx context.Context) string
}

// StaticNamespace is a fixed namespace.
type StaticNamespace string

func (n StaticNamespace) Resolve(context.Context) string {
	return string(n)
}

// NamespaceFunc adapts a function to the Namespace interface.
type NamespaceFunc func(ctx context.Context) string

func (f NamespaceFunc) Resolve(ctx context.Context) string {
	return f(ctx)
}

// ResolveNamespace returns the namespace for ctx, or "" when ns is nil.
func ResolveNamespace(ctx context.Context, ns Namespace) string {
	if ns == nil {
		return ""
	}
	return ns.Resolve(ctx)
}
