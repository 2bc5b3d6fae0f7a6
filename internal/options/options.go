// Package options implements a generic functional-options pattern, used by
// grep's Pattern builder (key/value/timestamp predicates, context sizes) to
// assemble an arbitrary set of optional predicates without a combinatorial
// explosion of constructors.
package options

// Option configures a target of type T, failing only if the requested
// configuration is invalid for that target (e.g. a negative buffer size).
type Option[T any] interface {
	apply(T) error
}

// Func adapts a plain function into an Option.
type Func[T any] struct {
	applyFunc func(T) error
}

func (f *Func[T]) apply(target T) error {
	return f.applyFunc(target)
}

// New wraps fn as an Option[T].
func New[T any](fn func(T) error) *Func[T] {
	return &Func[T]{applyFunc: fn}
}

// NoError wraps a function that cannot fail as an Option[T].
func NoError[T any](fn func(T)) *Func[T] {
	return &Func[T]{
		applyFunc: func(target T) error {
			fn(target)

			return nil
		},
	}
}

// Apply runs opts against target in order, stopping at the first error.
func Apply[T any](target T, opts ...Option[T]) error {
	for _, opt := range opts {
		if err := opt.apply(target); err != nil {
			return err
		}
	}

	return nil
}

// Combine flattens a group of options into a single Option[T], so a package
// can expose a named preset (e.g. "defaults for high-cardinality fields")
// built from several smaller options without callers needing to splat a
// slice at the call site.
func Combine[T any](opts ...Option[T]) Option[T] {
	return New(func(target T) error {
		return Apply(target, opts...)
	})
}
