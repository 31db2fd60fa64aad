package api

// Result is the outcome of a remote call: either data or a classified
// Problem, never both.
type Result[T any] struct {
	data    T
	problem *Problem
}

// OK wraps a successful payload.
func OK[T any](data T) Result[T] {
	return Result[T]{data: data}
}

// Fail wraps a problem. A nil problem is replaced by an unknown one so the
// variant stays closed.
func Fail[T any](p *Problem) Result[T] {
	if p == nil {
		p = NewProblem(KindUnknown, 0, nil)
	}
	return Result[T]{problem: p}
}

// Ok reports whether the result carries data.
func (r Result[T]) Ok() bool { return r.problem == nil }

// Data returns the payload; the zero value for failed results.
func (r Result[T]) Data() T { return r.data }

// Problem returns the classified failure; nil for successful results.
func (r Result[T]) Problem() *Problem { return r.problem }

// Unpack returns the payload and the problem in Go's usual shape.
func (r Result[T]) Unpack() (T, *Problem) { return r.data, r.problem }

// Match calls exactly one of the two branches. Both must be supplied.
func (r Result[T]) Match(onOK func(T), onError func(*Problem)) {
	if r.problem != nil {
		onError(r.problem)
		return
	}
	onOK(r.data)
}

// Map converts the payload of a successful result and passes problems through.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if r.problem != nil {
		return Fail[U](r.problem)
	}
	return OK(fn(r.data))
}
