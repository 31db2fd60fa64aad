package collection

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/pders01/userdir/internal/api"
)

// FetchFunc loads a single record by identifier.
type FetchFunc[T any] func(ctx context.Context, id int) api.Result[T]

// DetailState is a point-in-time view of a Detail.
type DetailState[T any] struct {
	ID        int
	Item      *T
	IsLoading bool
	Err       *api.Problem
}

// Detail tracks one record fetched by identifier. The previous record stays
// visible while a new identifier loads.
type Detail[T any] struct {
	fetch    FetchFunc[T]
	onChange func()
	group    singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	state  DetailState[T]
	hasID  bool
	closed bool
}

func NewDetail[T any](fetch FetchFunc[T], opts ...Option) *Detail[T] {
	o := buildOptions(opts)
	ctx, cancel := context.WithCancel(context.Background())
	return &Detail[T]{
		fetch:    fetch,
		onChange: o.onChange,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Snapshot returns a copy of the current state.
func (d *Detail[T]) Snapshot() DetailState[T] {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.state
	if s.Item != nil {
		item := *s.Item
		s.Item = &item
	}
	return s
}

// Load switches to id and fetches it. Loading the current id again only
// refetches when the previous attempt failed.
func (d *Detail[T]) Load(ctx context.Context, id int) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if d.hasID && d.state.ID == id && (d.state.IsLoading || (d.state.Err == nil && d.state.Item != nil)) {
		d.mu.Unlock()
		return
	}
	d.hasID = true
	d.state.ID = id
	d.mu.Unlock()

	d.run(ctx, id)
}

// Refetch repeats the fetch for the current identifier.
func (d *Detail[T]) Refetch(ctx context.Context) {
	d.mu.Lock()
	if d.closed || !d.hasID {
		d.mu.Unlock()
		return
	}
	id := d.state.ID
	d.mu.Unlock()

	d.run(ctx, id)
}

// Close cancels in-flight fetches; later completions are dropped.
func (d *Detail[T]) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()
}

func (d *Detail[T]) run(ctx context.Context, id int) {
	if !d.update(func(s *DetailState[T]) {
		s.IsLoading = true
		s.Err = nil
	}) {
		return
	}

	ctx, done := bindContext(ctx, d.ctx)
	defer done()

	v, _, _ := d.group.Do(strconv.Itoa(id), func() (interface{}, error) {
		return d.fetch(ctx, id), nil
	})
	res := v.(api.Result[T])

	d.update(func(s *DetailState[T]) {
		if s.ID != id {
			return
		}
		res.Match(func(item T) {
			s.Item = &item
		}, func(p *api.Problem) {
			s.Err = p
		})
		s.IsLoading = false
	})
}

func (d *Detail[T]) update(fn func(s *DetailState[T])) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	fn(&d.state)
	d.mu.Unlock()
	if d.onChange != nil {
		d.onChange()
	}
	return true
}
