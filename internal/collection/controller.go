package collection

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pders01/userdir/internal/api"
	"github.com/pders01/userdir/internal/debuglog"
)

const (
	DefaultPageSize = 30
	DefaultDebounce = 500 * time.Millisecond
)

type options struct {
	pageSize int
	debounce time.Duration
	onChange func()
}

// Option configures a Controller or a Detail.
type Option func(*options)

// WithPageSize sets the number of items requested per page.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithDebounce sets the quiet period after the last SetQuery before searching.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithOnChange registers a callback invoked after every state transition.
// It runs outside the controller lock and may call Snapshot.
func WithOnChange(fn func()) Option {
	return func(o *options) { o.onChange = fn }
}

func buildOptions(opts []Option) options {
	o := options{pageSize: DefaultPageSize, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Controller owns one list of items fed by a Source. Blocking operations run
// on the caller's goroutine; only the search debounce timer is scheduled by
// the controller itself. Completions are last-write-wins.
type Controller[T any] struct {
	source   Source[T]
	limit    int
	debounce time.Duration
	onChange func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	state     State[T]
	timer     *time.Timer
	seq       uint64
	activated bool
	closed    bool
}

func NewController[T any](source Source[T], opts ...Option) *Controller[T] {
	o := buildOptions(opts)
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller[T]{
		source:   source,
		limit:    o.pageSize,
		debounce: o.debounce,
		onChange: o.onChange,
		ctx:      ctx,
		cancel:   cancel,
		state:    State[T]{IsLoading: true},
	}
}

// PageSize returns the number of items requested per page.
func (c *Controller[T]) PageSize() int { return c.limit }

// Snapshot returns a copy of the current state.
func (c *Controller[T]) Snapshot() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Activate performs the initial full load. Only the first call has effect.
func (c *Controller[T]) Activate(ctx context.Context) {
	c.mu.Lock()
	if c.activated || c.closed {
		c.mu.Unlock()
		return
	}
	c.activated = true
	c.mu.Unlock()

	c.reload(ctx)
}

// LoadMore appends the next page. It does nothing while another page is
// loading, when the cursor has reached the total, or while a search is active.
func (c *Controller[T]) LoadMore(ctx context.Context) {
	c.mu.Lock()
	s := &c.state
	if c.closed || s.IsLoadingMore || s.Skip >= s.Total || isSearch(s.Query) {
		c.mu.Unlock()
		return
	}
	s.IsLoadingMore = true
	s.Err = nil
	skip := s.Skip
	c.mu.Unlock()
	c.notify()

	c.fetchPage(ctx, skip, false)
}

// Refresh re-runs the active search, or reloads from the first page when no
// search is active.
func (c *Controller[T]) Refresh(ctx context.Context) {
	var query string
	if !c.update(func(s *State[T]) {
		s.IsRefreshing = true
		query = s.Query
	}) {
		return
	}

	if isSearch(query) {
		c.search(ctx, query)
	} else {
		c.reload(ctx)
	}

	c.update(func(s *State[T]) { s.IsRefreshing = false })
}

// SetQuery records the query immediately and (re)arms the debounce timer.
// Only the last call within the debounce window triggers a fetch.
func (c *Controller[T]) SetQuery(query string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state.Query = query
	c.state.IsTyping = true
	c.state.IsSearching = false

	if c.timer != nil {
		c.timer.Stop()
	}
	c.seq++
	seq := c.seq
	c.timer = time.AfterFunc(c.debounce, func() { c.fire(seq, query) })
	c.mu.Unlock()
	c.notify()
}

// Close cancels the pending debounce and every in-flight request. No state
// is written after Close returns.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Controller[T]) fire(seq uint64, query string) {
	c.mu.Lock()
	// a timer can fire after Stop lost the race; the sequence check drops it
	if c.closed || seq != c.seq {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.timer = nil
	c.state.IsTyping = false
	c.state.IsSearching = true
	c.mu.Unlock()
	defer c.wg.Done()
	c.notify()

	c.search(c.ctx, query)

	c.update(func(s *State[T]) { s.IsSearching = false })
}

func (c *Controller[T]) reload(ctx context.Context) {
	if !c.update(func(s *State[T]) {
		s.Skip = 0
		s.IsLoadingMore = false
		s.Err = nil
	}) {
		return
	}
	c.fetchPage(ctx, 0, true)
}

func (c *Controller[T]) fetchPage(ctx context.Context, skip int, reset bool) {
	ctx, done := c.bind(ctx)
	defer done()

	log := debuglog.WithFields(map[string]interface{}{"limit": c.limit, "skip": skip, "reset": reset})
	log.Debugf("collection: fetching page")

	res := c.source.FetchPage(ctx, c.limit, skip)

	c.update(func(s *State[T]) {
		res.Match(func(page Page[T]) {
			if reset {
				s.Items = slices.Clone(page.Items)
			} else {
				s.Items = append(s.Items, page.Items...)
			}
			s.Total = page.Total
			s.Skip = skip + c.limit
			s.Err = nil
		}, func(p *api.Problem) {
			log.Warnf("collection: page fetch failed: %v", p)
			s.Err = p
		})
		s.IsLoading = false
		s.IsLoadingMore = false
	})
}

func (c *Controller[T]) search(ctx context.Context, query string) {
	if !isSearch(query) {
		c.reload(ctx)
		return
	}
	if !c.update(func(s *State[T]) { s.Err = nil }) {
		return
	}

	ctx, done := c.bind(ctx)
	defer done()

	query = strings.TrimSpace(query)
	debuglog.Debugf("collection: searching %q", query)

	res := c.source.Search(ctx, query)

	c.update(func(s *State[T]) {
		res.Match(func(page Page[T]) {
			s.Items = slices.Clone(page.Items)
			s.Skip = len(page.Items)
			s.Err = nil
		}, func(p *api.Problem) {
			debuglog.Warnf("collection: search %q failed: %v", query, p)
			s.Err = p
		})
	})
}

// update applies fn under the lock and notifies. It reports false, without
// calling fn, once the controller is closed.
func (c *Controller[T]) update(fn func(s *State[T])) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	fn(&c.state)
	c.mu.Unlock()
	c.notify()
	return true
}

func (c *Controller[T]) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

// bind derives a request context cancelled by the caller or by Close.
func (c *Controller[T]) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	return bindContext(ctx, c.ctx)
}

func bindContext(parent, owner context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(owner, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
