package collection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/userdir/internal/api"
)

type item struct {
	ID   int
	Name string
}

type call struct {
	search bool
	limit  int
	skip   int
	query  string
}

// fakeSource replays scripted results. When gate is set every fetch blocks
// until the gate is closed or the request context ends.
type fakeSource struct {
	mu       sync.Mutex
	pages    []api.Result[Page[item]]
	searches []api.Result[Page[item]]
	calls    []call
	gate     chan struct{}
	entered  chan struct{}
}

func (f *fakeSource) FetchPage(ctx context.Context, limit, skip int) api.Result[Page[item]] {
	f.mu.Lock()
	f.calls = append(f.calls, call{limit: limit, skip: skip})
	res := next(&f.pages)
	gate, entered := f.gate, f.entered
	f.mu.Unlock()
	return wait(ctx, gate, entered, res)
}

func (f *fakeSource) Search(ctx context.Context, query string) api.Result[Page[item]] {
	f.mu.Lock()
	f.calls = append(f.calls, call{search: true, query: query})
	res := next(&f.searches)
	gate, entered := f.gate, f.entered
	f.mu.Unlock()
	return wait(ctx, gate, entered, res)
}

func (f *fakeSource) setGate(gate chan struct{}, entered chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = gate
	f.entered = entered
}

func (f *fakeSource) queuePage(res api.Result[Page[item]]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, res)
}

func (f *fakeSource) queueSearch(res api.Result[Page[item]]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, res)
}

func (f *fakeSource) recorded() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func next(queue *[]api.Result[Page[item]]) api.Result[Page[item]] {
	if len(*queue) == 0 {
		return api.Fail[Page[item]](api.NewProblem(api.KindUnknown, 0, errors.New("nothing scripted")))
	}
	res := (*queue)[0]
	*queue = (*queue)[1:]
	return res
}

func wait(ctx context.Context, gate, entered chan struct{}, res api.Result[Page[item]]) api.Result[Page[item]] {
	if entered != nil {
		entered <- struct{}{}
	}
	if gate == nil {
		return res
	}
	select {
	case <-gate:
		return res
	case <-ctx.Done():
		return api.Fail[Page[item]](api.ProblemFromError(ctx.Err()))
	}
}

func makeItems(from, n int) []item {
	items := make([]item, n)
	for i := range items {
		items[i] = item{ID: from + i, Name: "user"}
	}
	return items
}

func page(items []item, total, skip int) api.Result[Page[item]] {
	return api.OK(Page[item]{Items: items, Total: total, Skip: skip, Limit: 30})
}

func newTestController(t *testing.T, src *fakeSource, opts ...Option) *Controller[item] {
	t.Helper()
	opts = append([]Option{WithDebounce(20 * time.Millisecond)}, opts...)
	c := NewController[item](src, opts...)
	t.Cleanup(c.Close)
	return c
}

func TestController_InitialLoad(t *testing.T) {
	src := &fakeSource{}
	src.queuePage(page(makeItems(1, 30), 60, 0))
	c := newTestController(t, src)

	require.True(t, c.Snapshot().IsLoading)

	c.Activate(context.Background())

	s := c.Snapshot()
	assert.False(t, s.IsLoading)
	assert.Len(t, s.Items, 30)
	assert.True(t, s.HasMore())
	assert.Equal(t, 30, s.Skip)
	assert.Equal(t, 60, s.Total)
	assert.Nil(t, s.Err)
	assert.Equal(t, []call{{limit: 30, skip: 0}}, src.recorded())
}

func TestController_ActivateOnlyOnce(t *testing.T) {
	src := &fakeSource{}
	src.queuePage(page(makeItems(1, 30), 60, 0))
	c := newTestController(t, src)

	c.Activate(context.Background())
	c.Activate(context.Background())

	assert.Len(t, src.recorded(), 1)
}

func TestController_PaginationAccumulates(t *testing.T) {
	src := &fakeSource{}
	src.queuePage(page(makeItems(1, 30), 60, 0))
	src.queuePage(page(makeItems(31, 30), 60, 30))
	c := newTestController(t, src)

	c.Activate(context.Background())
	c.LoadMore(context.Background())

	s := c.Snapshot()
	require.Len(t, s.Items, 60)
	assert.Equal(t, 1, s.Items[0].ID)
	assert.Equal(t, 60, s.Items[59].ID)
	assert.False(t, s.HasMore())
	assert.False(t, s.IsLoadingMore)
	assert.Equal(t, []call{{limit: 30, skip: 0}, {limit: 30, skip: 30}}, src.recorded())

	// cursor reached the total
	c.LoadMore(context.Background())
	assert.Len(t, src.recorded(), 2)
}

func TestController_LoadMoreGuardWhileLoading(t *testing.T) {
	src := &fakeSource{}
	src.queuePage(page(makeItems(1, 30), 90, 0))
	src.queuePage(page(makeItems(31, 30), 90, 30))
	c := newTestController(t, src)
	c.Activate(context.Background())

	gate := make(chan struct{})
	entered := make(chan struct{}, 4)
	src.setGate(gate, entered)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.LoadMore(context.Background())
	}()
	<-entered

	require.True(t, c.Snapshot().IsLoadingMore)
	c.LoadMore(context.Background())
	assert.Len(t, src.recorded(), 2)

	close(gate)
	<-done

	s := c.Snapshot()
	assert.Len(t, s.Items, 60)
	assert.False(t, s.IsLoadingMore)
	assert.Len(t, src.recorded(), 2)
}

func TestController_LoadMoreBeforeActivateIsNoop(t *testing.T) {
	src := &fakeSource{}
	c := newTestController(t, src)

	c.LoadMore(context.Background())

	assert.Empty(t, src.recorded())
}

func TestController_LoadMoreFailureKeepsItems(t *testing.T) {
	src := &fakeSource{}
	src.queuePage(page(makeItems(1, 30), 60, 0))
	src.queuePage(api.Fail[Page[item]](api.NewProblem(api.KindServer, 503, nil)))
	c := newTestController(t, src)

	c.Activate(context.Background())
	c.LoadMore(context.Background())

	s := c.Snapshot()
	assert.Len(t, s.Items, 30)
	assert.Equal(t, 30, s.Skip)
	require.NotNil(t, s.Err)
	assert.Equal(t, api.KindServer, s.Err.Kind)
	assert.False(t, s.IsLoadingMore)
	assert.True(t, s.HasMore())
}

func TestController_InitialLoadFailure(t *testing.T) {
	src := &fakeSource{}
	src.queuePage(api.Fail[Page[item]](api.NewProblem(api.KindCannotConnect, 0, errors.New("offline"))))
	c := newTestController(t, src)

	c.Activate(context.Background())

	s := c.Snapshot()
	assert.False(t, s.IsLoading)
	assert.Empty(t, s.Items)
	require.NotNil(t, s.Err)
	assert.Equal(t, api.KindCannotConnect, s.Err.Kind)
	assert.False(t, s.HasMore())
}

func TestController_SearchReplacesItems(t *testing.T) {
	src := &fakeSource{}
	a := item{ID: 1, Name: "A"}
	b := item{ID: 2, Name: "B"}
	src.queuePage(page([]item{a}, 1, 0))
	src.queueSearch(page([]item{b}, 1, 0))
	c := newTestController(t, src)
	c.Activate(context.Background())

	c.SetQuery("x")

	s := c.Snapshot()
	assert.Equal(t, "x", s.Query)
	assert.True(t, s.IsTyping)
	assert.False(t, s.IsSearching)

	require.Eventually(t, func() bool {
		s := c.Snapshot()
		return !s.IsTyping && !s.IsSearching && len(src.recorded()) == 2
	}, time.Second, 5*time.Millisecond)

	s = c.Snapshot()
	assert.Equal(t, []item{b}, s.Items)
	assert.False(t, s.HasMore())
	assert.Equal(t, call{search: true, query: "x"}, src.recorded()[1])
}

func TestController_EmptyQueryRestoresPagination(t *testing.T) {
	src := &fakeSource{}
	src.queuePage(page(makeItems(1, 30), 100, 0))
	src.queueSearch(page(makeItems(500, 3), 3, 0))
	src.queuePage(page(makeItems(1, 30), 90, 0))
	c := newTestController(t, src)
	c.Activate(context.Background())

	c.SetQuery("ann")
	require.Eventually(t, func() bool {
		s := c.Snapshot()
		return !s.IsSearching && !s.IsTyping && len(s.Items) == 3
	}, time.Second, 5*time.Millisecond)
	assert.False(t, c.Snapshot().HasMore())

	c.SetQuery("   ")
	require.Eventually(t, func() bool {
		s := c.Snapshot()
		return !s.IsSearching && !s.IsTyping && len(s.Items) == 30
	}, time.Second, 5*time.Millisecond)

	s := c.Snapshot()
	assert.Equal(t, 30, s.Skip)
	assert.Equal(t, 90, s.Total)
	assert.True(t, s.HasMore())

	calls := src.recorded()
	require.Len(t, calls, 3)
	assert.Equal(t, call{limit: 30, skip: 0}, calls[2])
}

func TestController_SearchDoesNotTouchTotal(t *testing.T) {
	src := &fakeSource{}
	src.queuePage(page(makeItems(1, 30), 208, 0))
	src.queueSearch(page(makeItems(1, 2), 2, 0))
	c := newTestController(t, src)
	c.Activate(context.Background())

	c.SetQuery("jo")
	require.Eventually(t, func() bool {
		return len(c.Snapshot().Items) == 2
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 208, c.Snapshot().Total)
}

func TestController_LoadMoreDisabledDuringSearch(t *testing.T) {
	src := &fakeSource{}
	src.queuePage(page(makeItems(1, 30), 100, 0))
	src.queueSearch(page(makeItems(1, 5), 5, 0))
	c := newTestController(t, src)
	c.Activate(context.Background())

	c.SetQuery("em")
	// pending debounce already counts as an active search
	c.LoadMore(context.Background())
	assert.Len(t, src.recorded(), 1)

	require.Eventually(t, func() bool {
		return len(c.Snapshot().Items) == 5
	}, time.Second, 5*time.Millisecond)

	c.LoadMore(context.Background())
	assert.Len(t, src.recorded(), 2)
}

func TestController_RefreshFailureKeepsStaleItems(t *testing.T) {
	src := &fakeSource{}
	a := item{ID: 1, Name: "A"}
	src.queuePage(page([]item{a}, 1, 0))
	src.queuePage(api.Fail[Page[item]](api.NewProblem(api.KindServer, 500, nil)))
	c := newTestController(t, src)
	c.Activate(context.Background())

	c.Refresh(context.Background())

	s := c.Snapshot()
	assert.Equal(t, []item{a}, s.Items)
	require.NotNil(t, s.Err)
	assert.Equal(t, api.KindServer, s.Err.Kind)
	assert.True(t, s.Err.Temporary)
	assert.False(t, s.IsRefreshing)
	assert.False(t, s.IsLoading)
}

func TestController_RefreshReloadsFromFirstPage(t *testing.T) {
	src := &fakeSource{}
	src.queuePage(page(makeItems(1, 30), 60, 0))
	src.queuePage(page(makeItems(31, 30), 60, 30))
	src.queuePage(page(makeItems(1, 30), 61, 0))
	c := newTestController(t, src)
	c.Activate(context.Background())
	c.LoadMore(context.Background())

	c.Refresh(context.Background())

	s := c.Snapshot()
	assert.Len(t, s.Items, 30)
	assert.Equal(t, 30, s.Skip)
	assert.Equal(t, 61, s.Total)
	assert.True(t, s.HasMore())
	assert.Equal(t, call{limit: 30, skip: 0}, src.recorded()[2])
}

func TestController_RefreshFlagDuringFetch(t *testing.T) {
	src := &fakeSource{}
	src.queuePage(page(makeItems(1, 3), 3, 0))
	src.queuePage(page(makeItems(1, 3), 3, 0))
	c := newTestController(t, src)
	c.Activate(context.Background())

	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	src.setGate(gate, entered)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Refresh(context.Background())
	}()
	<-entered

	assert.True(t, c.Snapshot().IsRefreshing)
	close(gate)
	<-done
	assert.False(t, c.Snapshot().IsRefreshing)
}

func TestController_RefreshRerunsActiveSearch(t *testing.T) {
	src := &fakeSource{}
	src.queuePage(page(makeItems(1, 30), 60, 0))
	src.queueSearch(page(makeItems(7, 1), 1, 0))
	src.queueSearch(page(makeItems(8, 2), 2, 0))
	c := newTestController(t, src)
	c.Activate(context.Background())

	c.SetQuery(" kim ")
	require.Eventually(t, func() bool {
		return len(c.Snapshot().Items) == 1 && !c.Snapshot().IsSearching
	}, time.Second, 5*time.Millisecond)

	c.Refresh(context.Background())

	s := c.Snapshot()
	assert.Len(t, s.Items, 2)
	assert.False(t, s.IsRefreshing)
	calls := src.recorded()
	require.Len(t, calls, 3)
	assert.Equal(t, call{search: true, query: "kim"}, calls[2])
}

func TestController_DebounceCoalesces(t *testing.T) {
	src := &fakeSource{}
	src.queuePage(page(makeItems(1, 30), 60, 0))
	src.queueSearch(page(makeItems(3, 1), 1, 0))
	c := newTestController(t, src, WithDebounce(60*time.Millisecond))
	c.Activate(context.Background())

	c.SetQuery("a")
	time.Sleep(10 * time.Millisecond)
	c.SetQuery("ab")
	time.Sleep(10 * time.Millisecond)
	c.SetQuery("abc")

	require.Eventually(t, func() bool {
		return len(src.recorded()) == 2 && !c.Snapshot().IsSearching
	}, time.Second, 5*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	calls := src.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, call{search: true, query: "abc"}, calls[1])
	assert.Equal(t, "abc", c.Snapshot().Query)
}

func TestController_SearchFailureKeepsItems(t *testing.T) {
	src := &fakeSource{}
	src.queuePage(page(makeItems(1, 4), 4, 0))
	src.queueSearch(api.Fail[Page[item]](api.NewProblem(api.KindTimeout, 0, nil)))
	c := newTestController(t, src)
	c.Activate(context.Background())

	c.SetQuery("zed")
	require.Eventually(t, func() bool {
		s := c.Snapshot()
		return s.Err != nil && !s.IsSearching
	}, time.Second, 5*time.Millisecond)

	s := c.Snapshot()
	assert.Len(t, s.Items, 4)
	assert.Equal(t, api.KindTimeout, s.Err.Kind)
}

func TestController_OnChangeNotifies(t *testing.T) {
	src := &fakeSource{}
	src.queuePage(page(makeItems(1, 2), 2, 0))

	var mu sync.Mutex
	var seen []bool
	var c *Controller[item]
	c = newTestController(t, src, WithOnChange(func() {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, c.Snapshot().IsLoading)
	}))

	c.Activate(context.Background())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.False(t, seen[len(seen)-1])
}

func TestController_CloseCancelsPendingDebounce(t *testing.T) {
	src := &fakeSource{}
	src.queuePage(page(makeItems(1, 2), 2, 0))
	c := NewController[item](src, WithDebounce(20*time.Millisecond))
	c.Activate(context.Background())

	c.SetQuery("late")
	c.Close()
	time.Sleep(60 * time.Millisecond)

	assert.Len(t, src.recorded(), 1)
}

func TestController_CloseIgnoresInFlightCompletion(t *testing.T) {
	src := &fakeSource{}
	src.queuePage(page(makeItems(1, 2), 2, 0))
	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	src.setGate(gate, entered)
	c := NewController[item](src)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Activate(context.Background())
	}()
	<-entered

	c.Close()
	<-done
	close(gate)

	s := c.Snapshot()
	assert.True(t, s.IsLoading)
	assert.Empty(t, s.Items)
	assert.Nil(t, s.Err)

	// operations after teardown are ignored
	c.SetQuery("x")
	c.Refresh(context.Background())
	assert.Equal(t, "", c.Snapshot().Query)
	assert.Len(t, src.recorded(), 1)
}

func TestState_HasMore(t *testing.T) {
	tests := []struct {
		name  string
		state State[item]
		want  bool
	}{
		{"nothing loaded", State[item]{}, false},
		{"more pages", State[item]{Skip: 30, Total: 60}, true},
		{"exhausted", State[item]{Skip: 60, Total: 60}, false},
		{"overshot", State[item]{Skip: 90, Total: 60}, false},
		{"search active", State[item]{Skip: 30, Total: 60, Query: "ann"}, false},
		{"blank query", State[item]{Skip: 30, Total: 60, Query: "  "}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.HasMore())
		})
	}
}
