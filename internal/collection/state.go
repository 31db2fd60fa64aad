// Package collection keeps one paginated, searchable list of remote records
// consistent under interleaved loads, refreshes and debounced searches.
package collection

import (
	"context"
	"slices"
	"strings"

	"github.com/pders01/userdir/internal/api"
)

// Page is one fetched batch of items plus its pagination metadata.
type Page[T any] struct {
	Items []T
	Total int
	Skip  int
	Limit int
}

// Source supplies pages and search results. Implementations must honour ctx.
type Source[T any] interface {
	FetchPage(ctx context.Context, limit, skip int) api.Result[Page[T]]
	Search(ctx context.Context, query string) api.Result[Page[T]]
}

// State is a point-in-time view of a Controller.
type State[T any] struct {
	Items []T
	// Skip is the offset the next page will be requested from.
	Skip int
	// Total is the count reported by the latest paginated fetch.
	Total int
	Query string

	IsLoading     bool
	IsLoadingMore bool
	IsRefreshing  bool
	IsSearching   bool
	IsTyping      bool

	// Err is the problem of the most recently completed fetch, if it failed.
	Err *api.Problem
}

// HasMore reports whether another page can be requested. Search results are
// never paginated further.
func (s State[T]) HasMore() bool {
	return s.Total > 0 && s.Skip < s.Total && !isSearch(s.Query)
}

// Busy reports whether any fetch started by the controller is in flight.
func (s State[T]) Busy() bool {
	return s.IsLoading || s.IsLoadingMore || s.IsRefreshing || s.IsSearching
}

func (s State[T]) clone() State[T] {
	s.Items = slices.Clone(s.Items)
	return s
}

func isSearch(query string) bool {
	return strings.TrimSpace(query) != ""
}
