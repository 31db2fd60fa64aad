// Package users talks to the DummyJSON-style users endpoints.
package users

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pders01/userdir/internal/api"
	"github.com/pders01/userdir/internal/collection"
)

var (
	errBadBounds  = errors.New("limit must be positive and skip non-negative")
	errEmptyQuery = errors.New("search query is empty")
)

// Service fetches users through an api.Client. It implements
// collection.Source[User].
type Service struct {
	client *api.Client
}

var _ collection.Source[User] = (*Service)(nil)

func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// List returns the server's default, unpaginated listing.
func (s *Service) List(ctx context.Context) api.Result[ListResponse] {
	return api.Get[ListResponse](ctx, s.client, "/users", nil)
}

// FetchPage requests one page of the full collection.
func (s *Service) FetchPage(ctx context.Context, limit, skip int) api.Result[collection.Page[User]] {
	if limit <= 0 || skip < 0 {
		return api.Fail[collection.Page[User]](api.NewProblem(api.KindRejected, 0,
			fmt.Errorf("%w: limit=%d skip=%d", errBadBounds, limit, skip)))
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("skip", strconv.Itoa(skip))

	return api.Map(api.Get[ListResponse](ctx, s.client, "/users", params), toPage)
}

// Search returns every user matching query in a single page.
func (s *Service) Search(ctx context.Context, query string) api.Result[collection.Page[User]] {
	query = strings.TrimSpace(query)
	if query == "" {
		return api.Fail[collection.Page[User]](api.NewProblem(api.KindRejected, 0, errEmptyQuery))
	}

	params := url.Values{}
	params.Set("q", query)

	return api.Map(api.Get[ListResponse](ctx, s.client, "/users/search", params), toPage)
}

// ByID fetches a single user.
func (s *Service) ByID(ctx context.Context, id int) api.Result[User] {
	return api.Get[User](ctx, s.client, "/users/"+strconv.Itoa(id), nil)
}

func toPage(r ListResponse) collection.Page[User] {
	return collection.Page[User]{
		Items: r.Users,
		Total: r.Total,
		Skip:  r.Skip,
		Limit: r.Limit,
	}
}
