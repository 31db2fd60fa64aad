package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"

	"github.com/pders01/userdir/internal/api"
)

func fakeUser(f *gofakeit.Faker, id int) User {
	return User{
		ID:        id,
		FirstName: f.FirstName(),
		LastName:  f.LastName(),
		Age:       f.Number(18, 80),
		Gender:    f.Gender(),
		Email:     f.Email(),
		Phone:     f.Phone(),
		Username:  f.Username(),
		Image:     f.URL(),
		Address: Address{
			City:    f.City(),
			Country: f.Country(),
		},
		University: f.Company() + " University",
		Company: Company{
			Name:  f.Company(),
			Title: f.JobTitle(),
		},
		Role: "user",
	}
}

func fakeUsers(n int) []User {
	f := gofakeit.New(42)
	out := make([]User, n)
	for i := range out {
		out[i] = fakeUser(f, i+1)
	}
	return out
}

// directory is an in-memory stand-in for the remote users endpoints.
type directory struct {
	mu       sync.Mutex
	users    []User
	requests []string
}

func (d *directory) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	d.requests = append(d.requests, r.URL.RequestURI())
	users := d.users
	d.mu.Unlock()

	switch {
	case r.URL.Path == "/users/search":
		q := strings.ToLower(r.URL.Query().Get("q"))
		var hits []User
		for _, u := range users {
			if strings.Contains(strings.ToLower(u.FirstName+" "+u.LastName), q) {
				hits = append(hits, u)
			}
		}
		writeJSON(w, ListResponse{Users: hits, Total: len(hits), Skip: 0, Limit: len(hits)})
	case r.URL.Path == "/users":
		limit, skip := 30, 0
		if v := r.URL.Query().Get("limit"); v != "" {
			limit, _ = strconv.Atoi(v)
		}
		if v := r.URL.Query().Get("skip"); v != "" {
			skip, _ = strconv.Atoi(v)
		}
		start := min(skip, len(users))
		end := min(skip+limit, len(users))
		writeJSON(w, ListResponse{Users: users[start:end], Total: len(users), Skip: skip, Limit: limit})
	case strings.HasPrefix(r.URL.Path, "/users/"):
		id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/users/"))
		if err != nil || id < 1 || id > len(users) {
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, map[string]string{"message": "not found"})
			return
		}
		writeJSON(w, users[id-1])
	default:
		http.NotFound(w, r)
	}
}

func (d *directory) seen() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.requests...)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestService(t *testing.T, h http.Handler) *Service {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client, err := api.NewClient(api.Options{BaseURL: srv.URL, UserAgent: "userdir-test/1.0"})
	require.NoError(t, err)
	return NewService(client)
}
