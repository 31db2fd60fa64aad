package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/userdir/internal/api"
	"github.com/pders01/userdir/internal/collection"
	"github.com/pders01/userdir/internal/config"
	"github.com/pders01/userdir/internal/users"
)

type fakeSource struct {
	mu       sync.Mutex
	users    []users.User
	failList *api.Problem
	searches []string
}

func newFakeSource(n int) *fakeSource {
	src := &fakeSource{}
	for i := 1; i <= n; i++ {
		src.users = append(src.users, users.User{
			ID:        i,
			FirstName: fmt.Sprintf("First%02d", i),
			LastName:  "Tester",
			Username:  fmt.Sprintf("user%02d", i),
			Email:     fmt.Sprintf("user%02d@example.com", i),
			Age:       20 + i,
			Gender:    "female",
			Image:     fmt.Sprintf("https://example.com/avatars/%d.png", i),
		})
	}
	return src
}

func (f *fakeSource) setFailure(p *api.Problem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failList = p
}

func (f *fakeSource) FetchPage(ctx context.Context, limit, skip int) api.Result[collection.Page[users.User]] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return api.Fail[collection.Page[users.User]](f.failList)
	}
	end := min(skip+limit, len(f.users))
	start := min(skip, end)
	items := append([]users.User(nil), f.users[start:end]...)
	return api.OK(collection.Page[users.User]{Items: items, Total: len(f.users), Skip: skip, Limit: limit})
}

func (f *fakeSource) Search(ctx context.Context, query string) api.Result[collection.Page[users.User]] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)
	var items []users.User
	for _, u := range f.users {
		if strings.Contains(strings.ToLower(u.FullName()), strings.ToLower(query)) {
			items = append(items, u)
		}
	}
	return api.OK(collection.Page[users.User]{Items: items, Total: len(items), Limit: len(items)})
}

func (f *fakeSource) ByID(ctx context.Context, id int) api.Result[users.User] {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return api.OK(u)
		}
	}
	return api.Fail[users.User](api.NewProblem(api.KindNotFound, 404, nil))
}

type fakeOpener struct {
	opened []string
	err    error
}

func (o *fakeOpener) OpenImage(link string) error {
	if o.err != nil {
		return o.err
	}
	o.opened = append(o.opened, link)
	return nil
}

func newTestApp(t *testing.T, deps Deps) *App {
	t.Helper()
	app := NewApp(config.TestConfig(), deps)
	t.Cleanup(app.Close)
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return app
}

// syncApp applies the latest controller state the way a delivered
// stateChangedMsg would.
func syncApp(app *App) {
	app.Update(stateChangedMsg{})
}

func loaded(t *testing.T, src *fakeSource, deps ...func(*Deps)) *App {
	t.Helper()
	d := Deps{Source: src}
	for _, fn := range deps {
		fn(&d)
	}
	app := newTestApp(t, d)
	app.activate()()
	syncApp(app)
	return app
}

func press(app *App, k string) tea.Cmd {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+r":
		msg = tea.KeyMsg{Type: tea.KeyCtrlR}
	case "ctrl+d":
		msg = tea.KeyMsg{Type: tea.KeyCtrlD}
	case "ctrl+c":
		msg = tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	_, cmd := app.Update(msg)
	return cmd
}
