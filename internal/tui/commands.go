package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/pders01/userdir/internal/debuglog"
)

const suggestionLimit = 3

// waitForChange blocks until the controller or the detail fetcher reports a
// transition. Exactly one of these is outstanding at a time.
func (a *App) waitForChange() tea.Cmd {
	changes, done := a.changes, a.ctx.Done()
	return func() tea.Msg {
		select {
		case <-changes:
			return stateChangedMsg{}
		case <-done:
			return nil
		}
	}
}

// notify is the onChange hook; it runs on fetch goroutines and never blocks.
func (a *App) notify() {
	select {
	case a.changes <- struct{}{}:
	default:
	}
}

func (a *App) activate() tea.Cmd {
	return func() tea.Msg {
		a.users.Activate(a.ctx)
		return nil
	}
}

func (a *App) loadMore() tea.Cmd {
	a.state.IsLoadingMore = true
	return func() tea.Msg {
		a.users.LoadMore(a.ctx)
		return nil
	}
}

func (a *App) refresh() tea.Cmd {
	a.setStatus(MsgRefreshing, StatusInfo)
	return func() tea.Msg {
		a.users.Refresh(a.ctx)
		return nil
	}
}

func (a *App) loadDetail(id int) tea.Cmd {
	return func() tea.Msg {
		a.detail.Load(a.ctx, id)
		return nil
	}
}

func (a *App) refetchDetail() tea.Cmd {
	return func() tea.Msg {
		a.detail.Refetch(a.ctx)
		return nil
	}
}

func (a *App) renderDetail(key renderKey, markdown string, r *glamour.TermRenderer) tea.Cmd {
	return func() tea.Msg {
		rendered, err := r.Render(markdown)
		if err != nil {
			debuglog.Warnf("tui: render detail %d: %v", key.id, err)
			return detailRenderedMsg{key: key, content: markdown}
		}
		return detailRenderedMsg{key: key, content: rendered}
	}
}

func (a *App) recordQuery(query string) tea.Cmd {
	query = strings.TrimSpace(query)
	if a.history == nil || query == "" {
		return nil
	}
	h := a.history
	return func() tea.Msg {
		if err := h.Record(query); err != nil {
			return errorMsg{err: wrapErr("record search", err)}
		}
		return nil
	}
}

func (a *App) suggest(query string) tea.Cmd {
	if a.history == nil {
		return nil
	}
	h := a.history
	return func() tea.Msg {
		entries, err := h.Suggest(query, suggestionLimit+1)
		if err != nil {
			debuglog.Warnf("tui: suggest %q: %v", query, err)
			return nil
		}
		var out []string
		for _, e := range entries {
			if strings.EqualFold(strings.TrimSpace(e.Query), strings.TrimSpace(query)) {
				continue
			}
			out = append(out, e.Query)
			if len(out) == suggestionLimit {
				break
			}
		}
		return suggestionsMsg{query: query, queries: out}
	}
}

func (a *App) complete(prefix string) tea.Cmd {
	if a.history == nil || strings.TrimSpace(prefix) == "" {
		return nil
	}
	h := a.history
	return func() tea.Msg {
		return completionMsg{prefix: prefix, query: h.Complete(prefix)}
	}
}

func (a *App) clearHistory() tea.Cmd {
	if a.history == nil {
		return func() tea.Msg { return statusMsg{text: MsgHistoryDisabled, kind: StatusWarn} }
	}
	h := a.history
	return func() tea.Msg {
		if err := h.Clear(); err != nil {
			return errorMsg{err: wrapErr("clear history", err)}
		}
		return statusMsg{text: MsgHistoryCleared, kind: StatusSuccess}
	}
}

func (a *App) openImage(link string) tea.Cmd {
	if strings.TrimSpace(link) == "" || a.opener == nil {
		return func() tea.Msg { return statusMsg{text: MsgNoImage, kind: StatusWarn} }
	}
	o := a.opener
	return func() tea.Msg {
		if err := o.OpenImage(link); err != nil {
			return errorMsg{err: wrapErr("open image", err)}
		}
		return statusMsg{text: MsgOpening(link), kind: StatusInfo}
	}
}
