package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/userdir/internal/config"
)

type keyMap struct {
	Quit          key.Binding
	Search        key.Binding
	Refresh       key.Binding
	ClearHistory  key.Binding
	Open          key.Binding
	OpenImage     key.Binding
	ToggleSection key.Binding
	Section1      key.Binding
	Section2      key.Binding
	Back          key.Binding
	Help          key.Binding
	Navigate      key.Binding

	Submit   key.Binding
	Complete key.Binding
	Clear    key.Binding
	Results  key.Binding
}

func newKeyMap(cfg config.KeyConfig) keyMap {
	b := cfg.Bindings
	mod := ""
	if m := strings.TrimSpace(cfg.Modifier); m != "" {
		mod = m + "+"
	}
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys(b.Quit, "ctrl+c"),
			key.WithHelp(b.Quit, "quit"),
		),
		Search: key.NewBinding(
			key.WithKeys(mod+b.Search, "/"),
			key.WithHelp(mod+b.Search, "search"),
		),
		Refresh: key.NewBinding(
			key.WithKeys(mod+b.Refresh),
			key.WithHelp(mod+b.Refresh, "refresh"),
		),
		ClearHistory: key.NewBinding(
			key.WithKeys(mod+b.ClearHistory),
			key.WithHelp(mod+b.ClearHistory, "clear history"),
		),
		Open: key.NewBinding(
			key.WithKeys(b.Open),
			key.WithHelp(b.Open, "details"),
		),
		OpenImage: key.NewBinding(
			key.WithKeys(b.OpenImage),
			key.WithHelp(b.OpenImage, "open avatar"),
		),
		ToggleSection: key.NewBinding(
			key.WithKeys(b.ToggleSection),
			key.WithHelp(b.ToggleSection, "toggle sections"),
		),
		Section1: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "contact"),
		),
		Section2: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "work"),
		),
		Back: key.NewBinding(
			key.WithKeys(b.Back),
			key.WithHelp(b.Back, "back"),
		),
		Help: key.NewBinding(
			key.WithKeys(b.Help),
			key.WithHelp(b.Help, "more"),
		),
		Navigate: key.NewBinding(
			key.WithKeys("up", "down", "k", "j"),
			key.WithHelp("↑/↓", "move"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "done"),
		),
		Complete: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "complete"),
		),
		Clear: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear"),
		),
		Results: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "results"),
		),
	}
}

type KeyHandler struct {
	app  *App
	keys keyMap
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	return &KeyHandler{app: app, keys: newKeyMap(cfg.Keys)}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	a.clearStatus()

	if msg.Type == tea.KeyCtrlC {
		return a, a.quit()
	}

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(msg); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	return kh.app.view == ViewUsers && kh.app.searchInput.Focused()
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	switch {
	case key.Matches(msg, kh.keys.Refresh):
		return a, a.refresh()
	case key.Matches(msg, kh.keys.ClearHistory):
		return a, a.clearHistory()
	case key.Matches(msg, kh.keys.Clear):
		if a.searchInput.Value() != "" {
			return a, a.setQuery("")
		}
		a.searchInput.Blur()
		return a, nil
	case key.Matches(msg, kh.keys.Submit):
		a.searchInput.Blur()
		return a, a.recordQuery(a.searchInput.Value())
	case key.Matches(msg, kh.keys.Complete):
		return a, a.complete(a.searchInput.Value())
	case key.Matches(msg, kh.keys.Results):
		if len(a.userList.Items()) > 0 {
			a.searchInput.Blur()
		}
		return a, nil
	}
	return kh.delegateToTextInput(msg)
}

func (kh *KeyHandler) delegateToTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	prev := a.searchInput.Value()
	input, cmd := a.searchInput.Update(msg)
	a.searchInput = input
	if v := a.searchInput.Value(); v != prev {
		return a, tea.Batch(cmd, a.queryChanged(v))
	}
	return a, cmd
}

func (kh *KeyHandler) handleCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	a := kh.app

	switch {
	case key.Matches(msg, kh.keys.Quit):
		return a, a.quit(), true
	case key.Matches(msg, kh.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
		return a, nil, true
	}

	switch a.view {
	case ViewUsers:
		return kh.handleUsersCustomKeys(msg)
	case ViewDetail:
		return kh.handleDetailCustomKeys(msg)
	default:
		return a, nil, false
	}
}

func (kh *KeyHandler) handleUsersCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	a := kh.app

	switch {
	case key.Matches(msg, kh.keys.Search):
		return a, a.searchInput.Focus(), true
	case key.Matches(msg, kh.keys.Refresh):
		return a, a.refresh(), true
	case key.Matches(msg, kh.keys.ClearHistory):
		return a, a.clearHistory(), true
	case key.Matches(msg, kh.keys.Open):
		if u, ok := a.selectedUser(); ok {
			return a, a.openDetail(u), true
		}
		return a, nil, true
	case key.Matches(msg, kh.keys.OpenImage):
		if u, ok := a.selectedUser(); ok {
			return a, a.openImage(u.Image), true
		}
		return a, nil, true
	case key.Matches(msg, kh.keys.Back):
		if a.searchInput.Value() != "" {
			return a, a.setQuery(""), true
		}
		return a, nil, true
	}
	return a, nil, false
}

func (kh *KeyHandler) handleDetailCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	a := kh.app

	switch {
	case key.Matches(msg, kh.keys.Back):
		a.view = ViewUsers
		return a, nil, true
	case key.Matches(msg, kh.keys.Refresh):
		return a, a.refetchDetail(), true
	case key.Matches(msg, kh.keys.OpenImage):
		if u, ok := a.currentDetail(); ok {
			return a, a.openImage(u.Image), true
		}
		return a, nil, true
	case key.Matches(msg, kh.keys.ToggleSection):
		return a, a.toggleSections(-1), true
	case key.Matches(msg, kh.keys.Section1):
		return a, a.toggleSections(0), true
	case key.Matches(msg, kh.keys.Section2):
		return a, a.toggleSections(1), true
	}
	return a, nil, false
}

// delegateToCharm forwards navigation keys to the focused bubbles component.
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	switch a.view {
	case ViewUsers:
		if msg.Type == tea.KeyUp && a.userList.Index() == 0 {
			// moving above the first row returns to the search box
			return a, a.searchInput.Focus()
		}
		l, cmd := a.userList.Update(msg)
		a.userList = l
		return a, tea.Batch(cmd, a.maybeLoadMore())
	case ViewDetail:
		vp, cmd := a.viewport.Update(msg)
		a.viewport = vp
		return a, cmd
	}
	return a, nil
}

// ShortHelp implements help.KeyMap for the current view.
func (kh *KeyHandler) ShortHelp() []key.Binding {
	k := kh.keys
	switch {
	case kh.isInTextInputMode():
		return []key.Binding{k.Submit, k.Complete, k.Clear, k.Results}
	case kh.app.view == ViewDetail:
		return []key.Binding{k.Back, k.ToggleSection, k.OpenImage, k.Refresh, k.Help}
	default:
		return []key.Binding{k.Open, k.Search, k.Refresh, k.OpenImage, k.Help, k.Quit}
	}
}

// FullHelp implements help.KeyMap for the current view.
func (kh *KeyHandler) FullHelp() [][]key.Binding {
	k := kh.keys
	switch {
	case kh.isInTextInputMode():
		return [][]key.Binding{{k.Submit, k.Complete}, {k.Clear, k.Results}, {k.Refresh, k.ClearHistory}}
	case kh.app.view == ViewDetail:
		return [][]key.Binding{{k.Back, k.Navigate}, {k.ToggleSection, k.Section1, k.Section2}, {k.OpenImage, k.Refresh, k.Quit}}
	default:
		return [][]key.Binding{{k.Navigate, k.Open, k.OpenImage}, {k.Search, k.Refresh, k.ClearHistory}, {k.Help, k.Quit}}
	}
}

// GetHelpForCurrentView returns the short help as "key: action" strings.
func (kh *KeyHandler) GetHelpForCurrentView() []string {
	var out []string
	for _, b := range kh.ShortHelp() {
		h := b.Help()
		out = append(out, h.Key+": "+h.Desc)
	}
	return out
}
