package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/userdir/internal/api"
	"github.com/pders01/userdir/internal/collection"
	"github.com/pders01/userdir/internal/config"
	"github.com/pders01/userdir/internal/history"
	"github.com/pders01/userdir/internal/users"
)

// UserSource supplies the list and the detail records.
type UserSource interface {
	collection.Source[users.User]
	ByID(ctx context.Context, id int) api.Result[users.User]
}

// QueryHistory persists submitted searches and completes new ones.
type QueryHistory interface {
	Record(query string) error
	Suggest(prefix string, limit int) ([]history.Entry, error)
	Complete(prefix string) string
	Clear() error
}

// Opener hands links to external programs.
type Opener interface {
	OpenImage(link string) error
}

// Deps are the collaborators of an App. History and Opener are optional.
type Deps struct {
	Source  UserSource
	History QueryHistory
	Opener  Opener
}

const (
	// rows left before the end of the list that trigger the next page
	loadMoreThreshold = 5

	headerHeight     = 2
	searchHeight     = 3
	suggestionHeight = 1
	footerHeight     = 1
	statusHeight     = 2
)

type renderKey struct {
	id       int
	width    int
	sections [sectionCount]bool
}

type App struct {
	config     *config.Config
	history    QueryHistory
	opener     Opener
	users      *collection.Controller[users.User]
	detail     *collection.Detail[users.User]
	keyHandler *KeyHandler

	ctx     context.Context
	cancel  context.CancelFunc
	changes chan struct{}

	userList    list.Model
	searchInput textinput.Model
	viewport    viewport.Model
	spinner     spinner.Model
	help        help.Model

	view        View
	state       collection.State[users.User]
	detailState collection.DetailState[users.User]
	detailID    int
	suggestions []string
	sections    [sectionCount]bool
	rendered    renderKey
	hasRendered bool

	glamourRenderer *glamour.TermRenderer
	rendererWidth   int

	width      int
	height     int
	err        error
	status     string
	statusKind StatusKind
}

func NewApp(cfg *config.Config, deps Deps) *App {
	ApplyTheme(cfg.UI.Colors)

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(PrimaryColor).
		BorderForeground(PrimaryColor)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		BorderForeground(PrimaryColor)

	userList := list.New([]list.Item{}, delegate, 0, 0)
	userList.SetShowTitle(false)
	userList.SetShowStatusBar(false)
	userList.SetShowHelp(false)
	userList.SetFilteringEnabled(false)
	userList.DisableQuitKeybindings()
	userList.KeyMap.ShowFullHelp.SetEnabled(false)
	userList.KeyMap.CloseFullHelp.SetEnabled(false)

	si := textinput.New()
	si.Placeholder = MsgSearchHint
	si.Prompt = "› "

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		config:      cfg,
		history:     deps.History,
		opener:      deps.Opener,
		ctx:         ctx,
		cancel:      cancel,
		changes:     make(chan struct{}, 1),
		userList:    userList,
		searchInput: si,
		viewport:    viewport.New(0, 0),
		spinner:     sp,
		help:        help.New(),
		view:        ViewUsers,
	}
	for i := range app.sections {
		app.sections[i] = cfg.UI.Detail.ExpandSections
	}

	app.users = collection.NewController[users.User](deps.Source,
		collection.WithPageSize(cfg.API.PageSize),
		collection.WithDebounce(cfg.Search.Debounce),
		collection.WithOnChange(app.notify),
	)
	app.detail = collection.NewDetail[users.User](deps.Source.ByID,
		collection.WithOnChange(app.notify),
	)
	app.state = app.users.Snapshot()
	app.keyHandler = NewKeyHandler(app, cfg)

	return app
}

// Close stops the controllers and cancels every in-flight request.
func (a *App) Close() {
	a.cancel()
	a.users.Close()
	a.detail.Close()
}

func (a *App) quit() tea.Cmd {
	a.Close()
	return tea.Quit
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	d := a.config.UI.Detail
	wordWrapWidth := (a.width * 9) / 10
	if d.WordWrapMaxWidth > 0 && wordWrapWidth > d.WordWrapMaxWidth {
		wordWrapWidth = d.WordWrapMaxWidth
	}
	if wordWrapWidth < d.WordWrapMinWidth {
		wordWrapWidth = d.WordWrapMinWidth
	}
	if a.width < 50 {
		wordWrapWidth = max(a.width-4, 20)
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.activate(),
		a.waitForChange(),
		a.spinner.Tick,
		a.suggest(""),
		tea.EnterAltScreen,
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		cmds = append(cmds, a.maybeRenderDetail())

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case tea.MouseMsg:
		if a.view == ViewDetail {
			vp, cmd := a.viewport.Update(msg)
			a.viewport = vp
			cmds = append(cmds, cmd)
		}

	case spinner.TickMsg:
		sp, cmd := a.spinner.Update(msg)
		a.spinner = sp
		cmds = append(cmds, cmd)

	case stateChangedMsg:
		cmds = append(cmds, a.syncState(), a.waitForChange(), a.maybeRenderDetail())

	case detailRenderedMsg:
		if msg.key == a.wantRender() {
			first := !a.hasRendered || a.rendered.id != msg.key.id
			a.viewport.SetContent(msg.content)
			if first {
				a.viewport.GotoTop()
			}
			a.rendered = msg.key
			a.hasRendered = true
		}

	case suggestionsMsg:
		if msg.query == a.searchInput.Value() {
			a.suggestions = msg.queries
		}

	case completionMsg:
		if msg.query != "" && msg.prefix == a.searchInput.Value() {
			a.searchInput.SetValue(msg.query)
			a.searchInput.CursorEnd()
			cmds = append(cmds, a.queryChanged(msg.query))
		}

	case statusMsg:
		a.setStatus(msg.text, msg.kind)

	case errorMsg:
		a.err = msg.err
	}

	return a, tea.Batch(cmds...)
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height

	a.userList.SetSize(width, max(a.listHeight(), 1))
	a.searchInput.Width = max(width-8, 10)
	a.help.Width = width

	a.viewport.Width = width
	a.viewport.Height = max(height-statusHeight, 1)
}

func (a *App) listHeight() int {
	return a.height - headerHeight - searchHeight - suggestionHeight - footerHeight - statusHeight
}

// syncState copies the latest snapshots into the view models.
func (a *App) syncState() tea.Cmd {
	prev := a.state
	a.state = a.users.Snapshot()
	a.detailState = a.detail.Snapshot()

	items := make([]list.Item, len(a.state.Items))
	for i, u := range a.state.Items {
		items[i] = userItem{user: u}
	}
	cmd := a.userList.SetItems(items)
	if replaced(prev.Items, a.state.Items) {
		a.userList.ResetSelected()
	}
	return cmd
}

// replaced reports whether next is not a continuation of prev.
func replaced(prev, next []users.User) bool {
	if len(prev) == 0 || len(next) == 0 {
		return len(prev) != len(next)
	}
	return prev[0].ID != next[0].ID || len(next) < len(prev)
}

func (a *App) setQuery(q string) tea.Cmd {
	a.searchInput.SetValue(q)
	return a.queryChanged(q)
}

func (a *App) queryChanged(q string) tea.Cmd {
	a.users.SetQuery(q)
	return a.suggest(q)
}

func (a *App) maybeLoadMore() tea.Cmd {
	n := len(a.userList.Items())
	s := a.state
	if n == 0 || !s.HasMore() || s.IsLoading || s.IsLoadingMore {
		return nil
	}
	if a.userList.Index() < n-loadMoreThreshold {
		return nil
	}
	return a.loadMore()
}

func (a *App) selectedUser() (users.User, bool) {
	if i, ok := a.userList.SelectedItem().(userItem); ok {
		return i.user, true
	}
	return users.User{}, false
}

// currentDetail returns the loaded record for the open detail page.
func (a *App) currentDetail() (users.User, bool) {
	s := a.detailState
	if s.Item != nil && s.Item.ID == a.detailID {
		return *s.Item, true
	}
	return users.User{}, false
}

func (a *App) openDetail(u users.User) tea.Cmd {
	a.view = ViewDetail
	a.detailID = u.ID
	a.hasRendered = false
	a.viewport.SetContent("")
	// reopening the loaded record fetches nothing, so render right away
	return tea.Batch(a.loadDetail(u.ID), a.maybeRenderDetail())
}

// toggleSections flips one section, or all of them for a negative index.
func (a *App) toggleSections(i int) tea.Cmd {
	if i < 0 {
		open := !a.sections[0]
		for j := range a.sections {
			a.sections[j] = open
		}
	} else if i < sectionCount {
		a.sections[i] = !a.sections[i]
	}
	return a.maybeRenderDetail()
}

func (a *App) wantRender() renderKey {
	return renderKey{id: a.detailID, width: a.width, sections: a.sections}
}

func (a *App) maybeRenderDetail() tea.Cmd {
	if a.view != ViewDetail || a.detailState.IsLoading {
		return nil
	}
	u, ok := a.currentDetail()
	if !ok {
		return nil
	}
	r, err := a.getRenderer()
	if err != nil {
		a.err = wrapErr("markdown renderer", err)
		return nil
	}
	return a.renderDetail(a.wantRender(), userMarkdown(u, a.sections), r)
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = text
	a.statusKind = kind
}

func (a *App) clearStatus() {
	a.status = ""
	a.err = nil
}

func (a *App) View() string {
	var content string

	switch a.view {
	case ViewUsers:
		content = a.usersView()
	case ViewDetail:
		content = a.detailView()
	}

	separator := SeparatorStyle.Render(strings.Repeat("─", max(a.width, 1)))
	return lipgloss.JoinVertical(lipgloss.Left, content, separator, a.statusBar())
}

func (a *App) usersView() string {
	s := a.state

	if s.IsLoading && len(s.Items) == 0 {
		return renderCentered(a.width, a.height-statusHeight,
			GetCompactBanner(a.spinner.View()+" "+MsgLoadingUsers))
	}

	subtitle := MsgUsersAvailable(len(s.Items))
	if s.IsRefreshing {
		subtitle += " • " + a.spinner.View() + MsgRefreshing
	}
	header := renderHeader("Users", subtitle, a.width)

	input := a.searchInput.View()
	if s.IsTyping || s.IsSearching {
		input = lipgloss.JoinHorizontal(lipgloss.Top, input, " ", a.spinner.View())
	}
	search := renderInputFrame(input, a.searchInput.Focused(), a.searchInput.Width+4)

	suggestions := ""
	if a.searchInput.Focused() && len(a.suggestions) > 0 {
		label := "recent: "
		if strings.TrimSpace(a.searchInput.Value()) != "" {
			label = "history: "
		}
		suggestions = renderHelp(truncateEnd(label+strings.Join(a.suggestions, " · "), a.width-2))
	}

	body := a.userList.View()
	if es, ok := a.emptyState(); ok {
		body = renderEmptyState(es, a.width, a.listHeight())
	}

	footer := ""
	if s.IsLoadingMore {
		footer = a.spinner.View() + " " + renderMuted(MsgLoadingMore)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		search,
		suggestions,
		lipgloss.NewStyle().Height(max(a.listHeight(), 1)).Render(body),
		footer,
	)
}

// emptyState picks the placeholder shown instead of an empty list.
func (a *App) emptyState() (emptyState, bool) {
	s := a.state
	if len(s.Items) > 0 || s.IsLoading || s.IsSearching || s.IsTyping {
		return emptyState{}, false
	}
	refreshKey := a.keyHandler.keys.Refresh.Help().Key
	switch {
	case s.Err != nil:
		return emptyState{title: MsgErrorTitle, message: MsgLoadFailed(refreshKey), kind: StatusError}, true
	case strings.TrimSpace(s.Query) != "":
		return emptyState{title: MsgNoResultsTitle, message: MsgNoResults(s.Query), kind: StatusInfo}, true
	default:
		return emptyState{title: MsgNoUsersTitle, message: MsgNoUsers(refreshKey), kind: StatusInfo}, true
	}
}

func (a *App) detailView() string {
	height := a.height - statusHeight
	s := a.detailState
	_, loaded := a.currentDetail()

	switch {
	case !loaded && (s.IsLoading || s.ID != a.detailID):
		return renderCentered(a.width, height,
			a.spinner.View()+" "+renderMuted(MsgLoadingDetail))
	case !loaded && s.Err != nil:
		refreshKey := a.keyHandler.keys.Refresh.Help().Key
		return renderEmptyState(emptyState{
			title:   MsgErrorTitle,
			message: MsgDetailFailed(refreshKey),
			kind:    StatusError,
		}, a.width, height)
	case !a.hasRendered:
		return renderCentered(a.width, height, a.spinner.View())
	}
	return a.viewport.View()
}

// statusBar shows the latest error, then any status message, then key help.
func (a *App) statusBar() string {
	bar := StatusInfoStyle.Width(a.width).Padding(0, 1)

	if err := a.currentErr(); err != nil {
		return bar.Render(StatusErrorStyle.Render("✗ " + describeErr(err)))
	}
	if a.status != "" {
		return bar.Render(a.statusKind.style().Render(a.status))
	}
	return bar.Render(a.help.View(a.keyHandler))
}

func (a *App) currentErr() error {
	if a.err != nil {
		return a.err
	}
	switch a.view {
	case ViewUsers:
		if a.state.Err != nil && len(a.state.Items) > 0 {
			return a.state.Err
		}
	case ViewDetail:
		if _, loaded := a.currentDetail(); loaded && a.detailState.Err != nil {
			return a.detailState.Err
		}
	}
	return nil
}
