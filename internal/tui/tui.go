// Package tui provides a terminal catalog browser that hides rated and hated
// titles and toggles wish/hate membership in place.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/DOCHIS/laftel-plus/internal/views"
)

// Mode indicates the current input mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
	ModeHelp
)

// Model represents the TUI state
type Model struct {
	backend Backend
	ctx     context.Context

	// Data
	query    backend.DiscoverQuery
	items    []backend.CatalogItem // every loaded result, unfiltered
	count    int                   // total results reported by the API
	lookups  views.Lookups
	settings backend.Settings
	cards    []views.Card

	cursor  int
	offset  int // first visible row
	loading bool
	status  string

	mode      Mode
	textInput textinput.Model

	width  int
	height int

	titleStyle     lipgloss.Style
	selectedStyle  lipgloss.Style
	dimStyle       lipgloss.Style
	wishStyle      lipgloss.Style
	hateStyle      lipgloss.Style
	ratedStyle     lipgloss.Style
	dialogStyle    lipgloss.Style
	statusBarStyle lipgloss.Style
}

type pageLoadedMsg struct {
	items  []backend.CatalogItem
	count  int
	append bool
}

type listsLoadedMsg struct {
	lookups  views.Lookups
	settings backend.Settings
}

type toggledMsg struct {
	kind    backend.ListKind
	item    backend.ListItem
	present bool
}

type syncedMsg struct{}

type errMsg struct {
	err error
}

// New creates a new TUI model browsing q
func New(b Backend, q backend.DiscoverQuery) *Model {
	ti := textinput.New()
	ti.Placeholder = "Title keyword..."
	ti.CharLimit = 128

	if q.Size <= 0 {
		q.Size = backend.DefaultDiscoverPageSize
	}
	q.Offset = 0

	return &Model{
		backend:   b,
		ctx:       context.Background(),
		query:     q,
		settings:  backend.DefaultSettings(),
		lookups:   views.NewLookups(nil, nil, nil),
		textInput: ti,
		loading:   true,
		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		selectedStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		dimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		wishStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")),
		hateStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
		ratedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")),
		dialogStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
		statusBarStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1),
	}
}

// WithContext sets the context used for backend calls
func (m *Model) WithContext(ctx context.Context) *Model {
	m.ctx = ctx
	return m
}

// Init loads the list caches and the first page
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadLists(), m.loadPage(false))
}

func (m *Model) loadLists() tea.Cmd {
	return func() tea.Msg {
		lk, err := m.backend.Lookups(m.ctx)
		if err != nil {
			return errMsg{err}
		}
		settings, err := m.backend.Settings(m.ctx)
		if err != nil {
			return errMsg{err}
		}
		return listsLoadedMsg{lookups: lk, settings: settings}
	}
}

func (m *Model) loadPage(appendPage bool) tea.Cmd {
	q := m.query
	if appendPage {
		q.Offset = len(m.items)
	} else {
		q.Offset = 0
	}
	return func() tea.Msg {
		items, count, err := m.backend.Discover(m.ctx, q)
		if err != nil {
			return errMsg{err}
		}
		return pageLoadedMsg{items: items, count: count, append: appendPage}
	}
}

func (m *Model) toggle(kind backend.ListKind) tea.Cmd {
	card, ok := m.selected()
	if !ok {
		return nil
	}
	item := backend.ListItem{ID: card.Item.ID, Name: card.Item.Name, Img: card.Item.Img}
	return func() tea.Msg {
		present, err := m.backend.Toggle(m.ctx, kind, item)
		if err != nil {
			return errMsg{err}
		}
		return toggledMsg{kind: kind, item: item, present: present}
	}
}

func (m *Model) syncAll() tea.Cmd {
	return func() tea.Msg {
		if err := m.backend.SyncAll(m.ctx); err != nil {
			return errMsg{err}
		}
		return syncedMsg{}
	}
}

func (m *Model) saveSettings() tea.Cmd {
	settings := m.settings
	return func() tea.Msg {
		if err := m.backend.SaveSettings(m.ctx, settings); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m *Model) saveQuery() tea.Cmd {
	q := m.query
	return func() tea.Msg {
		if err := m.backend.SaveQuery(m.ctx, q); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampCursor()
		return m, nil

	case listsLoadedMsg:
		m.lookups = msg.lookups
		m.settings = msg.settings
		m.refilter()
		return m, nil

	case pageLoadedMsg:
		m.loading = false
		if msg.append {
			m.items = append(m.items, msg.items...)
		} else {
			m.items = msg.items
			m.cursor = 0
			m.offset = 0
		}
		m.count = msg.count
		m.refilter()
		m.status = fmt.Sprintf("loaded %d of %d", len(m.items), m.count)
		return m, nil

	case toggledMsg:
		m.applyToggle(msg)
		return m, nil

	case syncedMsg:
		m.status = "lists synced"
		return m, m.loadLists()

	case errMsg:
		m.loading = false
		m.status = "error: " + msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeSearch:
			return m.handleSearchMode(msg)
		case ModeHelp:
			m.mode = ModeNormal
			return m, nil
		}
		return m.handleNormalMode(msg)
	}

	return m, nil
}

func (m *Model) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.clampCursor()
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.cards)-1 {
			m.cursor++
			m.clampCursor()
		}
		return m, nil

	case "w":
		m.status = "updating wish list..."
		return m, m.toggle(backend.KindWish)

	case "x":
		m.status = "updating hate list..."
		return m, m.toggle(backend.KindHate)

	case "r":
		m.settings.HideRated = !m.settings.HideRated
		m.refilter()
		return m, m.saveSettings()

	case "h":
		m.settings.HideHate = !m.settings.HideHate
		m.refilter()
		return m, m.saveSettings()

	case "n":
		if m.loading || len(m.items) >= m.count {
			return m, nil
		}
		m.loading = true
		m.status = "loading more..."
		return m, m.loadPage(true)

	case "s":
		m.status = "syncing..."
		return m, m.syncAll()

	case "/":
		m.mode = ModeSearch
		m.textInput.Reset()
		m.textInput.SetValue(m.query.Keyword)
		m.textInput.Focus()
		return m, textinput.Blink

	case "?":
		m.mode = ModeHelp
		return m, nil
	}
	return m, nil
}

func (m *Model) handleSearchMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.query.Keyword = strings.TrimSpace(m.textInput.Value())
		m.mode = ModeNormal
		m.textInput.Blur()
		m.loading = true
		return m, tea.Batch(m.loadPage(false), m.saveQuery())
	case tea.KeyEsc:
		m.mode = ModeNormal
		m.textInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// applyToggle mirrors a confirmed membership change into the local lookups
func (m *Model) applyToggle(msg toggledMsg) {
	set := m.lookups.Wish
	label := "wish list"
	if msg.kind == backend.KindHate {
		set = m.lookups.Hate
		label = "hate list"
	}
	if msg.present {
		set[msg.item.ID] = msg.item
		m.status = fmt.Sprintf("added %s to %s", msg.item.Name, label)
	} else {
		delete(set, msg.item.ID)
		m.status = fmt.Sprintf("removed %s from %s", msg.item.Name, label)
	}
	m.refilter()
}

// refilter recomputes the visible cards, keeping the cursor on the same item when possible
func (m *Model) refilter() {
	var selectedID int64
	if card, ok := m.selected(); ok {
		selectedID = card.Item.ID
	}

	m.cards = views.Apply(m.items, m.lookups, views.OptionsFromSettings(m.settings))

	for i, c := range m.cards {
		if c.Item.ID == selectedID {
			m.cursor = i
			break
		}
	}
	m.clampCursor()
}

func (m *Model) selected() (views.Card, bool) {
	if m.cursor < 0 || m.cursor >= len(m.cards) {
		return views.Card{}, false
	}
	return m.cards[m.cursor], true
}

func (m *Model) visibleRows() int {
	rows := m.height - 4
	if rows < 1 {
		rows = 20
	}
	return rows
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.cards) {
		m.cursor = len(m.cards) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
}

// View renders the browser
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		m.width = 80
		m.height = 24
	}

	switch m.mode {
	case ModeHelp:
		return m.renderHelpDialog()
	case ModeSearch:
		return m.renderSearchDialog()
	}

	var b strings.Builder
	b.WriteString(m.titleStyle.Render("Laftel Plus"))
	b.WriteString("  ")
	b.WriteString(m.dimStyle.Render(m.filterSummary()))
	b.WriteString("\n\n")

	switch {
	case m.loading && len(m.items) == 0:
		b.WriteString("Loading...\n")
	case len(m.cards) == 0:
		b.WriteString(m.dimStyle.Render("No results"))
		b.WriteString("\n")
	default:
		end := m.offset + m.visibleRows()
		if end > len(m.cards) {
			end = len(m.cards)
		}
		for i := m.offset; i < end; i++ {
			b.WriteString(m.renderCard(m.cards[i], i == m.cursor))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m *Model) renderCard(c views.Card, selected bool) string {
	line := fmt.Sprintf("[%-3s] %s", views.AgeRatingLabel(c.Item.AgeRating), c.Item.Name)
	if selected {
		line = m.selectedStyle.Render("> " + line)
	} else {
		line = "  " + line
	}

	for _, badge := range c.Badges() {
		label := views.BadgeLabel(badge, c.Rating)
		switch badge {
		case views.BadgeRated:
			label = m.ratedStyle.Render(label)
		case views.BadgeWish:
			label = m.wishStyle.Render(label)
		case views.BadgeHate:
			label = m.hateStyle.Render(label)
		}
		line += " " + label
	}
	return line
}

func (m *Model) filterSummary() string {
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	parts := []string{
		"hide rated: " + onOff(m.settings.HideRated),
		"hide hated: " + onOff(m.settings.HideHate),
	}
	if m.query.Keyword != "" {
		parts = append(parts, fmt.Sprintf("search: %q", m.query.Keyword))
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderStatusBar() string {
	left := fmt.Sprintf("%d shown / %d loaded / %d total", len(m.cards), len(m.items), m.count)
	if m.status != "" {
		left += "  " + m.status
	}
	right := "q:quit  ?:help"

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}
	return m.statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (m *Model) renderSearchDialog() string {
	dialog := m.dialogStyle.Render(
		"Search Catalog\n\n" +
			m.textInput.View() + "\n\n" +
			m.dimStyle.Render("Enter: search  Esc: cancel"),
	)
	return m.centerDialog(dialog)
}

func (m *Model) renderHelpDialog() string {
	help := `Help - Key Bindings

Navigation:
  j/↓    Move down
  k/↑    Move up
  n      Load more results

Lists:
  w      Toggle wish list
  x      Toggle hate list
  s      Sync rated and wish lists

Filters:
  r      Hide/show rated titles
  h      Hide/show hated titles
  /      Search by title

General:
  ?      Show this help
  q      Quit

Press any key to close`

	return m.centerDialog(m.dialogStyle.Render(help))
}

func (m *Model) centerDialog(dialog string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
}
