// Package ui is the terminal browser: a search box with a grouped dropdown,
// a mystery detail panel and a list filtered by location, era or category.
package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"whiterabbit/internal/config"
	"whiterabbit/internal/domain"
	"whiterabbit/internal/eventbus"
	"whiterabbit/internal/stores/detail"
	"whiterabbit/internal/stores/filter"
	"whiterabbit/internal/stores/quote"
	"whiterabbit/internal/stores/search"
	"whiterabbit/internal/ui/views"
)

// Stores are the per-session stores the model renders
type Stores struct {
	Search *search.Store
	Detail *detail.Store
	Filter *filter.Store
	Quote  *quote.Store
}

type focus int

const (
	focusSearch focus = iota
	focusList
)

// Model represents the UI state
type Model struct {
	ctx    context.Context
	bus    eventbus.EventBus
	config *config.Config
	stores Stores
	logger *zap.Logger

	input    textinput.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	renderer *views.Renderer
	pager    *Pager

	width    int
	height   int
	focus    focus
	showHelp bool
	status   string

	// snapshots taken at the start of every Update
	searchState search.State
	detailState detail.State
	filterState filter.State
	quoteState  quote.State
	listIndex   int
}

// NewModel creates a new UI model. ctx bounds every request the model issues.
func NewModel(ctx context.Context, bus eventbus.EventBus, cfg *config.Config, stores Stores, logger *zap.Logger) *Model {
	if logger == nil {
		logger = zap.NewNop()
	}

	input := textinput.New()
	input.Placeholder = "Search mysteries, places, eras…"
	input.Prompt = "⌕ "
	input.CharLimit = 200
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		ctx:      ctx,
		bus:      bus,
		config:   cfg,
		stores:   stores,
		logger:   logger.Named("ui"),
		input:    input,
		spinner:  sp,
		help:     help.New(),
		keys:     newKeyMap(),
		renderer: views.NewRenderer(cfg.UI.ShowScores),
		pager:    &Pager{},
	}
}

// SetProgram sets the program reference for terminal management
func (m *Model) SetProgram(p *tea.Program) {
	m.pager.SetProgram(p)
}

// Init returns an initial command
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.warmup())
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.refresh()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.input.Width = msg.Width - 8
		return m, nil

	case EventMsg:
		if e, ok := msg.Event.(domain.ErrorEvent); ok {
			m.status = e.Message
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case detailDoneMsg, filterDoneMsg:
		return m, nil

	case quoteDoneMsg:
		if msg.err == nil {
			m.status = "Quote ready"
		}
		return m, nil

	case pagerMsg:
		if msg.err != nil {
			m.status = "Pager failed: " + msg.err.Error()
		}
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return nil

	case key.Matches(msg, m.keys.Up):
		if m.focus == focusSearch {
			m.stores.Search.Previous()
		} else if m.listIndex > 0 {
			m.listIndex--
		}
		m.refresh()
		return nil

	case key.Matches(msg, m.keys.Down):
		if m.focus == focusSearch {
			m.stores.Search.Next()
		} else if m.listIndex < len(m.filterState.Mysteries)-1 {
			m.listIndex++
		}
		m.refresh()
		return nil

	case key.Matches(msg, m.keys.Select):
		return m.selectCurrent()

	case key.Matches(msg, m.keys.Close):
		if m.searchState.Open {
			m.stores.Search.SetOpen(false)
		} else {
			m.setFocus(focusSearch)
		}
		m.refresh()
		return nil

	case key.Matches(msg, m.keys.Switch):
		if m.focus == focusSearch {
			m.setFocus(focusList)
		} else {
			m.setFocus(focusSearch)
		}
		return nil

	case key.Matches(msg, m.keys.Quote):
		return m.playQuote()

	case key.Matches(msg, m.keys.Pager):
		if d := m.detailState.Current; d != nil {
			return m.showInPager(views.DetailText(d))
		}
		return nil
	}

	if m.focus != focusSearch {
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.stores.Search.SetQuery(m.input.Value())
	m.refresh()
	return cmd
}

// selectCurrent opens the highlighted search result or list entry.
// With nothing highlighted, Enter skips the debounce.
func (m *Model) selectCurrent() tea.Cmd {
	if m.focus == focusList {
		if m.listIndex < 0 || m.listIndex >= len(m.filterState.Mysteries) {
			return nil
		}
		return m.loadDetail(m.filterState.Mysteries[m.listIndex].ID)
	}

	item, ok := m.stores.Search.SelectCurrent()
	if !ok {
		m.stores.Search.Flush()
		m.refresh()
		return nil
	}
	m.input.SetValue("")
	m.refresh()

	if item.Category == domain.CategoryMystery {
		return m.loadDetail(item.ID)
	}
	m.listIndex = 0
	m.setFocus(focusList)
	return m.loadFilter(item.ID)
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	if f == focusSearch {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m *Model) loadDetail(id string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.stores.Detail.Get(m.ctx, id)
		return detailDoneMsg{id: id, err: err}
	}
}

func (m *Model) loadFilter(nodeID string) tea.Cmd {
	return func() tea.Msg {
		err := m.stores.Filter.Select(m.ctx, nodeID)
		return filterDoneMsg{nodeID: nodeID, err: err}
	}
}

func (m *Model) playQuote() tea.Cmd {
	d := m.detailState.Current
	if d == nil || m.stores.Quote == nil {
		return nil
	}
	text := quoteText(d)
	voice := m.config.UI.Voice
	return func() tea.Msg {
		_, err := m.stores.Quote.Play(m.ctx, d.ID, text, voice)
		return quoteDoneMsg{mysteryID: d.ID, err: err}
	}
}

func (m *Model) warmup() tea.Cmd {
	if m.stores.Quote == nil {
		return nil
	}
	return func() tea.Msg {
		if err := m.stores.Quote.Warmup(m.ctx); err != nil {
			m.logger.Debug("warmup skipped", zap.Error(err))
		}
		return nil
	}
}

// quoteText is what gets read aloud for a mystery
func quoteText(d *domain.MysteryDetail) string {
	text := d.Title + "."
	if d.FirstReportedYear != nil {
		text += fmt.Sprintf(" First reported in %d.", *d.FirstReportedYear)
	}
	if len(d.Locations) > 0 {
		text += " It was seen near " + d.Locations[0].Name + "."
	}
	return text
}

func (m *Model) refresh() {
	m.searchState = m.stores.Search.Snapshot()
	m.detailState = m.stores.Detail.Snapshot()
	m.filterState = m.stores.Filter.Snapshot()
	if m.stores.Quote != nil {
		m.quoteState = m.stores.Quote.Snapshot()
	}
	if m.listIndex >= len(m.filterState.Mysteries) {
		m.listIndex = len(m.filterState.Mysteries) - 1
	}
	if m.listIndex < 0 {
		m.listIndex = 0
	}
}

// View renders the UI
func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	st := m.renderer.Styles()
	spin := m.spinner.View()

	var sections []string
	sections = append(sections, st.Title.Render("whiterabbit"))
	sections = append(sections, m.input.View())
	if dd := m.renderer.Dropdown(m.searchState, spin); dd != "" {
		sections = append(sections, st.Panel.Render(dd))
	}

	panelWidth := (m.width - 10) / 2
	if panelWidth < 20 {
		panelWidth = 20
	}
	listStyle := st.Panel
	if m.focus == focusList {
		listStyle = st.PanelFocused
	}
	panels := lipgloss.JoinHorizontal(lipgloss.Top,
		st.Panel.Width(panelWidth).Render(m.renderer.Detail(m.detailState, m.quoteState, spin)),
		listStyle.Width(panelWidth).Render(m.renderer.FilterList(m.filterState, m.listIndex, spin)),
	)
	sections = append(sections, panels)

	if m.status != "" {
		sections = append(sections, st.Status.Render(m.status))
	}
	sections = append(sections, st.Help.Render(m.help.View(m.keys)))

	return st.Main.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}
