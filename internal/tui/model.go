// Package tui is the terminal surface of the dashboard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coinboard/internal/present"
	"coinboard/internal/service"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// viewMsg carries a fresh table from a dashboard notification.
type viewMsg struct {
	table present.Table
}

// cmdErrMsg reports a failed background command.
type cmdErrMsg struct {
	err error
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	ctx     context.Context
	dash    *service.Dashboard
	updates *viewUpdates
	keys    keyMap
	help    help.Model
	search  textinput.Model

	table  present.Table
	cursor int
	offset int
	width  int
	height int
	errMsg string
}

// New creates the model over dash. ctx bounds background fetches.
func New(ctx context.Context, dash *service.Dashboard) Model {
	ti := textinput.New()
	ti.Placeholder = "Search name or symbol"
	ti.Prompt = "🔍 "
	ti.CharLimit = 64

	return Model{
		ctx:    ctx,
		dash:   dash,
		keys:   defaultKeys(),
		help:   help.New(),
		search: ti,
		table:  present.BuildTable(dash.View()),
		height: 30,
		width:  100,
	}
}

// Run starts the program and forwards dashboard changes into it.
func Run(ctx context.Context, dash *service.Dashboard) error {
	_, err := newProgram(ctx, dash, tea.WithAltScreen()).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func newProgram(ctx context.Context, dash *service.Dashboard, opts ...tea.ProgramOption) *tea.Program {
	updates := newViewUpdates()
	dash.Subscribe(func(v service.View) {
		updates.push(present.BuildTable(v))
	})

	m := New(ctx, dash)
	m.updates = updates
	return tea.NewProgram(m, append(opts, tea.WithContext(ctx))...)
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.listen())
}

// listen waits for the next dashboard update; nil without a program.
func (m Model) listen() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	return m.updates.wait(m.ctx)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewMsg:
		// sync may already hold a newer table
		if msg.table.Seq == 0 || msg.table.Seq >= m.table.Seq {
			m.table = msg.table
			m.clampCursor()
		}
		return m, m.listen()

	case cmdErrMsg:
		if msg.err != nil && !service.IsSuperseded(msg.err) {
			m.errMsg = msg.err.Error()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// the failure notice blocks everything until acknowledged
	if m.table.Chart.Notice != "" {
		switch msg.String() {
		case "esc", "enter", " ":
			m.dash.DismissNotice()
			m.sync()
		}
		return m, nil
	}

	if m.search.Focused() {
		switch msg.String() {
		case "esc", "enter":
			m.search.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.dash.SetQuery(m.search.Value())
		m.sync()
		m.cursor, m.offset = 0, 0
		return m, cmd
	}

	if m.table.Chart.State != service.ChartClosed {
		switch {
		case key.Matches(msg, m.keys.Close), key.Matches(msg, m.keys.Quit):
			m.dash.CloseChart()
			m.sync()
		}
		return m, nil
	}

	m.errMsg = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Search):
		return m, m.search.Focus()

	case key.Matches(msg, m.keys.Close):
		if m.search.Value() != "" {
			m.search.SetValue("")
			m.dash.SetQuery("")
			m.sync()
		}

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.clampCursor()

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.table.Rows)-1 {
			m.cursor++
		}
		m.clampCursor()

	case key.Matches(msg, m.keys.Favorite):
		if row, ok := m.selected(); ok {
			m.dash.ToggleFavorite(row.ID)
			m.sync()
		}

	case key.Matches(msg, m.keys.FavoritesOnly):
		m.dash.ToggleFavoritesOnly()
		m.sync()
		m.cursor, m.offset = 0, 0

	case key.Matches(msg, m.keys.Open):
		if row, ok := m.selected(); ok {
			return m, m.background(func(ctx context.Context) error {
				return m.dash.OpenChart(ctx, row.ID)
			})
		}

	case key.Matches(msg, m.keys.Currency):
		return m, m.background(m.dash.CycleCurrency)

	case key.Matches(msg, m.keys.Refresh):
		return m, m.background(m.dash.ManualRefresh)

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// background runs a fetching command off the update loop.
func (m Model) background(fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return cmdErrMsg{err: fn(ctx)}
	}
}

func (m *Model) sync() {
	m.table = present.BuildTable(m.dash.View())
	m.clampCursor()
}

func (m *Model) selected() (present.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.table.Rows) {
		return present.Row{}, false
	}
	return m.table.Rows[m.cursor], true
}

func (m *Model) visibleRows() int {
	// header, search, column header, status, help and padding
	n := m.height - 8
	if n < 3 {
		n = 3
	}
	return n
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.table.Rows) {
		m.cursor = len(m.table.Rows) - 1
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

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.search.View())
	b.WriteString("\n\n")

	switch {
	case m.table.Chart.Notice != "":
		b.WriteString(noticeStyle.Render(m.table.Chart.Notice + "\n\n" + dimStyle.Render("press enter to dismiss")))
	case m.table.Chart.State != service.ChartClosed:
		b.WriteString(m.chartView())
	default:
		b.WriteString(m.tableView())
	}
	b.WriteString("\n")

	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) headerView() string {
	parts := []string{
		titleStyle.Render("coinboard"),
		badgeStyle.Render(m.table.Currency.Upper()),
	}
	if m.table.FavoritesOnly {
		parts = append(parts, badgeStyle.Render("★ favorites"))
	}
	parts = append(parts, dimStyle.Render(fmt.Sprintf("%d/%d", m.table.Shown, m.table.Total)))
	return strings.Join(parts, " ")
}

func (m Model) tableView() string {
	var b strings.Builder
	b.WriteString(colHeaderStyle.Render(
		cell("", colFav, lipgloss.NewStyle()) +
			cell("#", colRank, lipgloss.NewStyle()) +
			cell("Name", colName, lipgloss.NewStyle()) +
			cell("Symbol", colSymbol, lipgloss.NewStyle()) +
			rightCell("Price", colPrice, lipgloss.NewStyle()) +
			rightCell("24h", colChange, lipgloss.NewStyle()) +
			rightCell("Market Cap", colCap, lipgloss.NewStyle()),
	))
	b.WriteString("\n")

	if len(m.table.Rows) == 0 {
		b.WriteString(dimStyle.Render("No coins to show"))
		return b.String()
	}

	end := m.offset + m.visibleRows()
	if end > len(m.table.Rows) {
		end = len(m.table.Rows)
	}
	for i := m.offset; i < end; i++ {
		b.WriteString(m.rowView(m.table.Rows[i], i == m.cursor))
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) rowView(r present.Row, selected bool) string {
	base := lipgloss.NewStyle()
	if selected {
		base = selectedStyle
	}

	star := "☆"
	favStyle := dimStyle
	if r.Favorite {
		star = "★"
		favStyle = favoriteStyle
	}
	changeStyle := gainStyle
	if r.Direction == present.Negative {
		changeStyle = lossStyle
	}

	return cell(star, colFav, favStyle.Inherit(base)) +
		cell(r.Rank, colRank, dimStyle.Inherit(base)) +
		cell(r.Name, colName, base) +
		cell(r.Symbol, colSymbol, symbolStyle.Inherit(base)) +
		rightCell(r.Price, colPrice, base) +
		rightCell(r.Change, colChange, changeStyle.Inherit(base)) +
		rightCell(r.MarketCap, colCap, base)
}

func (m Model) chartView() string {
	c := m.table.Chart
	body := c.Body
	if c.State == service.ChartLoading {
		body = dimStyle.Render("Loading chart…")
	}
	content := chartHeadStyle.Render(c.Title) + "  " + dimStyle.Render(c.Subtitle) + "\n\n" + body
	return chartBoxStyle.Render(content) + "\n" + dimStyle.Render("esc to close")
}

func (m Model) statusView() string {
	if m.errMsg != "" {
		return errorStyle.Render(m.errMsg)
	}
	if m.table.Status.Error {
		return errorStyle.Render(m.table.Status.Text)
	}
	return statusStyle.Render(m.table.Status.Text)
}
