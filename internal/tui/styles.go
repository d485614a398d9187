package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")).Padding(0, 1)
	badgeStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("3")).Padding(0, 1)
	colHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	selectedStyle  = lipgloss.NewStyle().Background(lipgloss.Color("236"))
	favoriteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	symbolStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	gainStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	chartBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("12")).Padding(0, 1)
	chartHeadStyle = lipgloss.NewStyle().Bold(true)
	noticeStyle    = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("9")).Padding(0, 2).Bold(true)
)

const (
	colFav    = 2
	colRank   = 5
	colName   = 20
	colSymbol = 8
	colPrice  = 18
	colChange = 10
	colCap    = 24
)

func cell(s string, width int, style lipgloss.Style) string {
	return style.Width(width).MaxWidth(width).Render(s)
}

func rightCell(s string, width int, style lipgloss.Style) string {
	return style.Width(width).MaxWidth(width).Align(lipgloss.Right).Render(s)
}
