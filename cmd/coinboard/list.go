package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"coinboard/internal/app"
	"coinboard/internal/present"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/subcommands"
)

type listCmd struct {
	currency      string
	query         string
	favoritesOnly bool
	asJSON        bool
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "print the current market table once" }
func (*listCmd) Usage() string {
	return `coinboard list [-currency usd|inr|eur] [-q <query>] [-favorites] [-json]

  Fetches the market list once and prints the filtered table.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "currency", "", "display currency (defaults to ui.default_currency)")
	f.StringVar(&c.query, "q", "", "filter by name or symbol")
	f.BoolVar(&c.favoritesOnly, "favorites", false, "only show favorites")
	f.BoolVar(&c.asJSON, "json", false, "print JSON instead of a table")
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	b := app.NewBootstrap()
	if err := b.Initialize(*configPath, false); err != nil {
		fmt.Fprintln(os.Stderr, "Bootstrapping failed:", err)
		return subcommands.ExitFailure
	}
	defer b.Close()

	d := b.Dashboard
	d.SetQuery(c.query)
	if c.favoritesOnly {
		d.ToggleFavoritesOnly()
	}

	var err error
	if c.currency != "" && c.currency != string(d.State().Currency) {
		err = d.SetCurrency(ctx, c.currency)
	} else {
		err = d.ManualRefresh(ctx)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	t := present.BuildTable(d.View())
	if c.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(t); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	renderTable(os.Stdout, t)
	return subcommands.ExitSuccess
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	gainStyle   = cellStyle.Foreground(lipgloss.Color("10"))
	lossStyle   = cellStyle.Foreground(lipgloss.Color("9"))
)

// renderTable prints t as a bordered table followed by its status line.
func renderTable(w io.Writer, t present.Table) {
	rows := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		fav := ""
		if r.Favorite {
			fav = "★"
		}
		rows = append(rows, []string{fav, r.Rank, r.Name, r.Symbol, r.Price, r.Change, r.MarketCap})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("", "#", "Name", "Symbol", "Price", "24h", "Market Cap").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 5 && row >= 0 && row < len(t.Rows) {
				if t.Rows[row].Direction == present.Negative {
					return lossStyle
				}
				return gainStyle
			}
			return cellStyle
		})

	fmt.Fprintln(w, tbl.Render())
	fmt.Fprintf(w, "%s  (%d/%d, %s)\n", t.Status.Text, t.Shown, t.Total, t.Currency.Upper())
}
