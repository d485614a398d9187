package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"coinboard/internal/app"
	"coinboard/internal/tui"

	"github.com/google/subcommands"
)

type tuiCmd struct{}

func (*tuiCmd) Name() string     { return "tui" }
func (*tuiCmd) Synopsis() string { return "run the interactive terminal dashboard" }
func (*tuiCmd) Usage() string {
	return `coinboard tui

  Shows the top coins by market cap, refreshed periodically. Search with /,
  toggle favorites with f, open a 24h chart with enter.
`
}

func (*tuiCmd) SetFlags(*flag.FlagSet) {}

func (*tuiCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	b := app.NewBootstrap()
	// logs go to the file only; stdout belongs to the terminal UI
	if err := b.Initialize(*configPath, false); err != nil {
		fmt.Fprintln(os.Stderr, "Bootstrapping failed:", err)
		return subcommands.ExitFailure
	}
	defer b.Close()

	if err := b.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if err := tui.Run(ctx, b.Dashboard); err != nil {
		slog.Error("Terminal UI failed", slog.Any("error", err))
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
