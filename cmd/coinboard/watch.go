package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"coinboard/internal/infra"
	"coinboard/internal/infra/feed"
	"coinboard/internal/present"

	"github.com/google/subcommands"
)

type watchCmd struct {
	addr string
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "follow the live feed of a running server" }
func (*watchCmd) Usage() string {
	return `coinboard watch [-addr <host:port>]

  Connects to the /ws feed of a running "coinboard serve" and prints the
  table on every change. Reconnects automatically.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "server address (defaults to server.listen)")
}

func (c *watchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	addr := c.addr
	if addr == "" {
		cfg, err := infra.LoadConfig(resolveConfig())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		addr = cfg.Server.Listen
	}

	feedURL, err := feed.URL(addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	frames := make(chan present.Table, 8)
	w := feed.NewWatcher(feedURL, frames)
	if err := w.Connect(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer w.Disconnect()

	fmt.Fprintf(os.Stderr, "watching %s (ctrl+c to stop)\n", feedURL)
	for {
		select {
		case <-ctx.Done():
			return subcommands.ExitSuccess
		case t := <-frames:
			// clear screen, home cursor
			fmt.Print("\033[H\033[2J")
			renderTable(os.Stdout, t)
		}
	}
}

func resolveConfig() string {
	if *configPath != "" {
		return *configPath
	}
	return infra.ResolveConfigPath()
}
