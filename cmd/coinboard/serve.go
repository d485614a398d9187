package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"coinboard/internal/app"
	"coinboard/internal/server"

	"github.com/google/subcommands"
)

type serveCmd struct {
	listen string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the dashboard over HTTP and websocket" }
func (*serveCmd) Usage() string {
	return `coinboard serve [-listen <addr>]

  Polls the market API and exposes the dashboard as a JSON API under /api
  plus a live websocket feed on /ws.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.listen, "listen", "", "listen address (overrides server.listen)")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	b := app.NewBootstrap()
	if err := b.Initialize(*configPath, true); err != nil {
		fmt.Fprintln(os.Stderr, "Bootstrapping failed:", err)
		return subcommands.ExitFailure
	}
	defer b.Close()

	listen := b.Config.Server.Listen
	if c.listen != "" {
		listen = c.listen
	}
	opts := server.Options{
		Listen:         listen,
		AllowedOrigins: b.Config.Server.AllowedOrigins,
	}
	if b.Downloader != nil {
		opts.Icons = b.Downloader
	}
	srv := server.New(b.Dashboard, b.Metrics, opts)

	if err := b.Start(ctx); err != nil {
		slog.Error("Failed to start polling", slog.Any("error", err))
		return subcommands.ExitFailure
	}

	if err := srv.Run(ctx); err != nil {
		slog.Error("Server failed", slog.Any("error", err))
		return subcommands.ExitFailure
	}
	slog.Info("Shutting down gracefully")
	return subcommands.ExitSuccess
}
