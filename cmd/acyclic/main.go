// # cmd/acyclic/main.go
package main

import (
	"acyclic/internal/core/app"
	"acyclic/internal/core/config"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const VERSION = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("acyclic", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file (defaults apply when empty)")
	verbose := fs.Bool("verbose", false, "Enable verbose logging")
	watch := fs.Bool("watch", false, "Re-plan whenever module code or the manifest changes")
	version := fs.Bool("version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: acyclic [-config file] [-verbose] [-watch] [-version] <manifest.toml>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *version {
		fmt.Fprintf(stdout, "acyclic v%s\n", VERSION)
		return 0
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "error", err)
			return 1
		}
		cfg = loaded
	}
	config.ApplyEnvOverrides(cfg)

	a, err := app.New(cfg, fs.Arg(0))
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	a.Out = stdout
	a.ConfigPath = *configPath
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(shutdownCtx); err != nil {
			slog.Warn("shutdown failed", "error", err)
		}
	}()

	if err := a.Start(ctx); err != nil {
		slog.Error("failed to start observability", "error", err)
		return 1
	}

	if *watch {
		if err := a.Watch(ctx); err != nil {
			slog.Error("watch failed", "error", err)
			return 1
		}
		return 0
	}

	res, err := a.Plan(ctx)
	if err != nil {
		fmt.Fprintln(stderr, app.RenderError(err))
		return 1
	}
	fmt.Fprint(stdout, a.Render(res))
	return 0
}
