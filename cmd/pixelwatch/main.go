package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wplace-tools/pixelwatch/internal/checker"
	"github.com/wplace-tools/pixelwatch/internal/config"
	"github.com/wplace-tools/pixelwatch/internal/differ"
	"github.com/wplace-tools/pixelwatch/internal/engine"
	"github.com/wplace-tools/pixelwatch/internal/fetcher"
	"github.com/wplace-tools/pixelwatch/internal/palette"
	"github.com/wplace-tools/pixelwatch/internal/queue"
	"github.com/wplace-tools/pixelwatch/internal/store"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	var nestFlag string

	cmd := &cobra.Command{
		Use:   "pixelwatch",
		Short: "pixelwatch — canvas mural progress tracker",
		Long:  "pixelwatch polls a shared pixel canvas for tile changes and tracks how each watched project's target image is coming along.",
	}
	cmd.PersistentFlags().StringVar(&nestFlag, "nest", "", "path to the pixelwatch nest (default: $PIXELWATCH_NEST or ./nest)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newRunCmd(&nestFlag))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pixelwatch %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func newRunCmd(nestFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the pixelwatch daemon",
		Long:  "Opens the nest's database, loads its config, and polls the canvas until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(*nestFlag)
		},
	}
}

func runDaemon(nestFlag string) error {
	nest, err := config.ResolveNest(nestFlag)
	if err != nil {
		return fmt.Errorf("resolve nest: %w", err)
	}
	if err := nest.EnsureDirs(); err != nil {
		return fmt.Errorf("prepare nest %s: %w", nest.Root, err)
	}

	cfg, err := config.Load(nest.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	s, err := store.Open(nest.DatabasePath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	pal := palette.New()
	q := queue.New(s, cfg.MinHottestBucket)
	f := fetcher.New(nest, cfg.TileBaseURL, pal)
	d := differ.New(nest, pal, s)
	c := checker.New(s, q, f, d)

	cadence := time.Duration(cfg.CadenceSeconds * float64(time.Second))
	if cadence <= 0 {
		cadence = time.Duration(config.DefaultCadenceSeconds * float64(time.Second))
	}
	e := engine.New(s, q, c, cadence)

	if err := e.Prepare(); err != nil {
		return fmt.Errorf("prepare engine: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return e.Run(ctx)
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
