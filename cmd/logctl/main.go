package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/logcourier/logcourier/internal/generator"
)

var rootCmd = &cobra.Command{
	Use:   "logctl",
	Short: "logcourier command-line tools",
	Long: `logctl is the command-line companion to the logcourier collector.

Generate synthetic traffic against a running collector and exercise the
ingestion pipeline end to end.`,
	Version: "0.1.0",
}

var (
	seedURL      string
	seedCount    int
	seedInterval time.Duration
	seedTypes    []string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Send synthetic log events to a collector",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g := generator.New(generator.Options{
			URL:      seedURL,
			Count:    seedCount,
			Interval: seedInterval,
			Types:    seedTypes,
		})

		fmt.Printf("Seeding %s (count=%d interval=%s)\n", seedURL, seedCount, seedInterval)
		if err := g.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedURL, "url", "http://localhost:5002/collect", "collector /collect endpoint")
	seedCmd.Flags().IntVar(&seedCount, "count", 0, "number of events to send (0 = until interrupted)")
	seedCmd.Flags().DurationVar(&seedInterval, "interval", 1500*time.Millisecond, "pause between events")
	seedCmd.Flags().StringSliceVar(&seedTypes, "types", nil, "event types to generate (default: all known types)")

	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
