package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"vawter.tech/stopper"

	"cactus_go/cmd/repl"
	"cactus_go/cmd/scenario"
	"cactus_go/cmd/script"
)

func main() {
	var drainTime time.Duration
	var verbose bool
	root := &cobra.Command{
		Use:          "cactus",
		Short:        "Cycle-collecting reference counting playground",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
			return nil
		},
	}
	root.PersistentFlags().DurationVar(&drainTime, "drain", 5*time.Second, "time allowed for a stress run to stop")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	root.AddCommand(script.RunCommand())
	root.AddCommand(script.EvalCommand())
	root.AddCommand(repl.Command())
	root.AddCommand(scenario.Command())
	root.AddCommand(scenario.StressCommand())

	ctx := stopper.WithContext(context.Background())
	ctx.Go(func(ctx *stopper.Context) error {
		ch := make(chan os.Signal, 1)
		defer close(ch)

		signal.Notify(ch, os.Interrupt)
		defer signal.Stop(ch)

		select {
		case <-ch:
			ctx.Stop(drainTime)
		case <-ctx.Stopping():
		}
		return nil
	})

	err := root.ExecuteContext(ctx)
	ctx.Stop(drainTime)
	if err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
	os.Exit(0)
}
