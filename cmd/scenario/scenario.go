// Package scenario contains the commands that exercise the collector with
// generated graphs.
package scenario

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"vawter.tech/notify"
	"vawter.tech/stopper"

	"cactus_go/pkg/scenario"
)

func printResult(w io.Writer, res scenario.Result) {
	s := res.Stats
	fmt.Fprintf(w, "%-6s nodes=%d iterations=%d live=%d leaked=%t\n",
		res.Kind, res.Nodes, res.Iterations, res.Live, res.Leaked)
	fmt.Fprintf(w, "       allocated=%d dropped=%d released=%d sweeps=%d collections=%d collected=%d\n",
		s.Allocated, s.ValuesDropped, s.Released, s.Sweeps, s.Collections, s.CollectedBlocks)
	if res.After.MaxRSS > 0 {
		fmt.Fprintf(w, "       maxrss=%d growth=%d\n", res.After.MaxRSS, res.RSSGrowth())
	}
}

// Command runs one scenario and prints its counters.
func Command() *cobra.Command {
	var cfg scenario.Config
	var plain bool
	cmd := &cobra.Command{
		Use:       "scenario {self|ring|chain|mesh}",
		Short:     "build and drop reference graphs",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"self", "ring", "chain", "mesh"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := scenario.ParseKind(args[0])
			if err != nil {
				return err
			}
			cfg.Kind = kind
			cfg.Adopt = !plain
			res, err := scenario.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().IntVarP(&cfg.Nodes, "nodes", "n", 8, "nodes per graph")
	cmd.Flags().IntVarP(&cfg.Iterations, "iterations", "i", 1, "graphs to build")
	cmd.Flags().IntVar(&cfg.Payload, "payload", 1<<10, "bytes carried by each node")
	cmd.Flags().BoolVar(&plain, "no-adopt", false, "do not record edges, leaking every cycle")
	return cmd
}

// StressCommand cycles through every scenario until interrupted or the
// duration elapses.
func StressCommand() *cobra.Command {
	var cfg scenario.Config
	var duration time.Duration
	var plain bool
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "run every scenario in a loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := stopper.From(cmd.Context())
			cfg.Adopt = !plain

			var progress notify.Var[*scenario.Progress]
			ctx.Go(func(ctx *stopper.Context) error {
				return scenario.Report(ctx, slog.Default(), &progress)
			})
			done := make(chan error, 1)
			ctx.Go(func(ctx *stopper.Context) error {
				err := scenario.Stress(ctx, cfg, nil, &progress)
				done <- err
				return err
			})

			var err error
			select {
			case <-time.After(duration):
				ctx.Stop(time.Second)
				err = <-done
			case err = <-done:
			case <-ctx.Stopping():
				err = <-done
			}

			p, _ := progress.Get()
			if p == nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rounds=%d leaks=%d elapsed=%s\n", p.Rounds, p.Leaks, p.Elapsed.Round(time.Millisecond))
			for _, k := range scenario.Kinds {
				if res, ok := p.Latest[k]; ok {
					printResult(out, res)
				}
			}
			return err
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "d", 10*time.Second, "how long to run")
	cmd.Flags().IntVarP(&cfg.Nodes, "nodes", "n", 16, "nodes per graph")
	cmd.Flags().IntVarP(&cfg.Iterations, "iterations", "i", 100, "graphs per round")
	cmd.Flags().IntVar(&cfg.Payload, "payload", 1<<10, "bytes carried by each node")
	cmd.Flags().BoolVar(&plain, "no-adopt", false, "do not record edges, leaking every cycle")
	return cmd
}
