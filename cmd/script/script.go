// Package script contains the commands that execute heap scripts.
package script

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"cactus_go/pkg/heap"
	"cactus_go/pkg/script"
)

// Execute runs src in a fresh heap, writing output to out. With check set,
// anything still allocated once every binding is released is an error.
func Execute(src string, out io.Writer, check bool) error {
	h := heap.New()
	in := script.New(h, script.WithOutput(out))
	err := in.Run(src)
	in.Close()

	stats := h.Stats()
	slog.Debug("script finished",
		slog.Int("allocated", stats.Allocated),
		slog.Int("collections", stats.Collections),
		slog.Int("live", stats.Live()))
	if err != nil {
		return err
	}
	if check && stats.Live() != 0 {
		return fmt.Errorf("%d objects still live after release: %w", stats.Live(), script.ErrAssertion)
	}
	return nil
}

// RunCommand executes script files.
func RunCommand() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "run FILE...",
		Short: "run heap scripts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("could not read script %s: %w", path, err)
				}
				if err := Execute(string(data), cmd.OutOrStdout(), check); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", true, "fail if objects survive the script")
	return cmd
}

// EvalCommand executes an expression given on the command line, or stdin.
func EvalCommand() *cobra.Command {
	var expr string
	var check bool
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "evaluate an expression",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if expr == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("could not read stdin: %w", err)
				}
				expr = string(data)
			}
			if expr == "" {
				return errors.New("nothing to evaluate")
			}
			return Execute(expr, cmd.OutOrStdout(), check)
		},
	}
	cmd.Flags().StringVarP(&expr, "expr", "e", "", "expression to evaluate")
	cmd.Flags().BoolVar(&check, "check", true, "fail if objects survive the expression")
	return cmd
}
