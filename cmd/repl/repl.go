// Package repl contains the interactive heap shell.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"cactus_go/pkg/heap"
	"cactus_go/pkg/parser"
	"cactus_go/pkg/script"
)

// Command starts the REPL on the command's input and output.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "interactive heap shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Loop(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// Loop reads forms line by line until EOF or quit. A form may span several
// lines; input is buffered until the parens balance.
func Loop(r io.Reader, w io.Writer) error {
	h := heap.New()
	in := script.New(h, script.WithOutput(w))
	defer in.Close()

	fmt.Fprintln(w, "cactus heap shell")
	fmt.Fprintln(w, "Type 'help' for commands, 'quit' to exit")
	fmt.Fprintln(w)

	var pending strings.Builder
	scanner := bufio.NewScanner(r)
	for {
		if pending.Len() == 0 {
			fmt.Fprint(w, "cactus> ")
		} else {
			fmt.Fprint(w, "   ...> ")
		}

		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if pending.Len() == 0 {
			switch line {
			case "":
				continue
			case "quit", "exit":
				fmt.Fprintln(w, "Goodbye!")
				return nil
			case "help":
				printHelp(w)
				continue
			case "stats":
				line = "(print (stats))"
			}
		}

		pending.WriteString(line)
		pending.WriteByte('\n')
		if depth(pending.String()) > 0 {
			continue
		}
		src := pending.String()
		pending.Reset()

		exprs, err := parser.ParseAllString(src)
		if err != nil {
			fmt.Fprintf(w, "Parse error: %v\n", err)
			continue
		}
		for _, expr := range exprs {
			v, err := in.Eval(expr)
			if err != nil {
				fmt.Fprintf(w, "Error: %v\n", err)
				break
			}
			if v.Kind != heap.KNil {
				fmt.Fprintf(w, "=> %s\n", heap.Inspect(v))
			}
			v.Release()
		}
	}
	return scanner.Err()
}

// depth returns how many parens are still open in src, ignoring strings and
// comments.
func depth(src string) int {
	n := 0
	inStr := false
	for i := 0; i < len(src); i++ {
		switch ch := src[i]; {
		case inStr && ch == '\\':
			i++
		case ch == '"':
			inStr = !inStr
		case inStr:
		case ch == ';':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case ch == '(':
			n++
		case ch == ')':
			n--
		}
	}
	return n
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  quit     - exit the shell")
	fmt.Fprintln(w, "  stats    - show arena counters")
	fmt.Fprintln(w, "  help     - show this help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Forms:")
	fmt.Fprintln(w, "  (let name expr) (set! name expr) (drop name) (scope body...)")
	fmt.Fprintln(w, "  (array e...) (hash k v ...) (push a v) (pop a) (aset a i v)")
	fmt.Fprintln(w, "  (put h k v) (delete h k) (get c k) (len c)")
	fmt.Fprintln(w, "  (weak e) (upgrade w) (alive? w) (strong name) (weak-count name)")
	fmt.Fprintln(w, "  (stats) (live) (print e...) (assert-live n)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Example:")
	fmt.Fprintln(w, "  (let a (array)) (push a a) (drop a) (live)   => 0")
}
