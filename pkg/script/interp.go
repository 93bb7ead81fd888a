// Package script evaluates a small S-expression language over a heap.Heap.
// It exists to drive cycles through the collector by hand: every form that
// stores a container into another adopts an edge, and dropping the last name
// for a cycle reclaims it.
package script

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cactus_go/pkg/ast"
	"cactus_go/pkg/heap"
	"cactus_go/pkg/parser"
)

var (
	ErrUnbound   = errors.New("unbound variable")
	ErrArity     = errors.New("wrong number of arguments")
	ErrType      = errors.New("wrong argument type")
	ErrSyntax    = errors.New("malformed form")
	ErrAssertion = errors.New("assertion failed")
)

// Interp holds the global environment of a script session.
type Interp struct {
	heap   *heap.Heap
	out    io.Writer
	log    *slog.Logger
	global *frame
	env    *frame
}

// Option configures an Interp.
type Option func(*Interp)

// WithOutput sets where print writes. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(in *Interp) {
		in.out = w
	}
}

// WithLogger sets the interpreter's logger.
func WithLogger(l *slog.Logger) Option {
	return func(in *Interp) {
		in.log = l
	}
}

// New creates an interpreter whose globals live in h's current scope.
func New(h *heap.Heap, opts ...Option) *Interp {
	in := &Interp{heap: h, out: os.Stdout, log: slog.Default()}
	for _, opt := range opts {
		opt(in)
	}
	in.global = newFrame(nil, h.Current())
	in.env = in.global
	return in
}

// Heap returns the heap the interpreter allocates in.
func (in *Interp) Heap() *heap.Heap {
	return in.heap
}

// Eval evaluates one form. The result is owned by the caller.
func (in *Interp) Eval(expr *ast.Value) (heap.Value, error) {
	v, err := in.eval(expr)
	if err != nil {
		in.log.Debug("script: form failed",
			slog.String("form", expr.String()),
			slog.Int("depth", in.heap.Depth()),
			slog.Any("error", err))
		return heap.Nil, fmt.Errorf("%s: %w", expr, err)
	}
	return v, nil
}

// EvalString evaluates every form in src and returns the last result.
func (in *Interp) EvalString(src string) (heap.Value, error) {
	exprs, err := parser.ParseAllString(src)
	if err != nil {
		return heap.Nil, fmt.Errorf("parse: %w", err)
	}
	last := heap.Nil
	for _, expr := range exprs {
		last.Release()
		last, err = in.Eval(expr)
		if err != nil {
			return heap.Nil, err
		}
	}
	return last, nil
}

// Run evaluates src for its effects.
func (in *Interp) Run(src string) error {
	v, err := in.EvalString(src)
	v.Release()
	return err
}

// Close releases every binding and scope.
func (in *Interp) Close() {
	in.env = in.global
	in.global.vars = make(map[string]heap.Value)
	in.heap.Close()
}

func (in *Interp) eval(expr *ast.Value) (heap.Value, error) {
	switch {
	case expr == nil || ast.IsNil(expr):
		return heap.Nil, nil
	case ast.IsInt(expr):
		return heap.Int(expr.Int), nil
	case ast.IsStr(expr):
		return heap.Str(expr.Str), nil
	case ast.IsSym(expr):
		if expr.Str == "nil" {
			return heap.Nil, nil
		}
		_, v, ok := in.env.lookup(expr.Str)
		if !ok {
			return heap.Nil, fmt.Errorf("%s: %w", expr.Str, ErrUnbound)
		}
		return v.Clone(), nil
	case ast.IsCell(expr):
		head := expr.Car
		if !ast.IsSym(head) {
			return heap.Nil, fmt.Errorf("head %s: %w", head, ErrSyntax)
		}
		form, ok := forms[head.Str]
		if !ok {
			return heap.Nil, fmt.Errorf("unknown form %s: %w", head.Str, ErrSyntax)
		}
		return form(in, ast.ListToSlice(expr.Cdr))
	default:
		return heap.Nil, fmt.Errorf("%s: %w", ast.TagName(expr.Tag), ErrSyntax)
	}
}

// evalArgs evaluates args left to right. On error the values produced so far
// are released.
func (in *Interp) evalArgs(args []*ast.Value) ([]heap.Value, error) {
	vals := make([]heap.Value, 0, len(args))
	for _, a := range args {
		v, err := in.eval(a)
		if err != nil {
			release(vals)
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func release(vals []heap.Value) {
	for _, v := range vals {
		v.Release()
	}
}

// enterScope opens a heap scope together with a name frame.
func (in *Interp) enterScope() {
	in.env = newFrame(in.env, in.heap.EnterScope())
}

func (in *Interp) exitScope() error {
	in.env = in.env.parent
	return in.heap.ExitScope()
}
