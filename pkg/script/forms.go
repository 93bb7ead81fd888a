package script

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cactus_go/pkg/ast"
	"cactus_go/pkg/heap"
)

// formFunc receives its arguments unevaluated and returns an owned value.
type formFunc func(in *Interp, args []*ast.Value) (heap.Value, error)

var forms map[string]formFunc

func init() {
	forms = map[string]formFunc{
		"quote":       formQuote,
		"let":         formLet,
		"set!":        formSet,
		"drop":        formDrop,
		"scope":       formScope,
		"array":       formArray,
		"hash":        formHash,
		"push":        formPush,
		"pop":         formPop,
		"aset":        formAset,
		"put":         formPut,
		"delete":      formDelete,
		"get":         formGet,
		"len":         formLen,
		"weak":        formWeak,
		"upgrade":     formUpgrade,
		"alive?":      formAlive,
		"strong":      formStrong,
		"weak-count":  formWeakCount,
		"stats":       formStats,
		"live":        formLive,
		"print":       formPrint,
		"assert-live": formAssertLive,
	}
}

func arity(args []*ast.Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("want %d, got %d: %w", n, len(args), ErrArity)
	}
	return nil
}

func symbolArg(a *ast.Value) (string, error) {
	if !ast.IsSym(a) {
		return "", fmt.Errorf("expected name, got %s: %w", a, ErrType)
	}
	return a.Str, nil
}

// withArgs evaluates exactly n arguments, hands them to fn and releases them
// afterwards.
func (in *Interp) withArgs(args []*ast.Value, n int, fn func(vals []heap.Value) (heap.Value, error)) (heap.Value, error) {
	if err := arity(args, n); err != nil {
		return heap.Nil, err
	}
	vals, err := in.evalArgs(args)
	if err != nil {
		return heap.Nil, err
	}
	defer release(vals)
	return fn(vals)
}

func intArg(v heap.Value) (int, error) {
	if v.Kind != heap.KInt {
		return 0, fmt.Errorf("expected int, got %s: %w", heap.KindName(v.Kind), ErrType)
	}
	return int(v.Int), nil
}

// keyArg accepts strings and integers as hash keys.
func keyArg(v heap.Value) (string, error) {
	switch v.Kind {
	case heap.KStr:
		return v.Str, nil
	case heap.KInt:
		return strconv.FormatInt(v.Int, 10), nil
	default:
		return "", fmt.Errorf("expected key, got %s: %w", heap.KindName(v.Kind), ErrType)
	}
}

func boolValue(b bool) heap.Value {
	if b {
		return heap.Int(1)
	}
	return heap.Int(0)
}

func formQuote(in *Interp, args []*ast.Value) (heap.Value, error) {
	if err := arity(args, 1); err != nil {
		return heap.Nil, err
	}
	switch a := args[0]; {
	case ast.IsSym(a), ast.IsStr(a):
		return heap.Str(a.Str), nil
	case ast.IsInt(a):
		return heap.Int(a.Int), nil
	case ast.IsNil(a):
		return heap.Nil, nil
	default:
		return heap.Nil, fmt.Errorf("cannot quote %s: %w", a, ErrType)
	}
}

func formLet(in *Interp, args []*ast.Value) (heap.Value, error) {
	if err := arity(args, 2); err != nil {
		return heap.Nil, err
	}
	name, err := symbolArg(args[0])
	if err != nil {
		return heap.Nil, err
	}
	v, err := in.eval(args[1])
	if err != nil {
		return heap.Nil, err
	}
	in.env.bind(name, v)
	return heap.Nil, nil
}

func formSet(in *Interp, args []*ast.Value) (heap.Value, error) {
	if err := arity(args, 2); err != nil {
		return heap.Nil, err
	}
	name, err := symbolArg(args[0])
	if err != nil {
		return heap.Nil, err
	}
	f, _, ok := in.env.lookup(name)
	if !ok {
		return heap.Nil, fmt.Errorf("%s: %w", name, ErrUnbound)
	}
	v, err := in.eval(args[1])
	if err != nil {
		return heap.Nil, err
	}
	f.bind(name, v)
	return heap.Nil, nil
}

func formDrop(in *Interp, args []*ast.Value) (heap.Value, error) {
	if err := arity(args, 1); err != nil {
		return heap.Nil, err
	}
	name, err := symbolArg(args[0])
	if err != nil {
		return heap.Nil, err
	}
	f, _, ok := in.env.lookup(name)
	if !ok {
		return heap.Nil, fmt.Errorf("%s: %w", name, ErrUnbound)
	}
	f.remove(name)
	return heap.Nil, nil
}

// formScope evaluates its body in a fresh scope. Names bound inside are
// released on exit; the value of the last form survives.
func formScope(in *Interp, args []*ast.Value) (result heap.Value, err error) {
	in.enterScope()
	defer func() {
		if exitErr := in.exitScope(); exitErr != nil && err == nil {
			err = exitErr
		}
	}()
	result = heap.Nil
	for _, a := range args {
		result.Release()
		result, err = in.eval(a)
		if err != nil {
			return heap.Nil, err
		}
	}
	return result, nil
}

func formArray(in *Interp, args []*ast.Value) (heap.Value, error) {
	vals, err := in.evalArgs(args)
	if err != nil {
		return heap.Nil, err
	}
	defer release(vals)
	return in.heap.NewArray(vals...), nil
}

func formHash(in *Interp, args []*ast.Value) (heap.Value, error) {
	if len(args)%2 != 0 {
		return heap.Nil, fmt.Errorf("hash wants key value pairs: %w", ErrArity)
	}
	vals, err := in.evalArgs(args)
	if err != nil {
		return heap.Nil, err
	}
	defer release(vals)
	h := in.heap.NewHash()
	for i := 0; i < len(vals); i += 2 {
		key, err := keyArg(vals[i])
		if err == nil {
			err = in.heap.Put(h, key, vals[i+1])
		}
		if err != nil {
			h.Release()
			return heap.Nil, err
		}
	}
	return h, nil
}

func formPush(in *Interp, args []*ast.Value) (heap.Value, error) {
	return in.withArgs(args, 2, func(vals []heap.Value) (heap.Value, error) {
		return heap.Nil, in.heap.Push(vals[0], vals[1])
	})
}

func formPop(in *Interp, args []*ast.Value) (heap.Value, error) {
	return in.withArgs(args, 1, func(vals []heap.Value) (heap.Value, error) {
		return in.heap.Pop(vals[0])
	})
}

func formAset(in *Interp, args []*ast.Value) (heap.Value, error) {
	return in.withArgs(args, 3, func(vals []heap.Value) (heap.Value, error) {
		i, err := intArg(vals[1])
		if err != nil {
			return heap.Nil, err
		}
		return heap.Nil, in.heap.Set(vals[0], i, vals[2])
	})
}

func formPut(in *Interp, args []*ast.Value) (heap.Value, error) {
	return in.withArgs(args, 3, func(vals []heap.Value) (heap.Value, error) {
		key, err := keyArg(vals[1])
		if err != nil {
			return heap.Nil, err
		}
		return heap.Nil, in.heap.Put(vals[0], key, vals[2])
	})
}

func formDelete(in *Interp, args []*ast.Value) (heap.Value, error) {
	return in.withArgs(args, 2, func(vals []heap.Value) (heap.Value, error) {
		key, err := keyArg(vals[1])
		if err != nil {
			return heap.Nil, err
		}
		ok, err := in.heap.Delete(vals[0], key)
		return boolValue(ok), err
	})
}

// formGet indexes arrays by position and hashes by key. Missing hash keys
// yield nil.
func formGet(in *Interp, args []*ast.Value) (heap.Value, error) {
	return in.withArgs(args, 2, func(vals []heap.Value) (heap.Value, error) {
		obj := vals[0].Object()
		if obj == nil {
			return heap.Nil, fmt.Errorf("get on %s: %w", heap.KindName(vals[0].Kind), heap.ErrNotObject)
		}
		if obj.Kind == heap.Array {
			i, err := intArg(vals[1])
			if err != nil {
				return heap.Nil, err
			}
			return in.heap.Index(vals[0], i)
		}
		key, err := keyArg(vals[1])
		if err != nil {
			return heap.Nil, err
		}
		v, _, err := in.heap.Lookup(vals[0], key)
		return v, err
	})
}

func formLen(in *Interp, args []*ast.Value) (heap.Value, error) {
	return in.withArgs(args, 1, func(vals []heap.Value) (heap.Value, error) {
		n, err := in.heap.Len(vals[0])
		return heap.Int(int64(n)), err
	})
}

func formWeak(in *Interp, args []*ast.Value) (heap.Value, error) {
	return in.withArgs(args, 1, func(vals []heap.Value) (heap.Value, error) {
		return in.heap.Downgrade(vals[0])
	})
}

// formUpgrade yields nil once the object is gone.
func formUpgrade(in *Interp, args []*ast.Value) (heap.Value, error) {
	return in.withArgs(args, 1, func(vals []heap.Value) (heap.Value, error) {
		v, err := in.heap.Upgrade(vals[0])
		if errors.Is(err, heap.ErrCollected) {
			return heap.Nil, nil
		}
		return v, err
	})
}

func formAlive(in *Interp, args []*ast.Value) (heap.Value, error) {
	return in.withArgs(args, 1, func(vals []heap.Value) (heap.Value, error) {
		v, err := in.heap.Upgrade(vals[0])
		if errors.Is(err, heap.ErrCollected) {
			return boolValue(false), nil
		}
		if err != nil {
			return heap.Nil, err
		}
		v.Release()
		return boolValue(true), nil
	})
}

// bound returns the value bound to a name without taking a handle, so counts
// read through it are not disturbed.
func (in *Interp) bound(args []*ast.Value) (heap.Value, error) {
	if err := arity(args, 1); err != nil {
		return heap.Nil, err
	}
	name, err := symbolArg(args[0])
	if err != nil {
		return heap.Nil, err
	}
	_, v, ok := in.env.lookup(name)
	if !ok {
		return heap.Nil, fmt.Errorf("%s: %w", name, ErrUnbound)
	}
	return v, nil
}

func formStrong(in *Interp, args []*ast.Value) (heap.Value, error) {
	v, err := in.bound(args)
	if err != nil {
		return heap.Nil, err
	}
	switch {
	case v.IsRef():
		return heap.Int(int64(v.Ref.StrongCount())), nil
	case v.IsWeak():
		return heap.Int(int64(v.Weak.StrongCount())), nil
	default:
		return heap.Nil, fmt.Errorf("strong of %s: %w", heap.KindName(v.Kind), heap.ErrNotObject)
	}
}

func formWeakCount(in *Interp, args []*ast.Value) (heap.Value, error) {
	v, err := in.bound(args)
	if err != nil {
		return heap.Nil, err
	}
	switch {
	case v.IsRef():
		return heap.Int(int64(v.Ref.WeakCount())), nil
	case v.IsWeak():
		return heap.Int(int64(v.Weak.WeakCount())), nil
	default:
		return heap.Nil, fmt.Errorf("weak-count of %s: %w", heap.KindName(v.Kind), heap.ErrNotObject)
	}
}

func formStats(in *Interp, args []*ast.Value) (heap.Value, error) {
	if err := arity(args, 0); err != nil {
		return heap.Nil, err
	}
	s := in.heap.Stats()
	return heap.Str(fmt.Sprintf("allocated=%d live=%d dropped=%d sweeps=%d collections=%d collected=%d",
		s.Allocated, s.Live(), s.ValuesDropped, s.Sweeps, s.Collections, s.CollectedBlocks)), nil
}

func formLive(in *Interp, args []*ast.Value) (heap.Value, error) {
	if err := arity(args, 0); err != nil {
		return heap.Nil, err
	}
	return heap.Int(int64(in.heap.Live())), nil
}

// formPrint writes its arguments separated by spaces. Strings print raw.
func formPrint(in *Interp, args []*ast.Value) (heap.Value, error) {
	vals, err := in.evalArgs(args)
	if err != nil {
		return heap.Nil, err
	}
	defer release(vals)
	parts := make([]string, len(vals))
	for i, v := range vals {
		if v.Kind == heap.KStr {
			parts[i] = v.Str
		} else {
			parts[i] = heap.Inspect(v)
		}
	}
	_, err = fmt.Fprintln(in.out, strings.Join(parts, " "))
	return heap.Nil, err
}

func formAssertLive(in *Interp, args []*ast.Value) (heap.Value, error) {
	return in.withArgs(args, 1, func(vals []heap.Value) (heap.Value, error) {
		want, err := intArg(vals[0])
		if err != nil {
			return heap.Nil, err
		}
		if got := in.heap.Live(); got != want {
			return heap.Nil, fmt.Errorf("live objects: got %d, want %d: %w", got, want, ErrAssertion)
		}
		return heap.Nil, nil
	})
}
