package compute

import "fmt"

// Args gives a host kernel typed access to its bound arguments. The first
// mismatch is kept and reported by Err; later accessors return zero values.
type Args struct {
	pass string
	vals []any
	err  error
}

func NewArgs(pass string, vals ...any) *Args {
	return &Args{pass: pass, vals: vals}
}

func (a *Args) Err() error { return a.err }
func (a *Args) Len() int   { return len(a.vals) }

func (a *Args) fail(i int, want string) {
	if a.err != nil {
		return
	}
	if i >= len(a.vals) {
		a.err = fmt.Errorf("%s: missing argument %d (%s)", a.pass, i, want)
		return
	}
	a.err = fmt.Errorf("%s: argument %d is %T, want %s", a.pass, i, a.vals[i], want)
}

func (a *Args) Float32s(i int) []float32 {
	if i < len(a.vals) {
		if v, ok := a.vals[i].([]float32); ok {
			return v
		}
	}
	a.fail(i, "[]float32")
	return nil
}

func (a *Args) Int32s(i int) []int32 {
	if i < len(a.vals) {
		if v, ok := a.vals[i].([]int32); ok {
			return v
		}
	}
	a.fail(i, "[]int32")
	return nil
}

func (a *Args) Float32(i int) float32 {
	if i < len(a.vals) {
		if v, ok := a.vals[i].(float32); ok {
			return v
		}
	}
	a.fail(i, "float32")
	return 0
}

func (a *Args) Int32(i int) int32 {
	if i < len(a.vals) {
		if v, ok := a.vals[i].(int32); ok {
			return v
		}
	}
	a.fail(i, "int32")
	return 0
}
