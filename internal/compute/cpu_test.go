package compute

import (
	"errors"
	"strings"
	"testing"

	"github.com/san-kum/softsim/internal/dynamo"
)

func scaleProgram() *Program {
	return &Program{
		Name: "test",
		Kernels: map[string]Kernel{
			"scale": func(a *Args) func(i int) {
				in, out, k := a.Float32s(0), a.Float32s(1), a.Float32(2)
				return func(i int) { out[i] = in[i] * k }
			},
			"index": func(a *Args) func(i int) {
				out := a.Int32s(0)
				return func(i int) { out[i] = int32(i) }
			},
		},
	}
}

func TestCPUParallelMap(t *testing.T) {
	for _, workers := range []int{1, 3, 8} {
		c := NewCPUBackendWorkers(workers)
		if err := c.Build(scaleProgram()); err != nil {
			t.Fatal(err)
		}

		const n = 1000
		in, _ := c.NewBuffer("in", Float32, n)
		out, _ := c.NewBuffer("out", Float32, n)
		idx, _ := c.NewBuffer("idx", Int32, n)

		host := make([]float32, n)
		for i := range host {
			host[i] = float32(i)
		}
		if err := c.Write(in, host); err != nil {
			t.Fatal(err)
		}
		if err := c.ParallelMap("scale", n, in, out, float32(2)); err != nil {
			t.Fatal(err)
		}
		if err := c.ParallelMap("index", n, idx); err != nil {
			t.Fatal(err)
		}

		got := make([]float32, n)
		if err := c.Read(out, got); err != nil {
			t.Fatal(err)
		}
		ids := make([]int32, n)
		if err := c.Read(idx, ids); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < n; i++ {
			if got[i] != 2*float32(i) || ids[i] != int32(i) {
				t.Fatalf("workers=%d element %d: got %v, %v", workers, i, got[i], ids[i])
			}
		}
	}
}

func TestCPUFill(t *testing.T) {
	c := NewCPUBackend()
	f, _ := c.NewBuffer("f", Float32, 5)
	i, _ := c.NewBuffer("i", Int32, 5)
	if err := c.Fill(f, 1.5); err != nil {
		t.Fatal(err)
	}
	if err := c.Fill(i, -1); err != nil {
		t.Fatal(err)
	}

	fs := make([]float32, 5)
	is := make([]int32, 5)
	c.Read(f, fs)
	c.Read(i, is)
	for k := 0; k < 5; k++ {
		if fs[k] != 1.5 || is[k] != -1 {
			t.Fatalf("element %d: %v %v", k, fs[k], is[k])
		}
	}
}

func TestCPUErrors(t *testing.T) {
	c := NewCPUBackend()
	if err := c.Build(scaleProgram()); err != nil {
		t.Fatal(err)
	}
	f, _ := c.NewBuffer("f", Float32, 4)
	idx, _ := c.NewBuffer("idx", Int32, 4)

	tests := []struct {
		name  string
		err   error
		match string
	}{
		{"unknown pass", c.ParallelMap("nope", 4, f), ""},
		{"wrong buffer kind", c.ParallelMap("scale", 4, idx, f, float32(1)), "want []float32"},
		{"missing scalar", c.ParallelMap("scale", 4, f, f), "missing argument 2"},
		{"scalar type", c.ParallelMap("scale", 4, f, f, 1.0), "float64"},
		{"write kind", c.Write(f, []int32{1}), "int32"},
		{"write overflow", c.Write(f, make([]float32, 10)), "10 float32"},
		{"read kind", c.Read(idx, make([]float32, 4)), "int32 buffer"},
		{"host type", c.Write(f, []float64{1}), "unsupported host type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatal("expected error")
			}
			if tt.match != "" && !strings.Contains(tt.err.Error(), tt.match) {
				t.Errorf("error %q does not mention %q", tt.err, tt.match)
			}
		})
	}

	if err := c.ParallelMap("nope", 4); !errors.Is(err, dynamo.ErrUnknownPass) {
		t.Errorf("unknown pass error = %v", err)
	}
}

func TestCPUKernelPanicBecomesError(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		n       int
	}{
		{"parallel", 4, 512},
		{"below chunk size", 4, 32},
		{"single worker", 1, 512},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCPUBackendWorkers(tt.workers)
			err := c.Build(&Program{Name: "bad", Kernels: map[string]Kernel{
				"oob": func(a *Args) func(i int) {
					out := a.Float32s(0)
					return func(i int) { out[i+1] = 0 }
				},
			}})
			if err != nil {
				t.Fatal(err)
			}
			buf, err := c.NewBuffer("b", Float32, tt.n)
			if err != nil {
				t.Fatal(err)
			}
			if err := c.ParallelMap("oob", tt.n, buf); err == nil {
				t.Error("expected error from out-of-range kernel")
			}
		})
	}
}

func TestNew(t *testing.T) {
	b, err := New("cpu")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Release()
	if b.Name() != "cpu" {
		t.Errorf("Name() = %s", b.Name())
	}

	if _, err := New("cuda"); !errors.Is(err, dynamo.ErrBackendUnavailable) {
		t.Errorf("unknown backend error = %v", err)
	}
}

func TestProgramPassesSorted(t *testing.T) {
	got := scaleProgram().Passes()
	if len(got) != 2 || got[0] != "index" || got[1] != "scale" {
		t.Errorf("Passes() = %v", got)
	}
}
