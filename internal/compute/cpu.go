package compute

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/softsim/internal/dynamo"
)

// minChunk keeps tiny passes from paying goroutine start-up per element.
const minChunk = 64

type cpuBuffer struct {
	name string
	kind BufferKind
	f32  []float32
	i32  []int32
}

func (b *cpuBuffer) Name() string     { return b.name }
func (b *cpuBuffer) Kind() BufferKind { return b.kind }
func (b *cpuBuffer) Len() int {
	if b.kind == Int32 {
		return len(b.i32)
	}
	return len(b.f32)
}

// CPUBackend runs each pass on a pool of goroutines, one contiguous chunk of
// element indices per worker, and waits for all of them before returning.
type CPUBackend struct {
	workers int
	kernels map[string]Kernel
}

func NewCPUBackend() *CPUBackend {
	return &CPUBackend{
		workers: runtime.NumCPU(),
		kernels: make(map[string]Kernel),
	}
}

// NewCPUBackendWorkers pins the worker count; 1 runs every pass inline.
func NewCPUBackendWorkers(workers int) *CPUBackend {
	c := NewCPUBackend()
	if workers > 0 {
		c.workers = workers
	}
	return c
}

func (c *CPUBackend) Name() string { return "cpu" }
func (c *CPUBackend) Release()     {}

func (c *CPUBackend) Build(p *Program) error {
	for name, k := range p.Kernels {
		if k == nil {
			return fmt.Errorf("program %s: pass %s has no host kernel", p.Name, name)
		}
		c.kernels[name] = k
	}
	slogger().Debug("compute: program built", "backend", "cpu", "program", p.Name, "passes", len(p.Kernels))
	return nil
}

func (c *CPUBackend) NewBuffer(name string, kind BufferKind, n int) (Buffer, error) {
	if n < 0 {
		return nil, fmt.Errorf("buffer %s: negative length %d", name, n)
	}
	b := &cpuBuffer{name: name, kind: kind}
	switch kind {
	case Float32:
		b.f32 = make([]float32, n)
	case Int32:
		b.i32 = make([]int32, n)
	default:
		return nil, fmt.Errorf("buffer %s: unsupported kind %v", name, kind)
	}
	return b, nil
}

func (c *CPUBackend) buffer(b Buffer) (*cpuBuffer, error) {
	cb, ok := b.(*cpuBuffer)
	if !ok {
		return nil, fmt.Errorf("buffer %s does not belong to the cpu backend", b.Name())
	}
	return cb, nil
}

func (c *CPUBackend) Fill(b Buffer, v float32) error {
	cb, err := c.buffer(b)
	if err != nil {
		return err
	}
	if cb.kind == Int32 {
		iv := int32(v)
		for i := range cb.i32 {
			cb.i32[i] = iv
		}
		return nil
	}
	for i := range cb.f32 {
		cb.f32[i] = v
	}
	return nil
}

func (c *CPUBackend) Write(b Buffer, host any) error {
	cb, err := c.buffer(b)
	if err != nil {
		return err
	}
	switch h := host.(type) {
	case []float32:
		if cb.kind != Float32 || len(h) > len(cb.f32) {
			return fmt.Errorf("write %s: %d float32 into %v[%d]", cb.name, len(h), cb.kind, cb.Len())
		}
		copy(cb.f32, h)
	case []int32:
		if cb.kind != Int32 || len(h) > len(cb.i32) {
			return fmt.Errorf("write %s: %d int32 into %v[%d]", cb.name, len(h), cb.kind, cb.Len())
		}
		copy(cb.i32, h)
	default:
		return fmt.Errorf("write %s: unsupported host type %T", cb.name, host)
	}
	return nil
}

func (c *CPUBackend) Read(b Buffer, host any) error {
	cb, err := c.buffer(b)
	if err != nil {
		return err
	}
	switch h := host.(type) {
	case []float32:
		if cb.kind != Float32 {
			return fmt.Errorf("read %s: %v buffer into []float32", cb.name, cb.kind)
		}
		copy(h, cb.f32)
	case []int32:
		if cb.kind != Int32 {
			return fmt.Errorf("read %s: %v buffer into []int32", cb.name, cb.kind)
		}
		copy(h, cb.i32)
	default:
		return fmt.Errorf("read %s: unsupported host type %T", cb.name, host)
	}
	return nil
}

// ParallelMap binds args, replacing buffers with their backing slices, and
// runs the pass over [0, n). It returns once every element is done.
func (c *CPUBackend) ParallelMap(pass string, n int, args ...any) error {
	k, ok := c.kernels[pass]
	if !ok {
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownPass, pass)
	}

	vals := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case *cpuBuffer:
			if v.kind == Int32 {
				vals[i] = v.i32
			} else {
				vals[i] = v.f32
			}
		case Buffer:
			return fmt.Errorf("%s: argument %d: buffer %s does not belong to the cpu backend", pass, i, v.Name())
		default:
			vals[i] = a
		}
	}

	bound := NewArgs(pass, vals...)
	body := k(bound)
	if err := bound.Err(); err != nil {
		return err
	}

	runRange := func(start, end int) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s: element range [%d,%d): %v", pass, start, end, r)
			}
		}()
		for i := start; i < end; i++ {
			body(i)
		}
		return nil
	}

	if n <= minChunk || c.workers <= 1 {
		return runRange(0, n)
	}

	chunk := (n + c.workers - 1) / c.workers
	if chunk < minChunk {
		chunk = minChunk
	}

	var g errgroup.Group
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error { return runRange(start, end) })
	}
	return g.Wait()
}
