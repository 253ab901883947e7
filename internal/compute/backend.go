package compute

import (
	"fmt"
	"sort"

	"github.com/san-kum/softsim/internal/dynamo"
)

type BufferKind int

const (
	Float32 BufferKind = iota
	Int32
)

func (k BufferKind) String() string {
	switch k {
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	default:
		return fmt.Sprintf("BufferKind(%d)", int(k))
	}
}

// Buffer is device memory owned by a Backend.
type Buffer interface {
	Name() string
	Kind() BufferKind
	Len() int
}

// Kernel is the host rendition of one pass. It binds its arguments once and
// returns the body run for every element index.
type Kernel func(a *Args) func(i int)

// Program is a set of named passes. Source holds the same passes as OpenCL C
// for device backends; Kernels holds their host versions.
type Program struct {
	Name    string
	Source  string
	Kernels map[string]Kernel
}

// Passes lists the kernel names in sorted order.
func (p *Program) Passes() []string {
	names := make([]string, 0, len(p.Kernels))
	for n := range p.Kernels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Backend runs named parallel-map passes over buffers it owns. Every call
// blocks until the device has finished, so consecutive passes are ordered.
type Backend interface {
	Name() string
	Build(p *Program) error
	NewBuffer(name string, kind BufferKind, n int) (Buffer, error)
	Fill(b Buffer, v float32) error
	Write(b Buffer, host any) error
	Read(b Buffer, host any) error
	ParallelMap(pass string, n int, args ...any) error
	Release()
}

// New opens the named backend. There is no fallback: if the device cannot
// be opened the error explains why.
func New(name string) (Backend, error) {
	switch name {
	case "", "cpu":
		return NewCPUBackend(), nil
	case "opencl":
		b, err := NewOpenCLBackend()
		if err != nil {
			return nil, fmt.Errorf("%w: opencl: %v", dynamo.ErrBackendUnavailable, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q (want cpu or opencl)", dynamo.ErrBackendUnavailable, name)
	}
}

func Names() []string { return []string{"cpu", "opencl"} }
