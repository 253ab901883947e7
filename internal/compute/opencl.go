//go:build opencl

package compute

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"

	"github.com/san-kum/softsim/internal/dynamo"
)

type clBuffer struct {
	name string
	kind BufferKind
	n    int
	mem  *cl.MemObject
}

func (b *clBuffer) Name() string     { return b.name }
func (b *clBuffer) Kind() BufferKind { return b.kind }
func (b *clBuffer) Len() int         { return b.n }

// OpenCLBackend runs passes as OpenCL kernels on the first GPU found, or the
// first CPU device when no GPU is present. Every call finishes the queue
// before returning.
type OpenCLBackend struct {
	device   *cl.Device
	context  *cl.Context
	queue    *cl.CommandQueue
	programs []*cl.Program
	kernels  map[string]*cl.Kernel
	buffers  []*clBuffer
}

func pickDevice(platforms []*cl.Platform, kind cl.DeviceType) *cl.Device {
	for _, p := range platforms {
		devices, err := p.GetDevices(kind)
		if err != nil && err != cl.ErrDeviceNotFound {
			continue
		}
		if len(devices) > 0 {
			return devices[0]
		}
	}
	return nil
}

func NewOpenCLBackend() (Backend, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "querying OpenCL platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms; install OpenCL drivers and verify with `clinfo`"
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	if len(platforms) == 0 {
		return nil, errors.New("no OpenCL platforms available")
	}

	device := pickDevice(platforms, cl.DeviceTypeGPU)
	if device == nil {
		device = pickDevice(platforms, cl.DeviceTypeCPU)
	}
	if device == nil {
		return nil, errors.New("no suitable OpenCL devices found")
	}

	context, err := cl.CreateContext([]*cl.Device{device})
	if err != nil {
		return nil, fmt.Errorf("creating OpenCL context: %w", err)
	}
	queue, err := context.CreateCommandQueue(device, 0)
	if err != nil {
		context.Release()
		return nil, fmt.Errorf("creating OpenCL command queue: %w", err)
	}

	slogger().Info("compute: opencl device selected", "device", device.Name())
	return &OpenCLBackend{
		device:  device,
		context: context,
		queue:   queue,
		kernels: make(map[string]*cl.Kernel),
	}, nil
}

func (o *OpenCLBackend) Name() string { return "opencl (" + o.device.Name() + ")" }

// Build compiles p.Source and creates one kernel per pass. A compiler
// failure returns the device build log.
func (o *OpenCLBackend) Build(p *Program) error {
	if p.Source == "" {
		return fmt.Errorf("program %s has no OpenCL source", p.Name)
	}
	program, err := o.context.CreateProgramWithSource([]string{p.Source})
	if err != nil {
		return fmt.Errorf("creating OpenCL program %s: %w", p.Name, err)
	}
	if err := program.BuildProgram([]*cl.Device{o.device}, ""); err != nil {
		program.Release()
		var buildErr cl.BuildError
		if errors.As(err, &buildErr) {
			return fmt.Errorf("building OpenCL program %s: %s", p.Name, string(buildErr))
		}
		return fmt.Errorf("building OpenCL program %s: %w", p.Name, err)
	}

	created := make([]*cl.Kernel, 0, len(p.Kernels))
	for _, name := range p.Passes() {
		k, err := program.CreateKernel(name)
		if err != nil {
			for _, c := range created {
				c.Release()
			}
			program.Release()
			return fmt.Errorf("creating OpenCL kernel %s: %w", name, err)
		}
		created = append(created, k)
		o.kernels[name] = k
	}
	o.programs = append(o.programs, program)
	slogger().Debug("compute: program built", "backend", "opencl", "program", p.Name, "passes", len(created))
	return nil
}

func (o *OpenCLBackend) NewBuffer(name string, kind BufferKind, n int) (Buffer, error) {
	if kind != Float32 && kind != Int32 {
		return nil, fmt.Errorf("buffer %s: unsupported kind %v", name, kind)
	}
	// OpenCL rejects zero-sized allocations.
	size := max(n, 1) * 4
	mem, err := o.context.CreateEmptyBuffer(cl.MemReadWrite, size)
	if err != nil {
		return nil, fmt.Errorf("creating OpenCL buffer %s: %w", name, err)
	}
	b := &clBuffer{name: name, kind: kind, n: n, mem: mem}
	o.buffers = append(o.buffers, b)
	return b, nil
}

func (o *OpenCLBackend) buffer(b Buffer) (*clBuffer, error) {
	cb, ok := b.(*clBuffer)
	if !ok {
		return nil, fmt.Errorf("buffer %s does not belong to the opencl backend", b.Name())
	}
	return cb, nil
}

func (o *OpenCLBackend) Fill(b Buffer, v float32) error {
	cb, err := o.buffer(b)
	if err != nil {
		return err
	}
	if cb.n == 0 {
		return nil
	}
	if cb.kind == Int32 {
		host := make([]int32, cb.n)
		for i := range host {
			host[i] = int32(v)
		}
		return o.Write(b, host)
	}
	host := make([]float32, cb.n)
	for i := range host {
		host[i] = v
	}
	return o.Write(b, host)
}

func (o *OpenCLBackend) Write(b Buffer, host any) error {
	cb, err := o.buffer(b)
	if err != nil {
		return err
	}
	switch h := host.(type) {
	case []float32:
		if cb.kind != Float32 || len(h) > cb.n {
			return fmt.Errorf("write %s: %d float32 into %v[%d]", cb.name, len(h), cb.kind, cb.n)
		}
		if len(h) == 0 {
			return nil
		}
		if _, err := o.queue.EnqueueWriteBufferFloat32(cb.mem, true, 0, h, nil); err != nil {
			return fmt.Errorf("write %s: %w", cb.name, err)
		}
	case []int32:
		if cb.kind != Int32 || len(h) > cb.n {
			return fmt.Errorf("write %s: %d int32 into %v[%d]", cb.name, len(h), cb.kind, cb.n)
		}
		if len(h) == 0 {
			return nil
		}
		byteLen := len(h) * int(unsafe.Sizeof(int32(0)))
		if _, err := o.queue.EnqueueWriteBuffer(cb.mem, true, 0, byteLen, unsafe.Pointer(&h[0]), nil); err != nil {
			return fmt.Errorf("write %s: %w", cb.name, err)
		}
	default:
		return fmt.Errorf("write %s: unsupported host type %T", cb.name, host)
	}
	return nil
}

func (o *OpenCLBackend) Read(b Buffer, host any) error {
	cb, err := o.buffer(b)
	if err != nil {
		return err
	}
	switch h := host.(type) {
	case []float32:
		if cb.kind != Float32 {
			return fmt.Errorf("read %s: %v buffer into []float32", cb.name, cb.kind)
		}
		n := min(len(h), cb.n)
		if n == 0 {
			return nil
		}
		if _, err := o.queue.EnqueueReadBufferFloat32(cb.mem, true, 0, h[:n], nil); err != nil {
			return fmt.Errorf("read %s: %w", cb.name, err)
		}
	case []int32:
		if cb.kind != Int32 {
			return fmt.Errorf("read %s: %v buffer into []int32", cb.name, cb.kind)
		}
		n := min(len(h), cb.n)
		if n == 0 {
			return nil
		}
		byteLen := n * int(unsafe.Sizeof(int32(0)))
		if _, err := o.queue.EnqueueReadBuffer(cb.mem, true, 0, byteLen, unsafe.Pointer(&h[0]), nil); err != nil {
			return fmt.Errorf("read %s: %w", cb.name, err)
		}
	default:
		return fmt.Errorf("read %s: unsupported host type %T", cb.name, host)
	}
	return nil
}

// ParallelMap sets the kernel arguments in order, enqueues one work item
// per element and blocks on clFinish.
func (o *OpenCLBackend) ParallelMap(pass string, n int, args ...any) error {
	k, ok := o.kernels[pass]
	if !ok {
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownPass, pass)
	}
	if n == 0 {
		return nil
	}

	clArgs := make([]interface{}, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case *clBuffer:
			clArgs[i] = v.mem
		case Buffer:
			return fmt.Errorf("%s: argument %d: buffer %s does not belong to the opencl backend", pass, i, v.Name())
		case float32, int32:
			clArgs[i] = v
		default:
			return fmt.Errorf("%s: argument %d has unsupported type %T", pass, i, a)
		}
	}
	if err := k.SetArgs(clArgs...); err != nil {
		return fmt.Errorf("%s: setting kernel arguments: %w", pass, err)
	}
	if _, err := o.queue.EnqueueNDRangeKernel(k, nil, []int{n}, nil, nil); err != nil {
		return fmt.Errorf("%s: enqueue: %w", pass, err)
	}
	if err := o.queue.Finish(); err != nil {
		return fmt.Errorf("%s: finish: %w", pass, err)
	}
	return nil
}

func (o *OpenCLBackend) Release() {
	for _, b := range o.buffers {
		b.mem.Release()
	}
	o.buffers = nil
	for _, k := range o.kernels {
		k.Release()
	}
	o.kernels = map[string]*cl.Kernel{}
	for _, p := range o.programs {
		p.Release()
	}
	o.programs = nil
	if o.queue != nil {
		o.queue.Release()
		o.queue = nil
	}
	if o.context != nil {
		o.context.Release()
		o.context = nil
	}
}
