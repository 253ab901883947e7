// Package compute runs data-parallel passes over device buffers.
//
// A pass is one named kernel applied to every element index in [0, n).
// Passes are registered through a [Program] that carries both an OpenCL C
// source and a host [Kernel] per pass, so the same program runs on either
// backend:
//
//   - cpu: goroutine workers over contiguous index chunks
//   - opencl: a GPU or CPU OpenCL device, built with -tags opencl
//
// Every [Backend] call blocks until the work is complete:
//
//	backend, err := compute.New("cpu")
//	if err != nil {
//		return err
//	}
//	defer backend.Release()
//	if err := backend.Build(prog); err != nil {
//		return err
//	}
//	err = backend.ParallelMap("predict", n, pos, vel, float32(dt))
//
// A backend that fails to open or build is reported as an error. Nothing
// falls back to another device.
package compute
