//go:build !opencl

package compute

import "errors"

// NewOpenCLBackend is unavailable without the opencl build tag.
func NewOpenCLBackend() (Backend, error) {
	return nil, errors.New("OpenCL support is not enabled; rebuild with -tags opencl")
}
