//go:build !opencl

package compute

import (
	"errors"
	"strings"
	"testing"

	"github.com/san-kum/softsim/internal/dynamo"
)

func TestOpenCLUnavailableWithoutTag(t *testing.T) {
	_, err := New("opencl")
	if !errors.Is(err, dynamo.ErrBackendUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "-tags opencl") {
		t.Errorf("error lacks rebuild hint: %v", err)
	}
}
