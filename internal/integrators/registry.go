package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/softsim/internal/dynamo"
)

var registry = map[string]func() dynamo.Integrator{
	"euler":    func() dynamo.Integrator { return NewEuler() },
	"rk4":      func() dynamo.Integrator { return NewRK4() },
	"verlet":   func() dynamo.Integrator { return NewVerlet() },
	"leapfrog": func() dynamo.Integrator { return NewLeapfrog() },
}

// New returns a fresh integrator. Each body needs its own because RK4 and
// the Verlet family keep scratch buffers.
func New(name string) (dynamo.Integrator, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s (available: %v)", name, Names())
	}
	return f(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
