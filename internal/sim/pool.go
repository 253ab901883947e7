package sim

import (
	"sync"

	"github.com/san-kum/softsim/internal/dynamo"
)

// StatePool recycles delta buffers of one size between steps.
type StatePool struct {
	pool sync.Pool
	size int
}

func NewStatePool(stateSize int) *StatePool {
	return &StatePool{
		size: stateSize,
		pool: sync.Pool{
			New: func() any {
				return make(dynamo.State, stateSize)
			},
		},
	}
}

func (p *StatePool) Get() dynamo.State {
	return p.pool.Get().(dynamo.State)
}

func (p *StatePool) Put(s dynamo.State) {
	if len(s) == p.size {
		clear(s)
		p.pool.Put(s)
	}
}

// Diff returns a pooled buffer holding next - prev.
func (p *StatePool) Diff(next, prev dynamo.State) dynamo.State {
	d := p.Get()
	for i := range d {
		d[i] = next[i] - prev[i]
	}
	return d
}
