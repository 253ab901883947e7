package fluid

import (
	"fmt"
	"strings"

	"github.com/san-kum/softsim/internal/compute"
)

// Stage is one step of the frame pipeline: either a parallel pass on the
// backend or a host step. Reads and Writes name the buffers it touches and
// are checked against the order of the schedule.
type Stage struct {
	Name   string
	Kernel string
	Host   func() error
	Reads  []string
	Writes []string

	// args are evaluated when the stage runs, so scalars such as dt are current.
	args func() []any
}

// Schedule is the ordered frame pipeline. Loop runs Iterations times between
// Pre and Post; each stage finishes on every element before the next starts.
type Schedule struct {
	Pre        []Stage
	Loop       []Stage
	Iterations int
	Post       []Stage
}

// Names lists stages in execution order with the loop unrolled once.
func (s *Schedule) Names() []string {
	var out []string
	for _, st := range s.Pre {
		out = append(out, st.Name)
	}
	for _, st := range s.Loop {
		out = append(out, st.Name)
	}
	for _, st := range s.Post {
		out = append(out, st.Name)
	}
	return out
}

// Validate checks that every buffer a stage reads was written by the
// initial upload or by an earlier stage.
func (s *Schedule) Validate(initial ...string) error {
	written := make(map[string]bool, len(initial))
	for _, b := range initial {
		written[b] = true
	}

	check := func(group string, stages []Stage) error {
		for _, st := range stages {
			if st.Kernel == "" && st.Host == nil {
				return fmt.Errorf("%s stage %s has neither a kernel nor a host step", group, st.Name)
			}
			var missing []string
			for _, r := range st.Reads {
				if !written[r] {
					missing = append(missing, r)
				}
			}
			if len(missing) > 0 {
				return fmt.Errorf("%s stage %s reads %s before any stage writes it", group, st.Name, strings.Join(missing, ", "))
			}
			for _, w := range st.Writes {
				written[w] = true
			}
		}
		return nil
	}

	if err := check("pre", s.Pre); err != nil {
		return err
	}
	if len(s.Loop) > 0 && s.Iterations < 1 {
		return fmt.Errorf("loop has %d stages but %d iterations", len(s.Loop), s.Iterations)
	}
	if err := check("loop", s.Loop); err != nil {
		return err
	}
	return check("post", s.Post)
}

func (s *Schedule) run(b compute.Backend, n int) error {
	exec := func(st Stage) error {
		if st.Host != nil {
			if err := st.Host(); err != nil {
				return fmt.Errorf("stage %s: %w", st.Name, err)
			}
			return nil
		}
		var args []any
		if st.args != nil {
			args = st.args()
		}
		if err := b.ParallelMap(st.Kernel, n, args...); err != nil {
			return fmt.Errorf("stage %s: %w", st.Name, err)
		}
		return nil
	}

	for _, st := range s.Pre {
		if err := exec(st); err != nil {
			return err
		}
	}
	for it := 0; it < s.Iterations; it++ {
		for _, st := range s.Loop {
			if err := exec(st); err != nil {
				return err
			}
		}
	}
	for _, st := range s.Post {
		if err := exec(st); err != nil {
			return err
		}
	}
	return nil
}
