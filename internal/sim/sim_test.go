package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/softsim/internal/collision"
	"github.com/san-kum/softsim/internal/compute"
	"github.com/san-kum/softsim/internal/dynamo"
	"github.com/san-kum/softsim/internal/fluid"
	"github.com/san-kum/softsim/internal/mesh"
	"github.com/san-kum/softsim/internal/metrics"
	"github.com/san-kum/softsim/internal/softbody"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"zero dt", Config{Dt: 0, Duration: 1}, true},
		{"negative duration", Config{Dt: 0.01, Duration: -1}, true},
		{"dt longer than run", Config{Dt: 2, Duration: 1}, true},
		{"single step", Config{Dt: 1, Duration: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, dynamo.ErrParameterBounds) {
				t.Errorf("error %v does not wrap ErrParameterBounds", err)
			}
		})
	}
}

func TestConfigSteps(t *testing.T) {
	if got := DefaultConfig().Steps(); got != 2500 {
		t.Errorf("steps = %d, want 2500", got)
	}
	if got := (Config{Dt: 0.1, Duration: 0.3}).Steps(); got != 3 {
		t.Errorf("steps = %d, want 3", got)
	}
}

type frameCounter struct {
	frames  int
	objects int
}

func (f *frameCounter) OnStep(t float64, positions [][]float32) {
	f.frames++
	f.objects = len(positions)
}

func dropWorld(t *testing.T, integrator string) *World {
	t.Helper()
	w, err := NewWorld(integrator)
	if err != nil {
		t.Fatal(err)
	}
	b, err := softbody.NewBody(mesh.Cube(1).Translate(mgl64.Vec3{0.13, 1, 0.07}), softbody.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.AddBody(b); err != nil {
		t.Fatal(err)
	}
	floor, err := collision.NewStaticMesh(mesh.Floor(10, 1))
	if err != nil {
		t.Fatal(err)
	}
	w.AddStatic(floor)
	return w
}

func TestWorldRunDrop(t *testing.T) {
	for _, integ := range []string{"euler", "rk4"} {
		t.Run(integ, func(t *testing.T) {
			w := dropWorld(t, integ)
			obs := &frameCounter{}
			w.AddObserver(obs)
			w.AddMetric(metrics.NewKineticEnergy())
			w.AddMetric(metrics.NewTotalMass())

			cfg := Config{Dt: 0.002, Duration: 0.6, ValidateState: true}
			res, err := w.Run(context.Background(), cfg)
			if err != nil {
				t.Fatal(err)
			}
			if res.StepsTaken != cfg.Steps() {
				t.Errorf("steps taken = %d, want %d", res.StepsTaken, cfg.Steps())
			}
			if got := len(res.Series["kinetic_energy"]); got != res.StepsTaken {
				t.Errorf("series length = %d, want %d", got, res.StepsTaken)
			}
			if len(res.Times) != res.StepsTaken {
				t.Errorf("times length = %d", len(res.Times))
			}
			if res.Metrics["total_mass"] != 0 {
				t.Errorf("mass drifted by %v", res.Metrics["total_mass"])
			}
			if obs.frames != res.StepsTaken || obs.objects != 1 {
				t.Errorf("observer saw %d frames of %d objects", obs.frames, obs.objects)
			}
			if y := w.Bodies()[0].BoundingBox().Min.Y(); y < 0 {
				t.Errorf("body fell through the floor, min y = %v", y)
			}
		})
	}
}

func TestWorldErrors(t *testing.T) {
	if _, err := NewWorld("midpoint"); err == nil {
		t.Error("expected unknown integrator error")
	}
	w, err := NewWorld("rk4")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Run(context.Background(), DefaultConfig()); err == nil {
		t.Error("expected error for a world with no bodies")
	}
}

func TestWorldRunCancelled(t *testing.T) {
	w := dropWorld(t, "euler")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := w.Run(ctx, DefaultConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res.StepsTaken != 0 {
		t.Errorf("steps taken = %d after cancel", res.StepsTaken)
	}
}

// scripted is a stepper that fails or goes invalid on a chosen step.
type scripted struct {
	failAt    int
	invalidAt int
	n         int
}

func (s *scripted) step(_, _ float64) error {
	s.n++
	if s.n == s.failAt {
		return errors.New("boom")
	}
	return nil
}
func (s *scripted) valid() bool           { return s.n != s.invalidAt }
func (s *scripted) observe(float64)       {}
func (s *scripted) metrics() []Metric     { return nil }
func (s *scripted) frame() [][]float32    { return nil }
func (s *scripted) observers() []Observer { return nil }

func TestRunStopsOnFailure(t *testing.T) {
	cfg := Config{Dt: 0.1, Duration: 1, ValidateState: true}

	tests := []struct {
		name      string
		s         *scripted
		wantStep  int
		wantSteps int
		target    error
	}{
		{"step error", &scripted{failAt: 4}, 3, 3, nil},
		{"invalid state", &scripted{invalidAt: 2}, 1, 1, dynamo.ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := run(context.Background(), tt.s, cfg)
			var simErr *dynamo.SimulationError
			if !errors.As(err, &simErr) {
				t.Fatalf("err = %v, want SimulationError", err)
			}
			if simErr.Step != tt.wantStep {
				t.Errorf("failed at step %d, want %d", simErr.Step, tt.wantStep)
			}
			if res.StepsTaken != tt.wantSteps {
				t.Errorf("steps taken = %d, want %d", res.StepsTaken, tt.wantSteps)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("err = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestRunSkipsValidationWhenDisabled(t *testing.T) {
	cfg := Config{Dt: 0.1, Duration: 1}
	res, err := run(context.Background(), &scripted{invalidAt: 2}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res.StepsTaken != 10 {
		t.Errorf("steps taken = %d, want 10", res.StepsTaken)
	}
}

func TestStatePoolDiff(t *testing.T) {
	p := NewStatePool(3)
	d := p.Diff(dynamo.State{3, 2, 1}, dynamo.State{1, 1, 1})
	want := dynamo.State{2, 1, 0}
	for i := range want {
		if d[i] != want[i] {
			t.Fatalf("diff = %v, want %v", d, want)
		}
	}
	p.Put(d)
	p.Put(make(dynamo.State, 5))
	if got := p.Get(); len(got) != 3 {
		t.Errorf("pool handed out a buffer of length %d", len(got))
	}
}

func TestFluidRunner(t *testing.T) {
	p := fluid.DefaultParams()
	p.Particles = 256
	p.Grid = [3]int{8, 8, 8}
	p.Iterations = 2
	s, err := fluid.New(compute.NewCPUBackend(), p)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	r := NewFluidRunner(s)
	r.AddMetric(metrics.NewMeanHeight())
	r.AddMetric(metrics.NewMaxSpeed())
	obs := &frameCounter{}
	r.AddObserver(obs)

	res, err := r.Run(context.Background(), Config{Dt: 0.01, Duration: 0.05, ValidateState: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.StepsTaken != 5 || obs.frames != 5 {
		t.Errorf("steps %d frames %d, want 5", res.StepsTaken, obs.frames)
	}
	if got := len(res.Series["mean_height"]); got != 5 {
		t.Errorf("mean height series has %d samples", got)
	}
	if res.Metrics["max_speed"] <= 0 {
		t.Errorf("max speed = %v, particles never moved", res.Metrics["max_speed"])
	}
}
