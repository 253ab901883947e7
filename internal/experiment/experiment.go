package experiment

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/softsim/internal/collision"
	"github.com/san-kum/softsim/internal/compute"
	"github.com/san-kum/softsim/internal/config"
	"github.com/san-kum/softsim/internal/fluid"
	"github.com/san-kum/softsim/internal/mesh"
	"github.com/san-kum/softsim/internal/metrics"
	"github.com/san-kum/softsim/internal/sim"
	"github.com/san-kum/softsim/internal/softbody"
)

// Scene is a configured simulation ready to run.
type Scene interface {
	Name() string
	Run(ctx context.Context, cfg sim.Config) (*sim.Result, error)
	// Step advances one frame outside the run loop, for benchmarking.
	Step(t, dt float64) error
	AddObserver(o sim.Observer)
	// Topology is the triangle list of every object; nil for particles.
	Topology() [][][3]int
	Close()
}

// jitter is the largest random horizontal offset given to each body, so
// vertices do not start exactly on the floor's shared edges.
const jitter = 0.05

type softBodyScene struct {
	world *sim.World
}

// NewSoftBodyScene drops cfg.SoftBody.Count bodies onto a static floor.
func NewSoftBodyScene(cfg *config.Config) (Scene, error) {
	params, err := cfg.SoftBodyParams()
	if err != nil {
		return nil, err
	}
	world, err := sim.NewWorld(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	sb := cfg.SoftBody
	rng := rand.New(rand.NewSource(cfg.Seed))
	for i := 0; i < sb.Count; i++ {
		var m *mesh.Mesh
		switch sb.Shape {
		case "icosphere":
			m = mesh.Icosphere(sb.Radius, sb.Subdivisions)
		case "cube":
			m = mesh.Cube(2 * sb.Radius)
		default:
			return nil, fmt.Errorf("unknown shape %q", sb.Shape)
		}
		offset := mgl64.Vec3{
			(rng.Float64()*2 - 1) * jitter,
			sb.Height + float64(i)*sb.Spacing,
			(rng.Float64()*2 - 1) * jitter,
		}
		body, err := softbody.NewBody(m.Translate(offset), params)
		if err != nil {
			return nil, fmt.Errorf("body %d: %w", i, err)
		}
		if err := world.AddBody(body); err != nil {
			return nil, err
		}
	}

	floor, err := collision.NewStaticMesh(mesh.Floor(sb.FloorSize, 1))
	if err != nil {
		return nil, err
	}
	world.AddStatic(floor)

	for _, m := range BodyMetrics() {
		world.AddMetric(m)
	}
	return &softBodyScene{world: world}, nil
}

func (s *softBodyScene) Name() string { return config.SceneSoftBody }

func (s *softBodyScene) Run(ctx context.Context, cfg sim.Config) (*sim.Result, error) {
	return s.world.Run(ctx, cfg)
}

func (s *softBodyScene) Step(t, dt float64) error   { return s.world.Step(t, dt) }
func (s *softBodyScene) AddObserver(o sim.Observer) { s.world.AddObserver(o) }
func (s *softBodyScene) World() *sim.World          { return s.world }
func (s *softBodyScene) Close()                     {}

func (s *softBodyScene) Topology() [][][3]int {
	bodies := s.world.Bodies()
	t := make([][][3]int, len(bodies))
	for i, b := range bodies {
		t[i] = b.Faces()
	}
	return t
}

type fluidScene struct {
	runner *sim.FluidRunner
}

// NewFluidScene opens cfg.Backend and seeds a fluid block in it.
func NewFluidScene(cfg *config.Config) (Scene, error) {
	backend, err := compute.New(cfg.Backend)
	if err != nil {
		return nil, err
	}
	solver, err := fluid.New(backend, cfg.FluidParams())
	if err != nil {
		backend.Release()
		return nil, err
	}
	runner := sim.NewFluidRunner(solver)
	for _, m := range ParticleMetrics() {
		runner.AddMetric(m)
	}
	return &fluidScene{runner: runner}, nil
}

func (s *fluidScene) Name() string { return config.SceneFluid }

func (s *fluidScene) Run(ctx context.Context, cfg sim.Config) (*sim.Result, error) {
	return s.runner.Run(ctx, cfg)
}

func (s *fluidScene) Step(_, dt float64) error   { return s.runner.Solver().Update(float32(dt)) }
func (s *fluidScene) AddObserver(o sim.Observer) { s.runner.AddObserver(o) }
func (s *fluidScene) Topology() [][][3]int       { return nil }
func (s *fluidScene) Close()                     { s.runner.Solver().Close() }

// BodyMetrics is the metric set recorded for soft-body scenes.
func BodyMetrics() []sim.BodyMetric {
	return []sim.BodyMetric{
		metrics.NewKineticEnergy(),
		metrics.NewEnergy(),
		metrics.NewVolumeRatio(),
		metrics.NewTotalMass(),
		metrics.NewPenetration(0),
		metrics.NewStability(50),
	}
}

func ParticleMetrics() []sim.ParticleMetric {
	return []sim.ParticleMetric{
		metrics.NewMeanHeight(),
		metrics.NewMaxSpeed(),
	}
}
