package fluid

import (
	_ "embed"
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/san-kum/softsim/internal/compute"
	"github.com/san-kum/softsim/internal/dynamo"
)

//go:embed kernels.cl
var kernelSource string

const (
	bufPos       = "pos"
	bufVel       = "vel"
	bufEst       = "est"
	bufInvMass   = "invMass"
	bufLambda    = "lambda"
	bufDelta     = "delta"
	bufOmega     = "omega"
	bufDV        = "dv"
	bufCell      = "cell"
	bufCellStart = "cellStart"
	bufCellCount = "cellCount"
	bufSorted    = "sorted"
)

// Program returns the fluid passes for building on a backend.
func Program() *compute.Program {
	return &compute.Program{
		Name:    "pbf",
		Source:  kernelSource,
		Kernels: hostKernels(),
	}
}

// Solver is a position-based fluid. Particle state lives in backend buffers;
// Positions and Velocities are host copies refreshed at the end of Update.
type Solver struct {
	backend compute.Backend
	params  Params
	n       int
	domain  mgl32.Vec3

	buf map[string]compute.Buffer

	positions  []float32
	velocities []float32

	// host side of the spatial index
	cells     []int32
	cellStart []int32
	cellCount []int32
	cellFill  []int32
	sorted    []int32

	constraints []Constraint
	schedule    Schedule
	dt          float32
}

// New builds the fluid program on b, allocates every particle buffer and
// seeds particles uniformly inside the spawn block.
func New(b compute.Backend, p Params) (*Solver, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := b.Build(Program()); err != nil {
		return nil, fmt.Errorf("building fluid program on %s: %w", b.Name(), err)
	}

	n := p.Particles
	cells := p.Cells()
	s := &Solver{
		backend:     b,
		params:      p,
		n:           n,
		domain:      p.Domain(),
		buf:         make(map[string]compute.Buffer),
		positions:   make([]float32, n*3),
		velocities:  make([]float32, n*3),
		cells:       make([]int32, n),
		cellStart:   make([]int32, cells),
		cellCount:   make([]int32, cells),
		cellFill:    make([]int32, cells),
		sorted:      make([]int32, n),
		constraints: []Constraint{FluidConstraint{}},
	}

	layout := []struct {
		name string
		kind compute.BufferKind
		size int
	}{
		{bufPos, compute.Float32, n * 3},
		{bufVel, compute.Float32, n * 3},
		{bufEst, compute.Float32, n * 3},
		{bufInvMass, compute.Float32, n},
		{bufLambda, compute.Float32, n},
		{bufDelta, compute.Float32, n * 3},
		{bufOmega, compute.Float32, n * 3},
		{bufDV, compute.Float32, n * 3},
		{bufCell, compute.Int32, n},
		{bufCellStart, compute.Int32, cells},
		{bufCellCount, compute.Int32, cells},
		{bufSorted, compute.Int32, n},
	}
	for _, l := range layout {
		buf, err := b.NewBuffer(l.name, l.kind, l.size)
		if err != nil {
			return nil, err
		}
		s.buf[l.name] = buf
	}

	s.seed()
	if err := b.Write(s.buf[bufPos], s.positions); err != nil {
		return nil, err
	}
	for _, name := range []string{bufVel, bufLambda, bufDelta, bufOmega, bufDV} {
		if err := b.Fill(s.buf[name], 0); err != nil {
			return nil, err
		}
	}
	if err := b.Fill(s.buf[bufInvMass], 1); err != nil {
		return nil, err
	}

	s.schedule = s.buildSchedule()
	if err := s.schedule.Validate(bufPos, bufVel, bufInvMass); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Solver) seed() {
	rng := rand.New(rand.NewSource(s.params.Seed))
	extent := mgl32.Vec3{
		s.domain[0] * s.params.SpawnFraction[0],
		s.domain[1] * s.params.SpawnFraction[1],
		s.domain[2] * s.params.SpawnFraction[2],
	}
	for i := 0; i < s.n; i++ {
		for axis := 0; axis < 3; axis++ {
			s.positions[i*3+axis] = rng.Float32() * extent[axis]
		}
	}
}

func (s *Solver) buildSchedule() Schedule {
	p := s.params
	nx, ny, nz := int32(p.Grid[0]), int32(p.Grid[1]), int32(p.Grid[2])
	b := s.buf

	sched := Schedule{
		Pre: []Stage{
			{
				Name:   "predict",
				Kernel: passPredict,
				Reads:  []string{bufPos, bufVel, bufInvMass},
				Writes: []string{bufVel, bufEst},
				args: func() []any {
					return []any{b[bufPos], b[bufVel], b[bufEst], b[bufInvMass],
						p.Gravity[0], p.Gravity[1], p.Gravity[2], s.dt}
				},
			},
			{
				Name:   "cell",
				Kernel: passCell,
				Reads:  []string{bufEst},
				Writes: []string{bufCell},
				args: func() []any {
					return []any{b[bufEst], b[bufCell], p.CellWidth, nx, ny, nz}
				},
			},
			{
				Name:   "sort",
				Host:   s.sortCells,
				Reads:  []string{bufCell},
				Writes: []string{bufCellStart, bufCellCount, bufSorted},
			},
		},
		Iterations: p.Iterations,
		Post: []Stage{
			{
				Name:   "update_velocity",
				Kernel: passUpdateVelocity,
				Reads:  []string{bufPos, bufEst},
				Writes: []string{bufPos, bufVel},
				args: func() []any {
					return []any{b[bufPos], b[bufVel], b[bufEst], s.dt, s.domain[0], s.domain[1], s.domain[2]}
				},
			},
			{
				Name:   "vorticity",
				Kernel: passVorticity,
				Reads:  []string{bufPos, bufVel, bufCellStart, bufCellCount, bufSorted},
				Writes: []string{bufOmega},
				args: func() []any {
					return []any{b[bufPos], b[bufVel], b[bufCellStart], b[bufCellCount], b[bufSorted],
						b[bufOmega], p.CellWidth, p.RestDensity, nx, ny, nz}
				},
			},
			{
				Name:   "confine",
				Kernel: passConfine,
				Reads:  []string{bufPos, bufVel, bufOmega, bufCellStart, bufCellCount, bufSorted},
				Writes: []string{bufDV},
				args: func() []any {
					return []any{b[bufPos], b[bufVel], b[bufOmega], b[bufCellStart], b[bufCellCount], b[bufSorted],
						b[bufDV], p.CellWidth, p.RestDensity, p.Vorticity, p.Viscosity, s.dt, nx, ny, nz}
				},
			},
			{
				Name:   "apply_velocity",
				Kernel: passApplyVelocity,
				Reads:  []string{bufVel, bufDV},
				Writes: []string{bufVel},
				args: func() []any {
					return []any{b[bufVel], b[bufDV]}
				},
			},
			{
				Name:  "readback",
				Host:  s.readback,
				Reads: []string{bufPos, bufVel},
			},
		},
	}
	for _, c := range s.constraints {
		sched.Loop = append(sched.Loop, c.Stages(s)...)
	}
	return sched
}

// sortCells builds the cell ranges with a stable counting sort, so each
// neighbour pass can gather from sorted[start:start+count] without writes
// to shared slots.
func (s *Solver) sortCells() error {
	if err := s.backend.Read(s.buf[bufCell], s.cells); err != nil {
		return err
	}
	if err := countingSort(s.cells, s.cellStart, s.cellCount, s.cellFill, s.sorted); err != nil {
		return err
	}
	for name, host := range map[string][]int32{
		bufCellStart: s.cellStart,
		bufCellCount: s.cellCount,
		bufSorted:    s.sorted,
	} {
		if err := s.backend.Write(s.buf[name], host); err != nil {
			return err
		}
	}
	return nil
}

func countingSort(cells, start, count, fill, sorted []int32) error {
	clear(count)
	clear(fill)
	for i, c := range cells {
		if c < 0 || int(c) >= len(count) {
			return fmt.Errorf("particle %d in cell %d outside grid of %d cells", i, c, len(count))
		}
		count[c]++
	}
	var offset int32
	for c := range count {
		start[c] = offset
		offset += count[c]
	}
	for i, c := range cells {
		sorted[start[c]+fill[c]] = int32(i)
		fill[c]++
	}
	return nil
}

func (s *Solver) readback() error {
	if err := s.backend.Read(s.buf[bufPos], s.positions); err != nil {
		return err
	}
	return s.backend.Read(s.buf[bufVel], s.velocities)
}

// Update advances the fluid by dt. It returns after the final positions are
// back on the host.
func (s *Solver) Update(dt float32) error {
	if !(dt > 0) {
		return fmt.Errorf("dt must be positive, got %f: %w", dt, dynamo.ErrParameterBounds)
	}
	s.dt = dt
	return s.schedule.run(s.backend, s.n)
}

// Positions is the host copy of particle positions, xyz per particle.
func (s *Solver) Positions() []float32 { return s.positions }

// Velocities is the host copy of particle velocities, xyz per particle.
func (s *Solver) Velocities() []float32 { return s.velocities }

func (s *Solver) Count() int               { return s.n }
func (s *Solver) Domain() mgl32.Vec3       { return s.domain }
func (s *Solver) Params() Params           { return s.params }
func (s *Solver) Schedule() *Schedule      { return &s.schedule }
func (s *Solver) Backend() compute.Backend { return s.backend }

// Lambdas reads the current Lagrange multipliers back from the device.
func (s *Solver) Lambdas() ([]float32, error) {
	out := make([]float32, s.n)
	if err := s.backend.Read(s.buf[bufLambda], out); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the backend and every buffer allocated on it.
func (s *Solver) Close() {
	s.backend.Release()
}
