package fluid

// Constraint contributes the stages that project particle estimates onto
// one constraint family inside the relaxation loop.
type Constraint interface {
	Name() string
	Stages(s *Solver) []Stage
}

// FluidConstraint enforces constant density with per-particle Lagrange
// multipliers, plus the optional tensile-instability term.
type FluidConstraint struct{}

func (FluidConstraint) Name() string { return "density" }

func (FluidConstraint) Stages(s *Solver) []Stage {
	p := s.params
	tensileK := float32(0)
	if p.Tensile {
		tensileK = p.TensileK
	}
	nx, ny, nz := int32(p.Grid[0]), int32(p.Grid[1]), int32(p.Grid[2])

	return []Stage{
		{
			Name:   "lambda",
			Kernel: passLambda,
			Reads:  []string{bufEst, bufCellStart, bufCellCount, bufSorted},
			Writes: []string{bufLambda},
			args: func() []any {
				return []any{s.buf[bufEst], s.buf[bufCellStart], s.buf[bufCellCount], s.buf[bufSorted],
					s.buf[bufLambda], p.CellWidth, p.RestDensity, p.Relaxation, nx, ny, nz}
			},
		},
		{
			Name:   "correct",
			Kernel: passCorrect,
			Reads:  []string{bufEst, bufCellStart, bufCellCount, bufSorted, bufLambda},
			Writes: []string{bufDelta},
			args: func() []any {
				return []any{s.buf[bufEst], s.buf[bufCellStart], s.buf[bufCellCount], s.buf[bufSorted],
					s.buf[bufLambda], s.buf[bufDelta], p.CellWidth, p.RestDensity,
					tensileK, p.TensileN, p.TensileDeltaQ, nx, ny, nz}
			},
		},
		{
			Name:   "apply_correction",
			Kernel: passApplyCorrect,
			Reads:  []string{bufEst, bufDelta},
			Writes: []string{bufEst},
			args: func() []any {
				return []any{s.buf[bufEst], s.buf[bufDelta]}
			},
		},
	}
}
