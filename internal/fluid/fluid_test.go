package fluid

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/softsim/internal/compute"
	"github.com/san-kum/softsim/internal/dynamo"
)

func smallParams() Params {
	p := DefaultParams()
	p.Particles = 512
	p.Grid = [3]int{8, 8, 8}
	p.Iterations = 2
	return p
}

func loneParams() Params {
	p := smallParams()
	p.Particles = 1
	p.Grid = [3]int{4, 4, 4}
	// upward gravity keeps the particle away from the floor clamp
	p.Gravity = mgl32.Vec3{0, 9.8, 0}
	return p
}

var _ = Describe("Solver", func() {
	Describe("construction", func() {
		It("seeds every particle inside the spawn block", func() {
			p := smallParams()
			s, err := New(compute.NewCPUBackend(), p)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			d := s.Domain()
			pos := s.Positions()
			Expect(pos).To(HaveLen(p.Particles * 3))
			for i := 0; i < p.Particles; i++ {
				for axis := 0; axis < 3; axis++ {
					v := pos[i*3+axis]
					Expect(v).To(BeNumerically(">=", 0))
					Expect(v).To(BeNumerically("<=", d[axis]*p.SpawnFraction[axis]))
				}
			}
		})

		It("rejects invalid parameters", func() {
			p := smallParams()
			p.Iterations = 0
			_, err := New(compute.NewCPUBackend(), p)
			Expect(err).To(MatchError(dynamo.ErrParameterBounds))

			p = smallParams()
			p.Grid[1] = 0
			_, err = New(compute.NewCPUBackend(), p)
			Expect(err).To(MatchError(dynamo.ErrParameterBounds))

			p = smallParams()
			p.TensileDeltaQ = 1.5
			_, err = New(compute.NewCPUBackend(), p)
			Expect(err).To(MatchError(dynamo.ErrParameterBounds))
		})

		It("rejects a non-positive time step", func() {
			s, err := New(compute.NewCPUBackend(), smallParams())
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Update(0)).To(MatchError(dynamo.ErrParameterBounds))
			Expect(s.Update(-0.01)).To(MatchError(dynamo.ErrParameterBounds))
		})
	})

	Describe("schedule", func() {
		It("runs the passes in pipeline order", func() {
			s, err := New(compute.NewCPUBackend(), smallParams())
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Schedule().Names()).To(Equal([]string{
				"predict", "cell", "sort",
				"lambda", "correct", "apply_correction",
				"update_velocity", "vorticity", "confine", "apply_velocity",
				"readback",
			}))
			Expect(s.Schedule().Iterations).To(Equal(2))
		})

		It("rejects a stage that reads a buffer nobody wrote", func() {
			sched := Schedule{
				Pre: []Stage{
					{Name: "predict", Kernel: passPredict, Reads: []string{bufPos}, Writes: []string{bufEst}},
				},
				Loop: []Stage{
					{Name: "correct", Kernel: passCorrect, Reads: []string{bufEst, bufLambda}},
				},
				Iterations: 1,
			}
			err := sched.Validate(bufPos)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("reads lambda before any stage writes it"))
		})

		It("rejects a loop without iterations", func() {
			sched := Schedule{
				Loop: []Stage{{Name: "lambda", Kernel: passLambda}},
			}
			Expect(sched.Validate()).To(MatchError(ContainSubstring("0 iterations")))
		})

		It("rejects a stage with no work", func() {
			sched := Schedule{Post: []Stage{{Name: "empty"}}}
			Expect(sched.Validate()).To(MatchError(ContainSubstring("neither a kernel nor a host step")))
		})
	})

	Describe("a lone particle", func() {
		var s *Solver

		BeforeEach(func() {
			var err error
			s, err = New(compute.NewCPUBackend(), loneParams())
			Expect(err).NotTo(HaveOccurred())
		})

		It("falls freely under gravity", func() {
			const dt = float32(0.01)
			before := s.Positions()[1]
			Expect(s.Update(dt)).To(Succeed())

			v := s.Velocities()
			Expect(v[0]).To(BeNumerically("~", 0, 1e-6))
			Expect(v[1]).To(BeNumerically("~", 9.8*dt, 1e-4))
			Expect(v[2]).To(BeNumerically("~", 0, 1e-6))
			Expect(s.Positions()[1]).To(BeNumerically("~", before+9.8*dt*dt, 1e-5))
		})

		It("computes the multiplier from its own density only", func() {
			p := s.Params()
			Expect(s.Update(0.01)).To(Succeed())
			lambdas, err := s.Lambdas()
			Expect(err).NotTo(HaveOccurred())

			want := (1 - poly6(0, p.CellWidth)/p.RestDensity) / p.Relaxation
			Expect(lambdas[0]).To(BeNumerically("~", want, 1e-7))
		})
	})

	Describe("stepping a block of fluid", func() {
		It("keeps every particle inside the domain", func() {
			s, err := New(compute.NewCPUBackend(), smallParams())
			Expect(err).NotTo(HaveOccurred())
			for range 20 {
				Expect(s.Update(1.0 / 60)).To(Succeed())
			}

			d := s.Domain()
			pos, vel := s.Positions(), s.Velocities()
			for i := 0; i < s.Count(); i++ {
				for axis := 0; axis < 3; axis++ {
					Expect(pos[i*3+axis]).To(BeNumerically(">=", 0))
					Expect(pos[i*3+axis]).To(BeNumerically("<=", d[axis]))
					Expect(math32.IsNaN(vel[i*3+axis])).To(BeFalse())
				}
			}
		})

		It("gives the same result for any worker count", func() {
			run := func(workers int) []float32 {
				s, err := New(compute.NewCPUBackendWorkers(workers), smallParams())
				Expect(err).NotTo(HaveOccurred())
				for range 5 {
					Expect(s.Update(1.0 / 60)).To(Succeed())
				}
				return append([]float32(nil), s.Positions()...)
			}
			Expect(run(1)).To(Equal(run(8)))
		})

		It("pulls the block downwards", func() {
			s, err := New(compute.NewCPUBackend(), smallParams())
			Expect(err).NotTo(HaveOccurred())
			mean := func() float32 {
				var sum float32
				pos := s.Positions()
				for i := 0; i < s.Count(); i++ {
					sum += pos[i*3+1]
				}
				return sum / float32(s.Count())
			}
			start := mean()
			for range 10 {
				Expect(s.Update(1.0 / 60)).To(Succeed())
			}
			Expect(mean()).To(BeNumerically("<", start))
		})
	})
})

var _ = Describe("countingSort", func() {
	It("groups particles by cell in stable index order", func() {
		cells := []int32{2, 0, 2, 1, 0}
		start := make([]int32, 3)
		count := make([]int32, 3)
		fill := make([]int32, 3)
		sorted := make([]int32, len(cells))

		Expect(countingSort(cells, start, count, fill, sorted)).To(Succeed())
		Expect(count).To(Equal([]int32{2, 1, 2}))
		Expect(start).To(Equal([]int32{0, 2, 3}))
		Expect(sorted).To(Equal([]int32{1, 4, 3, 0, 2}))
	})

	It("reports a cell outside the grid", func() {
		count := make([]int32, 2)
		err := countingSort([]int32{0, 5}, make([]int32, 2), count, make([]int32, 2), make([]int32, 2))
		Expect(err).To(MatchError(ContainSubstring("outside grid")))
	})
})

var _ = Describe("kernels", func() {
	It("clamps NaN coordinates into the first cell", func() {
		Expect(cellCoord(math32.NaN(), 0.1, 8)).To(Equal(int32(0)))
		Expect(cellCoord(-0.5, 0.1, 8)).To(Equal(int32(0)))
		Expect(cellCoord(5, 0.1, 8)).To(Equal(int32(7)))
		Expect(cellCoord(0.35, 0.1, 8)).To(Equal(int32(3)))
	})

	It("zeroes velocity pointing out of a wall", func() {
		x, v := clampAxis(-0.2, -1, 1)
		Expect(x).To(BeZero())
		Expect(v).To(BeZero())

		x, v = clampAxis(1.5, 2, 1)
		Expect(x).To(Equal(float32(1)))
		Expect(v).To(BeZero())

		x, v = clampAxis(1.5, -2, 1)
		Expect(x).To(Equal(float32(1)))
		Expect(v).To(Equal(float32(-2)))
	})

	It("vanishes outside the smoothing radius", func() {
		Expect(poly6(0.02, 0.1)).To(BeZero())
		Expect(spikyGrad(mgl32.Vec3{0.2, 0, 0}, 0.1)).To(Equal(mgl32.Vec3{}))
		Expect(spikyGrad(mgl32.Vec3{0.05, 0, 0}, 0.1)[0]).To(BeNumerically("<", 0))
	})
})
