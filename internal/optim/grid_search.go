// Package optim searches parameter grids for the value that minimises a
// run metric.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Point is one evaluated combination of parameter values.
type Point struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// Evaluator runs one combination and returns the metric to minimise.
type Evaluator func(ctx context.Context, params map[string]float64) (float64, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, workers: runtime.GOMAXPROCS(0)}
}

// WithWorkers bounds how many evaluations run at once.
func (g *GridSearch) WithWorkers(n int) *GridSearch {
	g.workers = max(n, 1)
	return g
}

// Points is the cartesian product of the ranges, first parameter slowest.
func (g *GridSearch) Points() []map[string]float64 {
	points := []map[string]float64{{}}
	for depth, name := range g.paramNames {
		next := make([]map[string]float64, 0, len(points)*len(g.ranges[depth]))
		for _, current := range points {
			for _, val := range g.ranges[depth] {
				p := make(map[string]float64, len(current)+1)
				for k, v := range current {
					p[k] = v
				}
				p[name] = val
				next = append(next, p)
			}
		}
		points = next
	}
	return points
}

// Search evaluates every grid point and returns the lowest one. A failing
// point is recorded in all with its error and never wins; Search only fails
// when the grid is malformed, ctx is cancelled or no point succeeds.
func (g *GridSearch) Search(ctx context.Context, eval Evaluator) (Point, []Point, error) {
	if len(g.paramNames) == 0 || len(g.paramNames) != len(g.ranges) {
		return Point{}, nil, fmt.Errorf("grid has %d names and %d ranges", len(g.paramNames), len(g.ranges))
	}
	for i, r := range g.ranges {
		if len(r) == 0 {
			return Point{}, nil, fmt.Errorf("parameter %s has an empty range", g.paramNames[i])
		}
	}

	params := g.Points()
	all := make([]Point, len(params))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, p := range params {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := eval(ctx, p)
			if errors.Is(err, context.Canceled) {
				return err
			}
			all[i] = Point{Params: p, Value: v, Err: err}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Point{}, all, err
	}

	best := Point{Value: math.Inf(1)}
	found := false
	for _, p := range all {
		if p.Err != nil || math.IsNaN(p.Value) {
			continue
		}
		if !found || p.Value < best.Value {
			best, found = p, true
		}
	}
	if !found {
		return Point{}, all, errors.New("every grid point failed")
	}
	return best, all, nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// ParseRange reads "name=v1,v2,..." or "name=lo:hi:n".
func ParseRange(s string) (string, []float64, error) {
	name, expr, ok := strings.Cut(s, "=")
	if !ok || name == "" || expr == "" {
		return "", nil, fmt.Errorf("range %q: want name=v1,v2 or name=lo:hi:n", s)
	}
	if parts := strings.Split(expr, ":"); len(parts) == 3 {
		lo, err1 := strconv.ParseFloat(parts[0], 64)
		hi, err2 := strconv.ParseFloat(parts[1], 64)
		n, err3 := strconv.Atoi(parts[2])
		if err := errors.Join(err1, err2, err3); err != nil {
			return "", nil, fmt.Errorf("range %q: %w", s, err)
		}
		if n < 1 {
			return "", nil, fmt.Errorf("range %q: count must be positive", s)
		}
		return name, Linspace(lo, hi, n), nil
	}
	var values []float64
	for _, f := range strings.Split(expr, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("range %q: %w", s, err)
		}
		values = append(values, v)
	}
	return name, values, nil
}

// Sorted orders points by value with failures last.
func Sorted(points []Point) []Point {
	out := append([]Point(nil), points...)
	sort.SliceStable(out, func(i, j int) bool {
		if (out[i].Err == nil) != (out[j].Err == nil) {
			return out[i].Err == nil
		}
		return out[i].Value < out[j].Value
	})
	return out
}
