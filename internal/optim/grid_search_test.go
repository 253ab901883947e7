package optim

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestPoints(t *testing.T) {
	g := NewGridSearch([]string{"a", "b"}, [][]float64{{1, 2}, {10, 20, 30}})
	points := g.Points()
	if len(points) != 6 {
		t.Fatalf("got %d points, want 6", len(points))
	}
	if points[0]["a"] != 1 || points[0]["b"] != 10 {
		t.Errorf("first point = %v", points[0])
	}
	if points[5]["a"] != 2 || points[5]["b"] != 30 {
		t.Errorf("last point = %v", points[5])
	}
}

func TestSearchFindsMinimum(t *testing.T) {
	g := NewGridSearch([]string{"x", "y"}, [][]float64{Linspace(-2, 2, 5), Linspace(-2, 2, 5)}).WithWorkers(3)
	best, all, err := g.Search(context.Background(), func(_ context.Context, p map[string]float64) (float64, error) {
		return (p["x"]-1)*(p["x"]-1) + (p["y"]+1)*(p["y"]+1), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 25 {
		t.Errorf("evaluated %d points, want 25", len(all))
	}
	if best.Params["x"] != 1 || best.Params["y"] != -1 || best.Value != 0 {
		t.Errorf("best = %+v", best)
	}
}

func TestSearchRecordsFailures(t *testing.T) {
	g := NewGridSearch([]string{"k"}, [][]float64{{1, 2, 3}})
	best, all, err := g.Search(context.Background(), func(_ context.Context, p map[string]float64) (float64, error) {
		if p["k"] == 1 {
			return 0, errors.New("diverged")
		}
		return p["k"], nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if best.Params["k"] != 2 {
		t.Errorf("best k = %v, want 2", best.Params["k"])
	}
	sorted := Sorted(all)
	if sorted[len(sorted)-1].Err == nil {
		t.Error("failed point should sort last")
	}

	_, _, err = g.Search(context.Background(), func(context.Context, map[string]float64) (float64, error) {
		return math.NaN(), errors.New("nope")
	})
	if err == nil {
		t.Error("expected error when every point fails")
	}
}

func TestSearchRejectsMalformedGrid(t *testing.T) {
	eval := func(context.Context, map[string]float64) (float64, error) { return 0, nil }
	if _, _, err := NewGridSearch(nil, nil).Search(context.Background(), eval); err == nil {
		t.Error("expected error for empty grid")
	}
	if _, _, err := NewGridSearch([]string{"a"}, [][]float64{{}}).Search(context.Background(), eval); err == nil {
		t.Error("expected error for empty range")
	}
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewGridSearch([]string{"a"}, [][]float64{{1, 2}})
	_, _, err := g.Search(ctx, func(context.Context, map[string]float64) (float64, error) { return 0, nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		in      string
		name    string
		values  []float64
		wantErr bool
	}{
		{"softbody.spring_k=10,20,30", "softbody.spring_k", []float64{10, 20, 30}, false},
		{"dt=0.001:0.003:3", "dt", []float64{0.001, 0.002, 0.003}, false},
		{"fluid.iterations=4", "fluid.iterations", []float64{4}, false},
		{"dt", "", nil, true},
		{"dt=a,b", "", nil, true},
		{"dt=0:1:0", "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, values, err := ParseRange(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if name != tt.name || len(values) != len(tt.values) {
				t.Fatalf("got %s %v", name, values)
			}
			for i := range values {
				if math.Abs(values[i]-tt.values[i]) > 1e-12 {
					t.Errorf("values[%d] = %v, want %v", i, values[i], tt.values[i])
				}
			}
		})
	}
}
