package optim

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/san-kum/eprsim/internal/epr"
	"github.com/san-kum/eprsim/internal/fit"
	"github.com/san-kum/eprsim/internal/synth"
)

var settings = synth.Settings{Sweep: 50, Points: 256}

func doublet(lwa, hpf float64) epr.Radical {
	return epr.NewRadical(lwa, 80, 100, 0, epr.NewNucleus(0.5, hpf, 1))
}

func newSession(t *testing.T, withData bool, start epr.Radical) *fit.Session {
	t.Helper()
	s, err := fit.NewSession(settings, fit.WithRadicals(start))
	if err != nil {
		t.Fatal(err)
	}
	if withData {
		data, err := s.Synthesizer().Synthesize([]epr.Radical{doublet(1.0, 6)})
		if err != nil {
			t.Fatal(err)
		}
		if err := s.SetExperimental(data); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestGridSearchFindsTarget(t *testing.T) {
	s := newSession(t, true, doublet(0.5, 4))
	g, err := NewGridSearch(
		[]string{"0.lwa.val", "0.0.hpf.val"},
		[][]float64{{0.5, 0.75, 1.0, 1.25}, {5, 6, 7}},
	)
	if err != nil {
		t.Fatal(err)
	}
	if g.Size() != 12 {
		t.Errorf("size = %d, want 12", g.Size())
	}

	best, err := g.Search(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]float64{"0.lwa.val": 1.0, "0.0.hpf.val": 6}
	if !reflect.DeepEqual(best.Params, want) {
		t.Errorf("params = %v, want %v", best.Params, want)
	}
	if best.Sigma > 1e-9 {
		t.Errorf("sigma = %v", best.Sigma)
	}
	if math.Abs(best.Norm-1) > 1e-9 {
		t.Errorf("norm = %v", best.Norm)
	}
	if best.Evaluated != 12 || best.Skipped != 0 {
		t.Errorf("evaluated %d skipped %d", best.Evaluated, best.Skipped)
	}
	if best.Radicals[0].Lwa.Val != 1.0 || best.Radicals[0].Nucs[0].Hpf.Val != 6 {
		t.Errorf("radicals = %+v", best.Radicals)
	}

	// the session is left alone
	if got := s.Radicals()[0].Lwa.Val; got != 0.5 {
		t.Errorf("session lwa = %v", got)
	}
	if s.Status().Iterations != 0 {
		t.Error("search counted fit iterations")
	}
}

func TestGridSearchSkipsOversizedPatterns(t *testing.T) {
	s := newSession(t, true, doublet(1.0, 6))
	g, err := NewGridSearch([]string{"0.0.hpf.val"}, [][]float64{{6, 60}})
	if err != nil {
		t.Fatal(err)
	}
	best, err := g.Search(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}
	if best.Evaluated != 1 || best.Skipped != 1 {
		t.Errorf("evaluated %d skipped %d", best.Evaluated, best.Skipped)
	}

	g, _ = NewGridSearch([]string{"0.0.hpf.val"}, [][]float64{{60}})
	if _, err := g.Search(context.Background(), s); !errors.Is(err, epr.ErrDimensionMismatch) {
		t.Errorf("err = %v, want dimension mismatch", err)
	}
}

func TestGridSearchErrors(t *testing.T) {
	tests := []struct {
		name    string
		targets []string
		ranges  [][]float64
		want    error
	}{
		{"unknown field", []string{"0.width.val"}, [][]float64{{1}}, epr.ErrUnknownField},
		{"malformed", []string{"lwa"}, [][]float64{{1}}, epr.ErrUnknownField},
		{"negative nucleus", []string{"0.-1.hpf.val"}, [][]float64{{1}}, epr.ErrIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGridSearch(tt.targets, tt.ranges)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := NewGridSearch([]string{"0.lwa.val"}, nil); err == nil {
		t.Error("expected error for missing value list")
	}
	if _, err := NewGridSearch([]string{"0.lwa.val"}, [][]float64{{}}); err == nil {
		t.Error("expected error for empty value list")
	}

	s := newSession(t, true, doublet(1.0, 6))
	g, _ := NewGridSearch([]string{"3.lwa.val"}, [][]float64{{1}})
	if _, err := g.Search(context.Background(), s); !errors.Is(err, epr.ErrIndexOutOfRange) {
		t.Errorf("err = %v, want index out of range", err)
	}
	g, _ = NewGridSearch([]string{"0.2.hpf.val"}, [][]float64{{1}})
	if _, err := g.Search(context.Background(), s); !errors.Is(err, epr.ErrIndexOutOfRange) {
		t.Errorf("err = %v, want index out of range", err)
	}

	g, _ = NewGridSearch([]string{"0.lwa.val"}, [][]float64{{1}})
	if _, err := g.Search(context.Background(), newSession(t, false, doublet(1.0, 6))); !errors.Is(err, epr.ErrDimensionMismatch) {
		t.Errorf("err = %v, want dimension mismatch", err)
	}
}

func TestGridSearchCancel(t *testing.T) {
	s := newSession(t, true, doublet(1.0, 6))
	g, _ := NewGridSearch([]string{"0.lwa.val"}, [][]float64{{0.5, 1, 1.5}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Search(ctx, s); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		in      string
		want    []float64
		wantErr bool
	}{
		{"1,2.5, 4", []float64{1, 2.5, 4}, false},
		{"0:1:0.25", []float64{0, 0.25, 0.5, 0.75, 1}, false},
		{"5:5:1", []float64{5}, false},
		{"0:1:0", nil, true},
		{"1:0:0.5", nil, true},
		{"0:1", nil, true},
		{"a,b", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRange(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
