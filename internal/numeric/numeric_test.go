package numeric

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/eprsim/internal/epr"
)

func TestExtremes(t *testing.T) {
	tests := []struct {
		name             string
		x                []float64
		min, max, absMax float64
	}{
		{"empty", nil, 0, 0, 0},
		{"single", []float64{2}, 2, 2, 2},
		{"positive dominates", []float64{-1, 3, 0.5}, -1, 3, 3},
		{"negative dominates", []float64{-4, 3, 0.5}, -4, 3, -4},
		{"tie goes negative", []float64{-2, 2}, -2, 2, -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Min(tt.x); got != tt.min {
				t.Errorf("Min = %v, want %v", got, tt.min)
			}
			if got := Max(tt.x); got != tt.max {
				t.Errorf("Max = %v, want %v", got, tt.max)
			}
			if got := AbsMax(tt.x); got != tt.absMax {
				t.Errorf("AbsMax = %v, want %v", got, tt.absMax)
			}
		})
	}
}

func TestScaleFactor(t *testing.T) {
	exp := []float64{2, -4, 6}
	teor := []float64{1, 2, -3}

	// (2*1 + 4*2 + 6*3) / (1 + 4 + 9)
	got, err := ScaleFactor(exp, teor)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-2.0) > 1e-12 {
		t.Errorf("expected 2, got %v", got)
	}

	got, err = ScaleFactor(exp, []float64{0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("zero theoretical spectrum should give norm 0, got %v", got)
	}
}

func TestLengthChecks(t *testing.T) {
	cases := [][2][]float64{
		{{1, 2}, {1}},
		{{}, {}},
		{nil, {1}},
	}
	for _, c := range cases {
		if _, err := ScaleFactor(c[0], c[1]); !errors.Is(err, epr.ErrDimensionMismatch) {
			t.Errorf("ScaleFactor(%v, %v): expected dimension mismatch, got %v", c[0], c[1], err)
		}
		if _, err := RMS(c[0], c[1]); !errors.Is(err, epr.ErrDimensionMismatch) {
			t.Errorf("RMS(%v, %v): expected dimension mismatch, got %v", c[0], c[1], err)
		}
		if _, err := Evaluate(c[0], c[1]); !errors.Is(err, epr.ErrDimensionMismatch) {
			t.Errorf("Evaluate(%v, %v): expected dimension mismatch, got %v", c[0], c[1], err)
		}
	}
}

func TestRMS(t *testing.T) {
	got, err := RMS([]float64{1, 1, 1, 1}, []float64{0, 2, 0, 2})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-1) > 1e-12 {
		t.Errorf("expected 1, got %v", got)
	}
}

func TestEvaluate(t *testing.T) {
	teor := []float64{0.5, -1, 0.25}
	exp := []float64{1, -2, 0.5}

	s, err := Evaluate(exp, teor)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(s.Norm-2) > 1e-12 {
		t.Errorf("norm: expected 2, got %v", s.Norm)
	}
	if s.Sigma > 1e-12 {
		t.Errorf("exact multiple should fit perfectly, sigma %v", s.Sigma)
	}
	if teor[0] != 0.5 {
		t.Error("Evaluate must not modify its input")
	}

	// sign-inverted data: norm stays positive, residual is large
	s, err = Evaluate([]float64{-1, 2, -0.5}, teor)
	if err != nil {
		t.Fatal(err)
	}
	if s.Norm <= 0 || s.Sigma < 1 {
		t.Errorf("unexpected score for inverted data: %+v", s)
	}
}
