// Package numeric holds the array helpers shared by synthesis, fitting and
// display: extremes, least-squares amplitude scaling and the RMS residual.
package numeric

import (
	"fmt"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/eprsim/internal/epr"
)

// Max returns the largest sample, or 0 for an empty slice.
func Max(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Max(x)
}

// Min returns the smallest sample, or 0 for an empty slice.
func Min(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Min(x)
}

// AbsMax returns the sample of largest magnitude with its sign kept.
// Ties go to the negative extreme.
func AbsMax(x []float64) float64 {
	hi, lo := Max(x), Min(x)
	if hi > -lo {
		return hi
	}
	return lo
}

func checkLengths(exp, teor []float64) error {
	if len(exp) == 0 || len(exp) != len(teor) {
		return fmt.Errorf("experimental has %d samples, theoretical %d: %w",
			len(exp), len(teor), epr.ErrDimensionMismatch)
	}
	return nil
}

// ScaleFactor is sum(|exp|*|teor|) / sum(teor^2), or 0 when teor is all zero.
func ScaleFactor(exp, teor []float64) (float64, error) {
	if err := checkLengths(exp, teor); err != nil {
		return 0, err
	}
	den := vecmath.DotProduct(teor, teor)
	if den == 0 {
		return 0, nil
	}
	var num float64
	for i, e := range exp {
		num += math.Abs(e) * math.Abs(teor[i])
	}
	return num / den, nil
}

// RMS returns sqrt(sum((exp-fit)^2) / n).
func RMS(exp, fit []float64) (float64, error) {
	if err := checkLengths(exp, fit); err != nil {
		return 0, err
	}
	return floats.Distance(exp, fit, 2) / math.Sqrt(float64(len(exp))), nil
}

// Score is the outcome of comparing one theoretical spectrum with the
// experimental one.
type Score struct {
	Norm   float64
	Sigma  float64
	Scaled []float64
}

// Evaluate scales teor onto exp and returns the residual of the scaled curve.
// teor is not modified.
func Evaluate(exp, teor []float64) (Score, error) {
	norm, err := ScaleFactor(exp, teor)
	if err != nil {
		return Score{}, err
	}
	scaled := make([]float64, len(teor))
	vecmath.ScaleBlock(scaled, teor, norm)

	sigma, err := RMS(exp, scaled)
	if err != nil {
		return Score{}, err
	}
	return Score{Norm: norm, Sigma: sigma, Scaled: scaled}, nil
}
