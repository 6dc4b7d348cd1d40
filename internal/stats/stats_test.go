package stats

import (
	"math"
	"testing"
)

func TestEmptyInputsReturnZero(t *testing.T) {
	var empty []float64
	checks := map[string]float64{
		"Mean":                   Mean(empty),
		"PopulationStdDev":       PopulationStdDev(empty),
		"CoefficientOfVariation": CoefficientOfVariation(empty),
		"Percentile":             Percentile(empty, 50),
		"Min":                    Min(empty),
		"Max":                    Max(empty),
		"Sum":                    Sum(empty),
	}
	for name, got := range checks {
		if got != 0 {
			t.Errorf("%s(empty) = %v, want 0", name, got)
		}
	}
}

func TestPercentileNearestRank(t *testing.T) {
	values := []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}

	cases := []struct {
		p    float64
		want float64
	}{
		{90, 10},
		{50, 6},
		{0, 1},
		{100, 10},
		{-5, 1},
		{250, 10},
	}
	for _, tc := range cases {
		if got := Percentile(values, tc.p); got != tc.want {
			t.Errorf("Percentile(p=%v) = %v, want %v", tc.p, got, tc.want)
		}
	}

	if values[0] != 10 {
		t.Fatalf("Percentile mutated its input")
	}
}

func TestPopulationStdDevAndCV(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	if got := Mean(values); got != 5 {
		t.Fatalf("Mean = %v, want 5", got)
	}
	if got := PopulationStdDev(values); got != 2 {
		t.Fatalf("PopulationStdDev = %v, want 2", got)
	}
	if got := CoefficientOfVariation(values); got != 40 {
		t.Fatalf("CoefficientOfVariation = %v, want 40", got)
	}
	if got := CoefficientOfVariation([]float64{0, 0, 0}); got != 0 {
		t.Fatalf("CV with zero mean = %v, want 0", got)
	}
}

func TestSafePercentGuardsZeroDenominator(t *testing.T) {
	if got := SafePercent(5, 0); got != 0 {
		t.Fatalf("SafePercent(5, 0) = %v, want 0", got)
	}
	if got := SafePercent(0, 0); got != 0 || math.IsNaN(got) {
		t.Fatalf("SafePercent(0, 0) = %v, want 0", got)
	}
	if got := SafePercent(1, 4); got != 25 {
		t.Fatalf("SafePercent(1, 4) = %v, want 25", got)
	}
}

func TestRound2(t *testing.T) {
	cases := map[float64]float64{
		28.888888: 28.89,
		1.005:     1.01,
		-2.345:    -2.35,
		50:        50,
	}
	for in, want := range cases {
		if got := Round2(in); got != want {
			t.Errorf("Round2(%v) = %v, want %v", in, got, want)
		}
	}
	if got := Round2(math.NaN()); got != 0 {
		t.Errorf("Round2(NaN) = %v, want 0", got)
	}
}
