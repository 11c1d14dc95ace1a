package score

import (
	"math"
	"testing"
)

func TestSeverityWeight(t *testing.T) {
	if SeverityWeight("critical") <= SeverityWeight("significant") {
		t.Error("critical must outweigh significant")
	}
	if SeverityWeight("significant") <= SeverityWeight("minor") {
		t.Error("significant must outweigh minor")
	}
	if SeverityWeight("bogus") != SeverityWeight("minor") {
		t.Error("unknown severity should default to minor weight")
	}
}

func TestComposite_Ordering(t *testing.T) {
	strong := Composite(0.8, "critical", "daily", "stated")
	weak := Composite(0.8, "minor", "rare", "none")
	if strong <= weak {
		t.Errorf("identical raw score with stronger evidence must rank higher: %f vs %f", strong, weak)
	}
}

func TestComposite_Clamped(t *testing.T) {
	if c := Composite(1.0, "critical", "daily", "stated"); c > 1.0 {
		t.Errorf("composite above 1.0: %f", c)
	}
	if c := Composite(0.0, "minor", "rare", "none"); c < 0.0 {
		t.Errorf("composite below 0.0: %f", c)
	}
}

func TestIndex(t *testing.T) {
	if Index(nil) != 0.0 {
		t.Error("empty index should be zero")
	}

	// One sharp pain among weak ones keeps the index high.
	withSpike := Index([]float64{0.9, 0.1, 0.1})
	flat := Index([]float64{0.37, 0.37, 0.36})
	if withSpike <= flat {
		t.Errorf("a single strong signal should dominate: %f vs %f", withSpike, flat)
	}

	uniform := Index([]float64{0.6, 0.6})
	if math.Abs(uniform-0.6) > 1e-9 {
		t.Errorf("uniform scores should keep their value, got %f", uniform)
	}
}

func TestRank(t *testing.T) {
	got := Rank([]float64{0.2, 0.9, 0.5})
	want := []int{1, 2, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}

	// Stable on ties.
	tied := Rank([]float64{0.5, 0.5})
	if tied[0] != 0 || tied[1] != 1 {
		t.Errorf("ties should keep original order, got %v", tied)
	}
}
