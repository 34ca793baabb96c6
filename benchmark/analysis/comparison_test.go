package analysis

import (
	"strings"
	"testing"

	"github.com/discochess/qrcache/benchmark/simulation"
)

func aggregate(name string, rates ...float64) *simulation.AggregateResult {
	return &simulation.AggregateResult{ConfigName: name, Trials: len(rates), HitRates: rates}
}

func TestCompareConfigs(t *testing.T) {
	small := aggregate("10:1MiB", 31, 33, 30, 32, 34, 29, 31, 33)
	large := aggregate("100:50MiB", 71, 73, 70, 72, 74, 69, 71, 73)

	comp := CompareConfigs(small, large, 1000, 0.95)

	if comp.Winner != "100:50MiB" {
		t.Errorf("Winner = %s, want 100:50MiB", comp.Winner)
	}
	if !comp.WinnerConfident {
		t.Errorf("WinnerConfident = false, want true (p=%f)", comp.MannWhitney.PValue)
	}
	if comp.EffectSize.Interpretation != "large" {
		t.Errorf("Interpretation = %s, want large", comp.EffectSize.Interpretation)
	}
	if comp.BootstrapCI.UpperBound >= 0 {
		t.Errorf("CI upper bound = %f, want < 0", comp.BootstrapCI.UpperBound)
	}
	if !strings.Contains(comp.Summary(), "statistically significant") {
		t.Errorf("Summary() = %q, want significance note", comp.Summary())
	}
}

func TestCompareConfigs_Tie(t *testing.T) {
	a := aggregate("a", 50, 50, 50)
	b := aggregate("b", 50, 50, 50)

	comp := CompareConfigs(a, b, 100, 0.95)
	if comp.Winner != "tie" || comp.WinnerConfident {
		t.Errorf("Winner, Confident = %s, %v, want tie, false", comp.Winner, comp.WinnerConfident)
	}
}

func TestCompareAll(t *testing.T) {
	results := map[string]*simulation.AggregateResult{
		"base": aggregate("base", 40, 41, 42),
		"mid":  aggregate("mid", 50, 51, 52),
		"big":  aggregate("big", 60, 61, 62),
	}
	order := []string{"base", "mid", "big"}

	multi := CompareAll(results, order, "base", 100, 0.95)
	if multi == nil {
		t.Fatal("CompareAll() = nil")
	}
	if len(multi.Comparisons) != 2 {
		t.Fatalf("len(Comparisons) = %d, want 2", len(multi.Comparisons))
	}
	if multi.Comparisons[0].Config2 != "mid" || multi.Comparisons[1].Config2 != "big" {
		t.Errorf("comparison order = %s, %s, want mid, big",
			multi.Comparisons[0].Config2, multi.Comparisons[1].Config2)
	}

	if CompareAll(results, order, "missing", 100, 0.95) != nil {
		t.Error("CompareAll() with unknown baseline should be nil")
	}
}
