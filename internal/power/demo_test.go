package power

import (
	"math/rand"
	"testing"
	"time"
)

// fixedClock returns a clock pinned to the given hour of day.
func fixedClock(hour int) func() time.Time {
	return func() time.Time {
		return time.Date(2026, 3, 1, hour, 30, 0, 0, time.UTC)
	}
}

func TestGenerator_Reading_Shape(t *testing.T) {
	gen := NewGeneratorWithSource(rand.NewSource(1), fixedClock(12))

	r := gen.Reading()

	if r.TS != fixedClock(12)().Unix() {
		t.Errorf("TS = %d, want clock time", r.TS)
	}
	if r.PhaseA == nil || r.PhaseB == nil {
		t.Fatal("demo readings must populate both phases")
	}

	// Off-peak total stays inside base load ± variance.
	if r.Total < demoBaseLoad-demoBaseVariance || r.Total > demoBaseLoad+demoBaseVariance {
		t.Errorf("off-peak Total = %v, want within %v±%v", r.Total, demoBaseLoad, demoBaseVariance)
	}

	// Phases track the fixed split within the noise bound.
	if diff := *r.PhaseA - r.Total*demoPhaseASplit; diff < -demoPhaseNoise || diff > demoPhaseNoise {
		t.Errorf("PhaseA = %v, want %v ± %v", *r.PhaseA, r.Total*demoPhaseASplit, demoPhaseNoise)
	}
	if diff := *r.PhaseB - r.Total*demoPhaseBSplit; diff < -demoPhaseNoise || diff > demoPhaseNoise {
		t.Errorf("PhaseB = %v, want %v ± %v", *r.PhaseB, r.Total*demoPhaseBSplit, demoPhaseNoise)
	}

	// All four fixed circuits are present on every tick.
	for _, name := range []string{"HVAC", "Kitchen", "Living Room", "Office"} {
		if _, ok := r.Circuits[name]; !ok {
			t.Errorf("circuit %q missing", name)
		}
	}
	if len(r.Circuits) != 4 {
		t.Errorf("circuit count = %d, want 4", len(r.Circuits))
	}
}

func TestGenerator_PeakHoursRaiseLoad(t *testing.T) {
	// Single samples overlap at the band edges (off-peak max 900, peak
	// min 900), so compare means over many samples instead.
	samples := 500

	offPeak := NewGeneratorWithSource(rand.NewSource(42), fixedClock(12))
	peak := NewGeneratorWithSource(rand.NewSource(42), fixedClock(18))

	var offSum, peakSum float64
	for i := 0; i < samples; i++ {
		offSum += offPeak.Reading().Total
		peakSum += peak.Reading().Total
	}

	offMean := offSum / float64(samples)
	peakMean := peakSum / float64(samples)

	if peakMean <= offMean+demoPeakExtraMin/2 {
		t.Errorf("peak mean %v not clearly above off-peak mean %v", peakMean, offMean)
	}
}

func TestGenerator_HVACIdlesSometimes(t *testing.T) {
	gen := NewGeneratorWithSource(rand.NewSource(7), fixedClock(12))

	idle := 0
	samples := 1000
	for i := 0; i < samples; i++ {
		if gen.Reading().Circuits["HVAC"] == 0 {
			idle++
		}
	}

	// p=0.3 with 1000 samples; a wide band avoids flakiness.
	if idle < 200 || idle > 400 {
		t.Errorf("HVAC idle count = %d/%d, want roughly 300", idle, samples)
	}
}

func TestGenerator_OtherCircuitsNeverIdle(t *testing.T) {
	gen := NewGeneratorWithSource(rand.NewSource(3), fixedClock(12))

	for i := 0; i < 100; i++ {
		r := gen.Reading()
		for _, name := range []string{"Kitchen", "Living Room", "Office"} {
			if r.Circuits[name] <= 0 {
				t.Fatalf("circuit %q = %v, want > 0", name, r.Circuits[name])
			}
		}
	}
}
