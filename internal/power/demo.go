package power

import (
	"math/rand"
	"time"
)

// Demo generation constants. The shape is deterministic (diurnal peaks,
// fixed circuit names, fixed phase split); only the magnitudes are sampled.
const (
	demoBaseLoad     = 800.0
	demoBaseVariance = 100.0

	// Peak windows in local hours, inclusive: breakfast and evening.
	demoMorningPeakStart = 6
	demoMorningPeakEnd   = 9
	demoEveningPeakStart = 17
	demoEveningPeakEnd   = 21

	demoPeakExtraMin = 200.0
	demoPeakExtraMax = 500.0

	// Split-phase distribution of the total, plus independent noise.
	demoPhaseASplit = 0.55
	demoPhaseBSplit = 0.45
	demoPhaseNoise  = 50.0

	// Probability that the HVAC circuit is idle on a given tick.
	demoHVACIdleProbability = 0.3
)

// Generator produces synthetic but plausible readings for demo mode.
//
// Generated readings follow the same store/bump/publish path as live ones;
// only the emitted demo flag distinguishes them.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator creates a demo generator seeded from the current time.
func NewGenerator() *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
}

// NewGeneratorWithSource creates a demo generator with an explicit random
// source and clock. Used by tests to make the output reproducible.
//
// Parameters:
//   - src: Random source for all sampled magnitudes
//   - now: Clock used for the reading timestamp and peak-window check
//
// Returns:
//   - *Generator: Generator ready for use
func NewGeneratorWithSource(src rand.Source, now func() time.Time) *Generator {
	return &Generator{
		rng: rand.New(src),
		now: now,
	}
}

// Reading generates one synthetic reading.
//
// Total is the base load sampled around 800W, raised by an extra increment
// during the morning and evening peak windows. Phases are fixed fractions
// of the total (0.55/0.45) with independent noise, so they do not sum
// exactly to the total - real split-phase meters don't either. Four fixed
// circuits are always present; HVAC is zeroed with a fixed probability to
// simulate the compressor cycling off.
//
// Returns:
//   - Reading: Synthetic reading with both phases set and four circuits
func (g *Generator) Reading() Reading {
	now := g.now()
	total := demoBaseLoad + g.uniform(-demoBaseVariance, demoBaseVariance)

	hour := now.Hour()
	if (hour >= demoMorningPeakStart && hour <= demoMorningPeakEnd) ||
		(hour >= demoEveningPeakStart && hour <= demoEveningPeakEnd) {
		total += g.uniform(demoPeakExtraMin, demoPeakExtraMax)
	}

	phaseA := total*demoPhaseASplit + g.uniform(-demoPhaseNoise, demoPhaseNoise)
	phaseB := total*demoPhaseBSplit + g.uniform(-demoPhaseNoise, demoPhaseNoise)

	hvac := g.uniform(100, 400)
	if g.rng.Float64() <= demoHVACIdleProbability {
		hvac = 0
	}

	return Reading{
		TS:     now.Unix(),
		Total:  total,
		PhaseA: &phaseA,
		PhaseB: &phaseB,
		Circuits: map[string]float64{
			"HVAC":        hvac,
			"Kitchen":     g.uniform(50, 200),
			"Living Room": g.uniform(20, 80),
			"Office":      g.uniform(30, 150),
		},
	}
}

// uniform samples uniformly from [min, max).
func (g *Generator) uniform(min, max float64) float64 {
	return min + g.rng.Float64()*(max-min)
}
