package curve

// Phase is the cyclic per-scene stepper over a [BSpline], advanced once per
// tick (spec.md §3 StructurePhase, §4.4 C4).
type Phase struct {
	Spline   *BSpline
	Duration float32 // scene cycle_duration_ms, as float32
	StepT    float32 // Spline's upper knot bound / Duration
	Step     float32 // current phase position in [0, Duration]
}

// NewPhase builds a Phase for spline over a cycle of durationMs
// milliseconds.
func NewPhase(spline *BSpline, durationMs uint64) Phase {
	duration := float32(durationMs)
	_, upper := spline.KnotDomain()
	var stepT float32
	if duration != 0 {
		stepT = upper / duration
	}
	return Phase{Spline: spline, Duration: duration, StepT: stepT, Step: 0}
}

// Advance steps the phase forward by metroStepMs, wrapping to zero if it
// would exceed Duration.
func (p *Phase) Advance(metroStepMs uint64) {
	p.Step += float32(metroStepMs)
	if p.Step > p.Duration {
		p.Step = 0
	}
}

// Value returns the spline's value at the current phase position.
func (p *Phase) Value() float32 {
	return p.Spline.Point(p.StepT * p.Step)
}
