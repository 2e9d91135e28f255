// Package voice implements the per-resource playback lifecycle: volume,
// linear-ramp fades, and liveness tracking (spec.md §4.3, C3).
package voice

import "github.com/samgwise/555nm-soundscape/pkg/audio"

// defaultFadeSteps replaces fade_in_steps and fade_out_steps, each on its
// own, when left at 0 (spec.md §3 SoundResource default).
const defaultFadeSteps = 500

// Voice is one playing (or fading-out) audio source, owned exclusively by
// the event-loop goroutine (spec.md §5 — no lock is needed).
type Voice struct {
	Sink audio.Sink

	MinThreshold float32
	MaxThreshold float32
	Gain         float32

	Volume        float32 // clamped to [0,1] only when applied to the sink
	VolumeStep    float32 // signed per-tick delta; meaningless when VolumeUpdates == 0
	VolumeUpdates uint32  // remaining ramp ticks

	FadeInSteps  uint32
	FadeOutSteps uint32

	IsLive bool
}

// New creates a Voice bound to sink for the given resource thresholds/gain.
// fadeInSteps/fadeOutSteps of 0 are replaced with [defaultFadeSteps],
// matching spec.md §3's SoundResource defaults.
func New(sink audio.Sink, minThreshold, maxThreshold, gain float32, fadeInSteps, fadeOutSteps uint32) *Voice {
	if fadeInSteps == 0 {
		fadeInSteps = defaultFadeSteps
	}
	if fadeOutSteps == 0 {
		fadeOutSteps = defaultFadeSteps
	}
	return &Voice{
		Sink:         sink,
		MinThreshold: minThreshold,
		MaxThreshold: maxThreshold,
		Gain:         gain,
		FadeInSteps:  fadeInSteps,
		FadeOutSteps: fadeOutSteps,
	}
}

// VolumeFade starts a linear ramp from v's current volume to target over
// steps ticks. A steps value of 0 is treated as 1 (a single instant step),
// per spec.md §4.3.
func (v *Voice) VolumeFade(target float32, steps uint32) {
	if steps == 0 {
		steps = 1
	}
	v.VolumeUpdates = steps

	stepAbs := absf32(v.Volume-target) / float32(steps)
	if target > v.Volume {
		v.VolumeStep = stepAbs
	} else {
		v.VolumeStep = -stepAbs
	}
}

// Update applies one ramp tick: if a ramp is in progress it advances
// Volume by VolumeStep, decrements VolumeUpdates, and pushes the clamped
// volume to the sink. A no-op when no ramp is in progress.
func (v *Voice) Update() {
	if v.VolumeUpdates == 0 {
		return
	}
	v.Volume += v.VolumeStep
	v.VolumeUpdates--

	if v.Sink != nil {
		v.Sink.SetVolume(clamp01(v.Volume))
	}
}

// Done reports whether this voice's ramp has finished — the signal used to
// drop a retired voice from the engine's retired set.
func (v *Voice) Done() bool {
	return v.VolumeUpdates == 0
}

// Evaluate applies the activation transition table of spec.md §4.3 against
// the current curve value and schedule-live flag, starting a fade-in or
// fade-out ramp on transition. It returns true if a transition happened.
func (v *Voice) Evaluate(curveValue float32, scheduleLive bool, defaultLevel float32) bool {
	inBand := v.MinThreshold < curveValue && curveValue < v.MaxThreshold

	switch {
	case !v.IsLive && scheduleLive && inBand:
		v.IsLive = true
		v.VolumeFade(defaultLevel+v.Gain, v.FadeInSteps)
		return true
	case v.IsLive && scheduleLive && !inBand:
		v.IsLive = false
		v.VolumeFade(0, v.FadeOutSteps)
		return true
	case v.IsLive && !scheduleLive:
		v.IsLive = false
		v.VolumeFade(0, v.FadeOutSteps)
		return true
	default:
		return false
	}
}

func absf32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

func clamp01(f float32) float32 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
