package voice_test

import (
	"math"
	"testing"

	"github.com/samgwise/555nm-soundscape/internal/voice"
	"github.com/samgwise/555nm-soundscape/pkg/audio/mock"
)

func approxEqual(a, b, eps float32) bool {
	return float32(math.Abs(float64(a-b))) < eps
}

// TestVoiceScenario implements spec.md scenario S3: min=0.2, max=0.8,
// fade_in_steps=5, fade_out_steps=5, a curve value of 0.5 held for 5 ticks
// then a value of 0.9.
func TestVoiceScenario(t *testing.T) {
	sink := &mock.Sink{}
	v := voice.New(sink, 0.2, 0.8, 0, 5, 5)

	if v.IsLive {
		t.Fatal("voice starts live")
	}

	v.Evaluate(0.5, true, 1.0)
	if !v.IsLive {
		t.Fatal("expected voice to go live when curve enters band")
	}
	for i := 0; i < 5; i++ {
		v.Update()
	}
	if !approxEqual(v.Volume, 1.0, 1e-4) {
		t.Errorf("Volume after fade-in = %v, want 1.0", v.Volume)
	}
	if got := sink.LastVolume(); !approxEqual(got, 1.0, 1e-4) {
		t.Errorf("sink LastVolume = %v, want 1.0", got)
	}

	transitioned := v.Evaluate(0.9, true, 1.0)
	if !transitioned || v.IsLive {
		t.Fatal("expected voice to drop live when curve exits band")
	}
	for i := 0; i < 5; i++ {
		v.Update()
	}
	if !approxEqual(v.Volume, 0, 1e-4) {
		t.Errorf("Volume after fade-out = %v, want 0", v.Volume)
	}
}

// TestVoiceRampClosure implements testable property 3: a ramp always
// terminates exactly at its target after its configured step count.
func TestVoiceRampClosure(t *testing.T) {
	sink := &mock.Sink{}
	v := voice.New(sink, 0, 1, 0, 7, 7)
	v.VolumeFade(0.42, 7)
	for i := 0; i < 7; i++ {
		if v.Done() {
			t.Fatalf("ramp reported done early at tick %d", i)
		}
		v.Update()
	}
	if !v.Done() {
		t.Fatal("ramp not done after configured step count")
	}
	if !approxEqual(v.Volume, 0.42, 1e-4) {
		t.Errorf("final Volume = %v, want 0.42", v.Volume)
	}
}

func TestVoiceFadeOutOnScheduleEnd(t *testing.T) {
	sink := &mock.Sink{}
	v := voice.New(sink, 0, 1, 0, 3, 3)
	v.Evaluate(0.5, true, 1.0)
	for i := 0; i < 3; i++ {
		v.Update()
	}
	if !v.IsLive {
		t.Fatal("expected voice live")
	}

	if !v.Evaluate(0.5, false, 1.0) {
		t.Fatal("expected schedule-end transition")
	}
	if v.IsLive {
		t.Fatal("expected voice to drop live when schedule ends")
	}
}

func TestVoiceDefaultFadeSteps(t *testing.T) {
	v := voice.New(&mock.Sink{}, 0, 1, 0, 0, 0)
	if v.FadeInSteps != 500 || v.FadeOutSteps != 500 {
		t.Fatalf("default fade steps = (%d, %d), want (500, 500)", v.FadeInSteps, v.FadeOutSteps)
	}
}

func TestVoiceNoTransitionWhenAlreadySettled(t *testing.T) {
	v := voice.New(&mock.Sink{}, 0.2, 0.8, 0, 5, 5)
	if v.Evaluate(0.9, true, 1.0) {
		t.Fatal("expected no transition: voice not live, curve out of band")
	}
	if v.Evaluate(0.5, false, 1.0) {
		t.Fatal("expected no transition: voice not live, schedule not live")
	}
}
