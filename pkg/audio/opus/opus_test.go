package opus

import (
	"bytes"
	"encoding/binary"
	"os"
	"testing"
	"time"

	"github.com/samgwise/555nm-soundscape/pkg/audio"
)

func writePCMFile(t *testing.T, samples []int16) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "resource-*.pcm")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	if _, err := f.Write(buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return f.Name()
}

func TestDecodeFileRoundTrips(t *testing.T) {
	samples := make([]int16, frameSize*2)
	for i := range samples {
		samples[i] = int16(i)
	}
	path := writePCMFile(t, samples)

	b := New(&bytes.Buffer{}, []audio.Position{{0, 0, 0}}, nil)
	src, err := b.Decode(path)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	s, ok := src.(*source)
	if !ok {
		t.Fatalf("Decode returned %T, want *source", src)
	}
	if len(s.pcm) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(s.pcm), len(samples))
	}
}

func TestCursorLoopsWhenMarked(t *testing.T) {
	samples := make([]int16, frameSize/2)
	for i := range samples {
		samples[i] = 100
	}
	src := &source{pcm: samples, loop: true}
	c := newCursor(src)

	if _, ok := c.nextFrame(); !ok {
		t.Fatal("first frame should succeed")
	}
	if _, ok := c.nextFrame(); !ok {
		t.Fatal("looping source should keep producing frames")
	}
}

func TestCursorStopsWithoutLoop(t *testing.T) {
	src := &source{pcm: make([]int16, frameSize/2)}
	c := newCursor(src)
	c.nextFrame()
	if _, ok := c.nextFrame(); ok {
		t.Fatal("non-looping source should exhaust after its samples are consumed")
	}
}

func TestCursorAppliesFadeIn(t *testing.T) {
	samples := make([]int16, frameSize)
	for i := range samples {
		samples[i] = 1000
	}
	src := &source{pcm: samples, fadeInFrames: 4}
	c := newCursor(src)

	frame, _ := c.nextFrame()
	if frame[0] != 0 {
		t.Errorf("first faded frame sample = %d, want 0 (full silence at t=0)", frame[0])
	}
}

func TestSpeakerGainIsSymmetricAndBounded(t *testing.T) {
	a := speakerGain(audio.Position{0, 0, 0}, audio.Position{0, 0, 0})
	if a != 1 {
		t.Errorf("coincident gain = %v, want 1", a)
	}
	far := speakerGain(audio.Position{10, 0, 0}, audio.Position{0, 0, 0})
	if far <= 0 || far >= 1 {
		t.Errorf("distant gain = %v, want in (0, 1)", far)
	}
	if back := speakerGain(audio.Position{0, 0, 0}, audio.Position{10, 0, 0}); back != far {
		t.Errorf("swapped gain = %v, want %v (symmetric)", back, far)
	}
}

func TestBackendOpenDeviceAndMixOnce(t *testing.T) {
	var out bytes.Buffer
	speakers := []audio.Position{{0, 0, 0}, {1, 0, 0}}
	b := New(&out, speakers, nil)

	devAny, err := b.OpenDevice()
	if err != nil {
		t.Fatalf("OpenDevice: %v", err)
	}
	dev := devAny.(*Device)
	defer dev.Close()

	sinkAny, err := b.NewVoice(dev, audio.Position{0, 0, 0}, speakers)
	if err != nil {
		t.Fatalf("NewVoice: %v", err)
	}
	sink := sinkAny.(*Sink)
	sink.SetVolume(1)
	sink.Play()

	samples := make([]int16, frameSize)
	for i := range samples {
		samples[i] = 500
	}
	sink.Append(&source{pcm: samples, loop: true})

	dev.mixOnce()
	if out.Len() == 0 {
		t.Fatal("expected an encoded frame to be written")
	}
}

func TestFadeDurationFrames(t *testing.T) {
	if got := fadeDurationFrames(100 * time.Millisecond); got != 5 {
		t.Errorf("fadeDurationFrames(100ms) = %d, want 5", got)
	}
}
