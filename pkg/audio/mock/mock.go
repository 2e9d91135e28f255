// Package mock provides an in-memory test double for [audio.Backend], used
// by engine tests that need a working audio collaborator without touching
// real hardware or codecs.
package mock

import (
	"sync"
	"time"

	"github.com/samgwise/555nm-soundscape/pkg/audio"
)

// Backend is a mock implementation of [audio.Backend]. Zero value is ready
// to use. All methods are safe for concurrent use.
type Backend struct {
	mu sync.Mutex

	// OpenDeviceErr, if non-nil, is returned by OpenDevice instead of a
	// device handle.
	OpenDeviceErr error

	// NewVoiceErr, if non-nil, is returned by NewVoice instead of a Sink.
	NewVoiceErr error

	// DecodeErr, if non-nil, is returned by Decode instead of a source.
	DecodeErr error

	// Voices records every Sink created by NewVoice, in creation order.
	Voices []*Sink

	// Decoded records every path passed to Decode.
	Decoded []string
}

// OpenDevice returns a sentinel device handle, or OpenDeviceErr if set.
func (b *Backend) OpenDevice() (audio.Device, error) {
	if b.OpenDeviceErr != nil {
		return nil, b.OpenDeviceErr
	}
	return "mock-device", nil
}

// NewVoice creates and records a new mock [Sink].
func (b *Backend) NewVoice(_ audio.Device, position audio.Position, speakers []audio.Position) (audio.Sink, error) {
	if b.NewVoiceErr != nil {
		return nil, b.NewVoiceErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &Sink{Position: position, Speakers: append([]audio.Position(nil), speakers...)}
	b.Voices = append(b.Voices, s)
	return s, nil
}

// Decode records path and returns it as an opaque [audio.Source].
func (b *Backend) Decode(path string) (audio.Source, error) {
	if b.DecodeErr != nil {
		return nil, b.DecodeErr
	}
	b.mu.Lock()
	b.Decoded = append(b.Decoded, path)
	b.mu.Unlock()
	return sourceTag{kind: "decode", path: path}, nil
}

// sourceTag is the opaque Source value this mock produces; combinators
// below wrap it to record the combinator chain applied, which tests can
// inspect if needed.
type sourceTag struct {
	kind string
	path string
	next audio.Source
}

// Buffered wraps src recording that buffering was requested.
func (b *Backend) Buffered(src audio.Source) audio.Source {
	return sourceTag{kind: "buffered", next: src}
}

// RepeatInfinite wraps src recording that infinite repeat was requested.
func (b *Backend) RepeatInfinite(src audio.Source) audio.Source {
	return sourceTag{kind: "repeat", next: src}
}

// FadeIn wraps src recording the fade-in duration.
func (b *Backend) FadeIn(src audio.Source, _ time.Duration) audio.Source {
	return sourceTag{kind: "fade_in", next: src}
}

// Reverb wraps src recording that reverb was requested.
func (b *Backend) Reverb(src audio.Source, _ time.Duration, _ float32) audio.Source {
	return sourceTag{kind: "reverb", next: src}
}

// Sink is a mock [audio.Sink] that records every call made to it.
type Sink struct {
	mu sync.Mutex

	Position audio.Position
	Speakers []audio.Position

	Appended []audio.Source
	Volumes  []float32
	Playing  bool
	PlayN    int
	PauseN   int
}

// Append records src.
func (s *Sink) Append(src audio.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Appended = append(s.Appended, src)
}

// SetVolume records vol and remembers the most recent value via
// [Sink.LastVolume].
func (s *Sink) SetVolume(vol float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Volumes = append(s.Volumes, vol)
}

// Play marks the sink as playing.
func (s *Sink) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Playing = true
	s.PlayN++
}

// Pause marks the sink as paused.
func (s *Sink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Playing = false
	s.PauseN++
}

// LastVolume returns the most recently set volume, or 0 if SetVolume was
// never called.
func (s *Sink) LastVolume() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Volumes) == 0 {
		return 0
	}
	return s.Volumes[len(s.Volumes)-1]
}

var _ audio.Backend = (*Backend)(nil)
