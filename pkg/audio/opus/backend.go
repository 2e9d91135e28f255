package opus

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/samgwise/555nm-soundscape/pkg/audio"
)

// Backend is a concrete [audio.Backend]. It writes encoded Opus frames for
// the installation's full speaker layout to out as they are produced.
type Backend struct {
	logger   *slog.Logger
	out      io.Writer
	speakers []audio.Position
}

// New returns a Backend that encodes frames for the given speaker layout to
// out, logging with logger (or [slog.Default] if nil).
func New(out io.Writer, speakers []audio.Position, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{logger: logger, out: out, speakers: append([]audio.Position(nil), speakers...)}
}

// OpenDevice opens an output device that mixes and encodes to Opus. The
// returned [audio.Device] must be passed to [Backend.NewVoice]; callers
// stop it via [Device.Close].
func (b *Backend) OpenDevice() (audio.Device, error) {
	encoders := make([]*encoder, len(b.speakers))
	for i := range encoders {
		enc, err := newEncoder()
		if err != nil {
			return nil, fmt.Errorf("opus: speaker %d: %w", i, err)
		}
		encoders[i] = enc
	}
	dev := &Device{
		logger:   b.logger,
		out:      b.out,
		encoders: encoders,
		speakers: b.speakers,
		tick:     time.NewTicker(frameSizeMs * time.Millisecond),
		done:     make(chan struct{}),
	}
	go dev.mixLoop()
	return dev, nil
}

// NewVoice creates a Sink diffused across dev's speaker layout from
// position.
func (b *Backend) NewVoice(dev audio.Device, position audio.Position, speakers []audio.Position) (audio.Sink, error) {
	d, ok := dev.(*Device)
	if !ok {
		return nil, fmt.Errorf("opus: NewVoice: device is not an *opus.Device")
	}
	gains := make([]float32, len(speakers))
	for i, sp := range speakers {
		gains[i] = speakerGain(position, sp)
	}
	sink := &Sink{device: d, position: position, gains: gains}
	d.addSink(sink)
	return sink, nil
}

// Decode reads path as a raw PCM sound resource.
func (b *Backend) Decode(path string) (audio.Source, error) {
	return decodeFile(path)
}

// Buffered is a no-op: decodeFile already reads the whole file into memory.
func (b *Backend) Buffered(src audio.Source) audio.Source {
	return src
}

// RepeatInfinite marks src to loop when its cursor is exhausted.
func (b *Backend) RepeatInfinite(src audio.Source) audio.Source {
	s, ok := src.(*source)
	if !ok {
		return src
	}
	clone := *s
	clone.loop = true
	return &clone
}

// FadeIn marks src with a linear fade-in envelope of duration d.
func (b *Backend) FadeIn(src audio.Source, d time.Duration) audio.Source {
	s, ok := src.(*source)
	if !ok {
		return src
	}
	clone := *s
	clone.fadeInFrames = fadeDurationFrames(d)
	return &clone
}

// Reverb records a delay-line configuration on src. The parameters are
// stored only: neither the cursor nor the mixer reads them, so the
// rendered audio carries no reverb.
func (b *Backend) Reverb(src audio.Source, delay time.Duration, mixT float32) audio.Source {
	s, ok := src.(*source)
	if !ok {
		return src
	}
	clone := *s
	clone.reverb = &reverbParams{delayFrames: fadeDurationFrames(delay), mixT: mixT}
	return &clone
}

// speakerGain is a simple inverse-square-distance diffusion weight, the
// engine's only analog position computation (spec.md §6 leaves the exact
// diffusion model to the collaborator).
func speakerGain(voice, speaker audio.Position) float32 {
	var distSq float32
	for i := range voice {
		d := voice[i] - speaker[i]
		distSq += d * d
	}
	if distSq < 0.0001 {
		return 1
	}
	return 1 / distSq
}

var _ audio.Backend = (*Backend)(nil)

// Device is the opened output device: a periodic mixer that sums every live
// Sink's current frame per speaker channel, encodes it, and writes it out.
type Device struct {
	logger *slog.Logger

	out      io.Writer
	encoders []*encoder // one mono encoder per speaker channel

	speakers []audio.Position
	tick     *time.Ticker
	done     chan struct{}

	mu    sync.Mutex
	sinks []*Sink
}

func (d *Device) addSink(s *Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, s)
}

// Close stops the mix loop. Safe to call once.
func (d *Device) Close() {
	d.tick.Stop()
	close(d.done)
}

func (d *Device) mixLoop() {
	for {
		select {
		case <-d.done:
			return
		case <-d.tick.C:
			d.mixOnce()
		}
	}
}

// mixOnce sums one frame's worth of every live sink into per-speaker mono
// buffers, encodes each channel independently, and writes
// [channel byte][length uint16][opus packet] onto out so a receiver can
// demultiplex the per-speaker streams.
func (d *Device) mixOnce() {
	d.mu.Lock()
	sinks := append([]*Sink(nil), d.sinks...)
	d.mu.Unlock()

	channels := make([][]int16, len(d.speakers))
	for ch := range channels {
		channels[ch] = make([]int16, frameSize)
	}
	for _, s := range sinks {
		s.mixInto(channels)
	}

	for ch, mono := range channels {
		packet, err := d.encoders[ch].encode(mono)
		if err != nil {
			d.logger.Error("opus encode failed", "channel", ch, "error", err)
			continue
		}
		header := []byte{byte(ch), byte(len(packet) >> 8), byte(len(packet))}
		if _, err := d.out.Write(header); err != nil {
			d.logger.Error("opus frame header write failed", "error", err)
			continue
		}
		if _, err := d.out.Write(packet); err != nil {
			d.logger.Error("opus frame write failed", "channel", ch, "error", err)
		}
	}
}

// Sink is a single voice's playback channel, diffused across the device's
// speaker layout per position.
type Sink struct {
	device   *Device
	position audio.Position
	gains    []float32

	mu      sync.Mutex
	cursors []*cursor
	volume  float32
	playing bool
}

// Append queues src for playback.
func (s *Sink) Append(src audio.Source) {
	sr, ok := src.(*source)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors = append(s.cursors, newCursor(sr))
}

// SetVolume sets the linear playback volume in [0, 1].
func (s *Sink) SetVolume(vol float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = vol
}

// Play resumes playback.
func (s *Sink) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
}

// Pause suspends playback without discarding queued sources.
func (s *Sink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
}

// mixInto sums this sink's current frame into channels, one mono buffer per
// speaker, weighted by that speaker's diffusion gain and this sink's
// volume.
func (s *Sink) mixInto(channels [][]int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing || len(s.cursors) == 0 {
		return
	}

	cur := s.cursors[0]
	frame, ok := cur.nextFrame()
	if !ok {
		s.cursors = s.cursors[1:]
		return
	}

	for ch := 0; ch < len(channels) && ch < len(s.gains); ch++ {
		gain := s.gains[ch] * s.volume
		buf := channels[ch]
		for i, sample := range frame {
			if i >= len(buf) {
				break
			}
			mixed := int32(buf[i]) + int32(float32(sample)*gain)
			buf[i] = clampSample(mixed)
		}
	}
}

var _ audio.Sink = (*Sink)(nil)

func clampSample(v int32) int16 {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	default:
		return int16(v)
	}
}
