// Package opus is a concrete [audio.Backend] built on layeh.com/gopus. It
// decodes installation sound resources (raw 16-bit PCM, mono, sampled at
// [sampleRate]) into looping/fading sources (reverb settings are recorded
// but not rendered), mixes live voices
// per output speaker channel, and encodes the result to Opus frames written
// to an io.Writer collaborator (e.g. a network audio transport, out of
// scope per spec.md §6).
package opus

import (
	"fmt"

	"layeh.com/gopus"
)

// The installation runs a fixed-format pipeline: 48 kHz mono decode,
// frame size matched to a 20 ms tick, matching the teacher's Discord-voice
// framing convention.
const (
	sampleRate  = 48000
	frameSizeMs = 20
	frameSize   = sampleRate * frameSizeMs / 1000 // 960 samples/channel/frame
)

// encoder wraps a gopus Opus encoder for one mono output speaker channel.
// Each speaker gets its own encoder and its own packet stream — the
// installation's multichannel diffusion is modelled as N independent mono
// Opus streams rather than a single interleaved multichannel stream, since
// gopus (like libopus's simple API) is built around mono/stereo framing.
type encoder struct {
	enc *gopus.Encoder
}

func newEncoder() (*encoder, error) {
	enc, err := gopus.NewEncoder(sampleRate, 1, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("opus: create encoder: %w", err)
	}
	return &encoder{enc: enc}, nil
}

// encode encodes one mono frame of PCM int16 samples into an Opus packet.
func (e *encoder) encode(pcm []int16) ([]byte, error) {
	packet, err := e.enc.Encode(pcm, frameSize, len(pcm)*2)
	if err != nil {
		return nil, fmt.Errorf("opus: encode: %w", err)
	}
	return packet, nil
}

// decoder wraps a gopus Opus decoder. Nothing in this package constructs
// one: decodeFile reads sound resources as raw PCM only.
type decoder struct {
	dec *gopus.Decoder
}

func newDecoder() (*decoder, error) {
	dec, err := gopus.NewDecoder(sampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("opus: create decoder: %w", err)
	}
	return &decoder{dec: dec}, nil
}

func (d *decoder) decode(packet []byte) ([]int16, error) {
	pcm, err := d.dec.Decode(packet, frameSize, false)
	if err != nil {
		return nil, fmt.Errorf("opus: decode: %w", err)
	}
	return pcm, nil
}
