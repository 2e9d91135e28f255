package opus

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"
)

// source is the concrete [audio.Source] this backend produces: a decoded
// PCM buffer plus the combinator flags scenes can apply to it.
type source struct {
	pcm []int16

	loop         bool
	buffered     bool
	fadeInFrames int
	reverb       *reverbParams
}

type reverbParams struct {
	delayFrames int
	mixT        float32
}

// decodeFile reads a raw little-endian 16-bit mono PCM file at path. Sound
// assets are prepared offline by the installation's build pipeline — the
// engine's audio boundary takes decoded PCM, not a general container
// format, matching spec.md §6's "decoding is out of scope for the engine"
// boundary.
func decodeFile(path string) (*source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opus: read %s: %w", path, err)
	}
	if len(raw)%2 != 0 {
		raw = raw[:len(raw)-1]
	}
	pcm := make([]int16, len(raw)/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
	}
	return &source{pcm: pcm}, nil
}

// cursor reads successive frames out of a source, applying loop/fade at
// read time. One cursor is created per voice playing that source.
type cursor struct {
	src  *source
	pos  int
	read int // total frames emitted, for fade envelope
}

func newCursor(src *source) *cursor {
	return &cursor{src: src}
}

// nextFrame returns the next frameSize samples, or ok=false once a
// non-looping source is exhausted.
func (c *cursor) nextFrame() (frame []int16, ok bool) {
	if c.pos >= len(c.src.pcm) {
		if !c.src.loop {
			return nil, false
		}
		c.pos = 0
	}

	end := c.pos + frameSize
	var buf [frameSize]int16
	n := copy(buf[:], c.src.pcm[c.pos:min(end, len(c.src.pcm))])
	c.pos += n

	out := buf[:]
	if c.src.fadeInFrames > 0 && c.read < c.src.fadeInFrames {
		gain := float32(c.read) / float32(c.src.fadeInFrames)
		faded := make([]int16, len(out))
		for i, s := range out {
			faded[i] = int16(float32(s) * gain)
		}
		out = faded
	}
	c.read++
	return out, true
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// fadeDurationFrames converts a wall-clock fade duration into a frame count
// at this package's fixed frame size.
func fadeDurationFrames(d time.Duration) int {
	ms := d.Milliseconds()
	return int(ms / frameSizeMs)
}
