// Package epoch implements a minimal, leap-second-ignoring calendar value
// over a UTC-seconds moment paired with a display timezone offset.
//
// An [Epoch] deliberately does not use [time.Time]: the engine's arithmetic
// only ever operates on the raw UTC-seconds "moment", and the timezone
// offset is carried purely for display — folding it into the comparison
// value (as [time.Time] with a [time.Location] effectively does) would
// violate the invariant that comparisons only ever look at moment.
package epoch

import (
	"log/slog"
	"time"
)

// Epoch is a UTC-seconds instant with a carried (but not applied) display
// timezone offset. Comparisons and arithmetic operate on Moment only; Tz is
// informational and is only consulted by [Epoch.DisplayMoment].
type Epoch struct {
	Moment uint64 // UTC seconds since the Unix epoch
	Tz     int32  // display offset in seconds, not folded into Moment
}

// secondsPerMinute, secondsPerHour, secondsPerDay name the constants used
// throughout the calendar arithmetic below.
const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
)

// Now returns the current wall-clock UTC time as an Epoch with Tz=0. On a
// clock error it logs and returns the zero moment rather than propagating
// an error — grounded on the original's forgiving "returns 0 on error"
// behaviour for what should be an infallible call in practice.
func Now() Epoch {
	now := time.Now()
	secs := now.Unix()
	if secs < 0 {
		slog.Warn("epoch: system clock before unix epoch, returning moment=0")
		return Epoch{}
	}
	return Epoch{Moment: uint64(secs)}
}

// HMS builds an Epoch whose Moment is the seconds-into-day value of
// h:m:s, with Tz=0. Hours/minutes/seconds are not range-checked; callers
// composing a clock-time from [time.Time] should pass values already in
// their conventional ranges.
func HMS(h, m, s uint64) Epoch {
	return Epoch{Moment: ((h*60)+m)*60 + s}
}

// WithTimezone returns a copy of e carrying tz as its display offset. Moment
// is unchanged.
func WithTimezone(e Epoch, tz int32) Epoch {
	return Epoch{Moment: e.Moment, Tz: tz}
}

// DisplayMoment returns the moment adjusted by the carried timezone offset,
// for display purposes only. Every other operation in this package uses
// Moment directly.
func (e Epoch) DisplayMoment() uint64 {
	if e.Tz >= 0 {
		return e.Moment + uint64(e.Tz)
	}
	neg := uint64(-e.Tz)
	if neg > e.Moment {
		return 0
	}
	return e.Moment - neg
}

// Add returns an Epoch advanced by secs, preserving Tz. Arithmetic is
// saturating: it never underflows below zero (though Add only grows
// Moment, so it cannot underflow; Sub is where saturation matters).
func (e Epoch) Add(secs uint64) Epoch {
	return Epoch{Moment: e.Moment + secs, Tz: e.Tz}
}

// Sub returns an Epoch moved back by secs, preserving Tz. Saturates at zero
// — subtracting past the epoch is a programming error the caller should not
// rely on for negative results, so we clamp rather than wrap.
func (e Epoch) Sub(secs uint64) Epoch {
	if secs > e.Moment {
		return Epoch{Moment: 0, Tz: e.Tz}
	}
	return Epoch{Moment: e.Moment - secs, Tz: e.Tz}
}

// SecondsLater is an alias for [Epoch.Add] matching the vocabulary of the
// originating calendar module.
func (e Epoch) SecondsLater(n uint64) Epoch { return e.Add(n) }

// MinutesLater advances e by n minutes.
func (e Epoch) MinutesLater(n uint64) Epoch { return e.Add(n * secondsPerMinute) }

// HoursLater advances e by n hours.
func (e Epoch) HoursLater(n uint64) Epoch { return e.Add(n * secondsPerHour) }

// DaysLater advances e by n days.
func (e Epoch) DaysLater(n uint64) Epoch { return e.Add(n * secondsPerDay) }

// DaysBefore moves e back by n days, saturating at zero.
func (e Epoch) DaysBefore(n uint64) Epoch { return e.Sub(n * secondsPerDay) }

// Append treats b as a duration added to a's Moment, keeping a's Tz. Used
// to combine a day boundary with a seconds-into-day clock-time value.
func Append(a, b Epoch) Epoch {
	return Epoch{Moment: a.Moment + b.Moment, Tz: a.Tz}
}

// Diff returns the absolute distance in seconds between a and b. The
// original Rust implementation computed b.moment - a.moment directly and
// relied on callers always passing the smaller instant first; a caller
// that got the order wrong would underflow a u64 into a huge positive
// number. Per spec §9 this is treated as a bug: Diff here is symmetric.
func Diff(a, b Epoch) uint64 {
	if b.Moment >= a.Moment {
		return b.Moment - a.Moment
	}
	return a.Moment - b.Moment
}

// FloorToDays truncates e to the start of its UTC day, preserving Tz.
// Ignores leap seconds, as does the rest of this package.
func (e Epoch) FloorToDays() Epoch {
	return Epoch{Moment: (e.Moment / secondsPerDay) * secondsPerDay, Tz: e.Tz}
}

// Today returns [Now]'s Epoch floored to the start of the UTC day.
func Today() Epoch {
	return Now().FloorToDays()
}

// Days returns the whole number of UTC days elapsed in Moment.
func (e Epoch) Days() uint64 { return e.Moment / secondsPerDay }

// Hours returns the whole number of hours elapsed in Moment.
func (e Epoch) Hours() uint64 { return e.Moment / secondsPerHour }

// Minutes returns the whole number of minutes elapsed in Moment.
func (e Epoch) Minutes() uint64 { return e.Moment / secondsPerMinute }

// LocalOffset returns the host's current local-time offset from UTC, in
// seconds, as reported by [time.Local]. Supplements spec.md's core clock
// with the local/UTC split the original Rust source exposed via
// config::local_time_zone.
func LocalOffset() int32 {
	_, offset := time.Now().In(time.Local).Zone()
	return int32(offset)
}

// Local returns a copy of e carrying the host's current local-time offset
// as its display Tz. Moment is unchanged — Local only affects how the
// value would be displayed via [Epoch.DisplayMoment].
func Local(e Epoch) Epoch {
	return WithTimezone(e, LocalOffset())
}

// FromLocal strips a local display offset back to Tz=0, the inverse of
// [Local]. Moment is unchanged; only the carried offset is reset.
func FromLocal(e Epoch) Epoch {
	return WithTimezone(e, 0)
}

// LocalToday returns today's UTC day boundary with the host's local offset
// attached for display, mirroring the original's config::local_today.
func LocalToday() Epoch {
	return Local(Today())
}
