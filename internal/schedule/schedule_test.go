package schedule_test

import (
	"testing"

	"github.com/samgwise/555nm-soundscape/internal/epoch"
	"github.com/samgwise/555nm-soundscape/internal/schedule"
)

// TestScheduleBoundaries implements spec.md scenario S1.
func TestScheduleBoundaries(t *testing.T) {
	t.Parallel()

	sched := &schedule.DailySchedule{Start: "18:30:00", End: "01:00:00"}
	from := epoch.HMS(17, 0, 0) // today 17:00:00

	start, ok, err := schedule.NextStartTime(sched, from)
	if err != nil || !ok {
		t.Fatalf("NextStartTime error=%v ok=%v", err, ok)
	}
	if got := epoch.Diff(from, start); got != 5400 {
		t.Errorf("next_start - from = %d, want 5400", got)
	}

	end, ok, err := schedule.NextEndTime(sched, start)
	if err != nil || !ok {
		t.Fatalf("NextEndTime error=%v ok=%v", err, ok)
	}
	if got := epoch.Diff(start, end); got != 23400 {
		t.Errorf("next_end - next_start = %d, want 23400", got)
	}

	atStart := start
	if !schedule.IsInSchedule(atStart, start, end) {
		t.Error("is_in_schedule(start, start, end) = false, want true")
	}
	if !schedule.IsInSchedule(end, start, end) {
		t.Error("is_in_schedule(end, start, end) = false, want true")
	}

	beforeWindow := epoch.Epoch{Moment: start.Moment - 3*3600 + 9*60, Tz: 0} // ~15:39 same day
	if schedule.IsInSchedule(beforeWindow, start, end) {
		t.Error("is_in_schedule(15:39, start, end) = true, want false")
	}
}

// TestIsInScheduleNoSchedule covers the "always live" sentinel.
func TestIsInScheduleNoSchedule(t *testing.T) {
	t.Parallel()
	live, err := schedule.IsInScheduleNow(nil, epoch.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !live {
		t.Error("IsInScheduleNow(nil, ...) = false, want true (no schedule = always live)")
	}
}

// TestScheduleEndpoints implements spec.md testable property 4.
func TestScheduleEndpoints(t *testing.T) {
	t.Parallel()
	start := epoch.Epoch{Moment: 1000}
	end := epoch.Epoch{Moment: 2000}
	if !schedule.IsInSchedule(start, start, end) {
		t.Error("is_in_schedule(start, start, end) should be true")
	}
	if !schedule.IsInSchedule(end, start, end) {
		t.Error("is_in_schedule(end, start, end) should be true")
	}
}

// TestNextEpochPostCondition implements spec.md testable property 5.
func TestNextEpochPostCondition(t *testing.T) {
	t.Parallel()
	from := epoch.HMS(23, 50, 0)
	clock := epoch.HMS(0, 10, 0)
	next := schedule.NextEpoch(from, clock)
	if next.Moment < from.Moment {
		t.Errorf("NextEpoch moved backward: next=%d from=%d", next.Moment, from.Moment)
	}
	if epoch.Diff(from, next) >= 86400 {
		t.Errorf("NextEpoch distance >= 86400: %d", epoch.Diff(from, next))
	}
}

func TestPreviousEpochBracketsFrom(t *testing.T) {
	t.Parallel()
	from := epoch.HMS(12, 0, 0)
	clock := epoch.HMS(6, 0, 0)

	next := schedule.NextEpoch(from, clock)
	prev := schedule.PreviousEpoch(from, clock)

	if prev.Moment > from.Moment {
		t.Errorf("PreviousEpoch %d should be <= from %d", prev.Moment, from.Moment)
	}
	if next.Moment < from.Moment {
		t.Errorf("NextEpoch %d should be >= from %d", next.Moment, from.Moment)
	}
}

func TestParseClockTimeInvalid(t *testing.T) {
	t.Parallel()
	if _, err := schedule.ParseClockTime("not-a-time"); err == nil {
		t.Error("expected error parsing invalid clock time")
	}
}
