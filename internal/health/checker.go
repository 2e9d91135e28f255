package health

import (
	"context"
	"fmt"
	"time"
)

// EngineLivenessChecker builds a [Checker] that fails readiness once the
// event loop has gone longer than maxAge without publishing a state
// update. lastUpdate is called on every /readyz request; callers wire it
// to their engine's snapshot timestamp (e.g. (*engine.Engine).Snapshot
// composed with its TakenAt field) so a wedged Tick/Update cycle — a
// stuck metro timer, a blocked control receiver, a panic recovered
// elsewhere — shows up as a failing readiness probe rather than silence.
func EngineLivenessChecker(name string, lastUpdate func() time.Time, maxAge time.Duration) Checker {
	return Checker{
		Name: name,
		Check: func(_ context.Context) error {
			last := lastUpdate()
			if last.IsZero() {
				return fmt.Errorf("no engine update observed yet")
			}
			if age := time.Since(last); age > maxAge {
				return fmt.Errorf("no engine update in %s (max %s)", age.Round(time.Millisecond), maxAge)
			}
			return nil
		},
	}
}
