// Package replication implements the master/slave heartbeat protocol (C7):
// role selection, the slave's takeover countdown, and the pure state
// transitions driven by control-plane messages. EngineState is the sole
// owner of the values these functions operate on — this package holds no
// state of its own, matching spec.md §5's single-owner rule.
package replication

// Role is a replica's position in the master/slave heartbeat protocol,
// chosen once at startup from the is_fallback_slave config flag.
type Role int

const (
	// Master broadcasts /MasterAlive every tick and is the sole scene
	// rotation authority while subscribers stay reachable.
	Master Role = iota
	// Slave tracks a master's heartbeat and counts down to autonomous
	// mode if the heartbeat stops arriving.
	Slave
)

func (r Role) String() string {
	if r == Master {
		return "master"
	}
	return "slave"
}

// InitialTimeoutMs is a freshly-started slave's master_timeout_ms.
const InitialTimeoutMs int64 = 1000

// AdvanceTimeout decrements a slave's master_timeout_ms by metroStepMs,
// clamping the result at -1. Unlike a naive "subtract only while positive"
// reading of the countdown, the clamp is a floor applied to an
// unconditional decrement — this is what makes takeover land on the tick
// count spec.md's testable properties expect (exactly 101 ticks at
// master_timeout_ms=1000, metro_step_ms=10). justExpired is true only on
// the tick the value first reaches the floor.
func AdvanceTimeout(current int64, metroStepMs uint64) (next int64, justExpired bool) {
	if current <= -1 {
		return -1, false
	}
	next = current - int64(metroStepMs)
	if next <= -1 {
		return -1, true
	}
	return next, false
}

// IsAutonomous reports whether a slave with this master_timeout_ms value
// has taken over clock advancement itself.
func IsAutonomous(timeoutMs int64) bool {
	return timeoutMs < 0
}

// HasLiveMaster reports whether a slave still considers its master alive,
// i.e. whether an internally-originated scene Load should be ignored in
// favor of waiting for the master's own /ChangeScene broadcast.
func HasLiveMaster(timeoutMs int64) bool {
	return timeoutMs > 0
}

// HandleMasterAlive resets a slave's countdown on receipt of a heartbeat.
// reacquired is true if the slave had gone autonomous (was expired) and is
// now rejoining the master.
func HandleMasterAlive(currentTimeoutMs int64) (next int64, reacquired bool) {
	return InitialTimeoutMs, IsAutonomous(currentTimeoutMs)
}
