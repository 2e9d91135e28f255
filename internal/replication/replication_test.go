package replication_test

import (
	"testing"

	"github.com/samgwise/555nm-soundscape/internal/replication"
)

// TestTakeoverAfter101Ticks implements testable property 6 and the
// master_timeout_ms portion of scenario S5: starting at 1000 with
// metro_step_ms=10 and no heartbeat, master_timeout_ms goes negative
// exactly on the 101st tick.
func TestTakeoverAfter101Ticks(t *testing.T) {
	timeout := replication.InitialTimeoutMs
	var justExpiredAtTick int
	for tick := 1; tick <= 101; tick++ {
		var expired bool
		timeout, expired = replication.AdvanceTimeout(timeout, 10)
		if tick < 101 && replication.IsAutonomous(timeout) {
			t.Fatalf("tick %d: went autonomous early, master_timeout_ms=%d", tick, timeout)
		}
		if expired {
			justExpiredAtTick = tick
		}
	}
	if !replication.IsAutonomous(timeout) {
		t.Fatalf("after 101 ticks master_timeout_ms=%d, want < 0", timeout)
	}
	if justExpiredAtTick != 101 {
		t.Errorf("expired transition fired at tick %d, want 101", justExpiredAtTick)
	}
}

func TestAdvanceTimeoutStaysClampedOnceExpired(t *testing.T) {
	timeout, _ := replication.AdvanceTimeout(5, 10)
	if timeout != -1 {
		t.Fatalf("first crossing: timeout=%d, want -1", timeout)
	}
	timeout, expired := replication.AdvanceTimeout(timeout, 10)
	if timeout != -1 {
		t.Errorf("already-expired tick: timeout=%d, want -1 (clamped)", timeout)
	}
	if expired {
		t.Error("expired should only be true on the tick that first crosses, not on subsequent ticks")
	}
}

func TestHandleMasterAliveResetsAndReportsReacquisition(t *testing.T) {
	next, reacquired := replication.HandleMasterAlive(-1)
	if next != replication.InitialTimeoutMs {
		t.Errorf("next = %d, want %d", next, replication.InitialTimeoutMs)
	}
	if !reacquired {
		t.Error("expected reacquired=true after an expired timeout")
	}

	next, reacquired = replication.HandleMasterAlive(500)
	if next != replication.InitialTimeoutMs || reacquired {
		t.Errorf("HandleMasterAlive(500) = (%d, %v), want (%d, false)", next, reacquired, replication.InitialTimeoutMs)
	}
}

func TestHasLiveMaster(t *testing.T) {
	if !replication.HasLiveMaster(1) {
		t.Error("HasLiveMaster(1) = false, want true")
	}
	if replication.HasLiveMaster(0) {
		t.Error("HasLiveMaster(0) = true, want false")
	}
	if replication.HasLiveMaster(-1) {
		t.Error("HasLiveMaster(-1) = true, want false")
	}
}

func TestRoleString(t *testing.T) {
	if replication.Master.String() != "master" {
		t.Errorf("Master.String() = %q", replication.Master.String())
	}
	if replication.Slave.String() != "slave" {
		t.Errorf("Slave.String() = %q", replication.Slave.String())
	}
}
