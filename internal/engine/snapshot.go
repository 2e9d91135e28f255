package engine

import (
	"sync/atomic"
	"time"

	"github.com/samgwise/555nm-soundscape/internal/replication"
)

// Snapshot is a point-in-time, immutable copy of the fields of [State]
// external readers (the operator dashboard, health checks) care about. It
// exists because State itself is touched only by the event-loop goroutine
// (spec.md §5's single-owner rule) — Snapshot is how that data crosses to
// other goroutines without a mutex on the hot path.
type Snapshot struct {
	TakenAt           time.Time
	Role              replication.Role
	ElapsedMs         int64
	MasterTimeoutMs   int64
	ScheduleLive      bool
	CurrentSceneIndex int
	ActiveVoices      int
	RetiredVoices     int
	BackgroundVoices  int
	QueueDepth        int
}

// Snapshot returns the most recently published engine state. Safe to call
// from any goroutine; returns the zero Snapshot before the event loop has
// run its first Update.
func (e *Engine) Snapshot() Snapshot {
	if s, ok := e.snapshot.Load().(Snapshot); ok {
		return s
	}
	return Snapshot{}
}

// publishSnapshot copies the current State into the atomic snapshot slot.
// Called only from the event-loop goroutine, after handleUpdate.
func (e *Engine) publishSnapshot() {
	s := e.state
	e.snapshot.Store(Snapshot{
		TakenAt:           time.Now(),
		Role:              s.Role,
		ElapsedMs:         s.ElapsedMs,
		MasterTimeoutMs:   s.MasterTimeoutMs,
		ScheduleLive:      s.ScheduleLive,
		CurrentSceneIndex: s.CurrentSceneIndex,
		ActiveVoices:      len(s.ActiveVoices),
		RetiredVoices:     len(s.RetiredVoices),
		BackgroundVoices:  len(s.BackgroundVoices),
		QueueDepth:        s.FutureCommands.Len(),
	})
}

