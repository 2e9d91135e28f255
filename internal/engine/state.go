// Package engine is the installation's single-threaded scheduling core
// (C6, C8): the scene-rotation state machine and the event loop that drives
// it. Every exported type here is touched only from the goroutine that
// calls [Engine.Run] — spec.md §5's single-owner rule means no field here
// is behind a mutex.
package engine

import (
	"github.com/samgwise/555nm-soundscape/internal/curve"
	"github.com/samgwise/555nm-soundscape/internal/queue"
	"github.com/samgwise/555nm-soundscape/internal/replication"
	"github.com/samgwise/555nm-soundscape/internal/voice"
)

// State is the process-wide scheduling state, the sole mutable data this
// package owns. The zero value is not ready to use — build one with
// [NewState].
type State struct {
	ElapsedMs       int64
	Role            replication.Role
	MasterTimeoutMs int64
	ScheduleLive    bool

	ActiveVoices     []*voice.Voice
	RetiredVoices    []*voice.Voice
	BackgroundVoices []*voice.Voice

	FutureCommands queue.Queue
	StructurePhase curve.Phase

	CurrentSceneIndex int
}

// NewState builds the initial engine state for one replica. role should be
// [replication.Slave] when cfg.IsFallbackSlaveOr(false) is true, else
// [replication.Master]. The initial command queue matches spec.md §4.6:
// load_at(0, Internal, 0), load_background(0), check_schedule(0).
func NewState(role replication.Role) *State {
	s := &State{Role: role}
	if role == replication.Slave {
		s.MasterTimeoutMs = replication.InitialTimeoutMs
	}
	s.FutureCommands.Push(queue.LoadCmd(0, queue.Internal), 0)
	s.FutureCommands.Push(queue.LoadBackgroundCmd(), 0)
	s.FutureCommands.Push(queue.CheckScheduleCmd(), 0)
	return s
}

// AllVoices returns every voice this state currently tracks (active,
// retired, and background), for callers that need to drive Update() across
// all of them uniformly.
func (s *State) AllVoices() []*voice.Voice {
	all := make([]*voice.Voice, 0, len(s.ActiveVoices)+len(s.RetiredVoices)+len(s.BackgroundVoices))
	all = append(all, s.ActiveVoices...)
	all = append(all, s.RetiredVoices...)
	all = append(all, s.BackgroundVoices...)
	return all
}

// DropFinishedRetired removes every retired voice whose fade-out ramp has
// completed, per spec.md §4.3's "retired voices are dropped when
// volume_updates == 0".
func (s *State) DropFinishedRetired() {
	kept := s.RetiredVoices[:0]
	for _, v := range s.RetiredVoices {
		if !v.Done() {
			kept = append(kept, v)
		}
	}
	s.RetiredVoices = kept
}
