// Package queue is the engine's deferred-command schedule: a min-heap of
// commands ordered by the tick they become due, drained to a fixed point
// once per event-loop iteration (spec.md §4.5, C5).
package queue

import "container/heap"

// Kind tags the variant of a [Cmd].
type Kind int

const (
	// Play starts the currently loaded scene's voices.
	Play Kind = iota
	// Load switches to the scene at Index; Origin records whether the
	// command came from this replica's own rotation or from a master.
	Load
	// LoadBackground switches to the configured background scene.
	LoadBackground
	// Retire begins fading out every currently active voice without
	// changing the loaded scene.
	Retire
	// CheckSchedule re-evaluates the daily schedule against the current
	// time, updates the schedule-live flag, and re-enqueues itself.
	CheckSchedule
)

// Origin distinguishes a Load command generated by a replica's own
// rotation schedule from one replicated in from a master's /ChangeScene
// broadcast (spec.md §4.6/§4.7).
type Origin int

const (
	// Internal is a Load enqueued by this replica's own rotation logic.
	Internal Origin = iota
	// Remote is a Load replicated in from a master.
	Remote
)

func (o Origin) String() string {
	if o == Remote {
		return "remote"
	}
	return "internal"
}

// Cmd is a command queued for execution at a future tick.
type Cmd struct {
	Kind   Kind
	Index  int    // Load: scene index
	Origin Origin // Load: Internal or Remote
}

// PlayCmd returns a [Cmd] of kind [Play].
func PlayCmd() Cmd { return Cmd{Kind: Play} }

// LoadCmd returns a [Cmd] of kind [Load] for the scene at index, tagged
// with the given origin.
func LoadCmd(index int, origin Origin) Cmd {
	return Cmd{Kind: Load, Index: index, Origin: origin}
}

// LoadBackgroundCmd returns a [Cmd] of kind [LoadBackground].
func LoadBackgroundCmd() Cmd { return Cmd{Kind: LoadBackground} }

// RetireCmd returns a [Cmd] of kind [Retire].
func RetireCmd() Cmd { return Cmd{Kind: Retire} }

// CheckScheduleCmd returns a [Cmd] of kind [CheckSchedule].
func CheckScheduleCmd() Cmd { return Cmd{Kind: CheckSchedule} }

// entry wraps a Cmd with its due tick and insertion order for the heap.
type entry struct {
	cmd    Cmd
	atTick uint64
	seq    uint64
}

// cmdHeap implements [container/heap.Interface] as a min-heap ordered by
// atTick (ascending), with FIFO tie-breaking on seq.
type cmdHeap []entry

func (h cmdHeap) Len() int { return len(h) }

func (h cmdHeap) Less(i, j int) bool {
	if h[i].atTick != h[j].atTick {
		return h[i].atTick < h[j].atTick
	}
	return h[i].seq < h[j].seq
}

func (h cmdHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cmdHeap) Push(x any) {
	*h = append(*h, x.(entry))
}

func (h *cmdHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Queue is a min-heap of commands ordered by due tick. The zero value is
// ready to use. Not safe for concurrent use — callers must serialize access
// (the event loop owns the queue exclusively, spec.md §5).
type Queue struct {
	h   cmdHeap
	seq uint64
}

// Push schedules cmd for execution at atTick.
func (q *Queue) Push(cmd Cmd, atTick uint64) {
	heap.Push(&q.h, entry{cmd: cmd, atTick: atTick, seq: q.seq})
	q.seq++
}

// Len returns the number of commands still queued.
func (q *Queue) Len() int { return q.h.Len() }

// Peek returns the next due command's tick without removing it. ok is false
// if the queue is empty.
func (q *Queue) Peek() (atTick uint64, ok bool) {
	if q.h.Len() == 0 {
		return 0, false
	}
	return q.h[0].atTick, true
}

// Drain removes and returns every command whose atTick is <= tick, in
// due-tick order (earliest first, FIFO among ties). This is the queue's
// only consumption path. Commands pushed after a Drain call are not
// included in it: the event loop calls Drain repeatedly within one Update
// until it returns nothing, which brings the schedule to its fixed point,
// per spec.md §5/§8.
func (q *Queue) Drain(tick uint64) []Cmd {
	var due []Cmd
	for q.h.Len() > 0 && q.h[0].atTick <= tick {
		e := heap.Pop(&q.h).(entry)
		due = append(due, e.cmd)
	}
	return due
}
