// Package control defines the decoded control-plane messages the engine
// consumes and emits (spec.md §6) and a UDP transport for exchanging them
// between a master and its subscribers.
//
// The wire codec here is a small self-describing binary framing, not OSC:
// spec.md §1/§6 explicitly places the OSC wire codec out of scope as a
// collaborator concern, and no OSC library is available to this module's
// dependency set. [Message] covers the same message kinds and argument
// shapes as the OSC address table (its [Kind] labels are snake_case names
// such as "master_alive", not the OSC addresses themselves), so swapping in
// a real OSC encoder/decoder at the transport boundary is a local change.
package control

// Message is the tagged union of decoded control-plane messages. Only one
// of the typed fields is meaningful, selected by Kind.
type Message struct {
	Kind Kind

	// MasterAlive
	ElapsedMs int64

	// ChangeScene
	Index  int32
	AtTick int64

	// Volume (legacy, ignored by the core per spec.md §6)
	VolumeValue float64
}

// Kind selects which control message a [Message] carries.
type Kind int

const (
	// NoAction is produced for a message the core does not act on, or
	// that failed to decode — treated identically per spec.md §7.
	NoAction Kind = iota
	// MasterAlive carries the master's current elapsed_ms heartbeat.
	MasterAlive
	// ChangeScene instructs a slave to queue a remote scene load.
	ChangeScene
	// RefreshBackground instructs a slave to reload its background scene.
	RefreshBackground
	// Volume is the legacy volume-set message, decoded but ignored by
	// the core.
	Volume
)

// NewMasterAlive builds a MasterAlive message.
func NewMasterAlive(elapsedMs int64) Message {
	return Message{Kind: MasterAlive, ElapsedMs: elapsedMs}
}

// NewChangeScene builds a ChangeScene message.
func NewChangeScene(index int32, atTick int64) Message {
	return Message{Kind: ChangeScene, Index: index, AtTick: atTick}
}

// NewRefreshBackground builds a RefreshBackground message.
func NewRefreshBackground() Message {
	return Message{Kind: RefreshBackground}
}

// String returns the metric/log label for k.
func (k Kind) String() string {
	switch k {
	case MasterAlive:
		return "master_alive"
	case ChangeScene:
		return "change_scene"
	case RefreshBackground:
		return "refresh_background"
	case Volume:
		return "volume"
	default:
		return "no_action"
	}
}
