package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samgwise/555nm-soundscape/internal/config"
	"github.com/samgwise/555nm-soundscape/internal/control"
	"github.com/samgwise/555nm-soundscape/internal/observe"
	"github.com/samgwise/555nm-soundscape/internal/queue"
	"github.com/samgwise/555nm-soundscape/internal/replication"
	"github.com/samgwise/555nm-soundscape/internal/schedule"
	"github.com/samgwise/555nm-soundscape/pkg/audio"
)

// Engine owns the installation's whole runtime: the rotation scenes, the
// audio backend, the control-plane transport, and the [State] the event
// loop (C8) mutates. Every field here is read-only after [New] except
// through the event-loop goroutine that calls [Engine.Run] — spec.md §5's
// single-owner rule.
type Engine struct {
	logger *slog.Logger

	scenes          []*config.Scene
	backgroundScene *config.Scene

	backend audio.Backend
	device  audio.Device
	speakers []audio.Position

	transport *control.Transport

	metroStepMs  uint64
	defaultLevel float32
	schedule     *schedule.DailySchedule

	metrics *observe.Metrics

	state                *State
	snapshot             atomic.Value // holds Snapshot
	lastActiveVoiceCount int
}

// New constructs an Engine from a validated configuration, its preloaded
// scenes (in rotation order, one-to-one with cfg.Scenes), and an optional
// background scene. backend/device must already be open; transport may be
// nil for a standalone instance with no subscribers and no master to
// follow (transport is still required to receive /ChangeScene as a slave
// or to broadcast as a master — callers wire it from cfg.ListenAddr).
func New(cfg *config.Soundscape, scenes []*config.Scene, backgroundScene *config.Scene, backend audio.Backend, device audio.Device, transport *control.Transport, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("engine: at least one scene is required")
	}

	role := replication.Master
	if cfg.IsFallbackSlaveOr(false) {
		role = replication.Slave
	}

	speakers := make([]audio.Position, len(cfg.SpeakerPositions.Positions))
	for i, p := range cfg.SpeakerPositions.Positions {
		speakers[i] = audio.Position(p)
	}

	e := &Engine{
		logger:          logger,
		scenes:          scenes,
		backgroundScene: backgroundScene,
		backend:         backend,
		device:          device,
		speakers:        speakers,
		transport:       transport,
		metroStepMs:     cfg.MetroStepMs,
		defaultLevel:    cfg.DefaultLevel,
		schedule:        cfg.DailySchedule,
		metrics:         observe.DefaultMetrics(),
		state:           NewState(role),
	}
	if e.transport != nil {
		e.transport.SetMetrics(e.metrics)
	}
	if e.state.Role == replication.Slave {
		e.metrics.MasterTimeoutMs.Add(context.Background(), e.state.MasterTimeoutMs)
	}
	return e, nil
}

// Run drives the event loop until ctx is cancelled: a metro timer and (when
// a transport is configured) a control-message receiver both deposit events
// onto one channel; Run consumes that channel strictly in arrival order,
// per spec.md §4.8/§5. Run returns the first goroutine error, ctx.Err() on
// cancellation, or nil on a clean shutdown.
func (e *Engine) Run(ctx context.Context) error {
	events := make(chan event, 64)

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return e.runMetro(egCtx, events)
	})

	if e.transport != nil {
		eg.Go(func() error {
			return e.runControlReceiver(egCtx, events)
		})
	}

	eg.Go(func() error {
		return e.runLoop(egCtx, events)
	})

	return eg.Wait()
}

// event is one item on the single-threaded event-loop channel.
type event struct {
	kind    eventKind
	control control.Message
}

type eventKind int

const (
	eventTick eventKind = iota
	eventControl
	eventUpdate
)

// runMetro deposits an [eventTick] every metroStepMs until ctx is done.
func (e *Engine) runMetro(ctx context.Context, events chan<- event) error {
	ticker := time.NewTicker(time.Duration(e.metroStepMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			select {
			case events <- event{kind: eventTick}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// runControlReceiver blocks on [control.Transport.Recv] and deposits a
// decoded [eventControl] per packet. A transient receive error is logged
// and the loop continues, per spec.md §7's ControlRecv policy; Recv itself
// has no cancellation hook, so this goroutine exits only when the
// underlying socket is closed or ctx is already done at the top of the
// loop.
func (e *Engine) runControlReceiver(ctx context.Context, events chan<- event) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg, err := e.transport.Recv()
		if err != nil {
			e.logger.Error("control receive failed", "error", err)
			continue
		}
		select {
		case events <- event{kind: eventControl, control: msg}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runLoop is the single-threaded consumer: the only goroutine that ever
// touches e.state.
func (e *Engine) runLoop(ctx context.Context, events chan event) error {
	var lastLog time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			switch ev.kind {
			case eventTick:
				e.handleTick(ctx, events)
			case eventControl:
				e.handleControl(ctx, ev.control, events)
			case eventUpdate:
				updateCtx, span := observe.StartSpan(ctx, "engine.update")
				start := time.Now()
				e.handleUpdate(updateCtx)
				e.metrics.TickDuration.Record(updateCtx, time.Since(start).Seconds())
				span.End()
				e.publishSnapshot()
				if time.Since(lastLog) >= 3*time.Second {
					e.logState()
					lastLog = time.Now()
				}
			}
		}
	}
}

// handleTick implements spec.md §4.8's Tick event: advance the clock when
// this replica is authoritative for it (Master, or an autonomous slave),
// broadcast a heartbeat as Master, or decrement the takeover countdown as
// Slave.
func (e *Engine) handleTick(ctx context.Context, events chan<- event) {
	s := e.state

	advance := s.Role == replication.Master
	if s.Role == replication.Slave {
		next, justExpired := replication.AdvanceTimeout(s.MasterTimeoutMs, e.metroStepMs)
		delta := next - s.MasterTimeoutMs
		s.MasterTimeoutMs = next
		e.metrics.MasterTimeoutMs.Add(ctx, delta)
		e.metrics.HeartbeatAgeMs.Add(ctx, -delta)
		if justExpired {
			e.logger.Warn("master heartbeat lost, going autonomous")
		}
		// The tick that first crosses the timeout is also the tick that
		// starts self-advancing elapsed_ms (spec.md §4.7/§8 scenario S5).
		advance = replication.IsAutonomous(s.MasterTimeoutMs)
	}

	if advance {
		s.ElapsedMs += int64(e.metroStepMs)
		events <- event{kind: eventUpdate}
	}

	if s.Role == replication.Master && e.transport != nil {
		e.transport.Broadcast(control.NewMasterAlive(s.ElapsedMs))
	}
}

// handleControl implements spec.md §4.7's control-message handling. A
// MasterAlive heartbeat is itself an elapsed_ms advance, so it deposits an
// Update event exactly like a self-advancing Tick does — spec.md §4.7's
// ordering note guarantees each tick yields exactly one automation step
// whichever source advanced the clock.
func (e *Engine) handleControl(ctx context.Context, msg control.Message, events chan<- event) {
	s := e.state

	e.metrics.RecordControlMessage(ctx, msg.Kind.String())

	switch msg.Kind {
	case control.MasterAlive:
		next, reacquired := replication.HandleMasterAlive(s.MasterTimeoutMs)
		delta := next - s.MasterTimeoutMs
		s.MasterTimeoutMs = next
		e.metrics.MasterTimeoutMs.Add(ctx, delta)
		e.metrics.HeartbeatAgeMs.Add(ctx, -delta)
		s.ElapsedMs = msg.ElapsedMs
		if reacquired {
			e.logger.Info("master reacquired")
		}
		events <- event{kind: eventUpdate}
	case control.ChangeScene:
		s.FutureCommands.Push(queue.LoadCmd(int(msg.Index), queue.Remote), uint64(msg.AtTick))
	case control.RefreshBackground:
		s.FutureCommands.Push(queue.LoadBackgroundCmd(), uint64(s.ElapsedMs))
	case control.Volume, control.NoAction:
		// Ignored by the core: /volume is legacy, and NoAction covers
		// undecodable packets, per spec.md §6/§7.
	}
}

// handleUpdate implements spec.md §4.8's Update event: advance the
// structure curve, drain the command queue to a fixed point, evaluate and
// update every voice, then drop finished retired voices.
func (e *Engine) handleUpdate(ctx context.Context) {
	s := e.state

	s.StructurePhase.Advance(e.metroStepMs)

	// Drain to a fixed point: a dispatched command may itself push a
	// follow-up due at or before the current tick (e.g. a zero-duration
	// scene's immediate Retire), and that follow-up must fire within this
	// same Update rather than waiting for the next tick (spec.md §5).
	for {
		due := s.FutureCommands.Drain(uint64(s.ElapsedMs))
		if len(due) == 0 {
			break
		}
		for _, cmd := range due {
			e.dispatch(ctx, cmd)
		}
	}

	// No spline is loaded until the first Load runs (e.g. a slave whose
	// master is still live ignores its own Load); there is no curve to
	// sample then.
	var curveValue float32
	if s.StructurePhase.Spline != nil {
		curveValue = s.StructurePhase.Value()
	}
	sceneName := e.currentSceneName()
	for _, v := range s.ActiveVoices {
		if !v.Evaluate(curveValue, s.ScheduleLive, e.defaultLevel) {
			continue
		}
		if v.IsLive {
			e.metrics.RecordVoiceActivated(ctx, sceneName)
		} else {
			e.metrics.VoicesRetired.Add(ctx, 1)
		}
	}
	for _, v := range s.AllVoices() {
		v.Update()
	}
	s.DropFinishedRetired()

	activeCount := len(s.ActiveVoices) + len(s.BackgroundVoices)
	if delta := int64(activeCount - e.lastActiveVoiceCount); delta != 0 {
		e.metrics.ActiveVoices.Add(ctx, delta)
		e.lastActiveVoiceCount = activeCount
	}
}

// currentSceneName returns the name of the scene currently loaded into
// ActiveVoices, used only to label the VoicesActivated metric.
func (e *Engine) currentSceneName() string {
	if e.state.CurrentSceneIndex < 0 || e.state.CurrentSceneIndex >= len(e.scenes) {
		return ""
	}
	return e.scenes[e.state.CurrentSceneIndex].Name
}

func (e *Engine) logState() {
	e.logger.Info("engine state",
		"role", e.state.Role,
		"elapsed_ms", e.state.ElapsedMs,
		"scene", e.state.CurrentSceneIndex,
		"active_voices", len(e.state.ActiveVoices),
		"retired_voices", len(e.state.RetiredVoices),
		"schedule_live", e.state.ScheduleLive,
	)
}
