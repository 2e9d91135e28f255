package engine

import (
	"context"
	"time"

	"github.com/samgwise/555nm-soundscape/internal/config"
	"github.com/samgwise/555nm-soundscape/internal/control"
	"github.com/samgwise/555nm-soundscape/internal/curve"
	"github.com/samgwise/555nm-soundscape/internal/epoch"
	"github.com/samgwise/555nm-soundscape/internal/observe"
	"github.com/samgwise/555nm-soundscape/internal/queue"
	"github.com/samgwise/555nm-soundscape/internal/replication"
	"github.com/samgwise/555nm-soundscape/internal/schedule"
	"github.com/samgwise/555nm-soundscape/internal/voice"
	"github.com/samgwise/555nm-soundscape/pkg/audio"
)

// checkScheduleIntervalMs is the re-evaluation period of the CheckSchedule
// command, per spec.md §4.6.
const checkScheduleIntervalMs = 10_000

// dispatch routes one due command to its handler (C6, spec.md §4.6).
func (e *Engine) dispatch(ctx context.Context, cmd queue.Cmd) {
	switch cmd.Kind {
	case queue.Play:
		e.handlePlay()
	case queue.Load:
		e.handleLoad(ctx, cmd.Index, cmd.Origin)
	case queue.LoadBackground:
		e.handleLoadBackground(ctx)
	case queue.Retire:
		e.handleRetire(ctx)
	case queue.CheckSchedule:
		e.handleCheckSchedule()
	}
}

// handlePlay resumes playback on every currently active voice.
func (e *Engine) handlePlay() {
	for _, v := range e.state.ActiveVoices {
		if v.Sink != nil {
			v.Sink.Play()
		}
	}
}

// handleLoad implements spec.md §4.6's Load(n, origin): a slave ignores an
// internally-originated load while its master is still live, otherwise it
// opens the scene, builds one paused voice per resource, replaces the
// structure phase, and schedules the Play/Retire/next-Load follow-ups.
func (e *Engine) handleLoad(ctx context.Context, index int, origin queue.Origin) {
	s := e.state

	if origin == queue.Internal && s.Role == replication.Slave && replication.HasLiveMaster(s.MasterTimeoutMs) {
		return
	}

	ctx, span := observe.StartSpan(ctx, "engine.load_scene")
	defer span.End()
	start := time.Now()

	scene := e.scenes[index%len(e.scenes)]

	s.ActiveVoices = nil
	for _, res := range scene.Resources {
		v, err := e.newVoice(res)
		if err != nil {
			e.logger.Error("load: failed to build voice", "scene", scene.Name, "resource", res.Path, "error", err)
			e.metrics.SceneLoadErrors.Add(ctx, 1)
			continue
		}
		s.ActiveVoices = append(s.ActiveVoices, v)
	}

	phase, err := newStructurePhase(scene)
	if err != nil {
		e.logger.Error("load: invalid structure curve", "scene", scene.Name, "error", err)
	} else {
		s.StructurePhase = phase
	}
	s.CurrentSceneIndex = index % len(e.scenes)

	s.FutureCommands.Push(queue.PlayCmd(), uint64(s.ElapsedMs)+e.metroStepMs)
	s.FutureCommands.Push(queue.RetireCmd(), uint64(s.ElapsedMs)+scene.DurationMs)

	masterAuthoritative := s.Role == replication.Master || !replication.HasLiveMaster(s.MasterTimeoutMs)
	nextIndex := (index + 1) % len(e.scenes)
	nextAt := uint64(s.ElapsedMs) + scene.DurationMs + e.metroStepMs
	if masterAuthoritative {
		s.FutureCommands.Push(queue.LoadCmd(nextIndex, queue.Internal), nextAt)
	}

	if s.Role == replication.Master && e.transport != nil {
		e.transport.Broadcast(control.NewChangeScene(int32(nextIndex), int64(nextAt)))
	}

	e.metrics.SceneLoadDuration.Record(ctx, time.Since(start).Seconds())
	e.metrics.RecordSceneLoaded(ctx, origin.String())
}

// handleLoadBackground implements spec.md §4.6's LoadBackground: retire any
// existing background voices, load the configured background scene (a
// no-op if none is configured), and start its voices immediately at
// default_level.
func (e *Engine) handleLoadBackground(ctx context.Context) {
	s := e.state

	if n := len(s.BackgroundVoices); n > 0 {
		e.metrics.VoicesRetired.Add(ctx, int64(n))
	}
	for _, v := range s.BackgroundVoices {
		v.VolumeFade(0, v.FadeOutSteps)
	}
	s.RetiredVoices = append(s.RetiredVoices, s.BackgroundVoices...)
	s.BackgroundVoices = nil

	if e.backgroundScene != nil {
		for _, res := range e.backgroundScene.Resources {
			v, err := e.newVoice(res)
			if err != nil {
				e.logger.Error("load_background: failed to build voice", "resource", res.Path, "error", err)
				e.metrics.SceneLoadErrors.Add(ctx, 1)
				continue
			}
			v.IsLive = true
			v.Volume = e.defaultLevel + v.Gain
			if v.Sink != nil {
				v.Sink.SetVolume(v.Volume)
				v.Sink.Play()
			}
			s.BackgroundVoices = append(s.BackgroundVoices, v)
			e.metrics.RecordVoiceActivated(ctx, e.backgroundScene.Name)
		}
	}

	if s.Role == replication.Master && e.transport != nil {
		e.transport.Broadcast(control.NewRefreshBackground())
	}
}

// handleRetire implements spec.md §4.6's Retire: every active voice starts
// a fade-out ramp and moves into the retired set, without touching the
// loaded scene or the structure phase.
func (e *Engine) handleRetire(ctx context.Context) {
	s := e.state
	if n := len(s.ActiveVoices); n > 0 {
		e.metrics.VoicesRetired.Add(ctx, int64(n))
	}
	for _, v := range s.ActiveVoices {
		v.VolumeFade(0, v.FadeOutSteps)
	}
	s.RetiredVoices = append(s.RetiredVoices, s.ActiveVoices...)
	s.ActiveVoices = nil
}

// handleCheckSchedule implements spec.md §4.6's CheckSchedule: recompute
// schedule_live against the wall clock and re-enqueue itself 10s out. A
// console note fires only on a live/not-live transition.
func (e *Engine) handleCheckSchedule() {
	s := e.state

	live, err := schedule.IsInScheduleNow(e.schedule, epoch.Now())
	if err != nil {
		e.logger.Error("check_schedule: evaluation failed", "error", err)
	} else if live != s.ScheduleLive {
		s.ScheduleLive = live
		e.logger.Info("schedule transition", "schedule_live", live)
	}

	s.FutureCommands.Push(queue.CheckScheduleCmd(), uint64(s.ElapsedMs)+checkScheduleIntervalMs)
}

// newVoice builds a paused [voice.Voice] for res, bound to a fresh sink
// diffused across the installation's speaker layout and fed from the
// decoded, buffered, looped (and optionally reverberated) source file. The
// backend's FadeIn combinator is not applied; fade-in comes from the
// voice's own volume ramp — mirroring original_source's resource_to_sound_source, adapted to
// this backend's Decode/combinator collaborator contract (spec.md §6).
func (e *Engine) newVoice(res config.SoundResource) (*voice.Voice, error) {
	position := audio.DefaultPosition
	if res.Position != nil {
		position = audio.Position(*res.Position)
	}

	sink, err := e.backend.NewVoice(e.device, position, e.speakers)
	if err != nil {
		return nil, err
	}

	src, err := e.backend.Decode(res.Path)
	if err != nil {
		return nil, err
	}
	src = e.backend.Buffered(src)
	src = e.backend.RepeatInfinite(src)
	if res.Reverb != nil {
		src = e.backend.Reverb(src, msToDuration(res.Reverb.DelayMs), res.Reverb.MixT)
	}
	sink.Append(src)
	sink.SetVolume(0)

	fadeIn := uint32(0)
	if res.FadeInSteps != nil {
		fadeIn = *res.FadeInSteps
	}
	fadeOut := uint32(0)
	if res.FadeOutSteps != nil {
		fadeOut = *res.FadeOutSteps
	}

	return voice.New(sink, res.MinThreshold, res.MaxThreshold, res.Gain, fadeIn, fadeOut), nil
}

// msToDuration converts a millisecond count from config into a
// [time.Duration] for the audio backend's combinator signatures.
func msToDuration(ms uint64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// newStructurePhase builds the [curve.Phase] for a scene's B-spline
// structure parameters (spec.md §4.4).
func newStructurePhase(scene *config.Scene) (curve.Phase, error) {
	spline, err := curve.New(scene.Structure.Degree, scene.Structure.Points, scene.Structure.Knots)
	if err != nil {
		return curve.Phase{}, err
	}
	return curve.NewPhase(spline, scene.CycleDurationMs), nil
}
