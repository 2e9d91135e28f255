package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/samgwise/555nm-soundscape/internal/curve"
)

// Load reads the YAML configuration file at path and returns a validated
// [Soundscape].
func Load(path string) (*Soundscape, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Soundscape, error) {
	cfg := &Soundscape{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values, returning a
// joined error listing every failure found.
func Validate(cfg *Soundscape) error {
	var errs []error

	if len(cfg.Scenes) == 0 {
		errs = append(errs, errors.New("scenes: at least one scene file is required"))
	}
	if cfg.MetroStepMs == 0 {
		errs = append(errs, errors.New("metro_step_ms: must be greater than zero"))
	}
	if cfg.VoiceLimit < 0 {
		errs = append(errs, errors.New("voice_limit: must not be negative"))
	}
	if len(cfg.SpeakerPositions.Positions) == 0 {
		errs = append(errs, errors.New("speaker_positions.positions: at least one speaker is required"))
	}

	if sched := cfg.DailySchedule; sched != nil {
		if _, err := parseClockTime(sched.Start); err != nil {
			errs = append(errs, fmt.Errorf("daily_schedule.start: %w", err))
		}
		if _, err := parseClockTime(sched.End); err != nil {
			errs = append(errs, fmt.Errorf("daily_schedule.end: %w", err))
		}
	}

	if cfg.BackgroundScene != "" && cfg.DailySchedule == nil {
		slog.Warn("background_scene is configured but daily_schedule is not; the background scene will play at all times")
	}

	return errors.Join(errs...)
}

// parseClockTime is a cheap syntax and range check of an "HH:MM:SS"
// string. It does not build an Epoch; [schedule.ParseClockTime] does the
// real parse when the schedule is evaluated.
func parseClockTime(s string) (struct{}, error) {
	var h, m, sec int
	n, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec)
	if err != nil || n != 3 {
		return struct{}{}, fmt.Errorf("invalid clock time %q, want HH:MM:SS", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return struct{}{}, fmt.Errorf("clock time %q out of range", s)
	}
	return struct{}{}, nil
}

// OpenScene reads and decodes the scene file at path.
func OpenScene(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open scene %q: %w", path, err)
	}
	defer f.Close()

	scene := &Scene{}
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(scene); err != nil {
		return nil, fmt.Errorf("config: parse scene %q: %w", path, err)
	}
	return scene, nil
}

// CheckSceneFile opens a scene file and every sound resource it references,
// returning the decoded scene only if every resource is reachable. This is
// the installation's pre-flight check, run at startup over every
// configured scene before the event loop starts, so a missing audio asset
// fails fast instead of mid-rotation.
func CheckSceneFile(path string) (*Scene, error) {
	scene, err := OpenScene(path)
	if err != nil {
		return nil, err
	}
	if _, err := curve.New(scene.Structure.Degree, scene.Structure.Points, scene.Structure.Knots); err != nil {
		return nil, fmt.Errorf("config: scene %q: invalid structure curve: %w", path, err)
	}
	var errs []error
	for _, res := range scene.Resources {
		if _, err := os.Stat(res.Path); err != nil {
			errs = append(errs, fmt.Errorf("scene %q: resource %q: %w", path, res.Path, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return scene, nil
}
