// Package config provides the installation's configuration schema, loader,
// and scene-file pre-flight checks.
package config

import "github.com/samgwise/555nm-soundscape/internal/schedule"

// Soundscape is the root configuration structure for one installation
// instance.
type Soundscape struct {
	ListenAddr          Address                 `yaml:"listen_addr"`
	Subscribers         []Address               `yaml:"subscribers"`
	Scenes              []string                `yaml:"scenes"`
	MetroStepMs         uint64                  `yaml:"metro_step_ms"`
	VoiceLimit          int                     `yaml:"voice_limit"`
	DefaultLevel        float32                 `yaml:"default_level"`
	BackgroundScene     string                  `yaml:"background_scene"`
	SpeakerPositions    Speakers                `yaml:"speaker_positions"`
	IgnoreExtraSpeakers *bool                   `yaml:"ignore_extra_speakers"`
	IsFallbackSlave     *bool                   `yaml:"is_fallback_slave"`
	DailySchedule       *schedule.DailySchedule `yaml:"daily_schedule"`
}

// Address is a host/port pair for the control-plane UDP transport.
type Address struct {
	Host string `yaml:"host"`
	Port uint32 `yaml:"port"`
}

// Speakers is the installation's fixed speaker layout.
type Speakers struct {
	Positions [][3]float32 `yaml:"positions"`
}

// Scene describes one rotation entry: a set of sound resources animated by
// a shared structure curve over a fixed cycle.
type Scene struct {
	Name            string          `yaml:"name"`
	DurationMs      uint64          `yaml:"duration_ms"`
	CycleDurationMs uint64          `yaml:"cycle_duration_ms"`
	Resources       []SoundResource `yaml:"resources"`
	Structure       BSplineParams   `yaml:"structure"`
}

// SoundResource is a single voice's source file, activation thresholds, and
// optional fade/reverb/position overrides.
type SoundResource struct {
	Path         string        `yaml:"path"`
	MinThreshold float32       `yaml:"min_threshold"`
	MaxThreshold float32       `yaml:"max_threshold"`
	Gain         float32       `yaml:"gain"`
	FadeInSteps  *uint32       `yaml:"fade_in_steps"`
	FadeOutSteps *uint32       `yaml:"fade_out_steps"`
	Reverb       *ReverbParams `yaml:"reverb"`
	Position     *[3]float32   `yaml:"position"`
}

// ReverbParams configures a resource's reverb combinator.
type ReverbParams struct {
	DelayMs uint64  `yaml:"delay_ms"`
	MixT    float32 `yaml:"mix_t"`
}

// BSplineParams is the YAML-serializable form of a scene's structure curve,
// passed to [curve.New] once loaded.
type BSplineParams struct {
	Points []float32 `yaml:"points"`
	Knots  []float32 `yaml:"knots"`
	Degree int       `yaml:"degree"`
}

// IgnoreExtraSpeakersOr returns the configured IgnoreExtraSpeakers flag, or
// fallback if it was left unset.
func (s *Soundscape) IgnoreExtraSpeakersOr(fallback bool) bool {
	if s.IgnoreExtraSpeakers == nil {
		return fallback
	}
	return *s.IgnoreExtraSpeakers
}

// IsFallbackSlaveOr returns the configured IsFallbackSlave flag, or fallback
// if it was left unset.
func (s *Soundscape) IsFallbackSlaveOr(fallback bool) bool {
	if s.IsFallbackSlave == nil {
		return fallback
	}
	return *s.IsFallbackSlave
}
