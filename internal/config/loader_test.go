package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samgwise/555nm-soundscape/internal/config"
)

const minimalValidYAML = `
scenes:
  - scene-a.yml
metro_step_ms: 30
voice_limit: 8
speaker_positions:
  positions:
    - [0, 0, 0]
    - [1, 0, 0]
`

func TestLoadFromReaderAccepts(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(minimalValidYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.MetroStepMs != 30 {
		t.Errorf("MetroStepMs = %d, want 30", cfg.MetroStepMs)
	}
	if len(cfg.SpeakerPositions.Positions) != 2 {
		t.Errorf("got %d speakers, want 2", len(cfg.SpeakerPositions.Positions))
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	yaml := minimalValidYAML + "\nnot_a_real_field: true\n"
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidateRequiresAtLeastOneScene(t *testing.T) {
	t.Parallel()
	yaml := `
metro_step_ms: 30
speaker_positions:
  positions:
    - [0, 0, 0]
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil || !strings.Contains(err.Error(), "scenes") {
		t.Fatalf("expected error mentioning scenes, got: %v", err)
	}
}

func TestValidateRequiresMetroStep(t *testing.T) {
	t.Parallel()
	yaml := `
scenes:
  - scene-a.yml
speaker_positions:
  positions:
    - [0, 0, 0]
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil || !strings.Contains(err.Error(), "metro_step_ms") {
		t.Fatalf("expected error mentioning metro_step_ms, got: %v", err)
	}
}

func TestValidateRejectsBadClockTime(t *testing.T) {
	t.Parallel()
	yaml := minimalValidYAML + `
daily_schedule:
  start: "not-a-time"
  end: "01:00:00"
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil || !strings.Contains(err.Error(), "daily_schedule.start") {
		t.Fatalf("expected error mentioning daily_schedule.start, got: %v", err)
	}
}

func TestCheckSceneFileValidatesResources(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	missingScene := filepath.Join(dir, "scene.yml")
	sceneYAML := `
name: test-scene
duration_ms: 60000
cycle_duration_ms: 10000
resources:
  - path: ` + filepath.Join(dir, "missing.pcm") + `
    min_threshold: 0
    max_threshold: 1
    gain: 0
structure:
  points: [0, 1]
  knots: [0, 0, 1, 1]
  degree: 1
`
	if err := os.WriteFile(missingScene, []byte(sceneYAML), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := config.CheckSceneFile(missingScene); err == nil {
		t.Fatal("expected error for missing resource file")
	}

	presentResource := filepath.Join(dir, "present.pcm")
	if err := os.WriteFile(presentResource, []byte{0, 0}, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	okSceneYAML := `
name: test-scene
duration_ms: 60000
cycle_duration_ms: 10000
resources:
  - path: ` + presentResource + `
    min_threshold: 0
    max_threshold: 1
    gain: 0
structure:
  points: [0, 1]
  knots: [0, 0, 1, 1]
  degree: 1
`
	okScene := filepath.Join(dir, "scene-ok.yml")
	if err := os.WriteFile(okScene, []byte(okSceneYAML), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	scene, err := config.CheckSceneFile(okScene)
	if err != nil {
		t.Fatalf("CheckSceneFile: %v", err)
	}
	if scene.Name != "test-scene" {
		t.Errorf("scene.Name = %q, want test-scene", scene.Name)
	}
}
