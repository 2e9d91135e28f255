// Package observe provides application-wide observability primitives for
// the soundscape installation: OpenTelemetry metrics, tracing, and
// structured logging helpers. Metrics are recorded through the
// OpenTelemetry Metrics API; a Prometheus exporter bridge is available via
// [InitProvider] so the usual /metrics endpoint keeps working. A
// package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all soundscape
// metrics.
const meterName = "github.com/samgwise/555nm-soundscape"

// Metrics holds all OpenTelemetry metric instruments for the installation.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// TickDuration tracks how long one Update event takes to process on
	// the event-loop goroutine.
	TickDuration metric.Float64Histogram

	// SceneLoadDuration tracks how long building a scene's voices takes.
	SceneLoadDuration metric.Float64Histogram

	// --- Counters ---

	// ScenesLoaded counts Load command executions. Use with attribute:
	//   attribute.String("origin", "internal"|"remote")
	ScenesLoaded metric.Int64Counter

	// VoicesActivated counts voice activation transitions (see
	// internal/voice). Use with attribute:
	//   attribute.String("scene", ...)
	VoicesActivated metric.Int64Counter

	// VoicesRetired counts voices moved into the retired set, plus live
	// voices deactivated by the per-tick activation rule.
	VoicesRetired metric.Int64Counter

	// ControlMessagesReceived counts decoded control-plane packets. Use
	// with attribute:
	//   attribute.String("kind", ...)
	ControlMessagesReceived metric.Int64Counter

	// --- Error counters ---

	// ControlDecodeErrors counts packets that failed to decode.
	ControlDecodeErrors metric.Int64Counter

	// SceneLoadErrors counts failed scene/resource loads.
	SceneLoadErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveVoices tracks the number of currently active voices.
	ActiveVoices metric.Int64UpDownCounter

	// MasterTimeoutMs tracks a slave's remaining takeover countdown; 0
	// when this replica is Master.
	MasterTimeoutMs metric.Int64UpDownCounter

	// HeartbeatAgeMs tracks the time since the last /MasterAlive was
	// received, updated by the engine's tick and heartbeat handlers as the
	// negative of each master_timeout_ms change.
	HeartbeatAgeMs metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) around
// the installation's metro_step_ms scale — a tick budget that is
// typically tens of milliseconds.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TickDuration, err = m.Float64Histogram("soundscape.tick.duration",
		metric.WithDescription("Latency of one Tick/Update cycle on the event loop."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SceneLoadDuration, err = m.Float64Histogram("soundscape.scene_load.duration",
		metric.WithDescription("Latency of building a scene's voices on Load."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.ScenesLoaded, err = m.Int64Counter("soundscape.scenes.loaded",
		metric.WithDescription("Total Load command executions by origin."),
	); err != nil {
		return nil, err
	}
	if met.VoicesActivated, err = m.Int64Counter("soundscape.voices.activated",
		metric.WithDescription("Total voice activation transitions by scene."),
	); err != nil {
		return nil, err
	}
	if met.VoicesRetired, err = m.Int64Counter("soundscape.voices.retired",
		metric.WithDescription("Total voices moved into the retired set."),
	); err != nil {
		return nil, err
	}
	if met.ControlMessagesReceived, err = m.Int64Counter("soundscape.control.messages_received",
		metric.WithDescription("Total decoded control-plane packets by kind."),
	); err != nil {
		return nil, err
	}

	if met.ControlDecodeErrors, err = m.Int64Counter("soundscape.control.decode_errors",
		metric.WithDescription("Total control-plane packets that failed to decode."),
	); err != nil {
		return nil, err
	}
	if met.SceneLoadErrors, err = m.Int64Counter("soundscape.scene_load.errors",
		metric.WithDescription("Total failed scene or resource loads."),
	); err != nil {
		return nil, err
	}

	if met.ActiveVoices, err = m.Int64UpDownCounter("soundscape.active_voices",
		metric.WithDescription("Number of currently active voices."),
	); err != nil {
		return nil, err
	}
	if met.MasterTimeoutMs, err = m.Int64UpDownCounter("soundscape.master_timeout_ms",
		metric.WithDescription("Remaining master-takeover countdown in milliseconds."),
	); err != nil {
		return nil, err
	}
	if met.HeartbeatAgeMs, err = m.Int64UpDownCounter("soundscape.heartbeat_age_ms",
		metric.WithDescription("Milliseconds since the last /MasterAlive was received."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen
// with the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity
// at call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordSceneLoaded is a convenience method recording a scene-load counter
// increment with the standard attribute set.
func (m *Metrics) RecordSceneLoaded(ctx context.Context, origin string) {
	m.ScenesLoaded.Add(ctx, 1, metric.WithAttributes(attribute.String("origin", origin)))
}

// RecordVoiceActivated is a convenience method recording a voice
// activation with the standard attribute set.
func (m *Metrics) RecordVoiceActivated(ctx context.Context, scene string) {
	m.VoicesActivated.Add(ctx, 1, metric.WithAttributes(attribute.String("scene", scene)))
}

// RecordControlMessage is a convenience method recording a decoded
// control-plane packet with the standard attribute set.
func (m *Metrics) RecordControlMessage(ctx context.Context, kind string) {
	m.ControlMessagesReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
