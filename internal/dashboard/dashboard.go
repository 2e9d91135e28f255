// Package dashboard serves a read-only websocket feed of periodic engine
// snapshots, so an installation operator's browser can watch scene
// rotation, voice counts, and replication health live without touching
// the event loop.
package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/samgwise/555nm-soundscape/internal/engine"
)

// defaultInterval is the default broadcast interval.
const defaultInterval = 2 * time.Second

// SnapshotSource supplies the data a Dashboard broadcasts. This interface
// decouples the dashboard from the concrete *engine.Engine so it can be
// tested against a stub.
type SnapshotSource interface {
	Snapshot() engine.Snapshot
}

// Config holds dependencies for creating a Dashboard.
type Config struct {
	Source   SnapshotSource
	Interval time.Duration // Default: 2 seconds.
	Logger   *slog.Logger
}

// Dashboard accepts websocket clients and periodically pushes a JSON
// encoding of the engine's latest [engine.Snapshot] to each of them.
//
// Thread-safe for concurrent use.
type Dashboard struct {
	mu       sync.Mutex
	conns    map[*websocket.Conn]struct{}
	source   SnapshotSource
	interval time.Duration
	logger   *slog.Logger
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a Dashboard. Call Start to begin the broadcast loop and
// Handler to obtain the http.HandlerFunc to mount on a mux.
func New(cfg Config) *Dashboard {
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{
		conns:    make(map[*websocket.Conn]struct{}),
		source:   cfg.Source,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins the periodic broadcast loop in a background goroutine.
func (d *Dashboard) Start(ctx context.Context) {
	go d.loop(ctx)
}

// Stop halts the broadcast loop and closes every connected client.
func (d *Dashboard) Stop() {
	d.stopOnce.Do(func() {
		close(d.done)
		d.mu.Lock()
		defer d.mu.Unlock()
		for c := range d.conns {
			c.Close(websocket.StatusNormalClosure, "dashboard stopping")
		}
		d.conns = make(map[*websocket.Conn]struct{})
	})
}

// loop runs the periodic broadcast until Stop is called or ctx is
// cancelled.
func (d *Dashboard) loop(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.broadcast(ctx)
		}
	}
}

// broadcast encodes the current snapshot and writes it to every connected
// client, dropping any connection that fails to accept the write.
func (d *Dashboard) broadcast(ctx context.Context) {
	data, err := json.Marshal(d.source.Snapshot())
	if err != nil {
		d.logger.Error("dashboard: failed to encode snapshot", "error", err)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for c := range d.conns {
		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := c.Write(writeCtx, websocket.MessageText, data)
		cancel()
		if err != nil {
			d.logger.Debug("dashboard: dropping client", "error", err)
			c.Close(websocket.StatusInternalError, "write failed")
			delete(d.conns, c)
		}
	}
}

// Handler upgrades r to a websocket connection, registers it for
// broadcast, and blocks (discarding any client frames) until the
// connection is closed by the peer, the request context is cancelled, or
// the Dashboard is stopped.
func (d *Dashboard) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		d.logger.Warn("dashboard: accept failed", "error", err)
		return
	}

	d.mu.Lock()
	d.conns[conn] = struct{}{}
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.conns, conn)
		d.mu.Unlock()
	}()

	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}
