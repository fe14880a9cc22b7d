package vatsim

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kabili207/vatsim-listing/pkg/models"
)

// Fetcher retrieves a fresh network snapshot.
type Fetcher interface {
	Fetch(ctx context.Context) (*models.NetworkSnapshot, error)
}

// RefreshStatus describes the outcome of recent refresh attempts.
type RefreshStatus struct {
	LastAttempt time.Time
	LastSuccess time.Time
	LastError   string
}

// SnapshotCache holds the most recent VATSIM snapshot and refreshes it on
// a recurring schedule. Readers never block on network I/O except for the
// unavoidable cold-start fetch; a successful refresh swaps the snapshot
// pointer atomically and a failed refresh leaves the prior snapshot in
// place.
type SnapshotCache struct {
	fetcher Fetcher

	snapshot atomic.Pointer[models.NetworkSnapshot]
	running  atomic.Bool
	inFlight atomic.Bool

	coldStart sync.Mutex

	statusMu sync.Mutex
	status   RefreshStatus
}

func NewSnapshotCache(fetcher Fetcher) *SnapshotCache {
	return &SnapshotCache{fetcher: fetcher}
}

// Get returns the current snapshot, fetching one synchronously when none
// has been loaded yet. Returns nil when no snapshot could be obtained.
func (c *SnapshotCache) Get(ctx context.Context) *models.NetworkSnapshot {
	if s := c.snapshot.Load(); s != nil {
		return s
	}

	c.coldStart.Lock()
	defer c.coldStart.Unlock()

	if s := c.snapshot.Load(); s != nil {
		return s
	}
	// Bypass the in-flight guard so a scheduled refresh that is still
	// running cannot turn the cold-start fetch into a dropped no-op.
	c.refresh(ctx)
	return c.snapshot.Load()
}

// Start launches the recurring refresh. Calling it again is a no-op.
func (c *SnapshotCache) Start(ctx context.Context, interval time.Duration) {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	go c.refreshLoop(ctx, interval)
}

func (c *SnapshotCache) refreshLoop(ctx context.Context, interval time.Duration) {
	c.RefreshOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RefreshOnce(ctx)
		}
	}
}

// RefreshOnce performs a single fetch-and-swap. A refresh already in
// progress causes the call to be dropped rather than running a second
// concurrent fetch. Failures are logged and the previous snapshot is kept.
func (c *SnapshotCache) RefreshOnce(ctx context.Context) {
	if !c.inFlight.CompareAndSwap(false, true) {
		slog.Debug("vatsim refresh already in progress, dropping trigger")
		return
	}
	defer c.inFlight.Store(false)

	c.refresh(ctx)
}

func (c *SnapshotCache) refresh(ctx context.Context) {
	start := time.Now()
	snapshot, err := c.fetcher.Fetch(ctx)

	c.statusMu.Lock()
	c.status.LastAttempt = start
	if err != nil {
		c.status.LastError = err.Error()
	} else {
		c.status.LastSuccess = start
		c.status.LastError = ""
	}
	c.statusMu.Unlock()

	if err != nil {
		slog.Error("error retrieving vatsim data", "error", err)
		return
	}

	c.snapshot.Store(snapshot)
	slog.Info("retrieved vatsim data",
		"pilots", len(snapshot.Pilots),
		"controllers", len(snapshot.Controllers),
		"durationMs", time.Since(start).Milliseconds())
}

// Status reports the outcome of recent refresh attempts.
func (c *SnapshotCache) Status() RefreshStatus {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	return c.status
}
