package vatsim

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kabili207/vatsim-listing/pkg/models"
)

type fakeFetcher struct {
	calls    atomic.Int32
	snapshot *models.NetworkSnapshot
	err      error
	block    chan struct{}
}

func (f *fakeFetcher) Fetch(_ context.Context) (*models.NetworkSnapshot, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

func testSnapshot(version int) *models.NetworkSnapshot {
	return &models.NetworkSnapshot{
		Overview:  models.NetworkOverview{Version: version},
		FetchedAt: time.Now(),
	}
}

func TestGetColdStartFetches(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: testSnapshot(1)}
	cache := NewSnapshotCache(fetcher)

	got := cache.Get(context.Background())
	if got == nil {
		t.Fatal("expected snapshot from cold-start fetch")
	}
	if got.Overview.Version != 1 {
		t.Errorf("Version = %d, want 1", got.Overview.Version)
	}
	if fetcher.calls.Load() != 1 {
		t.Errorf("expected 1 fetch, got %d", fetcher.calls.Load())
	}

	// Second read must not fetch again.
	cache.Get(context.Background())
	if fetcher.calls.Load() != 1 {
		t.Errorf("warm read triggered a fetch, total %d", fetcher.calls.Load())
	}
}

func TestRefreshFailureKeepsPriorSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: testSnapshot(1)}
	cache := NewSnapshotCache(fetcher)
	cache.RefreshOnce(context.Background())

	fetcher.err = errors.New("connection refused")
	cache.RefreshOnce(context.Background())

	got := cache.Get(context.Background())
	if got == nil || got.Overview.Version != 1 {
		t.Fatalf("prior snapshot not retained: %+v", got)
	}
	status := cache.Status()
	if status.LastError == "" {
		t.Error("expected LastError after failed refresh")
	}
	if status.LastSuccess.IsZero() {
		t.Error("LastSuccess should survive a failed refresh")
	}
}

func TestRefreshSwapsSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: testSnapshot(1)}
	cache := NewSnapshotCache(fetcher)
	cache.RefreshOnce(context.Background())

	fetcher.snapshot = testSnapshot(2)
	cache.RefreshOnce(context.Background())

	got := cache.Get(context.Background())
	if got.Overview.Version != 2 {
		t.Errorf("Version = %d, want 2", got.Overview.Version)
	}
}

func TestRefreshOverlapDropped(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: testSnapshot(1), block: make(chan struct{})}
	cache := NewSnapshotCache(fetcher)

	done := make(chan struct{})
	go func() {
		cache.RefreshOnce(context.Background())
		close(done)
	}()

	// Wait for the first refresh to be in flight.
	deadline := time.After(2 * time.Second)
	for fetcher.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("first refresh never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// This trigger must be dropped, not queued.
	cache.RefreshOnce(context.Background())
	if fetcher.calls.Load() != 1 {
		t.Errorf("overlapping refresh started a second fetch, total %d", fetcher.calls.Load())
	}

	close(fetcher.block)
	<-done

	if cache.Get(context.Background()) == nil {
		t.Error("expected snapshot after refresh completed")
	}
}

func TestGetColdStartWaitsOutInFlightRefresh(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: testSnapshot(1), block: make(chan struct{})}
	cache := NewSnapshotCache(fetcher)

	refreshDone := make(chan struct{})
	go func() {
		cache.RefreshOnce(context.Background())
		close(refreshDone)
	}()

	deadline := time.After(2 * time.Second)
	for fetcher.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("scheduled refresh never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// A cold-start read during the refresh must still come back with a
	// snapshot, never a nil that the scheduled refresh fills in later.
	got := make(chan *models.NetworkSnapshot, 1)
	go func() {
		got <- cache.Get(context.Background())
	}()

	time.Sleep(10 * time.Millisecond)
	close(fetcher.block)
	<-refreshDone

	select {
	case snapshot := <-got:
		if snapshot == nil {
			t.Fatal("cold-start read returned nil while a fetch was in flight")
		}
		if snapshot.Overview.Version != 1 {
			t.Errorf("Version = %d, want 1", snapshot.Overview.Version)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cold-start read never returned")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: testSnapshot(1)}
	cache := NewSnapshotCache(fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache.Start(ctx, time.Hour)
	cache.Start(ctx, time.Hour)

	deadline := time.After(2 * time.Second)
	for cache.Status().LastSuccess.IsZero() {
		select {
		case <-deadline:
			t.Fatal("scheduled refresh never populated the cache")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// Only the initial fetch of a single loop should have run.
	if calls := fetcher.calls.Load(); calls != 1 {
		t.Errorf("expected 1 fetch from a single refresh loop, got %d", calls)
	}
}
