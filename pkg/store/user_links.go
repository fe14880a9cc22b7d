package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kabili207/vatsim-listing/pkg/models"
)

// UserLinkFilter selects links by Discord ID and/or VATSIM CID. Set fields
// are AND-combined. An empty filter matches nothing; that is a deliberate
// guard against accidental whole-store matches, not an error.
type UserLinkFilter struct {
	DiscordID string
	VatsimID  int
}

func (f UserLinkFilter) isEmpty() bool {
	return f.DiscordID == "" && f.VatsimID == 0
}

func (f UserLinkFilter) matches(link models.UserLink) bool {
	if f.isEmpty() {
		return false
	}
	if f.DiscordID != "" && link.DiscordID != f.DiscordID {
		return false
	}
	if f.VatsimID != 0 && link.VatsimID != f.VatsimID {
		return false
	}
	return true
}

// UserLinkStore persists the Discord-to-VATSIM links for one guild.
type UserLinkStore interface {
	// GetAll returns every link, loading the backing file on first use.
	GetAll() ([]models.UserLink, error)
	// Find returns the first link matching the filter, or nil if none does.
	Find(filter UserLinkFilter) (*models.UserLink, error)
	// Save removes any link sharing the new link's Discord ID or VATSIM CID,
	// then appends the new link.
	Save(link models.UserLink) error
	// Delete removes at most one link matching the filter. Deleting with no
	// match is a no-op.
	Delete(filter UserLinkFilter) error
	// FlushIfDirty persists the store when a mutation occurred since the
	// last successful flush.
	FlushIfDirty() error
	// StartAutoFlush schedules FlushIfDirty on the given interval until ctx
	// is cancelled. Calling it again is a no-op.
	StartAutoFlush(ctx context.Context, interval time.Duration)
}

type jsonUserLinkStore struct {
	path string

	mu     sync.Mutex
	loaded bool
	dirty  bool
	links  []models.UserLink

	started  atomic.Bool
	flushing atomic.Bool
}

// NewUserLinks creates a store backed by a JSON array file. A missing file
// is treated as an empty store.
func NewUserLinks(path string) UserLinkStore {
	return &jsonUserLinkStore{path: path}
}

// load reads the backing file. Caller must hold s.mu.
func (s *jsonUserLinkStore) load() error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("user link file does not exist, starting empty", "path", s.path)
		s.links = []models.UserLink{}
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading user links: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		s.links = []models.UserLink{}
		s.loaded = true
		return nil
	}

	var links []models.UserLink
	if err := json.Unmarshal(data, &links); err != nil {
		return fmt.Errorf("parsing user links %s: %w", s.path, err)
	}

	s.links = links
	s.loaded = true
	return nil
}

func (s *jsonUserLinkStore) GetAll() ([]models.UserLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, err
	}
	return slices.Clone(s.links), nil
}

func (s *jsonUserLinkStore) Find(filter UserLinkFilter) (*models.UserLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if filter.isEmpty() {
		return nil, nil
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	for _, link := range s.links {
		if filter.matches(link) {
			found := link
			return &found, nil
		}
	}
	return nil, nil
}

func (s *jsonUserLinkStore) Save(link models.UserLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}

	// Replace-on-save by either key keeps the store free of duplicate
	// Discord IDs and duplicate CIDs.
	kept := s.links[:0]
	for _, existing := range s.links {
		sameDiscord := link.DiscordID != "" && existing.DiscordID == link.DiscordID
		sameVatsim := existing.VatsimID == link.VatsimID
		if !sameDiscord && !sameVatsim {
			kept = append(kept, existing)
		}
	}
	s.links = append(kept, link)
	s.dirty = true

	slog.Info("saved user link", "vatsim_id", link.VatsimID, "discord_id", link.DiscordID)
	return nil
}

func (s *jsonUserLinkStore) Delete(filter UserLinkFilter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if filter.isEmpty() {
		return nil
	}
	if err := s.load(); err != nil {
		return err
	}

	for i, link := range s.links {
		if filter.matches(link) {
			s.links = slices.Delete(s.links, i, i+1)
			s.dirty = true
			slog.Info("deleted user link", "vatsim_id", link.VatsimID, "discord_id", link.DiscordID)
			return nil
		}
	}
	return nil
}

func (s *jsonUserLinkStore) FlushIfDirty() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	data, err := json.MarshalIndent(s.links, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding user links: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing user links: %w", err)
	}

	// The dirty flag only clears on success so a failed write is retried
	// on the next flush.
	s.dirty = false
	slog.Info("saved user links", "path", s.path, "count", len(s.links))
	return nil
}

func (s *jsonUserLinkStore) StartAutoFlush(ctx context.Context, interval time.Duration) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				if err := s.FlushIfDirty(); err != nil {
					slog.Error("error saving user links on shutdown", "path", s.path, "error", err)
				}
				return
			case <-ticker.C:
				if !s.flushing.CompareAndSwap(false, true) {
					continue
				}
				if err := s.FlushIfDirty(); err != nil {
					slog.Error("error saving user links", "path", s.path, "error", err)
				}
				s.flushing.Store(false)
			}
		}
	}()
}
