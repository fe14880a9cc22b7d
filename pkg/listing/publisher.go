package listing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kabili207/vatsim-listing/pkg/config"
	"github.com/kabili207/vatsim-listing/pkg/models"
	"github.com/kabili207/vatsim-listing/pkg/store"
)

const (
	// retentionThreshold is how old a listing message may get before the
	// platform refuses edits and it must be replaced.
	retentionThreshold = 13 * 24 * time.Hour

	// messagePageSize bounds the channel clutter sweep to the most recent
	// fetchable page.
	messagePageSize = 100
)

// Message is the publisher's view of an existing chat message.
type Message struct {
	ID        string
	CreatedAt time.Time
	Editable  bool
}

// Messenger is the chat-platform surface the publisher depends on.
type Messenger interface {
	// FetchMembers returns the current members of a guild.
	FetchMembers(guildID string) ([]models.MemberRecord, error)
	// FetchMessage returns a message by ID, or nil when it no longer exists.
	FetchMessage(channelID, messageID string) (*Message, error)
	// ListRecentMessageIDs returns IDs of the most recent channel messages.
	ListRecentMessageIDs(channelID string, limit int) ([]string, error)
	// BulkDelete removes the given messages in a batch.
	BulkDelete(channelID string, messageIDs []string) error
	SendMessage(channelID, content string) (string, error)
	EditMessage(channelID, messageID, content string) error
}

// SnapshotSource provides the current network snapshot without blocking on
// network I/O once warm.
type SnapshotSource interface {
	Get(ctx context.Context) *models.NetworkSnapshot
}

// Publisher keeps one guild channel populated with the activity listing,
// editing its own message in place and replacing it once it becomes
// unusable. All other messages in the channel are pruned best-effort.
type Publisher struct {
	name      string
	guildID   string
	channelID string

	links     store.UserLinkStore
	messenger Messenger
	snapshots SnapshotSource
	renderer  *Renderer

	stateMu sync.Mutex
	state   models.ListingState

	running  atomic.Bool
	inFlight atomic.Bool
}

func NewPublisher(guild config.GuildSettings, links store.UserLinkStore, messenger Messenger, snapshots SnapshotSource, renderer *Renderer) *Publisher {
	return &Publisher{
		name:      guild.Name,
		guildID:   guild.GuildID,
		channelID: guild.ChannelID,
		links:     links,
		messenger: messenger,
		snapshots: snapshots,
		renderer:  renderer,
	}
}

// Name returns the configured guild name.
func (p *Publisher) Name() string {
	return p.name
}

// State returns the current listing state.
func (p *Publisher) State() models.ListingState {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.state
}

// Start schedules recurring listing updates until ctx is cancelled.
// Calling it again is a no-op.
func (p *Publisher) Start(ctx context.Context, interval time.Duration) {
	if !p.running.CompareAndSwap(false, true) {
		return
	}
	go func() {
		p.UpdateOnce(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.UpdateOnce(ctx)
			}
		}
	}()
}

// UpdateOnce runs a single publish cycle. A cycle already in progress
// causes the call to be dropped; failures are logged and absorbed so the
// next tick always runs.
func (p *Publisher) UpdateOnce(ctx context.Context) {
	if !p.inFlight.CompareAndSwap(false, true) {
		slog.Debug("listing update already in progress, dropping trigger", "guild", p.name)
		return
	}
	defer p.inFlight.Store(false)

	if err := p.update(ctx); err != nil {
		slog.Error("error updating listing", "guild", p.name, "error", err)
	}
}

func (p *Publisher) update(ctx context.Context) error {
	current := p.resolveCurrentMessage()

	content, err := p.buildContent(ctx)
	if err != nil {
		return err
	}
	if content == "" {
		return nil
	}

	ids, err := p.messenger.ListRecentMessageIDs(p.channelID, messagePageSize)
	if err != nil {
		return fmt.Errorf("listing channel messages: %w", err)
	}
	var clutter []string
	for _, id := range ids {
		if current == nil || id != current.ID {
			clutter = append(clutter, id)
		}
	}
	if len(clutter) > 0 {
		if err := p.messenger.BulkDelete(p.channelID, clutter); err != nil {
			slog.Warn("error pruning channel messages", "guild", p.name, "error", err)
		}
	}

	if current != nil {
		if err := p.messenger.EditMessage(p.channelID, current.ID, content); err != nil {
			return fmt.Errorf("editing listing message: %w", err)
		}
	} else {
		id, err := p.messenger.SendMessage(p.channelID, content)
		if err != nil {
			return fmt.Errorf("sending listing message: %w", err)
		}
		p.setMessageID(id)
	}

	p.stateMu.Lock()
	p.state.LastRenderedAt = p.renderer.Now()
	p.stateMu.Unlock()

	slog.Info("updated listing", "guild", p.name)
	return nil
}

// resolveCurrentMessage fetches the remembered listing message and decides
// whether it can still be edited. Anything unusable drops the remembered
// ID so a new message gets created this cycle.
func (p *Publisher) resolveCurrentMessage() *Message {
	id := p.State().MessageID
	if id == "" {
		return nil
	}

	message, err := p.messenger.FetchMessage(p.channelID, id)
	if err != nil || message == nil {
		p.setMessageID("")
		slog.Info("previous listing message no longer exists, creating a new one", "guild", p.name)
		return nil
	}
	if !message.Editable || p.renderer.Now().Sub(message.CreatedAt) > retentionThreshold {
		p.setMessageID("")
		slog.Info("listing message is no longer editable, replacing it with a new one", "guild", p.name)
		return nil
	}
	return message
}

func (p *Publisher) buildContent(ctx context.Context) (string, error) {
	links, err := p.links.GetAll()
	if err != nil {
		return "", fmt.Errorf("loading user links: %w", err)
	}
	members, err := p.messenger.FetchMembers(p.guildID)
	if err != nil {
		return "", fmt.Errorf("fetching guild members: %w", err)
	}

	snapshot := p.snapshots.Get(ctx)
	pilots, controllers := Correlate(links, members, snapshot)

	var overview *models.NetworkOverview
	if snapshot != nil {
		o := snapshot.Overview
		overview = &o
	}
	return p.renderer.Render(pilots, controllers, overview), nil
}

func (p *Publisher) setMessageID(id string) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	p.state.MessageID = id
}
