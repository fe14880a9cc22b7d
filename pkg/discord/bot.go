package discord

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jellydator/ttlcache/v3"
	"github.com/kabili207/vatsim-listing/pkg/listing"
	"github.com/kabili207/vatsim-listing/pkg/models"
)

const (
	memberCacheTTL = time.Minute
	memberPageSize = 1000
	gatewayIntents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
)

// Bot wraps the discordgo session shared by every guild publisher and
// implements the listing.Messenger surface.
type Bot struct {
	session     *discordgo.Session
	appID       string
	memberCache *ttlcache.Cache[string, []models.MemberRecord]
}

func NewBot(token, applicationID string) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = gatewayIntents

	cache := ttlcache.New[string, []models.MemberRecord](
		ttlcache.WithTTL[string, []models.MemberRecord](memberCacheTTL),
	)
	go cache.Start()

	return &Bot{
		session:     session,
		appID:       applicationID,
		memberCache: cache,
	}, nil
}

// Open connects the gateway session.
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("connecting to discord: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	b.memberCache.Stop()
	return b.session.Close()
}

// FetchMembers returns the guild's member list, cached briefly so several
// publish cycles close together don't re-walk the member pages.
func (b *Bot) FetchMembers(guildID string) ([]models.MemberRecord, error) {
	if item := b.memberCache.Get(guildID, ttlcache.WithDisableTouchOnHit[string, []models.MemberRecord]()); item != nil {
		return item.Value(), nil
	}

	var records []models.MemberRecord
	after := ""
	for {
		members, err := b.session.GuildMembers(guildID, after, memberPageSize)
		if err != nil {
			return nil, fmt.Errorf("fetching members for guild %s: %w", guildID, err)
		}
		if len(members) == 0 {
			break
		}
		for _, m := range members {
			if m.User == nil {
				continue
			}
			name := m.Nick
			if name == "" {
				name = m.User.Username
			}
			records = append(records, models.MemberRecord{ID: m.User.ID, DisplayName: name})
		}
		after = members[len(members)-1].User.ID
		if len(members) < memberPageSize {
			break
		}
	}

	b.memberCache.Set(guildID, records, ttlcache.DefaultTTL)
	return records, nil
}

// FetchMessage returns a message by ID, or nil when Discord no longer
// knows it. A message counts as editable only when the bot authored it.
func (b *Bot) FetchMessage(channelID, messageID string) (*listing.Message, error) {
	m, err := b.session.ChannelMessage(channelID, messageID)
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &listing.Message{
		ID:        m.ID,
		CreatedAt: m.Timestamp,
		Editable:  b.isOwnMessage(m),
	}, nil
}

func (b *Bot) isOwnMessage(m *discordgo.Message) bool {
	self := b.session.State.User
	return self != nil && m.Author != nil && m.Author.ID == self.ID
}

func (b *Bot) ListRecentMessageIDs(channelID string, limit int) ([]string, error) {
	messages, err := b.session.ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (b *Bot) BulkDelete(channelID string, messageIDs []string) error {
	return b.session.ChannelMessagesBulkDelete(channelID, messageIDs)
}

func (b *Bot) SendMessage(channelID, content string) (string, error) {
	m, err := b.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

func (b *Bot) EditMessage(channelID, messageID, content string) error {
	_, err := b.session.ChannelMessageEdit(channelID, messageID, content)
	return err
}
