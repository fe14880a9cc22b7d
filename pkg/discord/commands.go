package discord

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/kabili207/vatsim-listing/pkg/config"
	"github.com/kabili207/vatsim-listing/pkg/models"
	"github.com/kabili207/vatsim-listing/pkg/store"
)

const (
	commandAddVatsim    = "addvatsim"
	commandLinkVatsim   = "linkvatsim"
	commandRemoveVatsim = "removevatsim"
	commandUnlinkVatsim = "unlinkvatsim"
)

// RegisterCommands registers the guild's slash commands and wires their
// handlers to the guild's link store. The admin commands are only offered
// when an admin role is configured for the guild.
func (b *Bot) RegisterCommands(guild config.GuildSettings, links store.UserLinkStore) error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        commandLinkVatsim,
			Description: "Link your VATSIM account",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "cid",
					Description: "VATSIM CID",
					Required:    true,
				},
			},
		},
		{
			Name:        commandUnlinkVatsim,
			Description: "Unlink your VATSIM account",
		},
	}

	if guild.AdminRoleID != "" {
		adminOnly := int64(discordgo.PermissionManageServer)
		commands = append(commands,
			&discordgo.ApplicationCommand{
				Name:                     commandAddVatsim,
				Description:              "Add a VATSIM user",
				DefaultMemberPermissions: &adminOnly,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "cid",
						Description: "VATSIM CID",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "username",
						Description: "Username",
						Required:    true,
					},
				},
			},
			&discordgo.ApplicationCommand{
				Name:                     commandRemoveVatsim,
				Description:              "Remove a VATSIM user",
				DefaultMemberPermissions: &adminOnly,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "cid",
						Description: "VATSIM CID",
						Required:    true,
					},
				},
			},
		)
	}

	if _, err := b.session.ApplicationCommandBulkOverwrite(b.appID, guild.GuildID, commands); err != nil {
		return fmt.Errorf("registering commands for %s: %w", guild.Name, err)
	}

	b.session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.GuildID != guild.GuildID || i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		b.handleCommand(guild, links, i)
	})

	slog.Info("registered discord commands", "guild", guild.Name)
	return nil
}

func (b *Bot) handleCommand(guild config.GuildSettings, links store.UserLinkStore, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()

	var reply string
	var err error
	switch data.Name {
	case commandLinkVatsim:
		reply, err = onLinkVatsim(links, i, data)
	case commandUnlinkVatsim:
		reply, err = onUnlinkVatsim(links, i)
	case commandAddVatsim:
		reply, err = onAddVatsim(links, data)
	case commandRemoveVatsim:
		reply, err = onRemoveVatsim(links, data)
	default:
		return
	}

	if err != nil {
		slog.Error("error handling discord command", "guild", guild.Name, "command", data.Name, "error", err)
		reply = "Something went wrong handling that command. Please try again later."
	}

	response := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
	if err := b.session.InteractionRespond(i.Interaction, response); err != nil {
		slog.Error("error replying to discord command", "guild", guild.Name, "command", data.Name, "error", err)
	}
}

func onLinkVatsim(links store.UserLinkStore, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) (string, error) {
	cid, err := integerOption(data, "cid")
	if err != nil {
		return "", err
	}
	if i.Member == nil || i.Member.User == nil {
		return "", errors.New("interaction has no guild member")
	}

	err = links.Save(models.UserLink{
		DiscordID: i.Member.User.ID,
		Username:  i.Member.User.Username,
		VatsimID:  cid,
	})
	if err != nil {
		return "", err
	}
	return "Thanks for linking your account! Your VATSIM activity will be displayed within a few minutes.", nil
}

func onUnlinkVatsim(links store.UserLinkStore, i *discordgo.InteractionCreate) (string, error) {
	if i.Member == nil || i.Member.User == nil {
		return "", errors.New("interaction has no guild member")
	}
	if err := links.Delete(store.UserLinkFilter{DiscordID: i.Member.User.ID}); err != nil {
		return "", err
	}
	return "Your VATSIM activity will be removed within a few minutes.", nil
}

func onAddVatsim(links store.UserLinkStore, data discordgo.ApplicationCommandInteractionData) (string, error) {
	cid, err := integerOption(data, "cid")
	if err != nil {
		return "", err
	}
	username, err := stringOption(data, "username")
	if err != nil {
		return "", err
	}

	err = links.Save(models.UserLink{
		Username: username,
		VatsimID: cid,
	})
	if err != nil {
		return "", err
	}
	return "VATSIM activity for this user will be displayed within a few minutes.", nil
}

func onRemoveVatsim(links store.UserLinkStore, data discordgo.ApplicationCommandInteractionData) (string, error) {
	cid, err := integerOption(data, "cid")
	if err != nil {
		return "", err
	}

	filter := store.UserLinkFilter{VatsimID: cid}
	link, err := links.Find(filter)
	if err != nil {
		return "", err
	}
	if link == nil {
		return "User not found", nil
	}
	if err := links.Delete(filter); err != nil {
		return "", err
	}
	return "VATSIM activity for this user will be removed within a few minutes.", nil
}

func integerOption(data discordgo.ApplicationCommandInteractionData, name string) (int, error) {
	for _, opt := range data.Options {
		if opt.Name == name {
			return int(opt.IntValue()), nil
		}
	}
	return 0, fmt.Errorf("%s argument is required for the %s command", name, data.Name)
}

func stringOption(data discordgo.ApplicationCommandInteractionData, name string) (string, error) {
	for _, opt := range data.Options {
		if opt.Name == name {
			return opt.StringValue(), nil
		}
	}
	return "", fmt.Errorf("%s argument is required for the %s command", name, data.Name)
}
