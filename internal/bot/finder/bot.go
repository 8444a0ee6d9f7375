// Package finder is the staff lookup bot: slash commands over the read-only
// game database plus a single reaction-role binding.
package finder

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/Banditcantcode/Banditbot/internal/config"
	"github.com/Banditcantcode/Banditbot/internal/observability"
	"github.com/Banditcantcode/Banditbot/internal/repository"
)

// Bot runs the finder Discord session.
type Bot struct {
	session *discordgo.Session
	players repository.PlayerRepository
	cfg     *config.Config
	logger  *zap.Logger
	metrics *observability.Metrics
}

func New(session *discordgo.Session, players repository.PlayerRepository, cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) *Bot {
	return &Bot{
		session: session,
		players: players,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// NewSession builds the discordgo session for the finder bot.
func NewSession(token string) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentMessageContent
	return dg, nil
}

// Start opens the gateway, registers slash commands and seeds the
// reaction-role message with the bot's own reaction.
func (b *Bot) Start() error {
	b.session.AddHandler(b.onInteraction)
	b.session.AddHandler(b.onReactionAdd)
	b.session.AddHandler(b.onReactionRemove)
	b.session.AddHandler(b.onMessage)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open finder gateway: %w", err)
	}

	if _, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.cfg.Discord.GuildID, commandDefinitions()); err != nil {
		return fmt.Errorf("register finder commands: %w", err)
	}

	b.seedReaction()

	b.logger.Info("finder bot online",
		zap.String("user", b.session.State.User.Username))
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() {
	_ = b.session.Close()
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "info",
			Description: "Look up characters associated with a Discord user",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "The Discord user to search for",
				Required:    true,
			}},
		},
		{
			Name:        "character",
			Description: "Look up detailed information about a character",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The Discord user to search for",
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "citizenid",
					Description: "Citizen ID to look up",
				},
			},
		},
		{
			Name:        "vehicles",
			Description: "Look up vehicles owned by a Discord user",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "The Discord user to search for",
				Required:    true,
			}},
		},
		{
			Name:        "vehicleinfo",
			Description: "Look up vehicle inventory by plate",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "plate",
				Description: "Plate number to search for",
				Required:    true,
			}},
		},
		{
			Name:        "help",
			Description: "Display information about available commands",
		},
	}
}

// seedReaction adds the bot's own reaction to the configured message so the
// binding is discoverable. The channel is unknown, so text channels are
// probed until the message turns up.
func (b *Bot) seedReaction() {
	messageID := b.cfg.Reaction.MessageID
	if messageID == "" {
		return
	}
	channels, err := b.session.GuildChannels(b.cfg.Discord.GuildID)
	if err != nil {
		b.logger.Warn("reaction seed: list channels failed", zap.Error(err))
		return
	}
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		if _, err := b.session.ChannelMessage(ch.ID, messageID); err != nil {
			continue
		}
		if err := b.session.MessageReactionAdd(ch.ID, messageID, b.cfg.Reaction.Emoji); err != nil {
			b.logger.Warn("reaction seed failed", zap.Error(err))
		}
		return
	}
	b.logger.Warn("reaction-role message not found in any text channel",
		zap.String("message_id", messageID))
}

func (b *Bot) onReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if !b.reactionMatches(r.MessageID, r.Emoji.Name) || r.UserID == s.State.User.ID {
		return
	}
	if err := s.GuildMemberRoleAdd(r.GuildID, r.UserID, b.cfg.Reaction.RoleID); err != nil {
		b.logger.Error("reaction role add failed",
			zap.String("user_id", r.UserID), zap.Error(err))
		return
	}
	b.metrics.RecordInteraction("reaction_role_add", "ok")
}

func (b *Bot) onReactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	if !b.reactionMatches(r.MessageID, r.Emoji.Name) {
		return
	}
	if err := s.GuildMemberRoleRemove(r.GuildID, r.UserID, b.cfg.Reaction.RoleID); err != nil {
		b.logger.Error("reaction role remove failed",
			zap.String("user_id", r.UserID), zap.Error(err))
		return
	}
	b.metrics.RecordInteraction("reaction_role_remove", "ok")
}

func (b *Bot) reactionMatches(messageID, emoji string) bool {
	return b.cfg.Reaction.MessageID != "" &&
		b.cfg.Reaction.RoleID != "" &&
		messageID == b.cfg.Reaction.MessageID &&
		emoji == b.cfg.Reaction.Emoji
}

// onMessage handles the owner-only "!sync" escape hatch for re-registering
// slash commands without a restart.
func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || strings.TrimSpace(m.Content) != "!sync" {
		return
	}
	guild, err := s.Guild(m.GuildID)
	if err != nil || guild.OwnerID != m.Author.ID {
		if err == nil {
			_, _ = s.ChannelMessageSend(m.ChannelID, "You do not have permission to sync commands.")
		}
		return
	}
	cmds, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, b.cfg.Discord.GuildID, commandDefinitions())
	if err != nil {
		_, _ = s.ChannelMessageSend(m.ChannelID, "Command sync failed.")
		b.logger.Error("command sync failed", zap.Error(err))
		return
	}
	_, _ = s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Synced %d commands.", len(cmds)))
}
