// Package tickets is the Discord transport for the ticket system: the
// category-selection prompt, per-ticket action buttons and modals, and the
// guild-side effects (channel provisioning, notices, transcript delivery)
// behind the lifecycle service's interfaces.
package tickets

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/Banditcantcode/Banditbot/internal/config"
	"github.com/Banditcantcode/Banditbot/internal/observability"
	"github.com/Banditcantcode/Banditbot/internal/service"
)

// Component custom ids. Per-ticket ids carry the ticket identity after the
// colon so a restarted process resolves button presses without any live
// per-ticket state.
const (
	customIDSelect  = "ticket_type_select"
	customIDClaim   = "ticket_claim"
	customIDAddUser = "ticket_adduser"
	customIDRename  = "ticket_rename"
	customIDClose   = "ticket_close"
	customIDDelete  = "ticket_delete"

	modalIDRename  = "ticket_rename_modal"
	modalIDAddUser = "ticket_adduser_modal"
)

// Bot runs the tickets Discord session.
type Bot struct {
	session *discordgo.Session
	svc     *service.TicketService
	gateway *Gateway
	cfg     *config.Config
	logger  *zap.Logger
	metrics *observability.Metrics
}

// New creates the bot around an existing session. The session is not opened
// here so the caller can finish wiring (the lifecycle service needs the
// session-backed gateway first).
func New(session *discordgo.Session, svc *service.TicketService, gateway *Gateway, cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) *Bot {
	return &Bot{
		session: session,
		svc:     svc,
		gateway: gateway,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// NewSession builds the discordgo session for the tickets bot.
func NewSession(token string) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentMessageContent
	return dg, nil
}

// Start opens the gateway connection, registers slash commands and installs
// the interaction handler.
func (b *Bot) Start() error {
	b.session.AddHandler(b.onInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open tickets gateway: %w", err)
	}

	adminPerm := int64(discordgo.PermissionAdministrator)
	noDM := false
	commands := []*discordgo.ApplicationCommand{
		{
			Name:                     "ticketsetup",
			Description:              "Post the ticket category prompt in the intake channel",
			DefaultMemberPermissions: &adminPerm,
			DMPermission:             &noDM,
		},
	}
	if _, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.cfg.Discord.GuildID, commands); err != nil {
		return fmt.Errorf("register ticket commands: %w", err)
	}

	b.logger.Info("tickets bot online",
		zap.String("user", b.session.State.User.Username))
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() {
	_ = b.session.Close()
}

// onInteraction is the single dispatch point for every ticket interaction.
// A panic in any handler is converted to a generic failure reply; one bad
// interaction must never take the process down.
func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic in ticket interaction",
				zap.Any("panic", r),
				zap.Stack("stack"))
			b.metrics.RecordInteraction("panic", "error")
			b.replyEphemeral(i, "Something went wrong handling that. Please try again.")
		}
	}()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if i.ApplicationCommandData().Name == "ticketsetup" {
			b.handleSetupCommand(i)
		}
	case discordgo.InteractionMessageComponent:
		b.dispatchComponent(i)
	case discordgo.InteractionModalSubmit:
		b.dispatchModal(i)
	}
}

func (b *Bot) dispatchComponent(i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	if customID == customIDSelect {
		b.handleCategorySelect(i)
		return
	}

	action, ticketID, ok := splitCustomID(customID)
	if !ok {
		return
	}
	switch action {
	case customIDClaim:
		b.handleClaim(i, ticketID)
	case customIDAddUser:
		b.openAddUserModal(i, ticketID)
	case customIDRename:
		b.openRenameModal(i, ticketID)
	case customIDClose:
		b.handleClose(i, ticketID)
	case customIDDelete:
		b.handleDelete(i, ticketID)
	}
}

func (b *Bot) dispatchModal(i *discordgo.InteractionCreate) {
	action, ticketID, ok := splitCustomID(i.ModalSubmitData().CustomID)
	if !ok {
		return
	}
	switch action {
	case modalIDRename:
		b.handleRenameSubmit(i, ticketID)
	case modalIDAddUser:
		b.handleAddUserSubmit(i, ticketID)
	}
}

func splitCustomID(customID string) (action, ticketID string, ok bool) {
	action, ticketID, ok = strings.Cut(customID, ":")
	if !ok || ticketID == "" {
		return "", "", false
	}
	return action, ticketID, true
}

func ticketCustomID(action, ticketID string) string {
	return action + ":" + ticketID
}
