package tickets

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/Banditcantcode/Banditbot/internal/config"
	"github.com/Banditcantcode/Banditbot/internal/domain"
	"github.com/Banditcantcode/Banditbot/internal/service"
	"github.com/Banditcantcode/Banditbot/pkg/util"
)

// promptTitle marks the bot's own category prompt when rescanning the intake
// channel after a restart.
const promptTitle = "Support Ticket System"

// Gateway implements the lifecycle service's guild interfaces on top of a
// discordgo session.
type Gateway struct {
	session *discordgo.Session
	cfg     *config.Config
	logger  *zap.Logger
}

var (
	_ service.GuildGateway = (*Gateway)(nil)
	_ service.PromptBinder = (*Gateway)(nil)
)

func NewGateway(session *discordgo.Session, cfg *config.Config, logger *zap.Logger) *Gateway {
	return &Gateway{session: session, cfg: cfg, logger: logger}
}

// CreateTicketChannel provisions the private text channel: @everyone denied,
// owner plus the bot plus the category's handler roles allowed.
func (g *Gateway) CreateTicketChannel(ctx context.Context, spec service.ChannelSpec) (string, error) {
	allow := int64(discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionReadMessageHistory |
		discordgo.PermissionAttachFiles)

	overwrites := []*discordgo.PermissionOverwrite{
		{
			ID:   g.cfg.Discord.GuildID, // @everyone shares the guild id
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: int64(discordgo.PermissionViewChannel),
		},
		{
			ID:    spec.OwnerID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: allow,
		},
		{
			ID:    g.session.State.User.ID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: allow | int64(discordgo.PermissionManageChannels),
		},
	}
	for _, roleID := range spec.AccessRoles {
		if roleID == "" || roleID == "0" {
			continue
		}
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    roleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: allow,
		})
	}

	ch, err := g.session.GuildChannelCreateComplex(g.cfg.Discord.GuildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             spec.ParentID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", util.NewChannelProvisioning("create", err)
	}
	return ch.ID, nil
}

func (g *Gateway) ChannelName(ctx context.Context, channelID string) (string, error) {
	ch, err := g.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return "", util.NewNotFound("channel", map[string]any{"channel_id": channelID})
	}
	return ch.Name, nil
}

func (g *Gateway) RenameChannel(ctx context.Context, channelID, name string) error {
	_, err := g.session.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	if err != nil {
		return util.NewChannelProvisioning("rename", err)
	}
	return nil
}

func (g *Gateway) DeleteChannel(ctx context.Context, channelID, reason string) error {
	_, err := g.session.ChannelDelete(channelID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		return util.NewChannelProvisioning("delete", err)
	}
	return nil
}

func (g *Gateway) GrantUserAccess(ctx context.Context, channelID, userID string) error {
	allow := int64(discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionReadMessageHistory |
		discordgo.PermissionAttachFiles)
	err := g.session.ChannelPermissionSet(channelID, userID,
		discordgo.PermissionOverwriteTypeMember, allow, 0, discordgo.WithContext(ctx))
	if err != nil {
		return util.NewChannelProvisioning("grant", err)
	}
	return nil
}

// LockChannel revokes send access for every member overwrite on the channel
// while keeping the history readable. Management keeps write access so the
// delete decision can still be discussed in place.
func (g *Gateway) LockChannel(ctx context.Context, channelID string) error {
	ch, err := g.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return util.NewChannelProvisioning("lock", err)
	}
	keepWrite := map[string]bool{
		g.session.State.User.ID: true,
	}
	for _, ov := range ch.PermissionOverwrites {
		if ov.Type != discordgo.PermissionOverwriteTypeMember || keepWrite[ov.ID] {
			continue
		}
		if g.memberHasRole(ctx, ov.ID, g.cfg.Roles.Management) {
			continue
		}
		allow := int64(discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory)
		deny := int64(discordgo.PermissionSendMessages)
		if err := g.session.ChannelPermissionSet(channelID, ov.ID,
			discordgo.PermissionOverwriteTypeMember, allow, deny, discordgo.WithContext(ctx)); err != nil {
			g.logger.Warn("lock overwrite failed",
				zap.String("channel_id", channelID),
				zap.String("member_id", ov.ID),
				zap.Error(err))
		}
	}
	return nil
}

func (g *Gateway) memberHasRole(ctx context.Context, userID, roleID string) bool {
	if roleID == "" || roleID == "0" {
		return false
	}
	member, err := g.session.GuildMember(g.cfg.Discord.GuildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return false
	}
	for _, r := range member.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// ResolveMember accepts a mention or a bare id and verifies the user is a
// guild member.
func (g *Gateway) ResolveMember(ctx context.Context, ref string) (string, error) {
	id := service.ParseUserRef(ref)
	if id == "" {
		return "", util.NewUserNotFound(ref)
	}
	if _, err := g.session.GuildMember(g.cfg.Discord.GuildID, id, discordgo.WithContext(ctx)); err != nil {
		return "", util.NewUserNotFound(ref)
	}
	return id, nil
}

// SendWelcome posts the opening embed in the new ticket channel, pinging the
// owner, with the lifecycle buttons attached and the optional game account
// context below.
func (g *Gateway) SendWelcome(ctx context.Context, ticket *domain.Ticket, categoryName string, enrichment service.EnrichmentResult) error {
	embeds := []*discordgo.MessageEmbed{welcomeEmbed(ticket, categoryName)}
	if e := enrichmentEmbed(enrichment); e != nil {
		embeds = append(embeds, e)
	}
	_, err := g.session.ChannelMessageSendComplex(ticket.ChannelID, &discordgo.MessageSend{
		Content:    fmt.Sprintf("<@%s>", ticket.OwnerID),
		Embeds:     embeds,
		Components: []discordgo.MessageComponent{openTicketButtons(ticket.ID)},
	}, discordgo.WithContext(ctx))
	return err
}

func (g *Gateway) AnnounceClaim(ctx context.Context, channelID, actorID string) error {
	_, err := g.session.ChannelMessageSendEmbed(channelID, &discordgo.MessageEmbed{
		Description: fmt.Sprintf("🎟️ Ticket claimed by <@%s>. They will be assisting you.", actorID),
		Color:       colorClaimed,
	}, discordgo.WithContext(ctx))
	return err
}

func (g *Gateway) AnnounceUserAdded(ctx context.Context, channelID, targetID, actorID string) error {
	_, err := g.session.ChannelMessageSendEmbed(channelID, &discordgo.MessageEmbed{
		Description: fmt.Sprintf("➕ <@%s> was added to the ticket by <@%s>.", targetID, actorID),
		Color:       colorInfo,
	}, discordgo.WithContext(ctx))
	return err
}

func (g *Gateway) AnnounceClose(ctx context.Context, channelID, actorID string, byCreator bool) error {
	who := fmt.Sprintf("closed by staff member <@%s>", actorID)
	if byCreator {
		who = fmt.Sprintf("closed by the ticket creator <@%s>", actorID)
	}
	_, err := g.session.ChannelMessageSendEmbed(channelID, &discordgo.MessageEmbed{
		Title:       "Ticket Closed",
		Description: fmt.Sprintf("This ticket was %s. The channel is now read-only.", who),
		Color:       colorClosed,
	}, discordgo.WithContext(ctx))
	return err
}

func (g *Gateway) OfferDelete(ctx context.Context, channelID, ticketID string, byCreator bool) error {
	desc := "Staff can delete this ticket once it is resolved."
	if byCreator {
		desc = "You can delete your closed ticket, or staff will remove it later."
	}
	_, err := g.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Description: desc,
			Color:       colorClosed,
		}},
		Components: []discordgo.MessageComponent{closedTicketButtons(ticketID)},
	}, discordgo.WithContext(ctx))
	return err
}

// EnsurePrompt re-binds the category select to the bot's existing prompt in
// the intake channel, or posts a fresh one when none survives. Safe to call
// on every boot.
func (g *Gateway) EnsurePrompt(ctx context.Context) (string, bool, error) {
	intake := g.cfg.Tickets.IntakeChannelID
	if intake == "" {
		return "", false, fmt.Errorf("intake channel not configured")
	}

	messages, err := g.session.ChannelMessages(intake, 25, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return "", false, fmt.Errorf("scan intake channel: %w", err)
	}
	for _, msg := range messages {
		if msg.Author == nil || msg.Author.ID != g.session.State.User.ID {
			continue
		}
		if len(msg.Embeds) == 0 || msg.Embeds[0].Title != promptTitle {
			continue
		}
		components := []discordgo.MessageComponent{categorySelectRow(g.cfg.Tickets)}
		edit := discordgo.NewMessageEdit(intake, msg.ID)
		edit.Components = &components
		if _, err := g.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
			return "", false, fmt.Errorf("rebind prompt: %w", err)
		}
		return msg.ID, false, nil
	}

	return g.PostPrompt(ctx)
}

// PostPrompt always posts a fresh prompt message.
func (g *Gateway) PostPrompt(ctx context.Context) (string, bool, error) {
	msg, err := g.session.ChannelMessageSendComplex(g.cfg.Tickets.IntakeChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{promptEmbed(g.cfg.Tickets)},
		Components: []discordgo.MessageComponent{categorySelectRow(g.cfg.Tickets)},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", false, fmt.Errorf("post prompt: %w", err)
	}
	return msg.ID, true, nil
}
