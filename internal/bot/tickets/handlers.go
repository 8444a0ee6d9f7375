package tickets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/Banditcantcode/Banditbot/internal/domain"
	"github.com/Banditcantcode/Banditbot/internal/service"
	"github.com/Banditcantcode/Banditbot/pkg/util"
)

const interactionTimeout = 30 * time.Second

func (b *Bot) handleSetupCommand(i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	messageID, _, err := b.gateway.PostPrompt(ctx)
	if err != nil {
		b.metrics.RecordInteraction("setup", "error")
		b.replyEphemeral(i, "Could not post the ticket prompt: "+errMessage(err))
		return
	}
	b.metrics.RecordInteraction("setup", "ok")
	b.replyEphemeral(i, fmt.Sprintf("Ticket prompt posted in <#%s> (message %s).", b.cfg.Tickets.IntakeChannelID, messageID))
}

// handleCategorySelect runs the create flow. Channel provisioning plus the
// enrichment lookup can exceed the 3 second interaction deadline, so the
// response is deferred first.
func (b *Bot) handleCategorySelect(i *discordgo.InteractionCreate) {
	values := i.MessageComponentData().Values
	if len(values) == 0 {
		return
	}
	category := domain.Category(values[0])

	if err := b.deferEphemeral(i); err != nil {
		b.logger.Warn("defer failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	ticket, err := b.svc.Create(ctx, b.actor(i), category)
	if err != nil {
		b.metrics.RecordInteraction("create", "error")
		if util.Code(err) == util.CodeDuplicateTicket {
			if derr := util.ToDomainError(err); derr != nil {
				if ch, ok := derr.Details["channel_id"].(string); ok && ch != "" {
					b.followupEphemeral(i, fmt.Sprintf("You already have an open %s ticket: <#%s>.", category, ch))
					return
				}
			}
			b.followupEphemeral(i, fmt.Sprintf("You already have an open %s ticket.", category))
			return
		}
		b.followupEphemeral(i, "Could not create your ticket: "+errMessage(err))
		return
	}

	b.metrics.RecordInteraction("create", "ok")
	b.followupEphemeral(i, fmt.Sprintf("Your ticket has been created: <#%s>.", ticket.ChannelID))
}

func (b *Bot) handleClaim(i *discordgo.InteractionCreate, ticketID string) {
	if err := b.deferEphemeral(i); err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	if err := b.svc.Claim(ctx, b.actor(i), ticketID); err != nil {
		b.metrics.RecordInteraction("claim", "error")
		b.followupEphemeral(i, errMessage(err))
		return
	}
	b.metrics.RecordInteraction("claim", "ok")
	b.followupEphemeral(i, "Ticket claimed.")
}

func (b *Bot) handleClose(i *discordgo.InteractionCreate, ticketID string) {
	if err := b.deferEphemeral(i); err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	if err := b.svc.Close(ctx, b.actor(i), ticketID); err != nil {
		b.metrics.RecordInteraction("close", "error")
		b.followupEphemeral(i, errMessage(err))
		return
	}
	b.metrics.RecordInteraction("close", "ok")
	b.followupEphemeral(i, "Ticket closed. A transcript is on its way to the logs channel.")
}

func (b *Bot) handleDelete(i *discordgo.InteractionCreate, ticketID string) {
	if err := b.deferEphemeral(i); err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	if err := b.svc.Delete(ctx, b.actor(i), ticketID); err != nil {
		b.metrics.RecordInteraction("delete", "error")
		b.followupEphemeral(i, errMessage(err))
		return
	}
	b.metrics.RecordInteraction("delete", "ok")
	// The channel is usually gone before the followup lands; the send failing
	// is expected and ignored inside followupEphemeral.
	b.followupEphemeral(i, "Ticket deleted.")
}

func (b *Bot) openRenameModal(i *discordgo.InteractionCreate, ticketID string) {
	// Authorization is ultimately enforced on submit; the pre-check here only
	// avoids showing a modal that will be rejected.
	if !b.allowed(i, ticketID, domain.ActionRename) {
		b.replyEphemeral(i, "You are not allowed to rename this ticket.")
		return
	}
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: ticketCustomID(modalIDRename, ticketID),
			Title:    "Rename Ticket",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    "ticket_name",
						Label:       "New channel name",
						Style:       discordgo.TextInputShort,
						Placeholder: "e.g. gang-dispute-resolved",
						Required:    true,
						MinLength:   1,
						MaxLength:   100,
					},
				}},
			},
		},
	})
	if err != nil {
		b.logger.Warn("rename modal failed", zap.Error(err))
	}
}

func (b *Bot) openAddUserModal(i *discordgo.InteractionCreate, ticketID string) {
	if !b.allowed(i, ticketID, domain.ActionAddUser) {
		b.replyEphemeral(i, "You are not allowed to add users to this ticket.")
		return
	}
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: ticketCustomID(modalIDAddUser, ticketID),
			Title:    "Add User To Ticket",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    "ticket_user",
						Label:       "User mention or user id",
						Style:       discordgo.TextInputShort,
						Placeholder: "@name or 123456789012345678",
						Required:    true,
						MaxLength:   40,
					},
				}},
			},
		},
	})
	if err != nil {
		b.logger.Warn("adduser modal failed", zap.Error(err))
	}
}

func (b *Bot) handleRenameSubmit(i *discordgo.InteractionCreate, ticketID string) {
	name := modalValue(i, "ticket_name")
	if err := b.deferEphemeral(i); err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	if err := b.svc.Rename(ctx, b.actor(i), ticketID, name); err != nil {
		b.metrics.RecordInteraction("rename", "error")
		b.followupEphemeral(i, errMessage(err))
		return
	}
	b.metrics.RecordInteraction("rename", "ok")
	b.followupEphemeral(i, "Ticket renamed.")
}

func (b *Bot) handleAddUserSubmit(i *discordgo.InteractionCreate, ticketID string) {
	ref := modalValue(i, "ticket_user")
	if err := b.deferEphemeral(i); err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	targetID, err := b.svc.AddUser(ctx, b.actor(i), ticketID, ref)
	if err != nil {
		b.metrics.RecordInteraction("adduser", "error")
		b.followupEphemeral(i, errMessage(err))
		return
	}
	b.metrics.RecordInteraction("adduser", "ok")
	b.followupEphemeral(i, fmt.Sprintf("<@%s> was added to the ticket.", targetID))
}

// allowed asks the lifecycle service whether the pressing user may perform
// the action, for gating modals before they open.
func (b *Bot) allowed(i *discordgo.InteractionCreate, ticketID string, action domain.Action) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ticket, err := b.svc.Get(ctx, ticketID)
	if err != nil {
		return false
	}
	return b.svc.PermittedActions(ticket, b.actor(i)).Has(action)
}

func (b *Bot) actor(i *discordgo.InteractionCreate) service.Actor {
	actor := service.Actor{}
	if i.Member != nil && i.Member.User != nil {
		actor.ID = i.Member.User.ID
		actor.Username = i.Member.User.Username
		actor.RoleIDs = i.Member.Roles
	} else if i.User != nil {
		actor.ID = i.User.ID
		actor.Username = i.User.Username
	}
	return actor
}

func modalValue(i *discordgo.InteractionCreate, customID string) string {
	for _, row := range i.ModalSubmitData().Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actionsRow.Components {
			input, ok := comp.(*discordgo.TextInput)
			if ok && input.CustomID == customID {
				return strings.TrimSpace(input.Value)
			}
		}
	}
	return ""
}

// errMessage turns service errors into something a Discord user can act on.
func errMessage(err error) string {
	derr := util.ToDomainError(err)
	if derr == nil {
		return "An unexpected error occurred."
	}
	switch derr.Code {
	case util.CodeForbidden:
		return "You do not have permission to do that."
	case util.CodeNotFound:
		return "This ticket no longer exists."
	case util.CodeValidation, util.CodeInvalidCategory, util.CodeUserNotFound:
		return derr.Message
	default:
		return "An unexpected error occurred."
	}
}

func (b *Bot) deferEphemeral(i *discordgo.InteractionCreate) error {
	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

func (b *Bot) replyEphemeral(i *discordgo.InteractionCreate, content string) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Debug("ephemeral reply failed", zap.Error(err))
	}
}

func (b *Bot) followupEphemeral(i *discordgo.InteractionCreate, content string) {
	_, err := b.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		b.logger.Debug("followup failed", zap.Error(err))
	}
}
