package tickets

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/Banditcantcode/Banditbot/internal/config"
	"github.com/Banditcantcode/Banditbot/internal/domain"
	"github.com/Banditcantcode/Banditbot/internal/service"
)

// Embed colors, matching the guild's usual palette.
const (
	colorOpen    = 0x5865F2
	colorClaimed = 0x57F287
	colorClosed  = 0xED4245
	colorInfo    = 0xFEE75C
	colorPlayer  = 0x2B2D31
)

func promptEmbed(tickets config.TicketsConfig) *discordgo.MessageEmbed {
	var lines []string
	for _, cat := range domain.Categories {
		desc, ok := tickets.Descriptor(cat)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("**%s** - %s", desc.Name, desc.Description))
	}
	return &discordgo.MessageEmbed{
		Title:       promptTitle,
		Description: "Select a category below to open a ticket.\n\n" + strings.Join(lines, "\n"),
		Color:       colorOpen,
	}
}

func categorySelectRow(tickets config.TicketsConfig) discordgo.MessageComponent {
	options := make([]discordgo.SelectMenuOption, 0, len(domain.Categories))
	for _, cat := range domain.Categories {
		desc, ok := tickets.Descriptor(cat)
		if !ok {
			continue
		}
		options = append(options, discordgo.SelectMenuOption{
			Label:       desc.Name,
			Value:       string(cat),
			Description: desc.Description,
		})
	}
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.SelectMenu{
			MenuType:    discordgo.StringSelectMenu,
			CustomID:    customIDSelect,
			Placeholder: "Choose a ticket category...",
			Options:     options,
		},
	}}
}

// openTicketButtons is the action row attached to the welcome message. The
// ticket id rides in each custom id so presses survive restarts.
func openTicketButtons(ticketID string) discordgo.MessageComponent {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			Label:    "Claim",
			Style:    discordgo.SuccessButton,
			CustomID: ticketCustomID(customIDClaim, ticketID),
			Emoji:    &discordgo.ComponentEmoji{Name: "🙋"},
		},
		discordgo.Button{
			Label:    "Add User",
			Style:    discordgo.SecondaryButton,
			CustomID: ticketCustomID(customIDAddUser, ticketID),
			Emoji:    &discordgo.ComponentEmoji{Name: "➕"},
		},
		discordgo.Button{
			Label:    "Rename",
			Style:    discordgo.SecondaryButton,
			CustomID: ticketCustomID(customIDRename, ticketID),
			Emoji:    &discordgo.ComponentEmoji{Name: "✏️"},
		},
		discordgo.Button{
			Label:    "Close",
			Style:    discordgo.DangerButton,
			CustomID: ticketCustomID(customIDClose, ticketID),
			Emoji:    &discordgo.ComponentEmoji{Name: "🔒"},
		},
	}}
}

func closedTicketButtons(ticketID string) discordgo.MessageComponent {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			Label:    "Delete Ticket",
			Style:    discordgo.DangerButton,
			CustomID: ticketCustomID(customIDDelete, ticketID),
			Emoji:    &discordgo.ComponentEmoji{Name: "🗑️"},
		},
	}}
}

func welcomeEmbed(ticket *domain.Ticket, categoryName string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       categoryName,
		Description: "Support will be with you shortly. Describe your issue in as much detail as you can.",
		Color:       colorOpen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Ticket ID", Value: ticket.ID, Inline: true},
			{Name: "Opened By", Value: fmt.Sprintf("<@%s>", ticket.OwnerID), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Use the buttons above to manage this ticket."},
	}
}

// enrichmentEmbed renders the game-account context block, or nil when the
// lookup found nothing to show.
func enrichmentEmbed(result service.EnrichmentResult) *discordgo.MessageEmbed {
	switch result.Status {
	case service.EnrichmentFailed:
		return &discordgo.MessageEmbed{
			Description: "⚠️ Game account lookup is unavailable right now.",
			Color:       colorInfo,
		}
	case service.EnrichmentMissing:
		return &discordgo.MessageEmbed{
			Description: "No linked game account was found for this user.",
			Color:       colorPlayer,
		}
	case service.EnrichmentFound:
		// fallthrough below
	default:
		return nil
	}

	account := result.Account
	fields := []*discordgo.MessageEmbedField{
		{Name: "Game Username", Value: orDash(account.Username), Inline: true},
		{Name: "User ID", Value: fmt.Sprintf("%d", account.UserID), Inline: true},
		{Name: "FiveM", Value: orDash(account.FiveM), Inline: true},
	}
	if len(result.Characters) > 0 {
		var lines []string
		for _, c := range result.Characters {
			lines = append(lines, fmt.Sprintf("`%s` %s", c.CitizenID, c.DisplayName()))
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("Characters (%d)", len(result.Characters)),
			Value: strings.Join(lines, "\n"),
		})
	}
	return &discordgo.MessageEmbed{
		Title:  "Linked Game Account",
		Color:  colorPlayer,
		Fields: fields,
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
