package finder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/Banditcantcode/Banditbot/internal/domain"
)

const lookupTimeout = 20 * time.Second

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic in finder command",
				zap.Any("panic", r),
				zap.Stack("stack"))
			b.metrics.RecordInteraction("panic", "error")
		}
	}()

	name := i.ApplicationCommandData().Name
	if name == "help" {
		b.handleHelp(i)
		return
	}

	// Every game-DB command defers first; the MySQL round trips can blow
	// the 3 second interaction deadline.
	if err := b.deferReply(i); err != nil {
		b.logger.Warn("defer failed", zap.Error(err))
		return
	}
	if !b.isStaff(i) {
		b.followup(i, "You do not have permission to use this command.")
		b.metrics.RecordInteraction(name, "forbidden")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	switch name {
	case "info":
		b.handleInfo(ctx, i)
	case "character":
		b.handleCharacter(ctx, i)
	case "vehicles":
		b.handleVehicles(ctx, i)
	case "vehicleinfo":
		b.handleVehicleInfo(ctx, i)
	}
}

func (b *Bot) handleInfo(ctx context.Context, i *discordgo.InteractionCreate) {
	user := optionUser(b.session, i, "user")
	if user == nil {
		b.followup(i, "You must mention a user.")
		return
	}

	account, err := b.players.AccountByDiscord(ctx, user.ID)
	if err != nil {
		b.fail(i, "info", err)
		return
	}
	if account == nil {
		b.followup(i, fmt.Sprintf("No player found for Discord user <@%s>.", user.ID))
		return
	}

	characters, err := b.players.Characters(ctx, account.License, account.License2, account.UserID)
	if err != nil {
		b.fail(i, "info", err)
		return
	}

	b.metrics.RecordInteraction("info", "ok")
	b.followupEmbed(i, infoEmbed(account, characters))
}

func (b *Bot) handleCharacter(ctx context.Context, i *discordgo.InteractionCreate) {
	user := optionUser(b.session, i, "user")
	citizenID := optionString(i, "citizenid")

	if user == nil && citizenID == "" {
		b.followup(i, "You must provide either a user mention or a citizen ID.")
		return
	}

	if citizenID != "" {
		char, err := b.players.CharacterByCitizenID(ctx, citizenID)
		if err != nil {
			b.fail(i, "character", err)
			return
		}
		if char == nil {
			b.followup(i, fmt.Sprintf("No character found with citizen ID: %s", citizenID))
			return
		}
		b.metrics.RecordInteraction("character", "ok")
		b.followupEmbed(i, characterEmbed(*char))
		return
	}

	account, err := b.players.AccountByDiscord(ctx, user.ID)
	if err != nil {
		b.fail(i, "character", err)
		return
	}
	if account == nil {
		b.followup(i, fmt.Sprintf("No player found for Discord user <@%s>.", user.ID))
		return
	}
	characters, err := b.players.Characters(ctx, account.License, account.License2, account.UserID)
	if err != nil {
		b.fail(i, "character", err)
		return
	}
	if len(characters) == 0 {
		b.followup(i, fmt.Sprintf("No characters found for user <@%s>.", user.ID))
		return
	}
	b.metrics.RecordInteraction("character", "ok")
	b.followupEmbed(i, charactersEmbed(user.Username, characters))
}

func (b *Bot) handleVehicles(ctx context.Context, i *discordgo.InteractionCreate) {
	user := optionUser(b.session, i, "user")
	if user == nil {
		b.followup(i, "You must mention a user.")
		return
	}

	account, err := b.players.AccountByDiscord(ctx, user.ID)
	if err != nil {
		b.fail(i, "vehicles", err)
		return
	}
	if account == nil {
		b.followup(i, fmt.Sprintf("No player found for Discord user <@%s>.", user.ID))
		return
	}

	characters, err := b.players.Characters(ctx, account.License, account.License2, account.UserID)
	if err != nil {
		b.fail(i, "vehicles", err)
		return
	}
	if len(characters) == 0 {
		b.followup(i, fmt.Sprintf("No characters found for user <@%s>.", user.ID))
		return
	}

	citizenIDs := make([]string, 0, len(characters))
	for _, c := range characters {
		citizenIDs = append(citizenIDs, c.CitizenID)
	}
	vehicles, err := b.players.VehiclesByCitizenIDs(ctx, citizenIDs)
	if err != nil {
		b.fail(i, "vehicles", err)
		return
	}
	if len(vehicles) == 0 {
		b.followup(i, fmt.Sprintf("No vehicles found for user <@%s>.", user.ID))
		return
	}

	b.metrics.RecordInteraction("vehicles", "ok")
	b.followupEmbed(i, vehiclesEmbed(user.Username, vehicles, len(citizenIDs)))
}

func (b *Bot) handleVehicleInfo(ctx context.Context, i *discordgo.InteractionCreate) {
	plate := strings.ToUpper(optionString(i, "plate"))
	if plate == "" {
		b.followup(i, "You must provide a plate.")
		return
	}

	trunk, glovebox, found, err := b.players.VehicleInventory(ctx, plate)
	if err != nil {
		b.fail(i, "vehicleinfo", err)
		return
	}
	if !found {
		b.followup(i, fmt.Sprintf("No vehicle found with plate `%s`.", plate))
		return
	}

	b.metrics.RecordInteraction("vehicleinfo", "ok")
	b.followupEmbed(i, inventoryEmbed(plate, trunk, glovebox))
}

func (b *Bot) handleHelp(i *discordgo.InteractionCreate) {
	b.metrics.RecordInteraction("help", "ok")
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{helpEmbed()},
		},
	})
	if err != nil {
		b.logger.Debug("help reply failed", zap.Error(err))
	}
}

func (b *Bot) isStaff(i *discordgo.InteractionCreate) bool {
	staff := b.cfg.Roles.Staff
	if staff == "" || staff == "0" || i.Member == nil {
		return false
	}
	for _, role := range i.Member.Roles {
		if role == staff {
			return true
		}
	}
	return false
}

func (b *Bot) fail(i *discordgo.InteractionCreate, command string, err error) {
	b.logger.Error("finder command failed",
		zap.String("command", command), zap.Error(err))
	b.metrics.RecordInteraction(command, "error")
	b.followup(i, "An error occurred while looking that up. Try again shortly.")
}

func (b *Bot) deferReply(i *discordgo.InteractionCreate) error {
	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

func (b *Bot) followup(i *discordgo.InteractionCreate, content string) {
	_, err := b.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: content})
	if err != nil {
		b.logger.Debug("followup failed", zap.Error(err))
	}
}

func (b *Bot) followupEmbed(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	_, err := b.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		b.logger.Debug("followup failed", zap.Error(err))
	}
}

func optionUser(s *discordgo.Session, i *discordgo.InteractionCreate, name string) *discordgo.User {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionUser {
			return opt.UserValue(s)
		}
	}
	return nil
}

func optionString(i *discordgo.InteractionCreate, name string) string {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return strings.TrimSpace(opt.StringValue())
		}
	}
	return ""
}

// characterLabel is the one-line overview entry shown by /info.
func characterLabel(c domain.Character) string {
	return fmt.Sprintf("ID: %s | %s", c.CitizenID, c.DisplayName())
}
