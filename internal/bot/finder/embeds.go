package finder

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/Banditcantcode/Banditbot/internal/domain"
)

const embedColor = 0x3498DB

func infoEmbed(account *domain.PlayerAccount, characters []domain.Character) *discordgo.MessageEmbed {
	userInfo := strings.Join([]string{
		"Username: " + orNA(account.Username),
		fmt.Sprintf("Account ID: %d", account.UserID),
		orNA(account.License2),
		"Discord: " + orNA(account.Discord),
		"FiveM: " + orNA(account.FiveM),
	}, "\n")

	embed := &discordgo.MessageEmbed{
		Title: "User Information",
		Color: embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User Info", Value: codeBlock(userInfo)},
		},
	}

	if len(characters) > 0 {
		var lines []string
		for _, c := range characters {
			lines = append(lines, characterLabel(c))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "All Characters",
			Value: codeBlock(strings.Join(lines, "\n")),
		})
	} else {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Characters",
			Value: codeBlock("No characters found for this user."),
		})
	}

	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  "Detailed Info",
		Value: "Use `/character @user` or `/character [citizenid]` to view detailed character information.",
	})
	return embed
}

func characterEmbed(c domain.Character) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Character: " + c.DisplayName(),
		Color: embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Character Details", Value: codeBlock(characterDetails(c))},
		},
	}
}

func charactersEmbed(username string, characters []domain.Character) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Characters for " + username,
		Color: embedColor,
	}
	for _, c := range characters {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s (ID: %s)", c.DisplayName(), c.CitizenID),
			Value: codeBlock(characterDetails(c)),
		})
	}
	return embed
}

func characterDetails(c domain.Character) string {
	lines := []string{
		"Character ID: " + orNA(c.CitizenID),
		fmt.Sprintf("CID: %d", c.CID),
		fmt.Sprintf("Database ID: %d", c.ID),
		"Name: " + orNA(c.Name),
		"First Name: " + orNA(c.CharInfo.FirstName),
		"Last Name: " + orNA(c.CharInfo.LastName),
	}
	if c.CharInfo.Birthdate != "" {
		lines = append(lines, "Birthdate: "+c.CharInfo.Birthdate)
	}
	if c.CharInfo.Gender != nil {
		lines = append(lines, fmt.Sprintf("Gender: %v", c.CharInfo.Gender))
	}
	if c.CharInfo.Nationality != "" {
		lines = append(lines, "Nationality: "+c.CharInfo.Nationality)
	}
	return strings.Join(lines, "\n")
}

// vehiclesEmbed groups vehicles by garage, with state 0 rendered as the
// impound lot regardless of the stored garage name.
func vehiclesEmbed(username string, vehicles []domain.Vehicle, characterCount int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "Vehicles owned by " + username,
		Description: fmt.Sprintf("Found %d vehicles across %d characters.", len(vehicles), characterCount),
		Color:       embedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Use /vehicleinfo [plate] to view a vehicle's inventory"},
	}

	byLocation := map[string][]domain.Vehicle{}
	var order []string
	for _, v := range vehicles {
		location := v.Garage
		if location == "" {
			location = "Unknown"
		}
		if v.State == 0 {
			location = "Impound"
		}
		if _, seen := byLocation[location]; !seen {
			order = append(order, location)
		}
		byLocation[location] = append(byLocation[location], v)
	}

	for _, location := range order {
		group := byLocation[location]
		var lines []string
		for _, v := range group {
			marker := "🔴"
			if v.Stored() {
				marker = "🟢"
			}
			plate := v.Plate
			if plate == "" {
				plate = "No Plate"
			}
			lines = append(lines, fmt.Sprintf("%s %s (%s)", marker, orNA(v.Model), plate))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("Location: %s (%d)", location, len(group)),
			Value: codeBlock(strings.Join(lines, "\n")),
		})
	}
	return embed
}

func inventoryEmbed(plate string, trunk, glovebox []domain.InventoryItem) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Inventory for Plate: " + plate,
		Color: embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🧳 Trunk", Value: codeBlock(formatInventory(trunk))},
			{Name: "🧤 Glovebox", Value: codeBlock(formatInventory(glovebox))},
		},
	}
}

func formatInventory(items []domain.InventoryItem) string {
	if len(items) == 0 {
		return "Empty"
	}
	var lines []string
	for _, item := range items {
		name := item.Name
		if name == "" {
			name = "Unknown"
		}
		count := item.Count
		if count == 0 {
			count = 1
		}
		lines = append(lines, fmt.Sprintf("%s %d", name, count))
	}
	return strings.Join(lines, "\n")
}

func helpEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Bot Commands",
		Description: "Here are the available commands for this bot:",
		Color:       embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "`/info @user`", Value: "Look up characters associated with a Discord user."},
			{Name: "`/character @user` or `/character [citizenid]`", Value: "Look up detailed information about a character."},
			{Name: "`/vehicles @user`", Value: "Look up vehicles owned by a Discord user."},
			{Name: "`/vehicleinfo [plate]`", Value: "Look up a vehicle's inventory by plate number."},
			{Name: "`/help`", Value: "Shows this help message."},
			{Name: "Requirements", Value: "Most commands require the staff role to use."},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "For more help, contact your server administrator."},
	}
}

func codeBlock(s string) string {
	return "```\n" + s + "\n```"
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
