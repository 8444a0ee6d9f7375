package finder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Banditcantcode/Banditbot/internal/domain"
)

func TestVehiclesEmbedGroupsByGarage(t *testing.T) {
	vehicles := []domain.Vehicle{
		{Plate: "AAA111", Model: "sultan", Garage: "pillboxgarage", State: 1},
		{Plate: "BBB222", Model: "kuruma", Garage: "pillboxgarage", State: 2},
		{Plate: "CCC333", Model: "blista", Garage: "legionsquare", State: 0},
	}

	embed := vehiclesEmbed("bandit", vehicles, 2)
	assert.Contains(t, embed.Description, "3 vehicles across 2 characters")
	require.Len(t, embed.Fields, 2)

	assert.Equal(t, "Location: pillboxgarage (2)", embed.Fields[0].Name)
	assert.Contains(t, embed.Fields[0].Value, "🟢 sultan (AAA111)")
	assert.Contains(t, embed.Fields[0].Value, "🔴 kuruma (BBB222)")

	// State 0 overrides the stored garage name.
	assert.Equal(t, "Location: Impound (1)", embed.Fields[1].Name)
	assert.Contains(t, embed.Fields[1].Value, "🔴 blista (CCC333)")
}

func TestInventoryEmbed(t *testing.T) {
	trunk := []domain.InventoryItem{
		{Name: "lockpick", Count: 3},
		{Name: "bandage", Count: 1},
	}

	embed := inventoryEmbed("AAA111", trunk, nil)
	assert.Equal(t, "Inventory for Plate: AAA111", embed.Title)
	require.Len(t, embed.Fields, 2)
	assert.Contains(t, embed.Fields[0].Value, "lockpick 3")
	assert.Contains(t, embed.Fields[0].Value, "bandage 1")
	assert.Contains(t, embed.Fields[1].Value, "Empty")
}

func TestCharacterDetailsOptionalFields(t *testing.T) {
	full := domain.Character{
		ID:        7,
		CitizenID: "CIT001",
		CID:       2,
		Name:      "john_doe",
		CharInfo: domain.CharInfo{
			FirstName:   "John",
			LastName:    "Doe",
			Birthdate:   "1990-01-01",
			Gender:      0,
			Nationality: "USA",
		},
	}
	out := characterDetails(full)
	assert.Contains(t, out, "Character ID: CIT001")
	assert.Contains(t, out, "Birthdate: 1990-01-01")
	assert.Contains(t, out, "Gender: 0")
	assert.Contains(t, out, "Nationality: USA")

	// Optional charinfo fields stay out when absent.
	sparse := domain.Character{CitizenID: "CIT002", Name: "jane"}
	out = characterDetails(sparse)
	assert.NotContains(t, out, "Birthdate")
	assert.NotContains(t, out, "Nationality")
	assert.Contains(t, out, "First Name: N/A")
}

func TestInfoEmbedWithoutCharacters(t *testing.T) {
	account := &domain.PlayerAccount{UserID: 42, Username: "bandit", Discord: "discord:123"}

	embed := infoEmbed(account, nil)
	require.GreaterOrEqual(t, len(embed.Fields), 2)
	assert.Contains(t, embed.Fields[0].Value, "Username: bandit")
	assert.Contains(t, embed.Fields[0].Value, "Account ID: 42")
	assert.Contains(t, embed.Fields[1].Value, "No characters found")
}
