package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Banditcantcode/Banditbot/internal/domain"
)

// ErrNoGameDB is returned by every lookup when the game database is not
// configured. Callers treat it the same as "no rows".
var ErrNoGameDB = errors.New("game database not configured")

// PlayerRepository provides read-only lookups against the game server
// database. Absence of data is reported as (nil, nil) or an empty slice,
// never as an error, so enrichment stays optional.
type PlayerRepository interface {
	AccountByDiscord(ctx context.Context, discordID string) (*domain.PlayerAccount, error)
	Characters(ctx context.Context, license, license2 string, userID int64) ([]domain.Character, error)
	CharacterByCitizenID(ctx context.Context, citizenID string) (*domain.Character, error)
	VehiclesByCitizenIDs(ctx context.Context, citizenIDs []string) ([]domain.Vehicle, error)
	VehicleInventory(ctx context.Context, plate string) (trunk, glovebox []domain.InventoryItem, found bool, err error)
}

type playerRepository struct {
	db *sql.DB
}

// NewPlayerRepository instantiates the MySQL-backed repository. db may be
// nil when no game database is configured.
func NewPlayerRepository(db *sql.DB) PlayerRepository {
	return &playerRepository{db: db}
}

// NormalizeDiscordID prepends the platform prefix the users table stores.
func NormalizeDiscordID(discordID string) string {
	if strings.HasPrefix(discordID, "discord:") {
		return discordID
	}
	return "discord:" + discordID
}

func (r *playerRepository) AccountByDiscord(ctx context.Context, discordID string) (*domain.PlayerAccount, error) {
	if r.db == nil {
		return nil, ErrNoGameDB
	}
	const query = `SELECT userId, username, license, license2, fivem, discord
        FROM users WHERE discord = ?`
	var (
		acct     domain.PlayerAccount
		license2 sql.NullString
		fivem    sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, NormalizeDiscordID(discordID)).Scan(
		&acct.UserID,
		&acct.Username,
		&acct.License,
		&license2,
		&fivem,
		&acct.Discord,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	acct.License2 = license2.String
	acct.FiveM = fivem.String
	return &acct, nil
}

func (r *playerRepository) Characters(ctx context.Context, license, license2 string, userID int64) ([]domain.Character, error) {
	if r.db == nil {
		return nil, ErrNoGameDB
	}
	const query = `SELECT id, citizenid, cid, name, charinfo
        FROM players WHERE license = ? OR license = ? OR userId = ?`
	rows, err := r.db.QueryContext(ctx, query, license, license2, userID)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	var result []domain.Character
	for rows.Next() {
		char, err := scanCharacter(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, char)
	}
	return result, rows.Err()
}

func (r *playerRepository) CharacterByCitizenID(ctx context.Context, citizenID string) (*domain.Character, error) {
	if r.db == nil {
		return nil, ErrNoGameDB
	}
	const query = `SELECT id, citizenid, cid, name, charinfo
        FROM players WHERE citizenid = ?`
	rows, err := r.db.QueryContext(ctx, query, citizenID)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	char, err := scanCharacter(rows)
	if err != nil {
		return nil, err
	}
	return &char, nil
}

func (r *playerRepository) VehiclesByCitizenIDs(ctx context.Context, citizenIDs []string) ([]domain.Vehicle, error) {
	if r.db == nil {
		return nil, ErrNoGameDB
	}
	if len(citizenIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(citizenIDs)), ",")
	query := fmt.Sprintf(`SELECT plate, vehicle, hash, garage, state, depotprice,
            drivingdistance, fuel, engine, body
        FROM player_vehicles WHERE citizenid IN (%s)`, placeholders)

	args := make([]any, len(citizenIDs))
	for i, id := range citizenIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query player_vehicles: %w", err)
	}
	defer rows.Close()

	var result []domain.Vehicle
	for rows.Next() {
		var (
			v      domain.Vehicle
			garage sql.NullString
		)
		if err := rows.Scan(&v.Plate, &v.Model, &v.Hash, &garage, &v.State,
			&v.DepotPrice, &v.DrivingDistance, &v.Fuel, &v.Engine, &v.Body); err != nil {
			return nil, err
		}
		v.Garage = garage.String
		result = append(result, v)
	}
	return result, rows.Err()
}

func (r *playerRepository) VehicleInventory(ctx context.Context, plate string) ([]domain.InventoryItem, []domain.InventoryItem, bool, error) {
	if r.db == nil {
		return nil, nil, false, ErrNoGameDB
	}
	const query = `SELECT trunk, glovebox FROM player_vehicles WHERE plate = ?`
	var trunkRaw, gloveboxRaw sql.NullString
	err := r.db.QueryRowContext(ctx, query, strings.ToUpper(plate)).Scan(&trunkRaw, &gloveboxRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, fmt.Errorf("query player_vehicles: %w", err)
	}
	return decodeInventory(trunkRaw.String), decodeInventory(gloveboxRaw.String), true, nil
}

func scanCharacter(rows *sql.Rows) (domain.Character, error) {
	var (
		char     domain.Character
		cid      sql.NullInt64
		name     sql.NullString
		charinfo sql.NullString
	)
	if err := rows.Scan(&char.ID, &char.CitizenID, &cid, &name, &charinfo); err != nil {
		return domain.Character{}, err
	}
	char.CID = int(cid.Int64)
	char.Name = name.String
	char.RawCharInfo = charinfo.String
	// A malformed blob falls back to the bare name column.
	_ = json.Unmarshal([]byte(charinfo.String), &char.CharInfo)
	return char, nil
}

func decodeInventory(raw string) []domain.InventoryItem {
	if raw == "" {
		return nil
	}
	var items []domain.InventoryItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	return items
}
