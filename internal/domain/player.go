package domain

// PlayerAccount is one row of the game database's users table, keyed by a
// normalized "discord:<id>" platform identity.
type PlayerAccount struct {
	UserID   int64
	Username string
	License  string
	License2 string
	FiveM    string
	Discord  string
}

// CharInfo is the JSON-encoded info blob attached to a character record.
// Only firstname/lastname are guaranteed; the rest is optional.
type CharInfo struct {
	FirstName   string `json:"firstname"`
	LastName    string `json:"lastname"`
	Birthdate   string `json:"birthdate,omitempty"`
	Gender      any    `json:"gender,omitempty"`
	Nationality string `json:"nationality,omitempty"`
}

// Character is one row of the game database's players table.
type Character struct {
	ID        int64
	CitizenID string
	CID       int
	Name      string
	CharInfo  CharInfo
	// RawCharInfo keeps the original blob for display when parsing fails.
	RawCharInfo string
}

// DisplayName prefers the parsed first/last name over the raw name column.
func (c Character) DisplayName() string {
	if c.CharInfo.FirstName != "" || c.CharInfo.LastName != "" {
		return c.CharInfo.FirstName + " " + c.CharInfo.LastName
	}
	if c.Name != "" {
		return c.Name
	}
	return "Unknown"
}

// Vehicle is one row of the game database's player_vehicles table.
type Vehicle struct {
	Plate           string
	Model           string
	Hash            int64
	Garage          string
	State           int
	DepotPrice      int
	DrivingDistance int
	Fuel            int
	Engine          float64
	Body            float64
}

// Stored reports whether the vehicle is parked in its garage rather than
// out or impounded.
func (v Vehicle) Stored() bool {
	return v.State == 1
}

// InventoryItem is one entry of a vehicle trunk or glovebox blob.
type InventoryItem struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
