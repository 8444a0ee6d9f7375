package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// Category classifies a ticket and decides channel placement and policy.
type Category string

const (
	CategoryGeneral   Category = "general"
	CategoryBanAppeal Category = "ban_appeal"
	CategoryTebex     Category = "tebex"
	CategoryGang      Category = "gang"
	CategoryStaff     Category = "staff"
)

// Categories lists every known category in menu order.
var Categories = []Category{
	CategoryGeneral,
	CategoryBanAppeal,
	CategoryTebex,
	CategoryGang,
	CategoryStaff,
}

// Valid reports whether the category is one of the configured set.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Restricted reports whether the category uses category-specific roles
// instead of the generic staff role.
func (c Category) Restricted() bool {
	switch c {
	case CategoryStaff, CategoryGang, CategoryBanAppeal:
		return true
	}
	return false
}

// Ticket is the aggregate for a single support case. One ticket owns one
// dedicated channel and one store record.
type Ticket struct {
	ID        string
	OwnerID   string
	ChannelID string
	Category  Category
	Status    TicketStatus
	CreatedAt time.Time
}

// Open reports whether the ticket is still open.
func (t *Ticket) Open() bool {
	return t.Status == TicketStatusOpen
}

// Action enumerates the operations gated by the authorization policy.
type Action string

const (
	ActionClaim   Action = "claim"
	ActionAddUser Action = "add_user"
	ActionRename  Action = "rename"
	ActionClose   Action = "close"
	ActionDelete  Action = "delete"
)

// ActionSet is the set of actions permitted to an actor on a ticket.
type ActionSet map[Action]struct{}

// Has reports membership.
func (s ActionSet) Has(a Action) bool {
	_, ok := s[a]
	return ok
}

// NewActionSet builds a set from the given actions.
func NewActionSet(actions ...Action) ActionSet {
	set := make(ActionSet, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}
