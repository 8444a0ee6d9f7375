package events

import (
	"time"

	"github.com/Banditcantcode/Banditbot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket_created"
	EventTicketClaimed EventType = "ticket_claimed"
	EventTicketClosed  EventType = "ticket_closed"
	EventTicketDeleted EventType = "ticket_deleted"
	EventUserAdded     EventType = "ticket_user_added"
)

// Actor identifies the Discord member that triggered an event.
type Actor struct {
	UserID    string `json:"user_id"`
	IsCreator bool   `json:"is_creator"`
}

// Event represents a lifecycle event emitted by the ticket service.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	OwnerID   string          `json:"owner_id"`
	Category  domain.Category `json:"category"`
	ChannelID string          `json:"channel_id"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	Category  domain.Category `json:"category"`
	ChannelID string          `json:"channel_id"`
	ByCreator bool            `json:"by_creator"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	Category     domain.Category     `json:"category"`
	ChannelID    string              `json:"channel_id"`
	StatusBefore domain.TicketStatus `json:"status_before"`
}

// UserAddedPayload payload.
type UserAddedPayload struct {
	TargetUserID string `json:"target_user_id"`
}
