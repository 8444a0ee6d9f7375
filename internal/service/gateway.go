package service

import (
	"context"

	"github.com/Banditcantcode/Banditbot/internal/domain"
)

// Actor is the Discord member performing a lifecycle operation, as seen in
// the interaction payload.
type Actor struct {
	ID       string
	Username string
	RoleIDs  []string
}

// ChannelSpec describes the private channel provisioned for a new ticket.
// The default role is denied read access; the owner, the bot and the listed
// roles get read/write.
type ChannelSpec struct {
	Name        string
	ParentID    string
	OwnerID     string
	AccessRoles []string
}

// GuildGateway is the ticket service's view of the Discord guild. The
// tickets bot implements it; tests use fakes.
type GuildGateway interface {
	CreateTicketChannel(ctx context.Context, spec ChannelSpec) (channelID string, err error)
	ChannelName(ctx context.Context, channelID string) (string, error)
	RenameChannel(ctx context.Context, channelID, name string) error
	DeleteChannel(ctx context.Context, channelID, reason string) error
	GrantUserAccess(ctx context.Context, channelID, userID string) error
	// LockChannel revokes send access (keeping read) for every member
	// without management permissions.
	LockChannel(ctx context.Context, channelID string) error
	// ResolveMember turns a raw id or mention reference into a member id.
	ResolveMember(ctx context.Context, ref string) (string, error)
	SendWelcome(ctx context.Context, ticket *domain.Ticket, categoryName string, enrichment EnrichmentResult) error
	AnnounceClaim(ctx context.Context, channelID, actorID string) error
	AnnounceUserAdded(ctx context.Context, channelID, targetID, actorID string) error
	AnnounceClose(ctx context.Context, channelID, actorID string, byCreator bool) error
	// OfferDelete posts the follow-up prompt carrying the delete button.
	OfferDelete(ctx context.Context, channelID, ticketID string, byCreator bool) error
}

// PromptBinder manages the persistent category-selection prompt in the
// intake channel.
type PromptBinder interface {
	// EnsurePrompt re-binds the selection components to an existing prompt
	// message, or posts a fresh one. posted reports whether a new message
	// was created.
	EnsurePrompt(ctx context.Context) (messageID string, posted bool, err error)
}
