package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Banditcantcode/Banditbot/internal/authz"
	"github.com/Banditcantcode/Banditbot/internal/config"
	"github.com/Banditcantcode/Banditbot/internal/domain"
	"github.com/Banditcantcode/Banditbot/internal/events"
	"github.com/Banditcantcode/Banditbot/internal/repository"
	"github.com/Banditcantcode/Banditbot/pkg/util"
)

// enrichmentTimeout bounds the best-effort welcome enrichment running after
// the interaction has already been acknowledged.
const enrichmentTimeout = 15 * time.Second

// TicketService orchestrates the ticket lifecycle: create, claim, add-user,
// rename, close, delete. It owns the state machine (open -> closed -> gone)
// and consults the authorization policy before every mutation.
type TicketService struct {
	tickets     repository.TicketRepository
	policy      authz.Policy
	gateway     GuildGateway
	prompts     PromptBinder
	enricher    Enricher
	transcripts TranscriptRunner
	dispatcher  events.Dispatcher
	cfg         config.TicketsConfig
	roles       config.RolesConfig
	logger      *zap.Logger
}

// TicketDependencies bundles collaborators for the lifecycle service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	Policy      authz.Policy
	Gateway     GuildGateway
	Prompts     PromptBinder
	Enricher    Enricher
	Transcripts TranscriptRunner
	Dispatcher  events.Dispatcher
	Tickets     config.TicketsConfig
	Roles       config.RolesConfig
	Logger      *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:     deps.TicketRepo,
		policy:      deps.Policy,
		gateway:     deps.Gateway,
		prompts:     deps.Prompts,
		enricher:    deps.Enricher,
		transcripts: deps.Transcripts,
		dispatcher:  deps.Dispatcher,
		cfg:         deps.Tickets,
		roles:       deps.Roles,
		logger:      deps.Logger,
	}
}

// Create provisions a channel and persists a new open ticket for the actor
// in the given category. The welcome message, including best-effort player
// enrichment, is sent asynchronously; its failure never aborts creation.
func (s *TicketService) Create(ctx context.Context, actor Actor, category domain.Category) (*domain.Ticket, error) {
	desc, ok := s.cfg.Descriptor(category)
	if !ok || !category.Valid() {
		return nil, util.NewInvalidCategory(string(category))
	}

	if existing, err := s.tickets.FindOpen(ctx, actor.ID, category); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, util.NewInternalError(err)
	} else if existing != nil {
		return nil, util.NewDuplicateTicket(existing.ChannelID)
	}

	ticketID, err := s.freshTicketID(ctx)
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	channelID, err := s.gateway.CreateTicketChannel(ctx, ChannelSpec{
		Name:        ChannelName(category, actor.Username, ticketID),
		ParentID:    desc.ParentID,
		OwnerID:     actor.ID,
		AccessRoles: s.accessRoles(category),
	})
	if err != nil {
		return nil, util.NewChannelProvisioning("create", err)
	}

	ticket := &domain.Ticket{
		ID:        ticketID,
		OwnerID:   actor.ID,
		ChannelID: channelID,
		Category:  category,
		Status:    domain.TicketStatusOpen,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		// Lost a race. Tear the channel down so the loser leaves no trace.
		if delErr := s.gateway.DeleteChannel(ctx, channelID, "duplicate ticket"); delErr != nil {
			s.logger.Error("orphaned channel after create race",
				zap.String("channel_id", channelID), zap.Error(delErr))
		}
		if errors.Is(err, repository.ErrDuplicateOpenTicket) {
			existing, findErr := s.tickets.FindOpen(ctx, actor.ID, category)
			if findErr == nil && existing != nil {
				return nil, util.NewDuplicateTicket(existing.ChannelID)
			}
			return nil, util.NewDuplicateTicket("")
		}
		return nil, util.NewInternalError(err)
	}

	go s.sendWelcome(ticket, desc.Name)

	s.publish(events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actor.ID, IsCreator: true},
		Payload: events.TicketCreatedPayload{
			OwnerID:   ticket.OwnerID,
			Category:  ticket.Category,
			ChannelID: ticket.ChannelID,
		},
	})
	return ticket, nil
}

// Claim posts a claim notice and marks the channel name with a -claimed
// suffix. Claiming is channel state only; the store is not touched.
func (s *TicketService) Claim(ctx context.Context, actor Actor, ticketID string) error {
	ticket, err := s.authorized(ctx, actor, ticketID, domain.ActionClaim)
	if err != nil {
		return err
	}

	if err := s.gateway.AnnounceClaim(ctx, ticket.ChannelID, actor.ID); err != nil {
		s.logger.Warn("claim notice failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}

	name, err := s.gateway.ChannelName(ctx, ticket.ChannelID)
	if err != nil {
		return util.NewNotFound("channel", map[string]any{"ticket_id": ticketID})
	}
	if !strings.Contains(name, "claimed") {
		if err := s.gateway.RenameChannel(ctx, ticket.ChannelID, name+"-claimed"); err != nil {
			return util.NewChannelProvisioning("rename", err)
		}
	}

	s.publish(events.Event{
		Type:     events.EventTicketClaimed,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actor.ID, IsCreator: actor.ID == ticket.OwnerID},
	})
	return nil
}

// AddUser grants a guild member read/write access to the ticket channel.
// targetRef accepts a raw id or mention syntax.
func (s *TicketService) AddUser(ctx context.Context, actor Actor, ticketID, targetRef string) (string, error) {
	ticket, err := s.authorized(ctx, actor, ticketID, domain.ActionAddUser)
	if err != nil {
		return "", err
	}

	ref := ParseUserRef(targetRef)
	if ref == "" {
		return "", util.NewUserNotFound(targetRef)
	}
	targetID, err := s.gateway.ResolveMember(ctx, ref)
	if err != nil {
		return "", util.NewUserNotFound(targetRef)
	}

	if err := s.gateway.GrantUserAccess(ctx, ticket.ChannelID, targetID); err != nil {
		return "", util.NewChannelProvisioning("permission update", err)
	}
	if err := s.gateway.AnnounceUserAdded(ctx, ticket.ChannelID, targetID, actor.ID); err != nil {
		s.logger.Warn("add-user notice failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}

	s.publish(events.Event{
		Type:     events.EventUserAdded,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actor.ID, IsCreator: actor.ID == ticket.OwnerID},
		Payload:  events.UserAddedPayload{TargetUserID: targetID},
	})
	return targetID, nil
}

// Rename changes the ticket channel name. Staff only; the new name must be
// 1-100 characters after trimming.
func (s *TicketService) Rename(ctx context.Context, actor Actor, ticketID, newName string) error {
	ticket, err := s.authorized(ctx, actor, ticketID, domain.ActionRename)
	if err != nil {
		return err
	}

	name := strings.TrimSpace(newName)
	if name == "" || len(name) > 100 {
		return util.NewValidationError("name must be 1-100 characters", nil)
	}

	if _, err := s.gateway.ChannelName(ctx, ticket.ChannelID); err != nil {
		return util.NewNotFound("channel", map[string]any{"ticket_id": ticketID})
	}
	if err := s.gateway.RenameChannel(ctx, ticket.ChannelID, name); err != nil {
		return util.NewChannelProvisioning("rename", err)
	}
	return nil
}

// Close transitions the ticket to closed. The store is updated before any
// side effect so a partial notification failure never leaves the ticket
// logically open. The transcript pipeline runs asynchronously.
func (s *TicketService) Close(ctx context.Context, actor Actor, ticketID string) error {
	ticket, err := s.authorized(ctx, actor, ticketID, domain.ActionClose)
	if err != nil {
		return err
	}
	if !ticket.Open() {
		return util.NewValidationError("ticket is already closed", nil)
	}

	if err := s.tickets.SetStatus(ctx, ticket.ID, domain.TicketStatusClosed); err != nil {
		return util.NewInternalError(err)
	}
	ticket.Status = domain.TicketStatusClosed
	byCreator := actor.ID == ticket.OwnerID

	if err := s.gateway.AnnounceClose(ctx, ticket.ChannelID, actor.ID, byCreator); err != nil {
		s.logger.Warn("close notice failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}

	go s.runPipeline(*ticket, actor.ID, TranscriptOnClose)

	if err := s.gateway.LockChannel(ctx, ticket.ChannelID); err != nil {
		s.logger.Warn("channel lock failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
	if err := s.gateway.OfferDelete(ctx, ticket.ChannelID, ticket.ID, byCreator); err != nil {
		s.logger.Warn("delete prompt failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}

	s.publish(events.Event{
		Type:     events.EventTicketClosed,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actor.ID, IsCreator: byCreator},
		Payload: events.TicketClosedPayload{
			Category:  ticket.Category,
			ChannelID: ticket.ChannelID,
			ByCreator: byCreator,
		},
	})
	return nil
}

// Delete removes the ticket record and its channel. If the ticket is still
// open the transcript pipeline runs first, since no close captured one. The
// record is removed before the channel: an undeletable record is worse than
// an orphaned channel.
func (s *TicketService) Delete(ctx context.Context, actor Actor, ticketID string) error {
	ticket, err := s.authorized(ctx, actor, ticketID, domain.ActionDelete)
	if err != nil {
		return err
	}
	statusBefore := ticket.Status
	byCreator := actor.ID == ticket.OwnerID

	if ticket.Open() && s.transcripts != nil {
		outcome := s.transcripts.Run(ctx, *ticket, actor.ID, TranscriptOnDelete)
		if !outcome.Exported {
			s.logger.Warn("deleting ticket without transcript",
				zap.String("ticket_id", ticketID))
		}
	}

	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return util.NewInternalError(err)
	}

	reason := "Ticket " + ticket.ID + " deleted by staff"
	if byCreator {
		reason = "Ticket " + ticket.ID + " deleted by creator"
	}
	if err := s.gateway.DeleteChannel(ctx, ticket.ChannelID, reason); err != nil {
		// No compensation: the record is gone, the channel survives.
		s.logger.Error("orphaned channel after ticket delete",
			zap.String("ticket_id", ticket.ID),
			zap.String("channel_id", ticket.ChannelID),
			zap.Error(err))
		return util.NewChannelProvisioning("delete", err)
	}

	s.publish(events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actor.ID, IsCreator: byCreator},
		Payload: events.TicketDeletedPayload{
			Category:     ticket.Category,
			ChannelID:    ticket.ChannelID,
			StatusBefore: statusBefore,
		},
	})
	return nil
}

// PermittedActions exposes the policy evaluation for UI state decisions.
func (s *TicketService) PermittedActions(ticket *domain.Ticket, actor Actor) domain.ActionSet {
	return s.policy.PermittedActions(ticket.Category, actor.RoleIDs, actor.ID == ticket.OwnerID, ticket.Status)
}

// Get fetches a ticket by id.
func (s *TicketService) Get(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	return ticket, nil
}

func (s *TicketService) authorized(ctx context.Context, actor Actor, ticketID string, action domain.Action) (*domain.Ticket, error) {
	ticket, err := s.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	isCreator := actor.ID == ticket.OwnerID
	if !s.policy.Allows(action, ticket.Category, actor.RoleIDs, isCreator, ticket.Status) {
		return nil, util.NewForbidden("you don't have permission to " + strings.ReplaceAll(string(action), "_", " ") + " this ticket")
	}
	return ticket, nil
}

// freshTicketID picks an identity not currently in use. The insert path
// still maps a lost race to ErrDuplicateID; this loop only keeps the happy
// path collision-free.
func (s *TicketService) freshTicketID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		id := GenerateTicketID()
		_, err := s.tickets.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errors.New("could not generate unique ticket id")
}

func (s *TicketService) accessRoles(category domain.Category) []string {
	roles := make([]string, 0, 3)
	appendRole := func(id string) {
		if id != "" && id != "0" {
			roles = append(roles, id)
		}
	}
	if category.Restricted() {
		switch category {
		case domain.CategoryStaff:
			appendRole(s.roles.StaffReport)
		case domain.CategoryGang:
			appendRole(s.roles.Gang)
		case domain.CategoryBanAppeal:
			appendRole(s.roles.BanAppeal)
		}
		appendRole(s.roles.Senior)
		appendRole(s.roles.Management)
		return roles
	}
	appendRole(s.roles.Staff)
	return roles
}

// sendWelcome runs after Create has returned. The interaction is already
// acknowledged, so this works on a detached context.
func (s *TicketService) sendWelcome(ticket *domain.Ticket, categoryName string) {
	ctx, cancel := context.WithTimeout(context.Background(), enrichmentTimeout)
	defer cancel()

	result := EnrichmentResult{Status: EnrichmentFailed}
	if s.enricher != nil {
		result = s.enricher.Lookup(ctx, ticket.OwnerID)
	}
	if err := s.gateway.SendWelcome(ctx, ticket, categoryName, result); err != nil {
		s.logger.Error("welcome message failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

func (s *TicketService) runPipeline(ticket domain.Ticket, actorID string, kind TranscriptKind) {
	if s.transcripts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	outcome := s.transcripts.Run(ctx, ticket, actorID, kind)
	s.logger.Info("transcript pipeline finished",
		zap.String("ticket_id", ticket.ID),
		zap.String("kind", string(kind)),
		zap.Bool("exported", outcome.Exported),
		zap.Bool("logs_delivered", outcome.LogsDelivered),
		zap.Bool("owner_notified", outcome.OwnerNotified))
}

func (s *TicketService) publish(event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(context.Background(), event)
}
