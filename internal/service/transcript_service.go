package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Banditcantcode/Banditbot/internal/domain"
)

// TranscriptKind distinguishes the lifecycle transition that triggered an
// export.
type TranscriptKind string

const (
	TranscriptOnClose  TranscriptKind = "closed"
	TranscriptOnDelete TranscriptKind = "deleted"
)

// Artifact is one rendered transcript export. It is owned by a single
// pipeline invocation; the store only parks it for the download window.
type Artifact struct {
	ID       string `json:"id"`
	TicketID string `json:"ticket_id"`
	FileName string `json:"file_name"`
	Body     []byte `json:"body"`
}

// TranscriptOutcome reports what the pipeline managed to do. Lifecycle
// transitions consume it for logging only; no branch of it can fail a
// transition.
type TranscriptOutcome struct {
	Exported      bool
	LogsDelivered bool
	OwnerNotified bool
	ArtifactID    string
}

// TranscriptRunner runs the export-and-deliver pipeline for a ticket.
type TranscriptRunner interface {
	Run(ctx context.Context, ticket domain.Ticket, actorID string, kind TranscriptKind) TranscriptOutcome
}

// Exporter renders a channel's message history into an artifact.
type Exporter interface {
	Export(ctx context.Context, channelID, ticketID string) (*Artifact, error)
}

// ArtifactStore parks artifacts for the retention window so the ops server
// can serve download links.
type ArtifactStore interface {
	Put(ctx context.Context, artifact *Artifact, ttl time.Duration) error
	Get(ctx context.Context, id string) (*Artifact, error)
}

// DeliveryMeta captures the close/delete context shown alongside a
// transcript.
type DeliveryMeta struct {
	TicketID    string
	ChannelName string
	ActorID     string
	Kind        TranscriptKind
	DownloadURL string
}

// Deliverer sends an exported transcript to the logs channel and to the
// ticket owner.
type Deliverer interface {
	DeliverToLogs(ctx context.Context, artifact *Artifact, meta DeliveryMeta) error
	DeliverToOwner(ctx context.Context, ownerID string, artifact *Artifact, meta DeliveryMeta) error
}

// LinkSigner mints a signed download URL for a parked artifact.
type LinkSigner interface {
	SignedURL(artifactID string) (string, error)
}

// TranscriptService exports a ticket channel once per terminal transition
// and distributes the artifact. Each delivery target is best-effort and
// isolated: a failed logs post never blocks the owner DM and vice versa.
type TranscriptService struct {
	exporter  Exporter
	store     ArtifactStore
	deliverer Deliverer
	links     LinkSigner
	gateway   GuildGateway
	retention time.Duration
	logger    *zap.Logger
}

// TranscriptDependencies bundles collaborators for the pipeline.
type TranscriptDependencies struct {
	Exporter  Exporter
	Store     ArtifactStore
	Deliverer Deliverer
	Links     LinkSigner
	Gateway   GuildGateway
	Retention time.Duration
	Logger    *zap.Logger
}

// NewTranscriptService constructs the pipeline.
func NewTranscriptService(deps TranscriptDependencies) *TranscriptService {
	return &TranscriptService{
		exporter:  deps.Exporter,
		store:     deps.Store,
		deliverer: deps.Deliverer,
		links:     deps.Links,
		gateway:   deps.Gateway,
		retention: deps.Retention,
		logger:    deps.Logger,
	}
}

// Run exports the ticket channel and delivers the artifact. A failed export
// short-circuits delivery; individual delivery failures are logged and
// absorbed.
func (s *TranscriptService) Run(ctx context.Context, ticket domain.Ticket, actorID string, kind TranscriptKind) TranscriptOutcome {
	outcome := TranscriptOutcome{}

	artifact, err := s.exporter.Export(ctx, ticket.ChannelID, ticket.ID)
	if err != nil {
		s.logger.Error("transcript export failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("channel_id", ticket.ChannelID),
			zap.Error(err))
		return outcome
	}
	if artifact.ID == "" {
		artifact.ID = uuid.NewString()
	}
	outcome.Exported = true
	outcome.ArtifactID = artifact.ID

	meta := DeliveryMeta{
		TicketID: ticket.ID,
		ActorID:  actorID,
		Kind:     kind,
	}
	if name, err := s.gateway.ChannelName(ctx, ticket.ChannelID); err == nil {
		meta.ChannelName = name
	}

	if s.store != nil {
		if err := s.store.Put(ctx, artifact, s.retention); err != nil {
			s.logger.Warn("transcript retention store failed",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
		} else if s.links != nil {
			if url, err := s.links.SignedURL(artifact.ID); err == nil {
				meta.DownloadURL = url
			}
		}
	}

	if err := s.deliverer.DeliverToLogs(ctx, artifact, meta); err != nil {
		s.logger.Error("transcript delivery to logs channel failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	} else {
		outcome.LogsDelivered = true
	}

	if err := s.deliverer.DeliverToOwner(ctx, ticket.OwnerID, artifact, meta); err != nil {
		s.logger.Warn("transcript delivery to owner failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("owner_id", ticket.OwnerID),
			zap.Error(err))
	} else {
		outcome.OwnerNotified = true
	}

	return outcome
}
