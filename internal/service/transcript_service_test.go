package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Banditcantcode/Banditbot/internal/domain"
)

type fakeExporter struct {
	fail     bool
	artifact *Artifact
}

func (f *fakeExporter) Export(ctx context.Context, channelID, ticketID string) (*Artifact, error) {
	if f.fail {
		return nil, errors.New("export blew up")
	}
	if f.artifact != nil {
		return f.artifact, nil
	}
	return &Artifact{
		TicketID: ticketID,
		FileName: "transcript-" + ticketID + ".html",
		Body:     []byte("<html></html>"),
	}, nil
}

type fakeArtifactStore struct {
	mu    sync.Mutex
	items map[string]*Artifact
	fail  bool
}

func newFakeArtifactStore() *fakeArtifactStore {
	return &fakeArtifactStore{items: map[string]*Artifact{}}
}

func (f *fakeArtifactStore) Put(ctx context.Context, artifact *Artifact, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("redis down")
	}
	f.items[artifact.ID] = artifact
	return nil
}

func (f *fakeArtifactStore) Get(ctx context.Context, id string) (*Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return a, nil
}

type fakeDeliverer struct {
	failLogs  bool
	failOwner bool
	logsMeta  []DeliveryMeta
	ownerIDs  []string
}

func (f *fakeDeliverer) DeliverToLogs(ctx context.Context, artifact *Artifact, meta DeliveryMeta) error {
	if f.failLogs {
		return errors.New("logs channel gone")
	}
	f.logsMeta = append(f.logsMeta, meta)
	return nil
}

func (f *fakeDeliverer) DeliverToOwner(ctx context.Context, ownerID string, artifact *Artifact, meta DeliveryMeta) error {
	if f.failOwner {
		return errors.New("owner has DMs disabled")
	}
	f.ownerIDs = append(f.ownerIDs, ownerID)
	return nil
}

type fakeSigner struct{ fail bool }

func (f *fakeSigner) SignedURL(artifactID string) (string, error) {
	if f.fail {
		return "", errors.New("no signer")
	}
	return "https://bandit.example/transcripts/" + artifactID + "?token=abc", nil
}

func transcriptFixture(exporter *fakeExporter, store *fakeArtifactStore, deliverer *fakeDeliverer) (*TranscriptService, *fakeGateway) {
	gateway := newFakeGateway()
	svc := NewTranscriptService(TranscriptDependencies{
		Exporter:  exporter,
		Store:     store,
		Deliverer: deliverer,
		Links:     &fakeSigner{},
		Gateway:   gateway,
		Retention: time.Hour,
		Logger:    zap.NewNop(),
	})
	return svc, gateway
}

func testTicket() domain.Ticket {
	return domain.Ticket{
		ID:        "ABC123",
		OwnerID:   "owner-1",
		ChannelID: "chan-1",
		Category:  domain.CategoryGeneral,
		Status:    domain.TicketStatusClosed,
	}
}

func TestTranscriptRun(t *testing.T) {
	exporter := &fakeExporter{}
	store := newFakeArtifactStore()
	deliverer := &fakeDeliverer{}
	svc, gateway := transcriptFixture(exporter, store, deliverer)
	gateway.channelNames["chan-1"] = "general-banditfan-abc123"

	outcome := svc.Run(context.Background(), testTicket(), "staff-1", TranscriptOnClose)

	assert.True(t, outcome.Exported)
	assert.True(t, outcome.LogsDelivered)
	assert.True(t, outcome.OwnerNotified)
	assert.NotEmpty(t, outcome.ArtifactID)

	// Artifact is parked for the download window and the delivery carries
	// the signed link plus the close context.
	_, err := store.Get(context.Background(), outcome.ArtifactID)
	assert.NoError(t, err)
	require.Len(t, deliverer.logsMeta, 1)
	meta := deliverer.logsMeta[0]
	assert.Equal(t, "ABC123", meta.TicketID)
	assert.Equal(t, "general-banditfan-abc123", meta.ChannelName)
	assert.Equal(t, "staff-1", meta.ActorID)
	assert.Equal(t, TranscriptOnClose, meta.Kind)
	assert.Contains(t, meta.DownloadURL, outcome.ArtifactID)
	assert.Equal(t, []string{"owner-1"}, deliverer.ownerIDs)
}

func TestTranscriptExportFailureShortCircuits(t *testing.T) {
	exporter := &fakeExporter{fail: true}
	store := newFakeArtifactStore()
	deliverer := &fakeDeliverer{}
	svc, _ := transcriptFixture(exporter, store, deliverer)

	outcome := svc.Run(context.Background(), testTicket(), "staff-1", TranscriptOnClose)

	assert.False(t, outcome.Exported)
	assert.False(t, outcome.LogsDelivered)
	assert.False(t, outcome.OwnerNotified)
	assert.Empty(t, deliverer.logsMeta)
	assert.Empty(t, deliverer.ownerIDs)
}

// A failed logs post must not block the owner DM, and vice versa.
func TestTranscriptDeliveriesAreIsolated(t *testing.T) {
	svc, _ := transcriptFixture(&fakeExporter{}, newFakeArtifactStore(), &fakeDeliverer{failLogs: true})
	outcome := svc.Run(context.Background(), testTicket(), "staff-1", TranscriptOnDelete)
	assert.True(t, outcome.Exported)
	assert.False(t, outcome.LogsDelivered)
	assert.True(t, outcome.OwnerNotified)

	svc, _ = transcriptFixture(&fakeExporter{}, newFakeArtifactStore(), &fakeDeliverer{failOwner: true})
	outcome = svc.Run(context.Background(), testTicket(), "staff-1", TranscriptOnDelete)
	assert.True(t, outcome.Exported)
	assert.True(t, outcome.LogsDelivered)
	assert.False(t, outcome.OwnerNotified)
}

// Retention store failure is absorbed; delivery still happens, just without
// a download link.
func TestTranscriptStoreFailureStillDelivers(t *testing.T) {
	store := newFakeArtifactStore()
	store.fail = true
	deliverer := &fakeDeliverer{}
	svc, _ := transcriptFixture(&fakeExporter{}, store, deliverer)

	outcome := svc.Run(context.Background(), testTicket(), "staff-1", TranscriptOnClose)
	assert.True(t, outcome.Exported)
	assert.True(t, outcome.LogsDelivered)
	require.Len(t, deliverer.logsMeta, 1)
	assert.Empty(t, deliverer.logsMeta[0].DownloadURL)
}
