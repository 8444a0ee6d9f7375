package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Banditcantcode/Banditbot/internal/authz"
	"github.com/Banditcantcode/Banditbot/internal/config"
	"github.com/Banditcantcode/Banditbot/internal/domain"
	"github.com/Banditcantcode/Banditbot/internal/repository"
	"github.com/Banditcantcode/Banditbot/pkg/util"
)

// memTicketRepo mirrors the postgres repository's contract, including the
// partial-unique guarantee of one open ticket per owner and category.
type memTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{tickets: map[string]domain.Ticket{}}
}

func (r *memTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; ok {
		return repository.ErrDuplicateID
	}
	for _, t := range r.tickets {
		if t.OwnerID == ticket.OwnerID && t.Category == ticket.Category && t.Status == domain.TicketStatusOpen {
			return repository.ErrDuplicateOpenTicket
		}
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := t
	return &copied, nil
}

func (r *memTicketRepo) FindOpen(ctx context.Context, ownerID string, category domain.Category) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.OwnerID == ownerID && t.Category == category && t.Status == domain.TicketStatusOpen {
			copied := t
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memTicketRepo) SetStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.Status = status
	r.tickets[id] = t
	return nil
}

func (r *memTicketRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.tickets, id)
	return nil
}

func (r *memTicketRepo) ListOpen(ctx context.Context) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var open []domain.Ticket
	for _, t := range r.tickets {
		if t.Status == domain.TicketStatusOpen {
			open = append(open, t)
		}
	}
	return open, nil
}

// fakeGateway records guild side effects in memory.
type fakeGateway struct {
	mu           sync.Mutex
	nextChannel  int
	channelNames map[string]string
	createdSpecs []ChannelSpec
	deleted      []string
	granted      []string
	locked       []string
	claims       int
	closes       int
	offers       int
	welcomes     int
	members      map[string]bool
	promptID     string
	promptPosts  int

	failCreate error
	failDelete error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		channelNames: map[string]string{},
		members:      map[string]bool{},
	}
}

func (g *fakeGateway) CreateTicketChannel(ctx context.Context, spec ChannelSpec) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failCreate != nil {
		return "", g.failCreate
	}
	g.nextChannel++
	id := fmt.Sprintf("chan-%d", g.nextChannel)
	g.channelNames[id] = spec.Name
	g.createdSpecs = append(g.createdSpecs, spec)
	return id, nil
}

func (g *fakeGateway) ChannelName(ctx context.Context, channelID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	name, ok := g.channelNames[channelID]
	if !ok {
		return "", errors.New("no such channel")
	}
	return name, nil
}

func (g *fakeGateway) RenameChannel(ctx context.Context, channelID, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.channelNames[channelID]; !ok {
		return errors.New("no such channel")
	}
	g.channelNames[channelID] = name
	return nil
}

func (g *fakeGateway) DeleteChannel(ctx context.Context, channelID, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failDelete != nil {
		return g.failDelete
	}
	delete(g.channelNames, channelID)
	g.deleted = append(g.deleted, channelID)
	return nil
}

func (g *fakeGateway) GrantUserAccess(ctx context.Context, channelID, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.granted = append(g.granted, channelID+":"+userID)
	return nil
}

func (g *fakeGateway) LockChannel(ctx context.Context, channelID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.locked = append(g.locked, channelID)
	return nil
}

func (g *fakeGateway) ResolveMember(ctx context.Context, ref string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.members[ref] {
		return "", errors.New("not a member")
	}
	return ref, nil
}

func (g *fakeGateway) SendWelcome(ctx context.Context, ticket *domain.Ticket, categoryName string, enrichment EnrichmentResult) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.welcomes++
	return nil
}

func (g *fakeGateway) AnnounceClaim(ctx context.Context, channelID, actorID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.claims++
	return nil
}

func (g *fakeGateway) AnnounceUserAdded(ctx context.Context, channelID, targetID, actorID string) error {
	return nil
}

func (g *fakeGateway) AnnounceClose(ctx context.Context, channelID, actorID string, byCreator bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closes++
	return nil
}

func (g *fakeGateway) OfferDelete(ctx context.Context, channelID, ticketID string, byCreator bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.offers++
	return nil
}

func (g *fakeGateway) EnsurePrompt(ctx context.Context) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.promptID != "" {
		return g.promptID, false, nil
	}
	g.promptID = "prompt-1"
	g.promptPosts++
	return g.promptID, true, nil
}

func (g *fakeGateway) name(channelID string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.channelNames[channelID]
}

// fakeTranscripts counts pipeline invocations.
type fakeTranscripts struct {
	mu   sync.Mutex
	runs []TranscriptKind
}

func (f *fakeTranscripts) Run(ctx context.Context, ticket domain.Ticket, actorID string, kind TranscriptKind) TranscriptOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, kind)
	return TranscriptOutcome{Exported: true, LogsDelivered: true, OwnerNotified: true, ArtifactID: "artifact-1"}
}

func (f *fakeTranscripts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}

type fakeEnricher struct{ result EnrichmentResult }

func (f *fakeEnricher) Lookup(ctx context.Context, discordUserID string) EnrichmentResult {
	return f.result
}

var testRoles = config.RolesConfig{
	Staff:       "100",
	Senior:      "200",
	Management:  "300",
	Gang:        "400",
	BanAppeal:   "500",
	StaffReport: "600",
}

func testTicketsConfig() config.TicketsConfig {
	categories := map[domain.Category]config.CategoryConfig{}
	for _, cat := range domain.Categories {
		categories[cat] = config.CategoryConfig{
			Name:     string(cat),
			ParentID: "parent-" + string(cat),
		}
	}
	return config.TicketsConfig{
		IntakeChannelID: "intake",
		LogsChannelID:   "logs",
		Categories:      categories,
	}
}

type fixture struct {
	svc         *TicketService
	repo        *memTicketRepo
	gateway     *fakeGateway
	transcripts *fakeTranscripts
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMemTicketRepo()
	gateway := newFakeGateway()
	transcripts := &fakeTranscripts{}
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  repo,
		Policy:      authz.NewPolicy(testRoles),
		Gateway:     gateway,
		Prompts:     gateway,
		Enricher:    &fakeEnricher{result: EnrichmentResult{Status: EnrichmentMissing}},
		Transcripts: transcripts,
		Tickets:     testTicketsConfig(),
		Roles:       testRoles,
		Logger:      zap.NewNop(),
	})
	return &fixture{svc: svc, repo: repo, gateway: gateway, transcripts: transcripts}
}

var (
	creator = Actor{ID: "owner-1", Username: "banditfan"}
	staff   = Actor{ID: "staff-1", Username: "staffer", RoleIDs: []string{"100"}}
	senior  = Actor{ID: "senior-1", Username: "senior", RoleIDs: []string{"200"}}
)

func TestCreateTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.svc.Create(ctx, creator, domain.CategoryGeneral)
	require.NoError(t, err)
	require.NotNil(t, ticket)

	assert.Len(t, ticket.ID, 6)
	assert.Equal(t, creator.ID, ticket.OwnerID)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.True(t, ticket.Open())

	require.Len(t, f.gateway.createdSpecs, 1)
	spec := f.gateway.createdSpecs[0]
	assert.Equal(t, "parent-general", spec.ParentID)
	assert.Equal(t, creator.ID, spec.OwnerID)
	assert.Equal(t, []string{"100"}, spec.AccessRoles)
	assert.True(t, strings.HasPrefix(spec.Name, "general-banditfan-"))

	stored, err := f.repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ChannelID, stored.ChannelID)

	// The welcome message is asynchronous.
	assert.Eventually(t, func() bool {
		f.gateway.mu.Lock()
		defer f.gateway.mu.Unlock()
		return f.gateway.welcomes == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCreateRestrictedCategoryAccessRoles(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), creator, domain.CategoryStaff)
	require.NoError(t, err)

	require.Len(t, f.gateway.createdSpecs, 1)
	// Staff reports are visible to the handler role and the escalation
	// roles, never the generic staff role.
	assert.Equal(t, []string{"600", "200", "300"}, f.gateway.createdSpecs[0].AccessRoles)
}

func TestCreateInvalidCategory(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), creator, domain.Category("bogus"))
	require.Error(t, err)
	assert.Equal(t, util.CodeInvalidCategory, util.Code(err))
	assert.Empty(t, f.gateway.createdSpecs)
}

func TestCreateDuplicateOpenTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, creator, domain.CategoryGeneral)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, creator, domain.CategoryGeneral)
	require.Error(t, err)
	derr := util.ToDomainError(err)
	assert.Equal(t, util.CodeDuplicateTicket, derr.Code)
	assert.Equal(t, first.ChannelID, derr.Details["channel_id"])

	// A different category is a separate slot.
	_, err = f.svc.Create(ctx, creator, domain.CategoryTebex)
	assert.NoError(t, err)
}

// When the uniqueness check races and the insert loses, the channel
// provisioned for the loser must be torn down.
func TestCreateRaceCleansUpChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	winner, err := f.svc.Create(ctx, creator, domain.CategoryGeneral)
	require.NoError(t, err)

	// Simulate losing the race after the pre-check by inserting directly
	// against a repo that already holds the winner.
	loserRepo := &racingRepo{memTicketRepo: f.repo}
	f.svc.tickets = loserRepo

	_, err = f.svc.Create(ctx, creator, domain.CategoryGeneral)
	require.Error(t, err)
	derr := util.ToDomainError(err)
	assert.Equal(t, util.CodeDuplicateTicket, derr.Code)
	assert.Equal(t, winner.ChannelID, derr.Details["channel_id"])

	// The loser's channel is gone; the winner's survives.
	assert.Len(t, f.gateway.deleted, 1)
	assert.NotEqual(t, winner.ChannelID, f.gateway.deleted[0])
	assert.Equal(t, f.gateway.name(winner.ChannelID), "general-banditfan-"+strings.ToLower(winner.ID))
}

// racingRepo reports no open ticket on the first FindOpen (the pre-check,
// simulating the race window) and then delegates, so the insert collides
// and the recovery lookup finds the winner.
type racingRepo struct {
	*memTicketRepo
	preChecked bool
}

func (r *racingRepo) FindOpen(ctx context.Context, ownerID string, category domain.Category) (*domain.Ticket, error) {
	if !r.preChecked {
		r.preChecked = true
		return nil, repository.ErrNotFound
	}
	return r.memTicketRepo.FindOpen(ctx, ownerID, category)
}

func TestClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.svc.Create(ctx, creator, domain.CategoryGeneral)
	require.NoError(t, err)

	require.NoError(t, f.svc.Claim(ctx, staff, ticket.ID))
	assert.Equal(t, 1, f.gateway.claims)
	assert.True(t, strings.HasSuffix(f.gateway.name(ticket.ChannelID), "-claimed"))

	// A second claim does not stack suffixes.
	require.NoError(t, f.svc.Claim(ctx, staff, ticket.ID))
	assert.False(t, strings.HasSuffix(f.gateway.name(ticket.ChannelID), "-claimed-claimed"))
}

func TestClaimForbiddenForCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.svc.Create(ctx, creator, domain.CategoryGeneral)
	require.NoError(t, err)

	err = f.svc.Claim(ctx, creator, ticket.ID)
	require.Error(t, err)
	assert.Equal(t, util.CodeForbidden, util.Code(err))
}

func TestAddUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gateway.members["777"] = true

	ticket, err := f.svc.Create(ctx, creator, domain.CategoryGeneral)
	require.NoError(t, err)

	targetID, err := f.svc.AddUser(ctx, staff, ticket.ID, "<@777>")
	require.NoError(t, err)
	assert.Equal(t, "777", targetID)
	assert.Contains(t, f.gateway.granted, ticket.ChannelID+":777")

	_, err = f.svc.AddUser(ctx, staff, ticket.ID, "not-a-user")
	require.Error(t, err)
	assert.Equal(t, util.CodeUserNotFound, util.Code(err))

	// Numeric but not a guild member.
	_, err = f.svc.AddUser(ctx, staff, ticket.ID, "888")
	require.Error(t, err)
	assert.Equal(t, util.CodeUserNotFound, util.Code(err))
}

func TestRename(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.svc.Create(ctx, creator, domain.CategoryGeneral)
	require.NoError(t, err)

	require.NoError(t, f.svc.Rename(ctx, staff, ticket.ID, "  resolved-issue  "))
	assert.Equal(t, "resolved-issue", f.gateway.name(ticket.ChannelID))

	err = f.svc.Rename(ctx, staff, ticket.ID, "   ")
	require.Error(t, err)
	assert.Equal(t, util.CodeValidation, util.Code(err))

	err = f.svc.Rename(ctx, staff, ticket.ID, strings.Repeat("x", 101))
	require.Error(t, err)
	assert.Equal(t, util.CodeValidation, util.Code(err))

	err = f.svc.Rename(ctx, creator, ticket.ID, "mine")
	require.Error(t, err)
	assert.Equal(t, util.CodeForbidden, util.Code(err))
}

func TestClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.svc.Create(ctx, creator, domain.CategoryGeneral)
	require.NoError(t, err)

	require.NoError(t, f.svc.Close(ctx, creator, ticket.ID))

	stored, err := f.repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, stored.Status)
	assert.Equal(t, 1, f.gateway.closes)
	assert.Contains(t, f.gateway.locked, ticket.ChannelID)
	assert.Equal(t, 1, f.gateway.offers)

	// The transcript pipeline runs asynchronously, exactly once.
	assert.Eventually(t, func() bool { return f.transcripts.count() == 1 }, time.Second, 10*time.Millisecond)

	err = f.svc.Close(ctx, creator, ticket.ID)
	require.Error(t, err)
	assert.Equal(t, util.CodeValidation, util.Code(err))
}

// Scenario: close then delete must export exactly one transcript.
func TestCloseThenDeleteSinglePipelineRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.svc.Create(ctx, creator, domain.CategoryGeneral)
	require.NoError(t, err)

	require.NoError(t, f.svc.Close(ctx, creator, ticket.ID))
	require.Eventually(t, func() bool { return f.transcripts.count() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, f.svc.Delete(ctx, staff, ticket.ID))
	assert.Equal(t, 1, f.transcripts.count())

	_, err = f.repo.GetByID(ctx, ticket.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Contains(t, f.gateway.deleted, ticket.ChannelID)
}

// Deleting a still-open ticket runs the pipeline synchronously first, since
// no close captured a transcript.
func TestDeleteOpenTicketExportsFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.svc.Create(ctx, creator, domain.CategoryGeneral)
	require.NoError(t, err)

	// Senior escalates across restricted categories only; the default group
	// takes the generic staff role.
	err = f.svc.Delete(ctx, senior, ticket.ID)
	require.Error(t, err)
	assert.Equal(t, util.CodeForbidden, util.Code(err))
	assert.Equal(t, 0, f.transcripts.count())

	require.NoError(t, f.svc.Delete(ctx, staff, ticket.ID))
	assert.Equal(t, 1, f.transcripts.count())
	assert.Equal(t, TranscriptOnDelete, f.transcripts.runs[0])

	_, err = f.repo.GetByID(ctx, ticket.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreatorDeleteOnlyWhenClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.svc.Create(ctx, creator, domain.CategoryGeneral)
	require.NoError(t, err)

	err = f.svc.Delete(ctx, creator, ticket.ID)
	require.Error(t, err)
	assert.Equal(t, util.CodeForbidden, util.Code(err))

	require.NoError(t, f.svc.Close(ctx, creator, ticket.ID))
	require.NoError(t, f.svc.Delete(ctx, creator, ticket.ID))
}

// The record is removed before the channel; a failed channel delete leaves
// an orphaned channel and reports the failure, but the ticket stays gone.
func TestDeleteChannelFailureLeavesRecordDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.svc.Create(ctx, creator, domain.CategoryGeneral)
	require.NoError(t, err)

	f.gateway.failDelete = errors.New("discord down")
	err = f.svc.Delete(ctx, staff, ticket.ID)
	require.Error(t, err)
	assert.Equal(t, util.CodeChannelProvisioning, util.Code(err))

	_, err = f.repo.GetByID(ctx, ticket.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestActionsOnMissingTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.Claim(ctx, staff, "ZZZZZZ")
	require.Error(t, err)
	assert.Equal(t, util.CodeNotFound, util.Code(err))

	err = f.svc.Close(ctx, staff, "ZZZZZZ")
	require.Error(t, err)
	assert.Equal(t, util.CodeNotFound, util.Code(err))
}
