package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Banditcantcode/Banditbot/internal/domain"
)

// Sentinel errors surfaced by the ticket store.
var (
	// ErrNotFound is returned when no ticket exists for the given id.
	ErrNotFound = errors.New("ticket not found")
	// ErrDuplicateID is returned when a generated ticket id collides with a
	// live record.
	ErrDuplicateID = errors.New("ticket id already exists")
	// ErrDuplicateOpenTicket is returned when the owner already has an open
	// ticket in the same category. The unique index enforces this under
	// concurrent creates; callers must not rely on a prior FindOpen check.
	ErrDuplicateOpenTicket = errors.New("open ticket already exists for user and category")
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	FindOpen(ctx context.Context, ownerID string, category domain.Category) (*domain.Ticket, error)
	SetStatus(ctx context.Context, id string, status domain.TicketStatus) error
	Delete(ctx context.Context, id string) error
	ListOpen(ctx context.Context) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the pgx-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = "ticket_id, owner_id, channel_id, category, status, created_at"

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_id, owner_id, channel_id, category, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.OwnerID,
		ticket.ChannelID,
		ticket.Category,
		ticket.Status,
	).Scan(&ticket.CreatedAt)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) FindOpen(ctx context.Context, ownerID string, category domain.Category) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + `
        FROM tickets WHERE owner_id=$1 AND category=$2 AND status=$3`
	return r.fetchSingle(ctx, query, ownerID, category, domain.TicketStatusOpen)
}

func (r *ticketRepository) SetStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	const query = `UPDATE tickets SET status=$1 WHERE ticket_id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tickets WHERE ticket_id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) ListOpen(ctx context.Context) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + `
        FROM tickets WHERE status=$1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, domain.TicketStatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, args...), &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.OwnerID,
		&ticket.ChannelID,
		&ticket.Category,
		&ticket.Status,
		&ticket.CreatedAt,
	)
}

// mapUniqueViolation distinguishes the primary-key collision from the
// one-open-ticket-per-user-per-category partial index.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	if strings.Contains(pgErr.ConstraintName, "open_owner_category") {
		return ErrDuplicateOpenTicket
	}
	return ErrDuplicateID
}
