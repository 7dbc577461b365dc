package postgres

import (
	"context"
	"database/sql"
	"errors"

	"negotiation/internal/domain"
	"negotiation/internal/repository"
)

// NegotiationRepository is a PostgreSQL implementation of repository.NegotiationRepository.
type NegotiationRepository struct {
	q Querier
}

// NewNegotiationRepository creates a new PostgreSQL negotiation repository.
func NewNegotiationRepository(db *sql.DB) *NegotiationRepository {
	return &NegotiationRepository{q: db}
}

// NewNegotiationRepositoryWithTx creates a negotiation repository using a transaction.
func NewNegotiationRepositoryWithTx(tx *sql.Tx) *NegotiationRepository {
	return &NegotiationRepository{q: tx}
}

const negotiationColumns = `id, trip_id, initiator_id, responder_id, proposed_amount, reference_fare, counter_amount, status, round, countered_negotiation_id, created_at, expires_at, resolved_at`

// Create persists a new negotiation record.
func (r *NegotiationRepository) Create(ctx context.Context, n *domain.Negotiation) error {
	query := `
		INSERT INTO negotiations (` + negotiationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var responderID sql.NullString
	if n.ResponderID != "" {
		responderID = sql.NullString{String: n.ResponderID, Valid: true}
	}

	var counterAmount sql.NullFloat64
	if n.CounterAmount > 0 {
		counterAmount = sql.NullFloat64{Float64: n.CounterAmount, Valid: true}
	}

	var counteredID sql.NullString
	if n.CounteredNegotiationID != "" {
		counteredID = sql.NullString{String: n.CounteredNegotiationID, Valid: true}
	}

	var resolvedAt sql.NullTime
	if !n.ResolvedAt.IsZero() {
		resolvedAt = sql.NullTime{Time: n.ResolvedAt, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		n.ID,
		n.TripID,
		n.InitiatorID,
		responderID,
		n.ProposedAmount,
		n.ReferenceFare,
		counterAmount,
		n.Status,
		n.Round,
		counteredID,
		n.CreatedAt,
		n.ExpiresAt,
		resolvedAt,
	)

	return err
}

// GetByID retrieves a negotiation by ID.
func (r *NegotiationRepository) GetByID(ctx context.Context, id string) (*domain.Negotiation, error) {
	query := `SELECT ` + negotiationColumns + ` FROM negotiations WHERE id = $1`

	return scanNegotiation(r.q.QueryRowContext(ctx, query, id))
}

// GetPendingByTrip retrieves the PENDING negotiation for a trip, if any.
func (r *NegotiationRepository) GetPendingByTrip(ctx context.Context, tripID string) (*domain.Negotiation, error) {
	query := `
		SELECT ` + negotiationColumns + `
		FROM negotiations WHERE trip_id = $1 AND status = $2
	`

	return scanNegotiation(r.q.QueryRowContext(ctx, query, tripID, domain.NegotiationStatusPending))
}

// ListByTrip retrieves all negotiations for a trip in creation order.
func (r *NegotiationRepository) ListByTrip(ctx context.Context, tripID string) ([]*domain.Negotiation, error) {
	query := `
		SELECT ` + negotiationColumns + `
		FROM negotiations WHERE trip_id = $1 ORDER BY created_at ASC
	`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectNegotiations(rows)
}

// ListPending retrieves every PENDING negotiation.
func (r *NegotiationRepository) ListPending(ctx context.Context) ([]*domain.Negotiation, error) {
	query := `
		SELECT ` + negotiationColumns + `
		FROM negotiations WHERE status = $1 ORDER BY expires_at ASC
	`

	rows, err := r.q.QueryContext(ctx, query, domain.NegotiationStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectNegotiations(rows)
}

// ResolvePending applies the resolution only if the record is still PENDING.
// The status guard in the WHERE clause is what makes the arbitration race
// safe: at most one concurrent writer observes RowsAffected == 1.
func (r *NegotiationRepository) ResolvePending(ctx context.Context, id string, res repository.Resolution) (bool, error) {
	query := `
		UPDATE negotiations
		SET status = $1,
		    responder_id = COALESCE($2, responder_id),
		    counter_amount = COALESCE($3, counter_amount),
		    resolved_at = $4
		WHERE id = $5 AND status = $6
	`

	var responderID sql.NullString
	if res.ResponderID != "" {
		responderID = sql.NullString{String: res.ResponderID, Valid: true}
	}

	var counterAmount sql.NullFloat64
	if res.CounterAmount > 0 {
		counterAmount = sql.NullFloat64{Float64: res.CounterAmount, Valid: true}
	}

	result, err := r.q.ExecContext(ctx, query,
		res.Status,
		responderID,
		counterAmount,
		res.ResolvedAt,
		id,
		domain.NegotiationStatusPending,
	)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanNegotiation(row rowScanner) (*domain.Negotiation, error) {
	var n domain.Negotiation
	var responderID sql.NullString
	var counterAmount sql.NullFloat64
	var counteredID sql.NullString
	var resolvedAt sql.NullTime

	err := row.Scan(
		&n.ID,
		&n.TripID,
		&n.InitiatorID,
		&responderID,
		&n.ProposedAmount,
		&n.ReferenceFare,
		&counterAmount,
		&n.Status,
		&n.Round,
		&counteredID,
		&n.CreatedAt,
		&n.ExpiresAt,
		&resolvedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if responderID.Valid {
		n.ResponderID = responderID.String
	}
	if counterAmount.Valid {
		n.CounterAmount = counterAmount.Float64
	}
	if counteredID.Valid {
		n.CounteredNegotiationID = counteredID.String
	}
	if resolvedAt.Valid {
		n.ResolvedAt = resolvedAt.Time
	}

	return &n, nil
}

func collectNegotiations(rows *sql.Rows) ([]*domain.Negotiation, error) {
	var result []*domain.Negotiation
	for rows.Next() {
		n, err := scanNegotiation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
