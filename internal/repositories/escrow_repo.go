package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/homelink/marketplace/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type EscrowRepo struct {
	pool *pgxpool.Pool
}

func NewEscrowRepo(pool *pgxpool.Pool) *EscrowRepo {
	return &EscrowRepo{pool: pool}
}

func (r *EscrowRepo) Create(ctx context.Context, e *models.Escrow) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO escrows (payer_id, payee_id, listing_id, amount, currency, status, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
		RETURNING id
	`, e.PayerID, e.PayeeID, e.ListingID, e.Amount.String(), e.Currency, e.Status, e.CreatedAt).Scan(&e.ID)
}

func (r *EscrowRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	var (
		e      models.Escrow
		amount string
	)
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, payer_id, payee_id, listing_id, amount::text, currency, status, created_at
		FROM escrows WHERE id = $1
	`, id).Scan(&e.ID, &e.PayerID, &e.PayeeID, &e.ListingID, &amount, &e.Currency, &e.Status, &e.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("escrow %s amount %q: %w", id, amount, err)
	}
	return &e, nil
}

// ListOrphans returns escrows created before the cutoff that no deal references.
func (r *EscrowRepo) ListOrphans(ctx context.Context, before time.Time, limit int) ([]models.Escrow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT e.id, e.payer_id, e.payee_id, e.listing_id, e.amount::text, e.currency, e.status, e.created_at
		FROM escrows e
		LEFT JOIN deals d ON d.escrow_id = e.id
		WHERE d.id IS NULL AND e.created_at < $1
		ORDER BY e.created_at
		LIMIT $2
	`, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var escrows []models.Escrow
	for rows.Next() {
		var (
			e      models.Escrow
			amount string
		)
		if err := rows.Scan(&e.ID, &e.PayerID, &e.PayeeID, &e.ListingID, &amount, &e.Currency, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("escrow %s amount %q: %w", e.ID, amount, err)
		}
		escrows = append(escrows, e)
	}
	return escrows, rows.Err()
}

// DeleteOrphan removes the escrow only while no deal points at it. It reports
// whether a row was deleted.
func (r *EscrowRepo) DeleteOrphan(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		DELETE FROM escrows e
		WHERE e.id = $1 AND NOT EXISTS (SELECT 1 FROM deals d WHERE d.escrow_id = e.id)
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
