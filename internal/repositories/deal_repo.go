package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/homelink/marketplace/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type DealRepo struct {
	pool *pgxpool.Pool
}

func NewDealRepo(pool *pgxpool.Pool) *DealRepo {
	return &DealRepo{pool: pool}
}

const dealColumns = `id, listing_id, buyer_id, seller_id, escrow_id, conversation_id,
		       amount::text, status, created_at, updated_at`

func (r *DealRepo) Create(ctx context.Context, d *models.Deal) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO deals (listing_id, buyer_id, seller_id, escrow_id, conversation_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9)
		RETURNING id
	`, d.ListingID, d.BuyerID, d.SellerID, d.EscrowID, d.ConversationID, d.Amount.String(), d.Status, d.CreatedAt, d.UpdatedAt,
	).Scan(&d.ID)
}

func (r *DealRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1`, id)
	d, err := scanDeal(row)
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}

type DealFilter struct {
	BuyerID  *uuid.UUID
	SellerID *uuid.UUID
	// AnyParticipant matches deals where the user is buyer or seller.
	AnyParticipant *uuid.UUID
	Limit          int
	Offset         int
}

func (r *DealRepo) List(ctx context.Context, f DealFilter) ([]models.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.BuyerID != nil {
		where = append(where, fmt.Sprintf("buyer_id = $%d", argIdx))
		args = append(args, *f.BuyerID)
		argIdx++
	}
	if f.SellerID != nil {
		where = append(where, fmt.Sprintf("seller_id = $%d", argIdx))
		args = append(args, *f.SellerID)
		argIdx++
	}
	if f.AnyParticipant != nil {
		where = append(where, fmt.Sprintf("(buyer_id = $%d OR seller_id = $%d)", argIdx, argIdx))
		args = append(args, *f.AnyParticipant)
		argIdx++
	}

	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []models.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *d)
	}
	return deals, rows.Err()
}

func scanDeal(row pgx.Row) (*models.Deal, error) {
	var (
		d      models.Deal
		amount string
	)
	if err := row.Scan(&d.ID, &d.ListingID, &d.BuyerID, &d.SellerID, &d.EscrowID, &d.ConversationID,
		&amount, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if d.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("deal %s amount %q: %w", d.ID, amount, err)
	}
	return &d, nil
}
