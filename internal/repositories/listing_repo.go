package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/homelink/marketplace/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ListingRepo only reads; listings are maintained by the listing service.
type ListingRepo struct {
	pool *pgxpool.Pool
}

func NewListingRepo(pool *pgxpool.Pool) *ListingRepo {
	return &ListingRepo{pool: pool}
}

func (r *ListingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var l models.Listing
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, owner_id, title, created_at
		FROM listings WHERE id = $1
	`, id).Scan(&l.ID, &l.OwnerID, &l.Title, &l.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}
