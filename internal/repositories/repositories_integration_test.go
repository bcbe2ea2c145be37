//go:build integration

package repositories

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/homelink/marketplace/internal/db"
	"github.com/homelink/marketplace/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testPool connects to TEST_POSTGRES_DSN and applies the repo migrations.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skipping: set TEST_POSTGRES_DSN to run repository tests")
	}

	ctx := context.Background()
	pool, err := db.NewPostgresPool(ctx, dsn, "marketplace-test", zap.NewNop())
	if err != nil {
		t.Skipf("skipping: cannot connect to postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	require.NoError(t, db.RunMigrations(ctx, pool, filepath.Join("..", "..", "migrations"), zap.NewNop()))
	return pool
}

func seedListing(t *testing.T, pool *pgxpool.Pool, owner *uuid.UUID) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`INSERT INTO listings (owner_id, title) VALUES ($1, 'flat in Lekki') RETURNING id`, owner,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestListingRepo_GetByID(t *testing.T) {
	pool := testPool(t)
	repo := NewListingRepo(pool)
	ctx := context.Background()

	owner := uuid.New()
	id := seedListing(t, pool, &owner)
	l, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, l.OwnerID)
	assert.Equal(t, owner, *l.OwnerID)

	ownerless := seedListing(t, pool, nil)
	l, err = repo.GetByID(ctx, ownerless)
	require.NoError(t, err)
	assert.Nil(t, l.OwnerID)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDealAndEscrow_TransactionalWrite(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	txm := NewTxManager(pool)
	escrows := NewEscrowRepo(pool)
	deals := NewDealRepo(pool)
	audit := NewAuditRepo(pool)

	buyer, seller := uuid.New(), uuid.New()
	listing := seedListing(t, pool, &seller)
	now := time.Now().UTC().Truncate(time.Microsecond)
	conv := "conv_1"

	escrow := &models.Escrow{PayerID: buyer, PayeeID: seller, ListingID: listing,
		Amount: decimal.RequireFromString("25000.50"), Currency: "NGN", Status: models.EscrowStatusInitiated, CreatedAt: now}
	deal := &models.Deal{ListingID: listing, BuyerID: buyer, SellerID: seller, ConversationID: &conv,
		Amount: escrow.Amount, Status: models.DealStatusInitiated, CreatedAt: now, UpdatedAt: now}

	err := txm.WithTx(ctx, func(ctx context.Context) error {
		if err := escrows.Create(ctx, escrow); err != nil {
			return err
		}
		deal.EscrowID = escrow.ID
		if err := deals.Create(ctx, deal); err != nil {
			return err
		}
		return audit.Log(ctx, models.AuditLog{ActorUserID: &buyer, ActorType: models.ActorTypeUser,
			Action: "deal_created", EntityType: "deal", EntityID: &deal.ID})
	})
	require.NoError(t, err)

	got, err := deals.GetByID(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, escrow.ID, got.EscrowID)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("25000.5")))
	require.NotNil(t, got.ConversationID)
	assert.Equal(t, conv, *got.ConversationID)

	gotEscrow, err := escrows.GetByID(ctx, escrow.ID)
	require.NoError(t, err)
	assert.Equal(t, buyer, gotEscrow.PayerID)
	assert.Equal(t, seller, gotEscrow.PayeeID)

	history, err := audit.GetByEntity(ctx, "deal", deal.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "deal_created", history[0].Action)

	list, err := deals.List(ctx, DealFilter{AnyParticipant: &seller, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, deal.ID, list[0].ID)
}

func TestTxManager_RollsBackEscrow(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	txm := NewTxManager(pool)
	escrows := NewEscrowRepo(pool)

	seller := uuid.New()
	listing := seedListing(t, pool, &seller)
	escrow := &models.Escrow{PayerID: uuid.New(), PayeeID: seller, ListingID: listing,
		Amount: decimal.NewFromInt(10), Currency: "NGN", Status: models.EscrowStatusInitiated, CreatedAt: time.Now().UTC()}

	boom := errors.New("deal write failed")
	err := txm.WithTx(ctx, func(ctx context.Context) error {
		if err := escrows.Create(ctx, escrow); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = escrows.GetByID(ctx, escrow.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEscrowRepo_Orphans(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	escrows := NewEscrowRepo(pool)
	deals := NewDealRepo(pool)

	seller := uuid.New()
	listing := seedListing(t, pool, &seller)
	old := time.Now().UTC().Add(-24 * time.Hour)

	orphan := &models.Escrow{PayerID: uuid.New(), PayeeID: seller, ListingID: listing,
		Amount: decimal.NewFromInt(5), Currency: "NGN", Status: models.EscrowStatusInitiated, CreatedAt: old}
	linked := &models.Escrow{PayerID: uuid.New(), PayeeID: seller, ListingID: listing,
		Amount: decimal.NewFromInt(5), Currency: "NGN", Status: models.EscrowStatusInitiated, CreatedAt: old}
	require.NoError(t, escrows.Create(ctx, orphan))
	require.NoError(t, escrows.Create(ctx, linked))
	require.NoError(t, deals.Create(ctx, &models.Deal{ListingID: listing, BuyerID: linked.PayerID, SellerID: seller,
		EscrowID: linked.ID, Amount: linked.Amount, Status: models.DealStatusInitiated, CreatedAt: old, UpdatedAt: old}))

	found, err := escrows.ListOrphans(ctx, time.Now().UTC().Add(-time.Hour), 1000)
	require.NoError(t, err)
	ids := map[uuid.UUID]bool{}
	for _, e := range found {
		ids[e.ID] = true
	}
	assert.True(t, ids[orphan.ID])
	assert.False(t, ids[linked.ID])

	deleted, err := escrows.DeleteOrphan(ctx, linked.ID)
	require.NoError(t, err)
	assert.False(t, deleted, "escrow referenced by a deal must survive")

	deleted, err = escrows.DeleteOrphan(ctx, orphan.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
}
