package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/homelink/marketplace/internal/clock"
	"github.com/homelink/marketplace/internal/models"
	"go.uber.org/zap"
)

type OrphanEscrowStore interface {
	ListOrphans(ctx context.Context, before time.Time, limit int) ([]models.Escrow, error)
	DeleteOrphan(ctx context.Context, id uuid.UUID) (bool, error)
}

// SweepService removes escrows that never got a deal, e.g. rows written
// before deal creation became transactional or imported by hand.
type SweepService struct {
	tx      TxRunner
	escrows OrphanEscrowStore
	audit   AuditLogger
	clock   clock.Clock
	grace   time.Duration
	batch   int
	log     *zap.Logger
}

func NewSweepService(tx TxRunner, escrows OrphanEscrowStore, audit AuditLogger, clk clock.Clock, grace time.Duration, batch int, log *zap.Logger) *SweepService {
	if batch <= 0 {
		batch = 100
	}
	return &SweepService{
		tx:      tx,
		escrows: escrows,
		audit:   audit,
		clock:   clk,
		grace:   grace,
		batch:   batch,
		log:     log,
	}
}

// Run deletes up to one batch of orphan escrows older than the grace period
// and returns how many were removed. A failure on one escrow does not stop
// the rest of the batch.
func (s *SweepService) Run(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.grace)

	orphans, err := s.escrows.ListOrphans(ctx, cutoff, s.batch)
	if err != nil {
		return 0, fmt.Errorf("list orphan escrows: %w", err)
	}

	removed := 0
	for _, e := range orphans {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		escrow := e
		var deleted bool
		err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
			var err error
			deleted, err = s.escrows.DeleteOrphan(txCtx, escrow.ID)
			if err != nil || !deleted {
				return err
			}
			return s.audit.Log(txCtx, models.AuditLog{
				ActorType:  models.ActorTypeSystem,
				Action:     "escrow_orphan_removed",
				EntityType: "escrow",
				EntityID:   &escrow.ID,
				Meta: map[string]any{
					"payer_id":   escrow.PayerID.String(),
					"payee_id":   escrow.PayeeID.String(),
					"listing_id": escrow.ListingID.String(),
					"amount":     escrow.Amount.String(),
					"created_at": escrow.CreatedAt,
				},
			})
		})
		if err != nil {
			s.log.Error("failed to remove orphan escrow", zap.String("escrow_id", escrow.ID.String()), zap.Error(err))
			continue
		}
		if !deleted {
			// a deal was linked after the listing query
			continue
		}

		removed++
		s.log.Warn("orphan escrow removed",
			zap.String("escrow_id", escrow.ID.String()),
			zap.String("listing_id", escrow.ListingID.String()),
			zap.Time("created_at", escrow.CreatedAt),
		)
	}

	return removed, nil
}
