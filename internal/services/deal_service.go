package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/homelink/marketplace/internal/apperr"
	"github.com/homelink/marketplace/internal/auth"
	"github.com/homelink/marketplace/internal/clock"
	"github.com/homelink/marketplace/internal/config"
	"github.com/homelink/marketplace/internal/events"
	"github.com/homelink/marketplace/internal/models"
	"github.com/homelink/marketplace/internal/rbac"
	"github.com/homelink/marketplace/internal/repositories"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type ListingReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

type EscrowStore interface {
	Create(ctx context.Context, e *models.Escrow) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error)
}

type DealStore interface {
	Create(ctx context.Context, d *models.Deal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Deal, error)
	List(ctx context.Context, f repositories.DealFilter) ([]models.Deal, error)
}

type AuditLogger interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

type AuditReader interface {
	GetByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]models.AuditLog, error)
}

// Caller-facing messages. Internal ones never carry the underlying cause.
const (
	msgUnauthenticated  = "must be authenticated to create a deal"
	msgInvalidArgument  = "a valid listingId and a positive amount are required"
	msgListingNotFound  = "listing not found"
	msgListingNoOwner   = "could not retrieve seller information from the listing"
	msgSelfDeal         = "cannot create a deal with yourself"
	msgInternal         = "an unexpected error occurred, try again later"
	msgDealNotFound     = "deal not found"
	msgReadUnauthorized = "must be authenticated"
)

type DealService struct {
	tx        TxRunner
	listings  ListingReader
	escrows   EscrowStore
	deals     DealStore
	audit     AuditLogger
	history   AuditReader
	publisher events.Publisher
	clock     clock.Clock
	cfg       *config.Config
	log       *zap.Logger
}

func NewDealService(
	tx TxRunner,
	listings ListingReader,
	escrows EscrowStore,
	deals DealStore,
	audit AuditLogger,
	history AuditReader,
	publisher events.Publisher,
	clk clock.Clock,
	cfg *config.Config,
	log *zap.Logger,
) *DealService {
	return &DealService{
		tx:        tx,
		listings:  listings,
		escrows:   escrows,
		deals:     deals,
		audit:     audit,
		history:   history,
		publisher: publisher,
		clock:     clk,
		cfg:       cfg,
		log:       log,
	}
}

type CreateDealInput struct {
	ListingID string
	// Amount is nil when the client sent no number.
	Amount *decimal.Decimal
	// ConversationID is optional; empty is stored as null.
	ConversationID *string
}

type CreateDealResult struct {
	DealID uuid.UUID
}

// CreateDeal validates the caller and input, then writes an escrow and the
// deal referencing it in one transaction. Only the deal id is returned.
func (s *DealService) CreateDeal(ctx context.Context, caller *auth.Caller, in CreateDealInput) (*CreateDealResult, error) {
	if !caller.Authenticated() {
		return nil, apperr.New(apperr.Unauthenticated, msgUnauthenticated)
	}
	buyerID := caller.UserID

	if in.ListingID == "" || in.Amount == nil || !in.Amount.IsPositive() {
		return nil, apperr.New(apperr.InvalidArgument, msgInvalidArgument)
	}

	// Listing ids are uuids; anything else cannot name an existing listing.
	listingID, err := uuid.Parse(in.ListingID)
	if err != nil {
		return nil, apperr.New(apperr.NotFound, msgListingNotFound)
	}

	listing, err := s.listings.GetByID(ctx, listingID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, msgListingNotFound)
	}
	if err != nil {
		return nil, s.internal("listing lookup failed", err, zap.String("listing_id", listingID.String()))
	}

	if listing.OwnerID == nil || *listing.OwnerID == uuid.Nil {
		s.log.Error("listing has no owner", zap.String("listing_id", listingID.String()))
		return nil, apperr.New(apperr.Internal, msgListingNoOwner)
	}
	sellerID := *listing.OwnerID

	if sellerID == buyerID {
		return nil, apperr.New(apperr.FailedPrecondition, msgSelfDeal)
	}

	conversationID := in.ConversationID
	if conversationID != nil && *conversationID == "" {
		conversationID = nil
	}

	now := s.clock.Now()
	escrow := &models.Escrow{
		PayerID:   buyerID,
		PayeeID:   sellerID,
		ListingID: listingID,
		Amount:    *in.Amount,
		Currency:  s.cfg.DealCurrency,
		Status:    models.EscrowStatusInitiated,
		CreatedAt: now,
	}
	deal := &models.Deal{
		ListingID:      listingID,
		BuyerID:        buyerID,
		SellerID:       sellerID,
		ConversationID: conversationID,
		Amount:         *in.Amount,
		Status:         models.DealStatusInitiated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.escrows.Create(txCtx, escrow); err != nil {
			return fmt.Errorf("create escrow: %w", err)
		}

		deal.EscrowID = escrow.ID
		if err := s.deals.Create(txCtx, deal); err != nil {
			return fmt.Errorf("create deal for escrow %s: %w", escrow.ID, err)
		}

		if err := s.audit.Log(txCtx, models.AuditLog{
			ActorUserID: &buyerID,
			ActorType:   models.ActorTypeUser,
			Action:      "escrow_created",
			EntityType:  "escrow",
			EntityID:    &escrow.ID,
			Meta:        map[string]any{"deal_id": deal.ID.String(), "amount": escrow.Amount.String(), "currency": escrow.Currency},
		}); err != nil {
			return fmt.Errorf("audit escrow: %w", err)
		}
		if err := s.audit.Log(txCtx, models.AuditLog{
			ActorUserID: &buyerID,
			ActorType:   models.ActorTypeUser,
			Action:      "deal_created",
			EntityType:  "deal",
			EntityID:    &deal.ID,
			Meta:        map[string]any{"escrow_id": escrow.ID.String(), "listing_id": listingID.String()},
		}); err != nil {
			return fmt.Errorf("audit deal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.internal("deal transaction rolled back", err,
			zap.String("listing_id", listingID.String()),
			zap.String("buyer_id", buyerID.String()),
		)
	}

	if err := s.publisher.Publish(ctx, events.ChannelDeals, events.Event{
		Type: events.EventDealCreated,
		Payload: map[string]any{
			"deal_id":    deal.ID.String(),
			"escrow_id":  escrow.ID.String(),
			"listing_id": listingID.String(),
			"buyer_id":   buyerID.String(),
			"seller_id":  sellerID.String(),
		},
	}); err != nil {
		s.log.Warn("failed to publish deal_created", zap.String("deal_id", deal.ID.String()), zap.Error(err))
	}

	s.log.Info("deal created",
		zap.String("deal_id", deal.ID.String()),
		zap.String("escrow_id", escrow.ID.String()),
		zap.String("listing_id", listingID.String()),
		zap.String("amount", deal.Amount.String()),
	)

	return &CreateDealResult{DealID: deal.ID}, nil
}

// GetDeal returns the deal to its participants and admins. Everyone else
// gets NotFound.
func (s *DealService) GetDeal(ctx context.Context, caller *auth.Caller, id uuid.UUID) (*models.Deal, error) {
	return s.authorizedDeal(ctx, caller, id, rbac.PermViewDeal)
}

// GetEscrow returns the escrow linked to a deal the caller may see.
func (s *DealService) GetEscrow(ctx context.Context, caller *auth.Caller, dealID uuid.UUID) (*models.Escrow, error) {
	deal, err := s.authorizedDeal(ctx, caller, dealID, rbac.PermViewEscrow)
	if err != nil {
		return nil, err
	}

	escrow, err := s.escrows.GetByID(ctx, deal.EscrowID)
	if err != nil {
		return nil, s.internal("escrow lookup failed", err,
			zap.String("deal_id", deal.ID.String()),
			zap.String("escrow_id", deal.EscrowID.String()),
		)
	}
	return escrow, nil
}

// DealHistory returns the audit trail of a deal and of its escrow, oldest
// first.
func (s *DealService) DealHistory(ctx context.Context, caller *auth.Caller, dealID uuid.UUID) ([]models.AuditLog, error) {
	deal, err := s.authorizedDeal(ctx, caller, dealID, rbac.PermViewDeal)
	if err != nil {
		return nil, err
	}

	dealEntries, err := s.history.GetByEntity(ctx, "deal", deal.ID, 100, 0)
	if err != nil {
		return nil, s.internal("deal history lookup failed", err, zap.String("deal_id", deal.ID.String()))
	}
	escrowEntries, err := s.history.GetByEntity(ctx, "escrow", deal.EscrowID, 100, 0)
	if err != nil {
		return nil, s.internal("escrow history lookup failed", err, zap.String("escrow_id", deal.EscrowID.String()))
	}

	entries := append(escrowEntries, dealEntries...)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	if entries == nil {
		entries = []models.AuditLog{}
	}
	return entries, nil
}

// ListDeals lists the caller's deals. role is "buyer", "seller" or empty for both.
func (s *DealService) ListDeals(ctx context.Context, caller *auth.Caller, role string, limit, offset int) ([]models.Deal, error) {
	if !caller.Authenticated() {
		return nil, apperr.New(apperr.Unauthenticated, msgReadUnauthorized)
	}
	if offset < 0 {
		return nil, apperr.New(apperr.InvalidArgument, "offset must not be negative")
	}

	userID := caller.UserID
	f := repositories.DealFilter{Limit: limit, Offset: offset}
	switch role {
	case rbac.RoleBuyer:
		f.BuyerID = &userID
	case rbac.RoleSeller:
		f.SellerID = &userID
	case "", "all":
		f.AnyParticipant = &userID
	default:
		return nil, apperr.New(apperr.InvalidArgument, fmt.Sprintf("unknown role %q, must be buyer or seller", role))
	}

	deals, err := s.deals.List(ctx, f)
	if err != nil {
		return nil, s.internal("list deals failed", err, zap.String("user_id", userID.String()))
	}
	if deals == nil {
		deals = []models.Deal{}
	}
	return deals, nil
}

func (s *DealService) authorizedDeal(ctx context.Context, caller *auth.Caller, id uuid.UUID, perm string) (*models.Deal, error) {
	if !caller.Authenticated() {
		return nil, apperr.New(apperr.Unauthenticated, msgReadUnauthorized)
	}

	deal, err := s.deals.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, msgDealNotFound)
	}
	if err != nil {
		return nil, s.internal("deal lookup failed", err, zap.String("deal_id", id.String()))
	}

	role := rbac.RoleInDeal(deal, caller.UserID, s.cfg.IsAdmin(caller.UserID))
	if !rbac.HasPermission(role, perm) {
		return nil, apperr.New(apperr.NotFound, msgDealNotFound)
	}
	return deal, nil
}

// internal logs the full cause and returns the generic Internal error.
func (s *DealService) internal(msg string, err error, fields ...zap.Field) error {
	s.log.Error(msg, append(fields, zap.Error(err))...)
	return apperr.Wrap(apperr.Internal, msgInternal, err)
}
