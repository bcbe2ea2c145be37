// Package testutil provides an in-memory store with transaction semantics for
// service and handler tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/homelink/marketplace/internal/events"
	"github.com/homelink/marketplace/internal/models"
	"github.com/homelink/marketplace/internal/repositories"
)

// MemStore keeps listings, escrows, deals and audit entries in maps. WithTx
// snapshots the data and restores it when fn fails, mirroring a rollback.
type MemStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	listings map[uuid.UUID]models.Listing
	escrows  map[uuid.UUID]models.Escrow
	deals    map[uuid.UUID]models.Deal
	audit    []models.AuditLog

	// Failure injection
	FailListingGet   error
	FailEscrowCreate error
	FailDealCreate   error
	FailAudit        error
	FailDelete       error
	FailAuditRead    error

	Commits   int
	Rollbacks int
}

func NewMemStore() *MemStore {
	return &MemStore{
		listings: make(map[uuid.UUID]models.Listing),
		escrows:  make(map[uuid.UUID]models.Escrow),
		deals:    make(map[uuid.UUID]models.Deal),
	}
}

type snapshot struct {
	escrows map[uuid.UUID]models.Escrow
	deals   map[uuid.UUID]models.Deal
	audit   []models.AuditLog
}

func (s *MemStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := snapshot{
		escrows: make(map[uuid.UUID]models.Escrow, len(s.escrows)),
		deals:   make(map[uuid.UUID]models.Deal, len(s.deals)),
		audit:   append([]models.AuditLog(nil), s.audit...),
	}
	for k, v := range s.escrows {
		snap.escrows[k] = v
	}
	for k, v := range s.deals {
		snap.deals[k] = v
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.escrows, s.deals, s.audit = snap.escrows, snap.deals, snap.audit
		s.Rollbacks++
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.Commits++
	s.mu.Unlock()
	return nil
}

// AddListing seeds a listing. A nil owner models a record missing ownerId.
func (s *MemStore) AddListing(id uuid.UUID, owner *uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[id] = models.Listing{ID: id, OwnerID: owner, Title: "listing", CreatedAt: time.Now().UTC()}
}

// PutEscrow inserts an escrow directly, bypassing any service.
func (s *MemStore) PutEscrow(e models.Escrow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	s.escrows[e.ID] = e
}

// PutDeal inserts a deal directly, bypassing any service.
func (s *MemStore) PutDeal(d models.Deal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	s.deals[d.ID] = d
}

func (s *MemStore) AllEscrows() []models.Escrow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Escrow, 0, len(s.escrows))
	for _, e := range s.escrows {
		out = append(out, e)
	}
	return out
}

func (s *MemStore) AllDeals() []models.Deal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Deal, 0, len(s.deals))
	for _, d := range s.deals {
		out = append(out, d)
	}
	return out
}

func (s *MemStore) AuditEntries() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.audit...)
}

// Repository views over the shared data.

func (s *MemStore) Listings() *MemListings { return &MemListings{s} }
func (s *MemStore) Escrows() *MemEscrows   { return &MemEscrows{s} }
func (s *MemStore) Deals() *MemDeals       { return &MemDeals{s} }
func (s *MemStore) Audit() *MemAudit       { return &MemAudit{s} }

type MemListings struct{ s *MemStore }

func (r *MemListings) GetByID(_ context.Context, id uuid.UUID) (*models.Listing, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailListingGet != nil {
		return nil, r.s.FailListingGet
	}
	l, ok := r.s.listings[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &l, nil
}

type MemEscrows struct{ s *MemStore }

func (r *MemEscrows) Create(_ context.Context, e *models.Escrow) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailEscrowCreate != nil {
		return r.s.FailEscrowCreate
	}
	e.ID = uuid.New()
	r.s.escrows[e.ID] = *e
	return nil
}

func (r *MemEscrows) GetByID(_ context.Context, id uuid.UUID) (*models.Escrow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.escrows[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &e, nil
}

func (r *MemEscrows) ListOrphans(_ context.Context, before time.Time, limit int) ([]models.Escrow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	linked := make(map[uuid.UUID]bool, len(r.s.deals))
	for _, d := range r.s.deals {
		linked[d.EscrowID] = true
	}
	var out []models.Escrow
	for _, e := range r.s.escrows {
		if !linked[e.ID] && e.CreatedAt.Before(before) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemEscrows) DeleteOrphan(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailDelete != nil {
		return false, r.s.FailDelete
	}
	if _, ok := r.s.escrows[id]; !ok {
		return false, nil
	}
	for _, d := range r.s.deals {
		if d.EscrowID == id {
			return false, nil
		}
	}
	delete(r.s.escrows, id)
	return true, nil
}

type MemDeals struct{ s *MemStore }

func (r *MemDeals) Create(_ context.Context, d *models.Deal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailDealCreate != nil {
		return r.s.FailDealCreate
	}
	d.ID = uuid.New()
	r.s.deals[d.ID] = *d
	return nil
}

func (r *MemDeals) GetByID(_ context.Context, id uuid.UUID) (*models.Deal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.deals[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &d, nil
}

func (r *MemDeals) List(_ context.Context, f repositories.DealFilter) ([]models.Deal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Deal
	for _, d := range r.s.deals {
		if f.BuyerID != nil && d.BuyerID != *f.BuyerID {
			continue
		}
		if f.SellerID != nil && d.SellerID != *f.SellerID {
			continue
		}
		if f.AnyParticipant != nil && !d.IsParticipant(*f.AnyParticipant) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type MemAudit struct{ s *MemStore }

func (r *MemAudit) Log(_ context.Context, entry models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailAudit != nil {
		return r.s.FailAudit
	}
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now().UTC()
	r.s.audit = append(r.s.audit, entry)
	return nil
}

func (r *MemAudit) GetByEntity(_ context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]models.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailAuditRead != nil {
		return nil, r.s.FailAuditRead
	}
	var out []models.AuditLog
	for _, e := range r.s.audit {
		if e.EntityType == entityType && e.EntityID != nil && *e.EntityID == entityID {
			out = append(out, e)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RecordingPublisher captures published events. A non-nil Err is returned
// from every Publish call after the event is recorded.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
	Err    error
}

type PublishedEvent struct {
	Channel string
	Event   events.Event
}

func (p *RecordingPublisher) Publish(_ context.Context, channel string, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, PublishedEvent{Channel: channel, Event: event})
	return p.Err
}

func (p *RecordingPublisher) Published() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedEvent(nil), p.events...)
}
