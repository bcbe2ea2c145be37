package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Deals are created in this status and nothing moves them out of it yet.
const DealStatusInitiated = "initiated"

// Deal is the negotiation record wrapping exactly one Escrow.
type Deal struct {
	ID             uuid.UUID       `json:"id"`
	ListingID      uuid.UUID       `json:"listingId"`
	BuyerID        uuid.UUID       `json:"buyerId"`
	SellerID       uuid.UUID       `json:"sellerId"`
	EscrowID       uuid.UUID       `json:"escrowId"`
	ConversationID *string         `json:"conversationId"` // null when the client did not link a chat
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// IsParticipant reports whether userID is the buyer or the seller.
func (d *Deal) IsParticipant(userID uuid.UUID) bool {
	return d.BuyerID == userID || d.SellerID == userID
}
