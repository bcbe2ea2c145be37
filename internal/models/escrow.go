package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const EscrowStatusInitiated = "initiated"

// Escrow represents funds notionally held between payer and payee.
type Escrow struct {
	ID        uuid.UUID       `json:"id"`
	PayerID   uuid.UUID       `json:"payerId"`
	PayeeID   uuid.UUID       `json:"payeeId"`
	ListingID uuid.UUID       `json:"listingId"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}
