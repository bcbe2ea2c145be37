package models

import (
	"time"

	"github.com/google/uuid"
)

// Listing is managed elsewhere; deals only read its owner.
type Listing struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   *uuid.UUID `json:"ownerId,omitempty"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"createdAt"`
}
