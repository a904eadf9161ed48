package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a single owner's balance in kobo (minor units).
// Balance is non-negative at all times and is mutated exclusively through
// the reconciliation path's atomic add-to-balance primitive.
type Wallet struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Balance   int64     `json:"balance"` // kobo
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
