package domain

import (
	"time"

	"github.com/google/uuid"
)

// FrequentContact counts confirmed successful top-ups per destination number.
// Best-effort: increments only on confirmed success and is never allowed to
// fail a purchase.
type FrequentContact struct {
	OwnerID   uuid.UUID   `json:"owner_id"`
	Service   ServiceKind `json:"service"` // airtime or data
	Phone     string      `json:"phone"`
	Count     int64       `json:"count"`
	UpdatedAt time.Time   `json:"updated_at"`
}
