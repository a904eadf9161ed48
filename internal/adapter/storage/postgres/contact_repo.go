package postgres

import (
	"context"
	"fmt"

	"vtu-wallet/internal/core/domain"

	"github.com/google/uuid"
)

// FrequentContactRepo implements ports.FrequentContactRepository.
type FrequentContactRepo struct {
	pool Pool
}

// NewFrequentContactRepo creates a new FrequentContactRepo.
func NewFrequentContactRepo(pool Pool) *FrequentContactRepo {
	return &FrequentContactRepo{pool: pool}
}

// Increment upserts the counter for one destination number.
func (r *FrequentContactRepo) Increment(ctx context.Context, ownerID uuid.UUID, service domain.ServiceKind, phone string) error {
	query := `INSERT INTO frequent_contacts (owner_id, service, phone, count, updated_at)
		VALUES ($1, $2, $3, 1, NOW())
		ON CONFLICT (owner_id, service, phone)
		DO UPDATE SET count = frequent_contacts.count + 1, updated_at = NOW()`

	if _, err := r.pool.Exec(ctx, query, ownerID, service, phone); err != nil {
		return fmt.Errorf("increment frequent contact: %w", err)
	}
	return nil
}

// ListByOwner returns an owner's most frequent destinations, most used first.
func (r *FrequentContactRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.FrequentContact, error) {
	query := `SELECT owner_id, service, phone, count, updated_at
		FROM frequent_contacts WHERE owner_id = $1
		ORDER BY count DESC, updated_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list frequent contacts: %w", err)
	}
	defer rows.Close()

	var contacts []domain.FrequentContact
	for rows.Next() {
		c := domain.FrequentContact{}
		if err := rows.Scan(&c.OwnerID, &c.Service, &c.Phone, &c.Count, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan frequent contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frequent contacts: %w", err)
	}
	return contacts, nil
}
