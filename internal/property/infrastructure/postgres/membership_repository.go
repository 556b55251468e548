package postgres

import (
	"context"
	"database/sql"
	"errors"

	property "kitchensafe-cloud/internal/property/domain"
)

// MembershipRepository is a Postgres implementation for memberships.
type MembershipRepository struct {
	db DBTX
}

// NewMembershipRepository constructs a repository.
func NewMembershipRepository(db DBTX) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// ActiveMembership returns the active membership for a user at a property, or nil.
func (r *MembershipRepository) ActiveMembership(ctx context.Context, propertyID, userID string) (*property.Membership, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("membership repo: nil db")
	}
	if propertyID == "" || userID == "" {
		return nil, errors.New("membership repo: empty property or user id")
	}

	var m property.Membership
	if err := r.db.QueryRowContext(ctx, `
SELECT property_id, user_id, role, is_active, created_at
FROM property_memberships
WHERE property_id = $1 AND user_id = $2 AND is_active = TRUE
LIMIT 1`, propertyID, userID).Scan(
		&m.PropertyID,
		&m.UserID,
		&m.Role,
		&m.IsActive,
		&m.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}
