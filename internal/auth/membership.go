package auth

import (
	"context"
	"database/sql"
	"errors"

	propertyrepo "kitchensafe-cloud/internal/property/infrastructure/postgres"
)

var (
	// ErrNotMember indicates the user has no active membership at the property.
	ErrNotMember = errors.New("not a member of this property")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("resource not found")
)

// PropertyMemberChecker validates active property membership.
type PropertyMemberChecker interface {
	EnsureMember(ctx context.Context, propertyID, userID string) error
}

// MembershipChecker checks property membership using the membership table.
type MembershipChecker struct {
	repo *propertyrepo.MembershipRepository
}

// NewMembershipChecker constructs a MembershipChecker.
func NewMembershipChecker(db *sql.DB) *MembershipChecker {
	if db == nil {
		return nil
	}
	return &MembershipChecker{repo: propertyrepo.NewMembershipRepository(db)}
}

// EnsureMember verifies the user holds an active membership at the property.
func (c *MembershipChecker) EnsureMember(ctx context.Context, propertyID, userID string) error {
	if c == nil || c.repo == nil {
		return nil
	}
	if propertyID == "" || userID == "" {
		return nil
	}
	membership, err := c.repo.ActiveMembership(ctx, propertyID, userID)
	if err != nil {
		return err
	}
	if membership == nil {
		return ErrNotMember
	}
	return nil
}
