package property

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Property represents a tenant site (a restaurant or kitchen).
type Property struct {
	ID        string
	Name      string
	Timezone  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks property invariants.
func (p Property) Validate() error {
	if p.ID == "" {
		return errors.New("property: empty id")
	}
	if p.Name == "" {
		return errors.New("property: empty name")
	}
	return nil
}

// User is a staff member account.
type User struct {
	ID    string
	Email string
	Name  string
}

// DisplayName returns the name shown on compliance records.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Email
}

// Membership links a user to a property with a role.
type Membership struct {
	PropertyID string
	UserID     string
	Role       string
	IsActive   bool
	CreatedAt  time.Time
}

// PropertyRepository manages property persistence.
type PropertyRepository interface {
	Get(ctx context.Context, id string) (*Property, error)
	Save(ctx context.Context, prop *Property) error
}

// UserDirectory resolves user identities for display.
type UserDirectory interface {
	GetUsers(ctx context.Context, ids []string) (map[string]User, error)
}

// MembershipRepository answers property membership questions.
type MembershipRepository interface {
	ActiveMembership(ctx context.Context, propertyID, userID string) (*Membership, error)
}
