package refrigeration

import (
	"context"
	"errors"
	"time"
)

// UnitType distinguishes fridges from freezers; each has its own safe range.
type UnitType string

const (
	UnitFridge  UnitType = "FRIDGE"
	UnitFreezer UnitType = "FREEZER"
)

// NormalizeUnitType validates a unit type string. Empty defaults to FRIDGE.
func NormalizeUnitType(value string) (UnitType, bool) {
	switch UnitType(value) {
	case "":
		return UnitFridge, true
	case UnitFridge, UnitFreezer:
		return UnitType(value), true
	default:
		return "", false
	}
}

// Unit is a refrigeration appliance registered for a property. Unit names
// are unique per property; retired units are deactivated, never deleted, so
// their historic checks keep a referent.
type Unit struct {
	ID         string   `json:"id"`
	PropertyID string   `json:"propertyId"`
	Name       string   `json:"name"`
	Type       UnitType `json:"type"`
	IsActive   bool     `json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks unit invariants.
func (u Unit) Validate() error {
	if u.ID == "" {
		return errors.New("refrigeration: empty unit id")
	}
	if u.PropertyID == "" {
		return errors.New("refrigeration: empty property id")
	}
	if u.Name == "" {
		return errors.New("refrigeration: empty unit name")
	}
	if _, ok := NormalizeUnitType(string(u.Type)); !ok {
		return errors.New("refrigeration: invalid unit type")
	}
	return nil
}

// ErrDuplicateName reports a second unit with the same name for a property.
var ErrDuplicateName = errors.New("refrigeration: unit name already exists")

// UnitRepository persists refrigeration units.
type UnitRepository interface {
	Insert(ctx context.Context, unit *Unit) error
	// GetActive returns the active unit with this id for the property, or nil.
	GetActive(ctx context.Context, propertyID, unitID string) (*Unit, error)
	// ListActive returns the property's active units ordered by name.
	ListActive(ctx context.Context, propertyID string) ([]Unit, error)
	// Deactivate retires a unit. Returns false when no active unit matched.
	Deactivate(ctx context.Context, propertyID, unitID string) (bool, error)
}
