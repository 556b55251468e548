package settings

import (
	"context"
	"errors"
)

// Temperatures are stored as integer tenths of a degree Celsius so threshold
// comparisons stay exact (50 means 5.0C, -150 means -15.0C).

// PropertySettings holds per-property compliance thresholds.
type PropertySettings struct {
	PropertyID string

	FridgeMinTenthC  int
	FridgeMaxTenthC  int
	FreezerMinTenthC int
	FreezerMaxTenthC int

	CookedMinTenthC   int
	ReheatedMinTenthC int
	ChilledMinTenthC  int
	ChilledMaxTenthC  int

	BlastChillTargetTenthC int
	BlastChillMaxMinutes   int

	FoodCostTargetBps int
}

// Defaults returns the settings applied when a property has no stored row.
func Defaults(propertyID string) PropertySettings {
	return PropertySettings{
		PropertyID:             propertyID,
		FridgeMinTenthC:        10,
		FridgeMaxTenthC:        50,
		FreezerMinTenthC:       -250,
		FreezerMaxTenthC:       -150,
		CookedMinTenthC:        750,
		ReheatedMinTenthC:      750,
		ChilledMinTenthC:       0,
		ChilledMaxTenthC:       50,
		BlastChillTargetTenthC: 50,
		BlastChillMaxMinutes:   90,
		FoodCostTargetBps:      3000,
	}
}

// Validate checks settings invariants.
func (s PropertySettings) Validate() error {
	if s.PropertyID == "" {
		return errors.New("settings: empty property id")
	}
	if s.BlastChillMaxMinutes <= 0 {
		return errors.New("settings: blast chill max minutes must be positive")
	}
	if s.FridgeMinTenthC > s.FridgeMaxTenthC {
		return errors.New("settings: fridge min above max")
	}
	if s.FreezerMinTenthC > s.FreezerMaxTenthC {
		return errors.New("settings: freezer min above max")
	}
	if s.ChilledMinTenthC > s.ChilledMaxTenthC {
		return errors.New("settings: chilled min above max")
	}
	return nil
}

// Repository persists property settings.
type Repository interface {
	// Get returns the stored settings, materializing defaults on first read.
	Get(ctx context.Context, propertyID string) (PropertySettings, error)
	Save(ctx context.Context, s PropertySettings) error
}
