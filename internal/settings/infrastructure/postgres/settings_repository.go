package postgres

import (
	"context"
	"database/sql"
	"errors"

	settings "kitchensafe-cloud/internal/settings/domain"
)

// SettingsRepository is a Postgres implementation for property settings.
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository constructs a repository.
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns settings for a property, inserting defaults on first read so a
// row always exists.
func (r *SettingsRepository) Get(ctx context.Context, propertyID string) (settings.PropertySettings, error) {
	if r == nil || r.db == nil {
		return settings.PropertySettings{}, errors.New("settings repo: nil db")
	}
	if propertyID == "" {
		return settings.PropertySettings{}, errors.New("settings repo: empty property id")
	}

	s, err := r.scanOne(ctx, propertyID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return settings.PropertySettings{}, err
	}

	defaults := settings.Defaults(propertyID)
	if err := r.Save(ctx, defaults); err != nil {
		return settings.PropertySettings{}, err
	}
	return defaults, nil
}

// Save upserts settings.
func (r *SettingsRepository) Save(ctx context.Context, s settings.PropertySettings) error {
	if r == nil || r.db == nil {
		return errors.New("settings repo: nil db")
	}
	if err := s.Validate(); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO property_settings (
	property_id,
	fridge_min_tenth_c, fridge_max_tenth_c,
	freezer_min_tenth_c, freezer_max_tenth_c,
	cooked_min_tenth_c, reheated_min_tenth_c,
	chilled_min_tenth_c, chilled_max_tenth_c,
	blast_chill_target_tenth_c, blast_chill_max_minutes,
	food_cost_target_bps
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (property_id) DO UPDATE SET
	fridge_min_tenth_c = EXCLUDED.fridge_min_tenth_c,
	fridge_max_tenth_c = EXCLUDED.fridge_max_tenth_c,
	freezer_min_tenth_c = EXCLUDED.freezer_min_tenth_c,
	freezer_max_tenth_c = EXCLUDED.freezer_max_tenth_c,
	cooked_min_tenth_c = EXCLUDED.cooked_min_tenth_c,
	reheated_min_tenth_c = EXCLUDED.reheated_min_tenth_c,
	chilled_min_tenth_c = EXCLUDED.chilled_min_tenth_c,
	chilled_max_tenth_c = EXCLUDED.chilled_max_tenth_c,
	blast_chill_target_tenth_c = EXCLUDED.blast_chill_target_tenth_c,
	blast_chill_max_minutes = EXCLUDED.blast_chill_max_minutes,
	food_cost_target_bps = EXCLUDED.food_cost_target_bps`,
		s.PropertyID,
		s.FridgeMinTenthC, s.FridgeMaxTenthC,
		s.FreezerMinTenthC, s.FreezerMaxTenthC,
		s.CookedMinTenthC, s.ReheatedMinTenthC,
		s.ChilledMinTenthC, s.ChilledMaxTenthC,
		s.BlastChillTargetTenthC, s.BlastChillMaxMinutes,
		s.FoodCostTargetBps)
	return err
}

func (r *SettingsRepository) scanOne(ctx context.Context, propertyID string) (settings.PropertySettings, error) {
	var s settings.PropertySettings
	err := r.db.QueryRowContext(ctx, `
SELECT
	property_id,
	fridge_min_tenth_c, fridge_max_tenth_c,
	freezer_min_tenth_c, freezer_max_tenth_c,
	cooked_min_tenth_c, reheated_min_tenth_c,
	chilled_min_tenth_c, chilled_max_tenth_c,
	blast_chill_target_tenth_c, blast_chill_max_minutes,
	food_cost_target_bps
FROM property_settings
WHERE property_id = $1
LIMIT 1`, propertyID).Scan(
		&s.PropertyID,
		&s.FridgeMinTenthC, &s.FridgeMaxTenthC,
		&s.FreezerMinTenthC, &s.FreezerMaxTenthC,
		&s.CookedMinTenthC, &s.ReheatedMinTenthC,
		&s.ChilledMinTenthC, &s.ChilledMaxTenthC,
		&s.BlastChillTargetTenthC, &s.BlastChillMaxMinutes,
		&s.FoodCostTargetBps)
	return s, err
}
