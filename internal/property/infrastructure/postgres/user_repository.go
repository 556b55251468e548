package postgres

import (
	"context"
	"errors"

	property "kitchensafe-cloud/internal/property/domain"
)

// UserRepository is a Postgres implementation of the user directory.
type UserRepository struct {
	db DBTX
}

// NewUserRepository constructs a repository.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// GetUsers loads users by id, keyed by id. Missing ids are simply absent.
func (r *UserRepository) GetUsers(ctx context.Context, ids []string) (map[string]property.User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("user repo: nil db")
	}
	result := make(map[string]property.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, email, COALESCE(name, '')
FROM users
WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var user property.User
		if err := rows.Scan(&user.ID, &user.Email, &user.Name); err != nil {
			return nil, err
		}
		result[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
