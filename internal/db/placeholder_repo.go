package db

import (
	"context"

	"vehiclenotify/internal/types"
)

// Compile-time assertion that PlaceholderRepository implements
// types.PlaceholderRepository.
var _ types.PlaceholderRepository = (*PlaceholderRepository)(nil)

// PlaceholderRepository provides read access to custom placeholder candidates.
type PlaceholderRepository struct {
	db DBTX
}

// NewPlaceholderRepository creates a PlaceholderRepository backed by the given
// connection.
func NewPlaceholderRepository(db DBTX) *PlaceholderRepository {
	return &PlaceholderRepository{db: db}
}

// FindPlaceholders returns placeholder candidates for the given keys within
// the locale and brand fallback sets.
func (r *PlaceholderRepository) FindPlaceholders(ctx context.Context, keys, locales, brands []string) ([]*types.PlaceholderValue, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	var args []any
	sql := `SELECT id, key, brand, locale, properties, value
	        FROM custom_placeholders
	        WHERE key IN (` + placeholders(1, len(keys)) + `)`
	args = stringArgs(args, keys)
	sql += ` AND locale IN (` + placeholders(len(args)+1, len(locales)) + `)`
	args = stringArgs(args, locales)
	sql += ` AND brand IN (` + placeholders(len(args)+1, len(brands)) + `)`
	args = stringArgs(args, brands)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query placeholders", err)
	}
	defer rows.Close()

	var values []*types.PlaceholderValue
	for rows.Next() {
		var p types.PlaceholderValue
		if err := rows.Scan(&p.ID, &p.Key, &p.Brand, &p.Locale, &p.Properties, &p.Value); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan placeholder", err)
		}
		values = append(values, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "placeholder iteration failed", err)
	}
	return values, nil
}
