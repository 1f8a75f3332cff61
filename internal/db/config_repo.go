package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"vehiclenotify/internal/types"
)

// Compile-time assertion that ConfigRepository implements types.ConfigRepository.
var _ types.ConfigRepository = (*ConfigRepository)(nil)

// ConfigRepository provides read access to per-user/vehicle/contact channel
// configurations. The pipeline never writes configs; mutation happens only in
// the out-of-scope preference management API.
type ConfigRepository struct {
	db DBTX
}

// NewConfigRepository creates a ConfigRepository backed by the given connection.
func NewConfigRepository(db DBTX) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// FindConfigs returns all configs for (userID, vehicleID, groupName). This is
// the primary contact's config set; it includes the ownerless GENERAL default
// rows provisioned as the upstream safety net.
func (r *ConfigRepository) FindConfigs(ctx context.Context, userID, vehicleID, groupName string) ([]*types.ChannelConfig, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, COALESCE(vehicle_id, ''), COALESCE(contact_id, ''),
		        group_name, brand, COALESCE(locale, ''), channels
		 FROM channel_configs
		 WHERE (user_id = $1 OR user_id = $2)
		   AND (vehicle_id = $3 OR vehicle_id IS NULL)
		   AND contact_id IS NULL
		   AND group_name = $4`,
		userID, types.GeneralUserID, vehicleID, groupName,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query channel configs", err)
	}
	return scanConfigs(rows)
}

// FindDefaultConfigsForContacts returns the ownerless default configs for the
// given secondary contact ids, filtered to the group and the brand fallback
// set.
func (r *ConfigRepository) FindDefaultConfigsForContacts(ctx context.Context, contactIDs []string, groupName string, brands []string) ([]*types.ChannelConfig, error) {
	if len(contactIDs) == 0 {
		return nil, nil
	}

	args := []any{groupName}
	sql := `SELECT id, user_id, COALESCE(vehicle_id, ''), COALESCE(contact_id, ''),
	               group_name, brand, COALESCE(locale, ''), channels
	        FROM channel_configs
	        WHERE group_name = $1
	          AND contact_id IN (` + placeholders(2, len(contactIDs)) + `)`
	args = stringArgs(args, contactIDs)

	if len(brands) > 0 {
		sql += ` AND brand IN (` + placeholders(len(args)+1, len(brands)) + `)`
		args = stringArgs(args, brands)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query contact default configs", err)
	}
	return scanConfigs(rows)
}

// scanConfigs drains a config result set.
func scanConfigs(rows pgx.Rows) ([]*types.ChannelConfig, error) {
	defer rows.Close()

	var configs []*types.ChannelConfig
	for rows.Next() {
		var c types.ChannelConfig
		if err := rows.Scan(&c.ID, &c.UserID, &c.VehicleID, &c.ContactID,
			&c.GroupName, &c.Brand, &c.Locale, &c.Channels); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan channel config", err)
		}
		configs = append(configs, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "config iteration failed", err)
	}
	return configs, nil
}
