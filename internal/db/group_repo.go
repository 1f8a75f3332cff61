package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"vehiclenotify/internal/types"
)

// Compile-time assertion that GroupRepository implements types.GroupRepository.
var _ types.GroupRepository = (*GroupRepository)(nil)

// GroupRepository provides read access to notification groups. Groups are
// immutable reference data keyed by notification id.
type GroupRepository struct {
	db DBTX
}

// NewGroupRepository creates a GroupRepository backed by the given connection.
func NewGroupRepository(db DBTX) *GroupRepository {
	return &GroupRepository{db: db}
}

// FindGroup returns the group registered for the notification id, or nil when
// none exists. Absence is the caller's concern; the pipeline treats it as a
// fatal misconfiguration, the preference API as a 404.
func (r *GroupRepository) FindGroup(ctx context.Context, notificationID string) (*types.Group, error) {
	row := r.db.QueryRow(ctx,
		`SELECT g.name, g.group_type, g.mandatory, COALESCE(g.service, ''), g.check_entitlement
		 FROM notification_groups g
		 JOIN group_notifications gn ON gn.group_name = g.name
		 WHERE gn.notification_id = $1`,
		notificationID,
	)

	var g types.Group
	if err := row.Scan(&g.Name, &g.GroupType, &g.Mandatory, &g.Service, &g.CheckEntitlement); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query group", err)
	}
	return &g, nil
}

// ListGroups returns every notification group.
func (r *GroupRepository) ListGroups(ctx context.Context) ([]*types.Group, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name, group_type, mandatory, COALESCE(service, ''), check_entitlement
		 FROM notification_groups
		 ORDER BY name`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list groups", err)
	}
	defer rows.Close()

	var groups []*types.Group
	for rows.Next() {
		var g types.Group
		if err := rows.Scan(&g.Name, &g.GroupType, &g.Mandatory, &g.Service, &g.CheckEntitlement); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan group", err)
		}
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "group iteration failed", err)
	}
	return groups, nil
}
