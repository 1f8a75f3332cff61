package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"vehiclenotify/internal/types"
)

// Compile-time assertion that TemplateRepository implements types.TemplateRepository.
var _ types.TemplateRepository = (*TemplateRepository)(nil)

// TemplateRepository provides read access to message templates, rich-content
// overrides, and per-notification template settings. Fetches are pre-filtered
// to the requested locale/brand superset; callers are expected to include the
// process defaults so a fallback selection is always possible.
type TemplateRepository struct {
	db DBTX
}

// NewTemplateRepository creates a TemplateRepository backed by the given
// connection.
func NewTemplateRepository(db DBTX) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// FindTemplates returns template candidates for the notification id within
// the given locale and brand sets.
func (r *TemplateRepository) FindTemplates(ctx context.Context, notificationID string, locales, brands []string) ([]*types.MessageTemplate, error) {
	args := []any{notificationID}
	sql := `SELECT id, notification_id, brand, locale, properties, channels, placeholder_keys
	        FROM message_templates
	        WHERE notification_id = $1
	          AND locale IN (` + placeholders(2, len(locales)) + `)`
	args = stringArgs(args, locales)
	sql += ` AND brand IN (` + placeholders(len(args)+1, len(brands)) + `)`
	args = stringArgs(args, brands)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query templates", err)
	}
	defer rows.Close()

	var templates []*types.MessageTemplate
	for rows.Next() {
		var t types.MessageTemplate
		var channels channelContentMap
		if err := rows.Scan(&t.ID, &t.NotificationID, &t.Brand, &t.Locale,
			&t.Properties, &channels, &t.PlaceholderKeys); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan template", err)
		}
		t.Channels = channels
		templates = append(templates, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "template iteration failed", err)
	}
	return templates, nil
}

// FindRichContent returns rich-content candidates for the notification id
// within the given locale and brand sets.
func (r *TemplateRepository) FindRichContent(ctx context.Context, notificationID string, locales, brands []string) ([]*types.RichContent, error) {
	args := []any{notificationID}
	sql := `SELECT id, notification_id, brand, locale, properties, body, placeholder_keys, attachments
	        FROM rich_contents
	        WHERE notification_id = $1
	          AND locale IN (` + placeholders(2, len(locales)) + `)`
	args = stringArgs(args, locales)
	sql += ` AND brand IN (` + placeholders(len(args)+1, len(brands)) + `)`
	args = stringArgs(args, brands)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query rich content", err)
	}
	defer rows.Close()

	var contents []*types.RichContent
	for rows.Next() {
		var rc types.RichContent
		var attachments attachmentList
		if err := rows.Scan(&rc.ID, &rc.NotificationID, &rc.Brand, &rc.Locale,
			&rc.Properties, &rc.Body, &rc.PlaceholderKeys, &attachments); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan rich content", err)
		}
		rc.Attachments = attachments
		contents = append(contents, &rc)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "rich content iteration failed", err)
	}
	return contents, nil
}

// FindSettings returns the per-notification template settings, or nil when
// none exist. The pipeline treats absence as fatal.
func (r *TemplateRepository) FindSettings(ctx context.Context, notificationID string) (*types.TemplateSettings, error) {
	row := r.db.QueryRow(ctx,
		`SELECT notification_id, send_all_languages
		 FROM template_settings
		 WHERE notification_id = $1`,
		notificationID,
	)

	var s types.TemplateSettings
	if err := row.Scan(&s.NotificationID, &s.SendAllLanguages); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query template settings", err)
	}
	return &s, nil
}

// ListLocales returns every locale with at least one template for the
// notification id.
func (r *TemplateRepository) ListLocales(ctx context.Context, notificationID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT locale FROM message_templates
		 WHERE notification_id = $1
		 ORDER BY locale`,
		notificationID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list template locales", err)
	}
	defer rows.Close()

	var locales []string
	for rows.Next() {
		var loc string
		if err := rows.Scan(&loc); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan locale", err)
		}
		locales = append(locales, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "locale iteration failed", err)
	}
	return locales, nil
}

// channelContentMap is the JSONB channel->content map on a template row.
type channelContentMap map[types.ChannelType]*types.ChannelContent

// Scan implements sql.Scanner.
func (m *channelContentMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	return scanJSONBColumn(m, value)
}

// attachmentList is the JSONB attachment list on a rich-content row.
type attachmentList []types.Attachment

// Scan implements sql.Scanner.
func (l *attachmentList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	return scanJSONBColumn(l, value)
}
