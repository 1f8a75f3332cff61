package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"vehiclenotify/internal/secure"
	"vehiclenotify/internal/types"
)

// Compile-time assertions.
var (
	_ types.ProfileRepository  = (*ProfileRepository)(nil)
	_ types.EntitlementService = (*ProfileRepository)(nil)
)

// ProfileRepository provides read access to vehicle and user profile
// summaries, mute status, and vehicle entitlements, plus the pipeline's only
// write: accident records. Contact PII columns are decrypted on read via the
// field cipher.
type ProfileRepository struct {
	db     DBTX
	cipher *secure.FieldCipher
}

// NewProfileRepository creates a ProfileRepository backed by the given
// connection and PII cipher.
func NewProfileRepository(db DBTX, cipher *secure.FieldCipher) *ProfileRepository {
	return &ProfileRepository{db: db, cipher: cipher}
}

// GetVehicleProfile returns the vehicle summary, or nil when unknown.
func (r *ProfileRepository) GetVehicleProfile(ctx context.Context, vehicleID string) (*types.VehicleProfile, error) {
	row := r.db.QueryRow(ctx,
		`SELECT vehicle_id, vin, COALESCE(nickname, ''), COALESCE(marketing_name, ''),
		        enabled_services, attributes
		 FROM vehicle_profiles
		 WHERE vehicle_id = $1`,
		vehicleID,
	)

	var v types.VehicleProfile
	var attrs types.AttributeMap
	if err := row.Scan(&v.VehicleID, &v.VIN, &v.Nickname, &v.MarketingName,
		&v.EnabledServices, &attrs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query vehicle profile", err)
	}
	v.Attributes = attrs
	return &v, nil
}

// GetUserProfile returns the user summary including decrypted contacts, or
// nil when unknown.
func (r *ProfileRepository) GetUserProfile(ctx context.Context, userID string) (*types.UserProfile, error) {
	row := r.db.QueryRow(ctx,
		`SELECT user_id, COALESCE(nickname, ''), COALESCE(brand, ''), COALESCE(locale, '')
		 FROM user_profiles
		 WHERE user_id = $1`,
		userID,
	)

	var u types.UserProfile
	if err := row.Scan(&u.UserID, &u.Nickname, &u.Brand, &u.Locale); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query user profile", err)
	}

	contacts, err := r.listContacts(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Contacts = contacts
	return &u, nil
}

// listContacts loads and decrypts the user's contact rows.
func (r *ProfileRepository) listContacts(ctx context.Context, userID string) ([]types.Contact, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, type, COALESCE(name, ''),
		        COALESCE(email_enc, ''), COALESCE(phone_enc, '')
		 FROM contacts
		 WHERE user_id = $1
		 ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query contacts", err)
	}
	defer rows.Close()

	var contacts []types.Contact
	for rows.Next() {
		var c types.Contact
		var emailEnc, phoneEnc string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Type, &c.Name, &emailEnc, &phoneEnc); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan contact", err)
		}
		if c.Email, err = r.cipher.DecryptString(emailEnc); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to decrypt contact email", err)
		}
		if c.Phone, err = r.cipher.DecryptString(phoneEnc); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to decrypt contact phone", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "contact iteration failed", err)
	}
	return contacts, nil
}

// GetMuteStatus reports whether notifications are muted for the
// (user, vehicle) pair. Absence of a row means not muted.
func (r *ProfileRepository) GetMuteStatus(ctx context.Context, userID, vehicleID string) (bool, error) {
	row := r.db.QueryRow(ctx,
		`SELECT muted FROM mute_status
		 WHERE user_id = $1 AND vehicle_id = $2`,
		userID, vehicleID,
	)

	var muted bool
	if err := row.Scan(&muted); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to query mute status", err)
	}
	return muted, nil
}

// SaveAccidentRecord persists an accident record. Idempotent on event id.
func (r *ProfileRepository) SaveAccidentRecord(ctx context.Context, rec *types.AccidentRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO accident_records (event_id, user_id, vehicle_id, payload, recorded_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (event_id) DO NOTHING`,
		rec.EventID, rec.UserID, rec.VehicleID, rec.Payload, rec.RecordedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to save accident record", err)
	}
	return nil
}

// GetEnabledServices returns the set of services enabled on the vehicle.
func (r *ProfileRepository) GetEnabledServices(ctx context.Context, vehicleID string) (map[string]struct{}, error) {
	row := r.db.QueryRow(ctx,
		`SELECT enabled_services FROM vehicle_profiles WHERE vehicle_id = $1`,
		vehicleID,
	)

	var services []string
	if err := row.Scan(&services); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return map[string]struct{}{}, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query enabled services", err)
	}

	set := make(map[string]struct{}, len(services))
	for _, s := range services {
		set[s] = struct{}{}
	}
	return set, nil
}
