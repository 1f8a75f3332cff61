package types

import (
	"context"
	"time"
)

// Candidate is any store record competing for best-match selection: message
// templates, rich-content records, placeholder values, and channel configs all
// implement it so the selection scorer can rank them uniformly.
type Candidate interface {
	CandidateID() string
	CandidateBrand() string
	CandidateLocale() string
	LookupProperties() []LookupProperty
}

// GroupRepository resolves notification groups. Reference data, read-only.
type GroupRepository interface {
	// FindGroup returns the group for the given notification id, or nil if
	// none exists.
	FindGroup(ctx context.Context, notificationID string) (*Group, error)

	// ListGroups returns all groups. Used by the preference-query path for
	// entitlement filtering.
	ListGroups(ctx context.Context) ([]*Group, error)
}

// ConfigRepository reads channel configurations.
type ConfigRepository interface {
	// FindConfigs returns all configs matching (userID, vehicleID, groupName).
	FindConfigs(ctx context.Context, userID, vehicleID, groupName string) ([]*ChannelConfig, error)

	// FindDefaultConfigsForContacts returns the ownerless default configs for
	// the given secondary contact ids, filtered to the group and brand set.
	FindDefaultConfigsForContacts(ctx context.Context, contactIDs []string, groupName string, brands []string) ([]*ChannelConfig, error)
}

// TemplateRepository reads message templates, rich content, and per-notification
// template settings. Fetches are pre-filtered to the requested locales and
// brands; they must always include the defaults as fallback candidates.
type TemplateRepository interface {
	FindTemplates(ctx context.Context, notificationID string, locales, brands []string) ([]*MessageTemplate, error)
	FindRichContent(ctx context.Context, notificationID string, locales, brands []string) ([]*RichContent, error)
	FindSettings(ctx context.Context, notificationID string) (*TemplateSettings, error)

	// ListLocales returns every locale with at least one template for the
	// notification id. Used for the all-languages IVM set.
	ListLocales(ctx context.Context, notificationID string) ([]string, error)
}

// PlaceholderRepository reads custom placeholder candidates.
type PlaceholderRepository interface {
	FindPlaceholders(ctx context.Context, keys, locales, brands []string) ([]*PlaceholderValue, error)
}

// ProfileRepository reads user and vehicle summaries and performs the
// pipeline's only writes (accident records).
type ProfileRepository interface {
	GetVehicleProfile(ctx context.Context, vehicleID string) (*VehicleProfile, error)
	GetUserProfile(ctx context.Context, userID string) (*UserProfile, error)
	GetMuteStatus(ctx context.Context, userID, vehicleID string) (bool, error)
	SaveAccidentRecord(ctx context.Context, rec *AccidentRecord) error
}

// EntitlementService answers which services are enabled for a vehicle.
type EntitlementService interface {
	GetEnabledServices(ctx context.Context, vehicleID string) (map[string]struct{}, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// Logger defines the structured logging interface used throughout the
// pipeline. Entrypoints adapt *slog.Logger to it.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	With(args ...any) Logger
}
