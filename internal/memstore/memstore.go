// Package memstore provides an in-memory implementation of the store
// repository interfaces. It backs the event-runner tool's dry-run mode and
// the package tests, mirroring the filtering semantics of the SQL
// repositories in internal/db.
package memstore

import (
	"context"
	"sync"

	"vehiclenotify/internal/types"
)

// Compile-time assertions that Store implements every repository interface.
var (
	_ types.GroupRepository       = (*Store)(nil)
	_ types.ConfigRepository      = (*Store)(nil)
	_ types.TemplateRepository    = (*Store)(nil)
	_ types.PlaceholderRepository = (*Store)(nil)
	_ types.ProfileRepository     = (*Store)(nil)
	_ types.EntitlementService    = (*Store)(nil)
)

// Store holds reference data in memory. Populate the exported fields before
// use; reads are side-effect free except SaveAccidentRecord.
type Store struct {
	Groups       map[string]*types.Group // keyed by notification id
	AllGroups    []*types.Group
	Configs      []*types.ChannelConfig
	Templates    []*types.MessageTemplate
	RichContents []*types.RichContent
	Settings     map[string]*types.TemplateSettings
	Placeholders []*types.PlaceholderValue
	Vehicles     map[string]*types.VehicleProfile
	Users        map[string]*types.UserProfile
	Muted        map[string]bool // keyed by userID + "|" + vehicleID

	mu        sync.Mutex
	accidents []*types.AccidentRecord
}

// New returns an empty Store with all maps initialized.
func New() *Store {
	return &Store{
		Groups:   make(map[string]*types.Group),
		Settings: make(map[string]*types.TemplateSettings),
		Vehicles: make(map[string]*types.VehicleProfile),
		Users:    make(map[string]*types.UserProfile),
		Muted:    make(map[string]bool),
	}
}

// FindGroup implements types.GroupRepository.
func (s *Store) FindGroup(_ context.Context, notificationID string) (*types.Group, error) {
	return s.Groups[notificationID], nil
}

// ListGroups implements types.GroupRepository.
func (s *Store) ListGroups(_ context.Context) ([]*types.Group, error) {
	return s.AllGroups, nil
}

// FindConfigs implements types.ConfigRepository.
func (s *Store) FindConfigs(_ context.Context, userID, vehicleID, groupName string) ([]*types.ChannelConfig, error) {
	var out []*types.ChannelConfig
	for _, c := range s.Configs {
		if c.GroupName != groupName {
			continue
		}
		if c.UserID != userID && c.UserID != types.GeneralUserID {
			continue
		}
		if c.VehicleID != "" && c.VehicleID != vehicleID {
			continue
		}
		if c.ContactID != "" {
			continue // contact defaults are fetched separately
		}
		out = append(out, c)
	}
	return out, nil
}

// FindDefaultConfigsForContacts implements types.ConfigRepository.
func (s *Store) FindDefaultConfigsForContacts(_ context.Context, contactIDs []string, groupName string, brands []string) ([]*types.ChannelConfig, error) {
	wanted := make(map[string]struct{}, len(contactIDs))
	for _, id := range contactIDs {
		wanted[id] = struct{}{}
	}
	var out []*types.ChannelConfig
	for _, c := range s.Configs {
		if c.GroupName != groupName {
			continue
		}
		if _, ok := wanted[c.ContactID]; !ok {
			continue
		}
		if len(brands) > 0 && !containsString(brands, c.Brand) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// FindTemplates implements types.TemplateRepository.
func (s *Store) FindTemplates(_ context.Context, notificationID string, locales, brands []string) ([]*types.MessageTemplate, error) {
	var out []*types.MessageTemplate
	for _, t := range s.Templates {
		if t.NotificationID == notificationID &&
			containsString(locales, t.Locale) &&
			containsString(brands, t.Brand) {
			out = append(out, t)
		}
	}
	return out, nil
}

// FindRichContent implements types.TemplateRepository.
func (s *Store) FindRichContent(_ context.Context, notificationID string, locales, brands []string) ([]*types.RichContent, error) {
	var out []*types.RichContent
	for _, r := range s.RichContents {
		if r.NotificationID == notificationID &&
			containsString(locales, r.Locale) &&
			containsString(brands, r.Brand) {
			out = append(out, r)
		}
	}
	return out, nil
}

// FindSettings implements types.TemplateRepository.
func (s *Store) FindSettings(_ context.Context, notificationID string) (*types.TemplateSettings, error) {
	return s.Settings[notificationID], nil
}

// ListLocales implements types.TemplateRepository.
func (s *Store) ListLocales(_ context.Context, notificationID string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range s.Templates {
		if t.NotificationID != notificationID {
			continue
		}
		if _, ok := seen[t.Locale]; ok {
			continue
		}
		seen[t.Locale] = struct{}{}
		out = append(out, t.Locale)
	}
	return out, nil
}

// FindPlaceholders implements types.PlaceholderRepository.
func (s *Store) FindPlaceholders(_ context.Context, keys, locales, brands []string) ([]*types.PlaceholderValue, error) {
	var out []*types.PlaceholderValue
	for _, p := range s.Placeholders {
		if containsString(keys, p.Key) &&
			containsString(locales, p.Locale) &&
			containsString(brands, p.Brand) {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetVehicleProfile implements types.ProfileRepository.
func (s *Store) GetVehicleProfile(_ context.Context, vehicleID string) (*types.VehicleProfile, error) {
	return s.Vehicles[vehicleID], nil
}

// GetUserProfile implements types.ProfileRepository.
func (s *Store) GetUserProfile(_ context.Context, userID string) (*types.UserProfile, error) {
	return s.Users[userID], nil
}

// GetMuteStatus implements types.ProfileRepository.
func (s *Store) GetMuteStatus(_ context.Context, userID, vehicleID string) (bool, error) {
	return s.Muted[userID+"|"+vehicleID], nil
}

// SaveAccidentRecord implements types.ProfileRepository.
func (s *Store) SaveAccidentRecord(_ context.Context, rec *types.AccidentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accidents {
		if existing.EventID == rec.EventID {
			return nil
		}
	}
	s.accidents = append(s.accidents, rec)
	return nil
}

// AccidentRecords returns the records saved so far.
func (s *Store) AccidentRecords() []*types.AccidentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*types.AccidentRecord(nil), s.accidents...)
}

// GetEnabledServices implements types.EntitlementService.
func (s *Store) GetEnabledServices(_ context.Context, vehicleID string) (map[string]struct{}, error) {
	v := s.Vehicles[vehicleID]
	set := make(map[string]struct{})
	if v != nil {
		for _, svc := range v.EnabledServices {
			set[svc] = struct{}{}
		}
	}
	return set, nil
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
