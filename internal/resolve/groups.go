// Package resolve implements the configuration and template resolution stages
// of the pipeline: mapping an event to its notification group, selecting the
// channel configurations that should receive content, and resolving the
// best-ranked template per locale.
package resolve

import (
	"context"
	"fmt"

	"vehiclenotify/internal/selection"
	"vehiclenotify/internal/types"
)

// GroupResolver maps notification ids to groups.
type GroupResolver struct {
	groups types.GroupRepository
	logger types.Logger
}

// NewGroupResolver creates a GroupResolver.
func NewGroupResolver(groups types.GroupRepository, logger types.Logger) *GroupResolver {
	return &GroupResolver{groups: groups, logger: logger}
}

// Resolve returns the group for the notification id. A missing group is a
// fatal configuration defect: the pipeline cannot decide recipients without
// one.
func (r *GroupResolver) Resolve(ctx context.Context, notificationID string) (*types.Group, error) {
	group, err := r.groups.FindGroup(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, types.NewAppError(types.ErrCodeGroupNotFound,
			fmt.Sprintf("no group registered for notification id %q", notificationID), nil)
	}
	return group, nil
}

// ConfigResolver selects the channel configurations an event should be
// rendered for: the primary contact's configs plus default configs for every
// secondary contact, ranked per contact by the selection scorer.
type ConfigResolver struct {
	configs  types.ConfigRepository
	defaults types.Defaults
	logger   types.Logger
}

// NewConfigResolver creates a ConfigResolver.
func NewConfigResolver(configs types.ConfigRepository, defaults types.Defaults, logger types.Logger) *ConfigResolver {
	return &ConfigResolver{configs: configs, defaults: defaults, logger: logger}
}

// Resolve determines the full config set for the event in the alert context.
// The returned configs are local clones; callers may mutate them freely.
//
// Fatal outcomes: an empty primary config set (the GENERAL safety net is
// provisioned upstream for every user, so emptiness is a system
// misconfiguration) and an empty post-ranking selection.
func (r *ConfigResolver) Resolve(ctx context.Context, ac *types.AlertContext) ([]*types.ChannelConfig, error) {
	event := ac.Event
	group := ac.Group
	brand := ac.Brand(r.defaults)
	locale := ac.Locale(r.defaults)

	primary, err := r.configs.FindConfigs(ctx, event.UserID, event.VehicleID, group.Name)
	if err != nil {
		return nil, err
	}
	if len(primary) == 0 {
		return nil, types.NewAppError(types.ErrCodeConfigSetEmpty,
			fmt.Sprintf("no channel configs for user %q group %q", event.UserID, group.Name), nil)
	}

	combined := primary

	// Voice-only categories never fan out to secondary contacts.
	if !group.IVMOnly() && ac.User != nil {
		contactIDs := ac.User.SecondaryContactIDs()
		if len(contactIDs) > 0 {
			secondary, err := r.configs.FindDefaultConfigsForContacts(ctx, contactIDs,
				group.Name, brandFallback(brand, r.defaults.Brand))
			if err != nil {
				return nil, err
			}
			combined = append(combined, secondary...)
		}
	}

	selected := r.selectPerContact(combined, brand, locale, event.Payload)
	if len(selected) == 0 {
		return nil, types.NewAppError(types.ErrCodeConfigSelectionEmpty,
			fmt.Sprintf("config ranking selected nothing for user %q group %q", event.UserID, group.Name), nil)
	}

	for _, cfg := range selected {
		// Default configs are stored ownerless under the GENERAL sentinel.
		if cfg.UserID == types.GeneralUserID {
			cfg.UserID = event.UserID
		}
		// An event naming a single explicit channel narrows every config.
		if event.ChannelType != "" {
			cfg.DisableExcept(event.ChannelType)
		}
	}

	return selected, nil
}

// selectPerContact groups the combined set by contact and picks the best
// config per contact via the selection scorer. Winners are cloned so later
// stages can mutate them without touching store snapshots.
func (r *ConfigResolver) selectPerContact(configs []*types.ChannelConfig, brand, locale string, payload []byte) []*types.ChannelConfig {
	byContact := make(map[string][]*types.ChannelConfig)
	var order []string
	for _, cfg := range configs {
		key := cfg.ContactID // empty key is the primary/self contact
		if _, seen := byContact[key]; !seen {
			order = append(order, key)
		}
		byContact[key] = append(byContact[key], cfg)
	}

	var selected []*types.ChannelConfig
	for _, key := range order {
		best, ok := selection.SelectBest(byContact[key], brand, locale, payload)
		if !ok {
			r.logger.Warn("no config qualified for contact",
				"contact_id", key,
				"candidates", len(byContact[key]),
			)
			continue
		}
		selected = append(selected, best.Clone())
	}
	return selected
}

// FilterEntitled drops groups whose entitlement check fails against the
// vehicle's enabled services. Groups without an entitlement requirement, or
// with the DEFAULT group type, always pass. Used by the preference-query
// path; alert processing does not filter.
func (r *ConfigResolver) FilterEntitled(ctx context.Context, entitlements types.EntitlementService, vehicleID string, groups []*types.Group) ([]*types.Group, error) {
	enabled, err := entitlements.GetEnabledServices(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	var out []*types.Group
	for _, g := range groups {
		if !g.CheckEntitlement || g.GroupType == types.GroupDefault {
			out = append(out, g)
			continue
		}
		if _, ok := enabled[g.Service]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

// brandFallback returns the requested brand plus the default as a superset
// filter, deduplicated.
func brandFallback(brand, defaultBrand string) []string {
	if brand == defaultBrand {
		return []string{brand}
	}
	return []string{brand, defaultBrand}
}

// localeFallback returns the requested locale plus the default as a superset
// filter, deduplicated.
func localeFallback(locale, defaultLocale string) []string {
	if locale == defaultLocale {
		return []string{locale}
	}
	return []string{locale, defaultLocale}
}
