package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehiclenotify/internal/memstore"
	"vehiclenotify/internal/types"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)        {}
func (nopLogger) Error(string, ...any)       {}
func (nopLogger) Warn(string, ...any)        {}
func (l nopLogger) With(...any) types.Logger { return l }

var testDefaults = types.Defaults{Brand: "default", Locale: "en_US"}

func newContext(event *types.AlertEvent, group *types.Group) *types.AlertContext {
	ac := types.NewAlertContext(event)
	ac.Group = group
	return ac
}

func TestGroupResolver_MissingGroupIsFatal(t *testing.T) {
	r := NewGroupResolver(memstore.New(), nopLogger{})

	_, err := r.Resolve(context.Background(), "unknown-notification")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeGroupNotFound, appErr.Code)
	assert.True(t, types.IsFatal(err))
}

func TestGroupResolver_Found(t *testing.T) {
	store := memstore.New()
	store.Groups["n-1"] = &types.Group{Name: "LOW_FUEL", GroupType: types.GroupUserVehicle}

	r := NewGroupResolver(store, nopLogger{})
	group, err := r.Resolve(context.Background(), "n-1")
	require.NoError(t, err)
	assert.Equal(t, "LOW_FUEL", group.Name)
}

func TestConfigResolver_EmptyPrimarySetIsFatal(t *testing.T) {
	r := NewConfigResolver(memstore.New(), testDefaults, nopLogger{})

	ac := newContext(
		&types.AlertEvent{NotificationID: "n-1", UserID: "u-1", VehicleID: "v-1"},
		&types.Group{Name: "LOW_FUEL"},
	)

	_, err := r.Resolve(context.Background(), ac)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeConfigSetEmpty, appErr.Code)
	assert.True(t, types.IsFatal(err))
}

func TestConfigResolver_GeneralSentinelRewritten(t *testing.T) {
	store := memstore.New()
	store.Configs = []*types.ChannelConfig{
		{
			ID:        "cfg-1",
			UserID:    types.GeneralUserID,
			GroupName: "LOW_FUEL",
			Brand:     "default",
			Locale:    "en_US",
			Channels:  types.ChannelList{{Type: types.ChannelPush, Enabled: true}},
		},
	}

	r := NewConfigResolver(store, testDefaults, nopLogger{})
	ac := newContext(
		&types.AlertEvent{NotificationID: "n-1", UserID: "u-1", VehicleID: "v-1"},
		&types.Group{Name: "LOW_FUEL"},
	)

	selected, err := r.Resolve(context.Background(), ac)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, "u-1", selected[0].UserID)

	// The store snapshot keeps the sentinel; only the local clone is rewritten.
	assert.Equal(t, types.GeneralUserID, store.Configs[0].UserID)
}

func TestConfigResolver_ExplicitChannelNarrows(t *testing.T) {
	store := memstore.New()
	store.Configs = []*types.ChannelConfig{
		{
			ID:        "cfg-1",
			UserID:    "u-1",
			GroupName: "LOW_FUEL",
			Brand:     "default",
			Locale:    "en_US",
			Channels: types.ChannelList{
				{Type: types.ChannelEmail, Enabled: true},
				{Type: types.ChannelPush, Enabled: true},
				{Type: types.ChannelSMS, Enabled: false},
			},
		},
	}

	r := NewConfigResolver(store, testDefaults, nopLogger{})
	ac := newContext(
		&types.AlertEvent{NotificationID: "n-1", UserID: "u-1", ChannelType: types.ChannelPush},
		&types.Group{Name: "LOW_FUEL"},
	)

	selected, err := r.Resolve(context.Background(), ac)
	require.NoError(t, err)
	require.Len(t, selected, 1)

	assert.True(t, selected[0].HasEnabled(types.ChannelPush))
	assert.False(t, selected[0].HasEnabled(types.ChannelEmail))
	assert.False(t, selected[0].HasEnabled(types.ChannelSMS))
}

func TestConfigResolver_SecondaryContactsGetDefaults(t *testing.T) {
	store := memstore.New()
	store.Configs = []*types.ChannelConfig{
		{
			ID:        "cfg-primary",
			UserID:    "u-1",
			GroupName: "LOW_FUEL",
			Brand:     "default",
			Locale:    "en_US",
			Channels:  types.ChannelList{{Type: types.ChannelPush, Enabled: true}},
		},
		{
			ID:        "cfg-contact",
			UserID:    types.GeneralUserID,
			ContactID: "c-2",
			GroupName: "LOW_FUEL",
			Brand:     "default",
			Locale:    "fr_FR",
			Channels:  types.ChannelList{{Type: types.ChannelSMS, Enabled: true}},
		},
	}

	r := NewConfigResolver(store, testDefaults, nopLogger{})
	ac := newContext(
		&types.AlertEvent{NotificationID: "n-1", UserID: "u-1"},
		&types.Group{Name: "LOW_FUEL"},
	)
	ac.User = &types.UserProfile{
		UserID: "u-1",
		Contacts: []types.Contact{
			{ID: "c-1", Type: types.ContactPrimary},
			{ID: "c-2", Type: types.ContactSecondary},
		},
	}

	selected, err := r.Resolve(context.Background(), ac)
	require.NoError(t, err)
	require.Len(t, selected, 2)

	ids := []string{selected[0].ID, selected[1].ID}
	assert.Contains(t, ids, "cfg-primary")
	assert.Contains(t, ids, "cfg-contact")
}

func TestConfigResolver_IVMOnlyGroupSkipsSecondaryContacts(t *testing.T) {
	store := memstore.New()
	store.Configs = []*types.ChannelConfig{
		{
			ID:        "cfg-primary",
			UserID:    "u-1",
			GroupName: "IVM_RECALL",
			Brand:     "default",
			Locale:    "en_US",
			Channels:  types.ChannelList{{Type: types.ChannelIVM, Enabled: true}},
		},
		{
			ID:        "cfg-contact",
			UserID:    types.GeneralUserID,
			ContactID: "c-2",
			GroupName: "IVM_RECALL",
			Brand:     "default",
			Channels:  types.ChannelList{{Type: types.ChannelSMS, Enabled: true}},
		},
	}

	r := NewConfigResolver(store, testDefaults, nopLogger{})
	ac := newContext(
		&types.AlertEvent{NotificationID: "n-1", UserID: "u-1"},
		&types.Group{Name: "IVM_RECALL"},
	)
	ac.User = &types.UserProfile{
		UserID:   "u-1",
		Contacts: []types.Contact{{ID: "c-2", Type: types.ContactSecondary}},
	}

	selected, err := r.Resolve(context.Background(), ac)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, "cfg-primary", selected[0].ID)
}

func TestConfigResolver_PerContactBestIsSelected(t *testing.T) {
	store := memstore.New()
	store.Configs = []*types.ChannelConfig{
		{
			ID:        "cfg-general",
			UserID:    types.GeneralUserID,
			GroupName: "LOW_FUEL",
			Brand:     "default",
			Locale:    "en_US",
			Channels:  types.ChannelList{{Type: types.ChannelPush, Enabled: true}},
		},
		{
			ID:        "cfg-vehicle",
			UserID:    "u-1",
			VehicleID: "v-1",
			GroupName: "LOW_FUEL",
			Brand:     "acme",
			Locale:    "en_US",
			Channels:  types.ChannelList{{Type: types.ChannelEmail, Enabled: true}},
		},
	}

	r := NewConfigResolver(store, testDefaults, nopLogger{})
	ac := newContext(
		&types.AlertEvent{NotificationID: "n-1", UserID: "u-1", VehicleID: "v-1", Brand: "acme"},
		&types.Group{Name: "LOW_FUEL"},
	)

	selected, err := r.Resolve(context.Background(), ac)
	require.NoError(t, err)
	require.Len(t, selected, 1)

	// Both match the locale; the brand match breaks the tie.
	assert.Equal(t, "cfg-vehicle", selected[0].ID)
}

func TestConfigResolver_FilterEntitled(t *testing.T) {
	store := memstore.New()
	store.Vehicles["v-1"] = &types.VehicleProfile{
		VehicleID:       "v-1",
		EnabledServices: []string{"remote-diagnostics"},
	}

	groups := []*types.Group{
		{Name: "PLAIN"},
		{Name: "DIAG", CheckEntitlement: true, Service: "remote-diagnostics"},
		{Name: "CONCIERGE", CheckEntitlement: true, Service: "concierge"},
		{Name: "FALLBACK", CheckEntitlement: true, Service: "concierge", GroupType: types.GroupDefault},
	}

	r := NewConfigResolver(store, testDefaults, nopLogger{})
	out, err := r.FilterEntitled(context.Background(), store, "v-1", groups)
	require.NoError(t, err)

	var names []string
	for _, g := range out {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"PLAIN", "DIAG", "FALLBACK"}, names)
}
