package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehiclenotify/internal/memstore"
	"vehiclenotify/internal/types"
)

var testDefaults = types.Defaults{Brand: "default", Locale: "en_US"}

func TestPlaceholderResolver_RanksPerKey(t *testing.T) {
	store := memstore.New()
	store.Placeholders = []*types.PlaceholderValue{
		{ID: "p-1", Key: "greeting", Brand: "default", Locale: "en_US", Value: "hello"},
		{ID: "p-2", Key: "greeting", Brand: "acme", Locale: "en_US", Value: "hello from acme"},
		{ID: "p-3", Key: "signoff", Brand: "default", Locale: "en_US", Value: "drive safe"},
	}

	r := NewPlaceholderResolver(store, testDefaults, nopLogger{})
	ac := types.NewAlertContext(&types.AlertEvent{NotificationID: "n-1", UserID: "u-1", Brand: "acme"})
	ac.Templates["en_US"] = &types.ResolvedTemplate{
		Locale:          "en_US",
		PlaceholderKeys: []string{"greeting", "signoff"},
	}

	require.NoError(t, r.Resolve(context.Background(), ac))

	require.Contains(t, ac.Placeholders, "en_US")
	assert.Equal(t, "hello from acme", ac.Placeholders["en_US"]["greeting"])
	assert.Equal(t, "drive safe", ac.Placeholders["en_US"]["signoff"])
}

func TestPlaceholderResolver_MissingKeyIsOmitted(t *testing.T) {
	store := memstore.New()
	store.Placeholders = []*types.PlaceholderValue{
		{ID: "p-1", Key: "greeting", Brand: "default", Locale: "en_US", Value: "hello"},
	}

	r := NewPlaceholderResolver(store, testDefaults, nopLogger{})
	ac := types.NewAlertContext(&types.AlertEvent{NotificationID: "n-1", UserID: "u-1"})
	ac.Templates["en_US"] = &types.ResolvedTemplate{
		Locale:          "en_US",
		PlaceholderKeys: []string{"greeting", "absent"},
	}

	// A missing value degrades; resolution must not abort.
	require.NoError(t, r.Resolve(context.Background(), ac))

	assert.Equal(t, "hello", ac.Placeholders["en_US"]["greeting"])
	assert.NotContains(t, ac.Placeholders["en_US"], "absent")
}

func TestPlaceholderResolver_PredicatesDisambiguate(t *testing.T) {
	store := memstore.New()
	store.Placeholders = []*types.PlaceholderValue{
		{
			ID: "p-ev", Key: "powertrain", Brand: "default", Locale: "en_US",
			Properties: types.LookupProperties{
				{Name: "fuelType", Values: []string{"electric"}, Order: 1},
			},
			Value: "battery",
		},
		{
			ID: "p-ice", Key: "powertrain", Brand: "default", Locale: "en_US",
			Properties: types.LookupProperties{
				{Name: "fuelType", Values: []string{"gas"}, Order: 1},
			},
			Value: "fuel tank",
		},
	}

	r := NewPlaceholderResolver(store, testDefaults, nopLogger{})
	ac := types.NewAlertContext(&types.AlertEvent{
		NotificationID: "n-1",
		UserID:         "u-1",
		Payload:        []byte(`{"fuelType":"electric"}`),
	})
	ac.Templates["en_US"] = &types.ResolvedTemplate{
		Locale:          "en_US",
		PlaceholderKeys: []string{"powertrain"},
	}

	require.NoError(t, r.Resolve(context.Background(), ac))
	assert.Equal(t, "battery", ac.Placeholders["en_US"]["powertrain"])
}

func TestPlaceholderResolver_AllLanguagesLocalesIncluded(t *testing.T) {
	store := memstore.New()
	store.Placeholders = []*types.PlaceholderValue{
		{ID: "p-fr", Key: "greeting", Brand: "default", Locale: "fr_FR", Value: "bonjour"},
	}

	r := NewPlaceholderResolver(store, testDefaults, nopLogger{})
	ac := types.NewAlertContext(&types.AlertEvent{NotificationID: "n-1", UserID: "u-1"})
	ac.AllLanguages["fr_FR"] = &types.ResolvedTemplate{
		Locale:          "fr_FR",
		PlaceholderKeys: []string{"greeting"},
	}

	require.NoError(t, r.Resolve(context.Background(), ac))
	assert.Equal(t, "bonjour", ac.Placeholders["fr_FR"]["greeting"])
}
