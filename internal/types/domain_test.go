package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelConfig_DisableExcept(t *testing.T) {
	cfg := &ChannelConfig{
		Channels: ChannelList{
			{Type: ChannelEmail, Enabled: true},
			{Type: ChannelPush, Enabled: true},
			{Type: ChannelSMS, Enabled: false},
		},
	}

	cfg.DisableExcept(ChannelPush)

	assert.True(t, cfg.HasEnabled(ChannelPush))
	assert.False(t, cfg.HasEnabled(ChannelEmail))
	assert.False(t, cfg.HasEnabled(ChannelSMS))
}

func TestChannelConfig_CloneIsIndependent(t *testing.T) {
	orig := &ChannelConfig{
		ID: "cfg-1",
		Channels: ChannelList{
			{Type: ChannelEmail, Enabled: true, Suppression: []SuppressionWindow{{Start: "22:00", End: "07:00"}}},
		},
	}

	clone := orig.Clone()
	clone.Disable(ChannelEmail)
	clone.Channels[0].Suppression[0].Start = "23:00"

	assert.True(t, orig.HasEnabled(ChannelEmail))
	assert.Equal(t, "22:00", orig.Channels[0].Suppression[0].Start)
}

func TestGroup_IVMOnly(t *testing.T) {
	assert.True(t, (&Group{Name: "IVM_RECALL"}).IVMOnly())
	assert.False(t, (&Group{Name: "LOW_FUEL"}).IVMOnly())
}

func TestAlertContext_LocalesFirstSeenOrder(t *testing.T) {
	ac := NewAlertContext(&AlertEvent{})
	ac.Configs = []*ChannelConfig{
		{ID: "a", Locale: "fr_FR"},
		{ID: "b", Locale: ""},
		{ID: "c", Locale: "fr_FR"},
		{ID: "d", Locale: "de_DE"},
	}

	locales := ac.Locales(Defaults{Locale: "en_US"})
	assert.Equal(t, []string{"fr_FR", "en_US", "de_DE"}, locales)
}

func TestAlertContext_ConfigsForLocaleUsesDefaultSubstitution(t *testing.T) {
	ac := NewAlertContext(&AlertEvent{})
	ac.Configs = []*ChannelConfig{
		{ID: "a", Locale: ""},
		{ID: "b", Locale: "fr_FR"},
	}

	out := ac.ConfigsForLocale("en_US", Defaults{Locale: "en_US"})
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}

func TestUserProfile_SecondaryContactIDs(t *testing.T) {
	u := &UserProfile{Contacts: []Contact{
		{ID: "c-1", Type: ContactPrimary},
		{ID: "c-2", Type: ContactSecondary},
		{ID: "c-3", Type: ContactSecondary},
	}}

	assert.Equal(t, []string{"c-2", "c-3"}, u.SecondaryContactIDs())
}
