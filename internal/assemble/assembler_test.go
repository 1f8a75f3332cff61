package assemble

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehiclenotify/internal/types"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)        {}
func (nopLogger) Error(string, ...any)       {}
func (nopLogger) Warn(string, ...any)        {}
func (l nopLogger) With(...any) types.Logger { return l }

var testDefaults = types.Defaults{Brand: "default", Locale: "en_US"}

func assembledContext() *types.AlertContext {
	ac := types.NewAlertContext(&types.AlertEvent{NotificationID: "n-1", UserID: "u-1"})
	ac.Vehicle = &types.VehicleProfile{VehicleID: "v-1", Nickname: "my ride", MarketingName: "Model X1"}
	ac.User = &types.UserProfile{UserID: "u-1", Nickname: "Sam"}
	return ac
}

func TestAssembler_SplicesPlaceholdersAndDecorations(t *testing.T) {
	ac := assembledContext()
	ac.Templates["en_US"] = &types.ResolvedTemplate{
		Locale: "en_US",
		Channels: map[types.ChannelType]*types.ChannelContent{
			types.ChannelEmail: {
				Subject: "${vehicle.nickname} needs attention",
				Body:    "Hi ${user.nickname}, your ${vehicle.marketingName} says: ${status}.",
			},
		},
	}
	ac.Placeholders["en_US"] = map[string]string{"status": "tire pressure low"}

	a := NewAssembler(testDefaults, nopLogger{})
	require.NoError(t, a.Assemble(context.Background(), ac))

	email := ac.Templates["en_US"].Channels[types.ChannelEmail]
	assert.Equal(t, "my ride needs attention", email.Subject)
	assert.Equal(t, "Hi Sam, your Model X1 says: tire pressure low.", email.Body)
}

func TestAssembler_UnresolvedTokenLeftIntact(t *testing.T) {
	ac := assembledContext()
	ac.Templates["en_US"] = &types.ResolvedTemplate{
		Locale: "en_US",
		Channels: map[types.ChannelType]*types.ChannelContent{
			types.ChannelPush: {Body: "status: ${missing}"},
		},
	}

	a := NewAssembler(testDefaults, nopLogger{})
	require.NoError(t, a.Assemble(context.Background(), ac))

	assert.Equal(t, "status: ${missing}", ac.Templates["en_US"].Channels[types.ChannelPush].Body)
}

func TestAssembler_DecorationsNeedLoadedProfiles(t *testing.T) {
	ac := types.NewAlertContext(&types.AlertEvent{NotificationID: "n-1", UserID: "u-1"})
	ac.Templates["en_US"] = &types.ResolvedTemplate{
		Locale: "en_US",
		Channels: map[types.ChannelType]*types.ChannelContent{
			types.ChannelPush: {Body: "${vehicle.nickname}"},
		},
	}

	a := NewAssembler(testDefaults, nopLogger{})
	require.NoError(t, a.Assemble(context.Background(), ac))

	// No vehicle profile was resolved; the token stays for downstream triage.
	assert.Equal(t, "${vehicle.nickname}", ac.Templates["en_US"].Channels[types.ChannelPush].Body)
}

func TestAssembler_DisablesChannelsWithoutContent(t *testing.T) {
	ac := assembledContext()
	ac.Templates["en_US"] = &types.ResolvedTemplate{
		Locale: "en_US",
		Channels: map[types.ChannelType]*types.ChannelContent{
			types.ChannelEmail: {Subject: "s", Body: "b"},
		},
	}
	ac.Configs = []*types.ChannelConfig{
		{
			ID:     "cfg-1",
			UserID: "u-1",
			Locale: "en_US",
			Channels: types.ChannelList{
				{Type: types.ChannelEmail, Enabled: true},
				{Type: types.ChannelSMS, Enabled: true},
			},
		},
	}

	a := NewAssembler(testDefaults, nopLogger{})
	require.NoError(t, a.Assemble(context.Background(), ac))

	cfg := ac.Configs[0]
	assert.True(t, cfg.HasEnabled(types.ChannelEmail))
	assert.False(t, cfg.HasEnabled(types.ChannelSMS))
}

func TestAssembler_LocaleWithoutTemplateDisablesAllChannels(t *testing.T) {
	ac := assembledContext()
	ac.Configs = []*types.ChannelConfig{
		{
			ID:     "cfg-fr",
			UserID: "u-1",
			Locale: "fr_FR",
			Channels: types.ChannelList{
				{Type: types.ChannelEmail, Enabled: true},
				{Type: types.ChannelPush, Enabled: true},
			},
		},
	}

	a := NewAssembler(testDefaults, nopLogger{})
	require.NoError(t, a.Assemble(context.Background(), ac))

	cfg := ac.Configs[0]
	for _, ch := range types.AllChannelTypes {
		assert.False(t, cfg.HasEnabled(ch), "channel %s should be disabled", ch)
	}
}
