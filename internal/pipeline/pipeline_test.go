package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehiclenotify/internal/assemble"
	"vehiclenotify/internal/memstore"
	"vehiclenotify/internal/resolve"
	"vehiclenotify/internal/transform"
	"vehiclenotify/internal/types"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)        {}
func (nopLogger) Error(string, ...any)       {}
func (nopLogger) Warn(string, ...any)        {}
func (l nopLogger) With(...any) types.Logger { return l }

// mockClock returns a fixed instant.
type mockClock struct{ now time.Time }

func (c mockClock) Now() time.Time { return c.now }

var (
	testDefaults = types.Defaults{Brand: "default", Locale: "en_US"}
	testNow      = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
)

func newTestPipeline(store *memstore.Store) *Pipeline {
	logger := nopLogger{}
	registry := transform.NewRegistry(nil, logger)
	clock := mockClock{now: testNow}

	stages := Stages(Deps{
		Groups:       resolve.NewGroupResolver(store, logger),
		Configs:      resolve.NewConfigResolver(store, testDefaults, logger),
		Templates:    resolve.NewTemplateResolver(store, testDefaults, logger),
		Placeholders: transform.NewPlaceholderResolver(store, testDefaults, logger),
		Engine:       transform.NewEngine(registry, time.Second, 4, logger),
		Assembler:    assemble.NewAssembler(testDefaults, logger),
		Profiles:     store,
		Clock:        clock,
		Logger:       logger,
	})

	return New(stages, NopMetrics{}, clock, logger)
}

// seedStore populates reference data for a complete happy-path run.
func seedStore(groupName string) *memstore.Store {
	store := memstore.New()
	store.Groups["n-1"] = &types.Group{Name: groupName, GroupType: types.GroupUserVehicle}
	store.Configs = []*types.ChannelConfig{
		{
			ID:        "cfg-1",
			UserID:    types.GeneralUserID,
			GroupName: groupName,
			Brand:     "default",
			Locale:    "en_US",
			Channels: types.ChannelList{
				{Type: types.ChannelEmail, Enabled: true},
				{Type: types.ChannelPush, Enabled: true},
			},
		},
	}
	store.Templates = []*types.MessageTemplate{
		{
			ID:             "tpl-1",
			NotificationID: "n-1",
			Brand:          "default",
			Locale:         "en_US",
			Channels: map[types.ChannelType]*types.ChannelContent{
				types.ChannelEmail: {
					Subject: "${vehicle.nickname}: ${headline}",
					Body:    "Hi ${user.nickname}, ${headline}.",
				},
				types.ChannelPush: {Body: "${headline}"},
			},
			PlaceholderKeys: []string{"headline"},
		},
	}
	store.Settings["n-1"] = &types.TemplateSettings{NotificationID: "n-1"}
	store.Placeholders = []*types.PlaceholderValue{
		{ID: "p-1", Key: "headline", Brand: "default", Locale: "en_US", Value: "fuel is low"},
	}
	store.Vehicles["v-1"] = &types.VehicleProfile{VehicleID: "v-1", Nickname: "my ride"}
	store.Users["u-1"] = &types.UserProfile{UserID: "u-1", Nickname: "Sam", Locale: "en_US"}
	return store
}

func lowFuelEvent() *types.AlertEvent {
	return &types.AlertEvent{
		NotificationID: "n-1",
		UserID:         "u-1",
		VehicleID:      "v-1",
		Payload:        []byte(`{"fuelLevel":"8"}`),
	}
}

func TestPipeline_EndToEnd(t *testing.T) {
	store := seedStore("LOW_FUEL")
	pipe := newTestPipeline(store)

	ac, err := pipe.Process(context.Background(), lowFuelEvent())
	require.NoError(t, err)

	assert.NotEmpty(t, ac.EventID)
	assert.Equal(t, "LOW_FUEL", ac.Group.Name)
	require.Len(t, ac.Configs, 1)
	assert.Equal(t, "u-1", ac.Configs[0].UserID)

	email := ac.Templates["en_US"].Channels[types.ChannelEmail]
	require.NotNil(t, email)
	assert.Equal(t, "my ride: fuel is low", email.Subject)
	assert.Equal(t, "Hi Sam, fuel is low.", email.Body)

	assert.False(t, ac.Muted)
	assert.Empty(t, store.AccidentRecords())
}

func TestPipeline_FatalOnMissingGroup(t *testing.T) {
	pipe := newTestPipeline(memstore.New())

	_, err := pipe.Process(context.Background(), lowFuelEvent())
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeGroupNotFound, appErr.Code)
}

func TestPipeline_InvalidEventRejected(t *testing.T) {
	pipe := newTestPipeline(seedStore("LOW_FUEL"))

	_, err := pipe.Process(context.Background(), &types.AlertEvent{NotificationID: "n-1"})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInvalidEvent, appErr.Code)
}

func TestPipeline_AccidentGroupPersistsRecord(t *testing.T) {
	store := seedStore(types.AccidentGroupName)
	pipe := newTestPipeline(store)

	ac, err := pipe.Process(context.Background(), lowFuelEvent())
	require.NoError(t, err)

	records := store.AccidentRecords()
	require.Len(t, records, 1)
	assert.Equal(t, ac.EventID, records[0].EventID)
	assert.Equal(t, "u-1", records[0].UserID)
	assert.Equal(t, "v-1", records[0].VehicleID)
	assert.Equal(t, testNow, records[0].RecordedAt)
}

func TestPipeline_MuteStatusCarried(t *testing.T) {
	store := seedStore("LOW_FUEL")
	store.Muted["u-1|v-1"] = true
	pipe := newTestPipeline(store)

	ac, err := pipe.Process(context.Background(), lowFuelEvent())
	require.NoError(t, err)
	assert.True(t, ac.Muted)
}

func TestPipeline_RecoverableDegradationStillCompletes(t *testing.T) {
	// No placeholder rows at all: splicing cannot resolve ${headline}, but the
	// run must finish with the token intact rather than abort.
	store := seedStore("LOW_FUEL")
	store.Placeholders = nil
	pipe := newTestPipeline(store)

	ac, err := pipe.Process(context.Background(), lowFuelEvent())
	require.NoError(t, err)

	push := ac.Templates["en_US"].Channels[types.ChannelPush]
	assert.Equal(t, "${headline}", push.Body)
}
