// Package main implements event-runner, an operational tool that runs a
// single alert event JSON file through the enrichment pipeline and prints the
// dispatch messages it would produce.
//
// Two modes:
//   - live (default): resolves against the configured database. Nothing is
//     sent; the built dispatch messages are printed to stdout.
//   - -dry-run: resolves against a seeded in-memory store, for exercising the
//     pipeline without any infrastructure.
//
// Usage:
//
//	event-runner -event event.json [-dry-run]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"vehiclenotify/internal/assemble"
	"vehiclenotify/internal/config"
	"vehiclenotify/internal/db"
	"vehiclenotify/internal/dispatch"
	"vehiclenotify/internal/memstore"
	"vehiclenotify/internal/pipeline"
	"vehiclenotify/internal/resolve"
	"vehiclenotify/internal/secure"
	"vehiclenotify/internal/transform"
	"vehiclenotify/internal/types"
)

// slogAdapter wraps *slog.Logger to implement the types.Logger interface.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

var _ types.Logger = (*slogAdapter)(nil)

func main() {
	eventPath := flag.String("event", "", "path to the alert event JSON file (required)")
	dryRun := flag.Bool("dry-run", false, "run against a seeded in-memory store instead of the database")
	flag.Parse()

	if *eventPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	typedLogger := &slogAdapter{logger: logger}

	raw, err := os.ReadFile(*eventPath)
	if err != nil {
		logger.Error("failed to read event file", "error", err)
		os.Exit(1)
	}
	var event types.AlertEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		logger.Error("failed to parse event file", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := run(ctx, &event, *dryRun, typedLogger); err != nil {
		logger.Error("event run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, event *types.AlertEvent, dryRun bool, logger types.Logger) error {
	var (
		groups       types.GroupRepository
		configs      types.ConfigRepository
		templates    types.TemplateRepository
		placeholders types.PlaceholderRepository
		profiles     types.ProfileRepository
		defaults     types.Defaults
		timeout      = 2 * time.Second
		workers      = 8
	)

	if dryRun {
		store := seedStore(event)
		groups, configs, templates, placeholders, profiles = store, store, store, store, store
		defaults = types.Defaults{Brand: "default", Locale: "en_US"}
	} else {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		pool, err := db.NewPool(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()

		cipher, err := secure.NewFieldCipher(cfg.Secure.PIIKeyHex)
		if err != nil {
			return err
		}

		groups = db.NewGroupRepository(pool)
		configs = db.NewConfigRepository(pool)
		templates = db.NewTemplateRepository(pool)
		placeholders = db.NewPlaceholderRepository(pool)
		profiles = db.NewProfileRepository(pool, cipher)
		defaults = types.Defaults{Brand: cfg.Pipeline.DefaultBrand, Locale: cfg.Pipeline.DefaultLocale}
		timeout = cfg.Pipeline.TransformTimeout
		workers = cfg.Pipeline.TransformWorkers
	}

	registry := transform.NewRegistry(nil, logger)
	clock := types.RealClock{}
	stages := pipeline.Stages(pipeline.Deps{
		Groups:       resolve.NewGroupResolver(groups, logger),
		Configs:      resolve.NewConfigResolver(configs, defaults, logger),
		Templates:    resolve.NewTemplateResolver(templates, defaults, logger),
		Placeholders: transform.NewPlaceholderResolver(placeholders, defaults, logger),
		Engine:       transform.NewEngine(registry, timeout, workers, logger),
		Assembler:    assemble.NewAssembler(defaults, logger),
		Profiles:     profiles,
		Clock:        clock,
		Logger:       logger,
	})

	pipe := pipeline.New(stages, pipeline.NopMetrics{}, clock, logger)
	ac, err := pipe.Process(ctx, event)
	if err != nil {
		return err
	}

	// The publisher is used only as a message builder here; nothing is sent.
	publisher, err := dispatch.NewPublisher(nil, "", defaults, logger)
	if err != nil {
		return err
	}
	messages := publisher.Build(ac)

	out, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	logger.Info("event run completed",
		"event_id", ac.EventID,
		"messages", len(messages),
		"muted", ac.Muted,
	)
	return nil
}

// seedStore builds an in-memory store with enough reference data keyed off
// the event to produce at least one dispatch message.
func seedStore(event *types.AlertEvent) *memstore.Store {
	store := memstore.New()

	store.Groups[event.NotificationID] = &types.Group{
		Name:      "DRY_RUN",
		GroupType: types.GroupUserVehicle,
	}
	store.Configs = []*types.ChannelConfig{
		{
			ID:        "dry-run-config",
			UserID:    types.GeneralUserID,
			GroupName: "DRY_RUN",
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
			ID:             "dry-run-template",
			NotificationID: event.NotificationID,
			Brand:          "default",
			Locale:         "en_US",
			Channels: map[types.ChannelType]*types.ChannelContent{
				types.ChannelEmail: {
					Subject: "Notice for ${vehicle.nickname}",
					Body:    "Hello ${user.nickname}, ${greeting}.",
				},
				types.ChannelPush: {Body: "${greeting}"},
			},
			PlaceholderKeys: []string{"greeting"},
		},
	}
	store.Settings[event.NotificationID] = &types.TemplateSettings{
		NotificationID: event.NotificationID,
	}
	store.Placeholders = []*types.PlaceholderValue{
		{ID: "dry-run-greeting", Key: "greeting", Brand: "default", Locale: "en_US", Value: "your vehicle has news"},
	}
	store.Users[event.UserID] = &types.UserProfile{
		UserID:   event.UserID,
		Nickname: "driver",
		Locale:   "en_US",
	}
	if event.VehicleID != "" {
		store.Vehicles[event.VehicleID] = &types.VehicleProfile{
			VehicleID:     event.VehicleID,
			Nickname:      "my car",
			MarketingName: "Model X1",
		}
	}

	return store
}
