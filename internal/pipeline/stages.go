package pipeline

import (
	"context"

	"github.com/google/uuid"

	"vehiclenotify/internal/assemble"
	"vehiclenotify/internal/resolve"
	"vehiclenotify/internal/transform"
	"vehiclenotify/internal/types"
)

// Stage names, in execution order.
const (
	StageIDGeneration   = "id-generation"
	StageGroup          = "group-resolution"
	StageVehicle        = "vehicle-enrichment"
	StageUser           = "user-enrichment"
	StageConfig         = "config-resolution"
	StageTemplate       = "template-resolution"
	StagePlaceholder    = "custom-placeholders"
	StageTransform      = "content-transformers"
	StageAssemble       = "assembly"
	StageAccidentRecord = "accident-record"
	StageMuteStatus     = "mute-status"
)

// stageFunc adapts a function to the Stage interface.
type stageFunc struct {
	name string
	run  func(ctx context.Context, ac *types.AlertContext) error
}

func (s stageFunc) Name() string { return s.name }

func (s stageFunc) Run(ctx context.Context, ac *types.AlertContext) error {
	return s.run(ctx, ac)
}

// Deps bundles the components the standard stage list is built from.
type Deps struct {
	Groups       *resolve.GroupResolver
	Configs      *resolve.ConfigResolver
	Templates    *resolve.TemplateResolver
	Placeholders *transform.PlaceholderResolver
	Engine       *transform.Engine
	Assembler    *assemble.Assembler
	Profiles     types.ProfileRepository
	Clock        types.Clock
	Logger       types.Logger
}

// Stages returns the standard enrichment stage list in its fixed order.
// Changing the order changes the field-ownership contract on AlertContext;
// add new stages at an explicit position here rather than registering them
// dynamically.
func Stages(d Deps) []Stage {
	return []Stage{
		stageFunc{StageIDGeneration, func(_ context.Context, ac *types.AlertContext) error {
			ac.EventID = uuid.NewString()
			return nil
		}},

		stageFunc{StageGroup, func(ctx context.Context, ac *types.AlertContext) error {
			group, err := d.Groups.Resolve(ctx, ac.Event.NotificationID)
			if err != nil {
				return err
			}
			ac.Group = group
			return nil
		}},

		stageFunc{StageVehicle, func(ctx context.Context, ac *types.AlertContext) error {
			if ac.Event.VehicleID == "" {
				return nil
			}
			vehicle, err := d.Profiles.GetVehicleProfile(ctx, ac.Event.VehicleID)
			if err != nil {
				return err
			}
			if vehicle == nil {
				d.Logger.Warn("vehicle profile not found",
					"vehicle_id", ac.Event.VehicleID,
				)
				return nil
			}
			ac.Vehicle = vehicle
			return nil
		}},

		stageFunc{StageUser, func(ctx context.Context, ac *types.AlertContext) error {
			user, err := d.Profiles.GetUserProfile(ctx, ac.Event.UserID)
			if err != nil {
				return err
			}
			if user == nil {
				d.Logger.Warn("user profile not found",
					"user_id", ac.Event.UserID,
				)
				return nil
			}
			ac.User = user
			return nil
		}},

		stageFunc{StageConfig, func(ctx context.Context, ac *types.AlertContext) error {
			configs, err := d.Configs.Resolve(ctx, ac)
			if err != nil {
				return err
			}
			ac.Configs = configs
			return nil
		}},

		stageFunc{StageTemplate, func(ctx context.Context, ac *types.AlertContext) error {
			return d.Templates.Resolve(ctx, ac)
		}},

		stageFunc{StagePlaceholder, func(ctx context.Context, ac *types.AlertContext) error {
			return d.Placeholders.Resolve(ctx, ac)
		}},

		stageFunc{StageTransform, func(ctx context.Context, ac *types.AlertContext) error {
			return d.Engine.Resolve(ctx, ac)
		}},

		stageFunc{StageAssemble, func(ctx context.Context, ac *types.AlertContext) error {
			return d.Assembler.Assemble(ctx, ac)
		}},

		stageFunc{StageAccidentRecord, func(ctx context.Context, ac *types.AlertContext) error {
			if ac.Group == nil || ac.Group.Name != types.AccidentGroupName {
				return nil
			}
			return d.Profiles.SaveAccidentRecord(ctx, &types.AccidentRecord{
				EventID:    ac.EventID,
				UserID:     ac.Event.UserID,
				VehicleID:  ac.Event.VehicleID,
				Payload:    ac.Event.Payload,
				RecordedAt: d.Clock.Now(),
			})
		}},

		stageFunc{StageMuteStatus, func(ctx context.Context, ac *types.AlertContext) error {
			muted, err := d.Profiles.GetMuteStatus(ctx, ac.Event.UserID, ac.Event.VehicleID)
			if err != nil {
				return err
			}
			ac.Muted = muted
			return nil
		}},
	}
}
