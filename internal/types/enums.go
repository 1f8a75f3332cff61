package types

// ChannelType identifies a delivery channel on a channel configuration.
type ChannelType string

const (
	ChannelEmail ChannelType = "email"
	ChannelSMS   ChannelType = "sms"
	ChannelPush  ChannelType = "push"
	ChannelIVM   ChannelType = "ivm"
)

// AllChannelTypes lists every channel the platform can deliver to, in the
// order the assembler visits them.
var AllChannelTypes = []ChannelType{ChannelEmail, ChannelSMS, ChannelPush, ChannelIVM}

// GroupType classifies how a notification group binds to its subject.
type GroupType string

const (
	// GroupUserOnly notifications are addressed to a user regardless of vehicle.
	GroupUserOnly GroupType = "USER_ONLY"

	// GroupUserVehicle notifications are scoped to a (user, vehicle) pair.
	GroupUserVehicle GroupType = "USER_VEHICLE"

	// GroupDefault is the catch-all group type; it always passes entitlement checks.
	GroupDefault GroupType = "DEFAULT"
)

// ContactType distinguishes the account owner from additional recipients.
type ContactType string

const (
	ContactPrimary   ContactType = "primary"
	ContactSecondary ContactType = "secondary"
)

// GeneralUserID is the reserved owner sentinel on default channel configs.
// Default configs are stored ownerless; the config resolver rewrites this
// sentinel to the real user id after selection.
const GeneralUserID = "GENERAL"

// GeneralGroupName is the fallback group whose config set is provisioned
// upstream for every user as a safety net. An event whose group has no
// matching configs at all is a system misconfiguration.
const GeneralGroupName = "GENERAL"

// AccidentGroupName is the group that triggers accident-record persistence as
// a pipeline side effect.
const AccidentGroupName = "ACCIDENT"

// ivmOnlyGroupPrefix marks voice-only notification categories. Secondary
// contacts never receive configs for these groups.
const ivmOnlyGroupPrefix = "IVM_"
