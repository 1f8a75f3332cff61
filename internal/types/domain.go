package types

import (
	"encoding/json"
	"strings"
	"time"
)

// Defaults holds the process-wide fallback brand and locale. Candidate fetches
// always include these alongside the requested values so a selection remains
// possible when no exact match exists.
type Defaults struct {
	Brand  string
	Locale string
}

// AlertEvent is the inbound alert as consumed from the upstream event queue.
type AlertEvent struct {
	NotificationID string          `json:"notification_id" validate:"required"`
	UserID         string          `json:"user_id" validate:"required"`
	VehicleID      string          `json:"vehicle_id,omitempty"`
	Brand          string          `json:"brand,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`

	// ChannelType, when set, restricts delivery to a single explicit channel.
	// All other channels are disabled on every selected config.
	ChannelType ChannelType `json:"channel_type,omitempty"`

	// Attributes is a free-form map carried alongside the structured payload.
	Attributes map[string]string `json:"attributes,omitempty"`

	OccurredAt time.Time `json:"occurred_at,omitempty"`
}

// Group identifies a notification category. Immutable reference data; the
// pipeline only reads it.
type Group struct {
	Name             string    `json:"name" db:"name"`
	GroupType        GroupType `json:"group_type" db:"group_type"`
	Mandatory        bool      `json:"mandatory" db:"mandatory"`
	Service          string    `json:"service,omitempty" db:"service"`
	CheckEntitlement bool      `json:"check_entitlement" db:"check_entitlement"`
}

// IVMOnly reports whether the group is a voice-only category. Secondary
// contact default configs are not fetched for these groups.
func (g *Group) IVMOnly() bool {
	return strings.HasPrefix(g.Name, ivmOnlyGroupPrefix)
}

// SuppressionWindow is a daily wall-clock interval during which a channel is
// muted by dispatch (interpreted downstream; the pipeline only carries it).
type SuppressionWindow struct {
	Start string `json:"start"` // "HH:MM"
	End   string `json:"end"`   // "HH:MM"
}

// Channel is one delivery channel entry on a ChannelConfig.
type Channel struct {
	Type        ChannelType         `json:"type"`
	Enabled     bool                `json:"enabled"`
	Suppression []SuppressionWindow `json:"suppression,omitempty"`
}

// ChannelConfig is a per (user, vehicle, contact) notification preference for
// one group. The pipeline reads configs from the store and mutates only its
// local in-memory copies; nothing is written back.
type ChannelConfig struct {
	ID        string      `json:"id" db:"id"`
	UserID    string      `json:"user_id" db:"user_id"`
	VehicleID string      `json:"vehicle_id,omitempty" db:"vehicle_id"`
	ContactID string      `json:"contact_id,omitempty" db:"contact_id"`
	GroupName string      `json:"group_name" db:"group_name"`
	Brand     string      `json:"brand" db:"brand"`
	Locale    string      `json:"locale,omitempty" db:"locale"`
	Channels  ChannelList `json:"channels" db:"channels"`
}

// Channel returns the entry for the given channel type, or nil.
func (c *ChannelConfig) Channel(t ChannelType) *Channel {
	for i := range c.Channels {
		if c.Channels[i].Type == t {
			return &c.Channels[i]
		}
	}
	return nil
}

// HasEnabled reports whether the config has the given channel type enabled.
func (c *ChannelConfig) HasEnabled(t ChannelType) bool {
	ch := c.Channel(t)
	return ch != nil && ch.Enabled
}

// Disable switches off the given channel type if present.
func (c *ChannelConfig) Disable(t ChannelType) {
	if ch := c.Channel(t); ch != nil {
		ch.Enabled = false
	}
}

// DisableExcept switches off every channel other than the given type. Used
// when an event names a single explicit delivery channel.
func (c *ChannelConfig) DisableExcept(t ChannelType) {
	for i := range c.Channels {
		if c.Channels[i].Type != t {
			c.Channels[i].Enabled = false
		}
	}
}

// Clone returns a deep copy safe for local mutation.
func (c *ChannelConfig) Clone() *ChannelConfig {
	cp := *c
	cp.Channels = make(ChannelList, len(c.Channels))
	copy(cp.Channels, c.Channels)
	for i := range cp.Channels {
		if len(c.Channels[i].Suppression) > 0 {
			cp.Channels[i].Suppression = append([]SuppressionWindow(nil), c.Channels[i].Suppression...)
		}
	}
	return &cp
}

// CandidateID implements Candidate.
func (c *ChannelConfig) CandidateID() string { return c.ID }

// CandidateBrand implements Candidate.
func (c *ChannelConfig) CandidateBrand() string { return c.Brand }

// CandidateLocale implements Candidate.
func (c *ChannelConfig) CandidateLocale() string { return c.Locale }

// LookupProperties implements Candidate. Channel configs carry no
// disambiguation predicates; they compete on brand and locale alone.
func (c *ChannelConfig) LookupProperties() []LookupProperty { return nil }

// LookupProperty is a disambiguation predicate over the event payload.
// Name is a path expression into the payload JSON; Values is the allowed set;
// Order determines scoring weight (lower order, higher weight).
type LookupProperty struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
	Order  int      `json:"order"`
}

// ChannelContent is the message content for one channel of a template.
type ChannelContent struct {
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`

	// Rich marks an email body that was overridden by a rich-content record.
	Rich bool `json:"rich,omitempty"`
}

// Clone returns a copy safe for local mutation.
func (c *ChannelContent) Clone() *ChannelContent {
	cp := *c
	return &cp
}

// MessageTemplate is a template candidate fetched from the store.
type MessageTemplate struct {
	ID             string                          `json:"id" db:"id"`
	NotificationID string                          `json:"notification_id" db:"notification_id"`
	Brand          string                          `json:"brand" db:"brand"`
	Locale         string                          `json:"locale" db:"locale"`
	Properties     LookupProperties                `json:"properties,omitempty" db:"properties"`
	Channels       map[ChannelType]*ChannelContent `json:"channels" db:"channels"`

	// PlaceholderKeys lists the custom placeholder keys the template content
	// references. Rich-content overrides merge their own keys into this list.
	PlaceholderKeys []string `json:"placeholder_keys,omitempty" db:"placeholder_keys"`
}

// CandidateID implements Candidate.
func (t *MessageTemplate) CandidateID() string { return t.ID }

// CandidateBrand implements Candidate.
func (t *MessageTemplate) CandidateBrand() string { return t.Brand }

// CandidateLocale implements Candidate.
func (t *MessageTemplate) CandidateLocale() string { return t.Locale }

// LookupProperties implements Candidate.
func (t *MessageTemplate) LookupProperties() []LookupProperty { return t.Properties }

// Attachment is an email attachment carried by a rich-content record.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// RichContent is a rich-content candidate that, when selected, overrides the
// email body of the resolved template.
type RichContent struct {
	ID              string           `json:"id" db:"id"`
	NotificationID  string           `json:"notification_id" db:"notification_id"`
	Brand           string           `json:"brand" db:"brand"`
	Locale          string           `json:"locale" db:"locale"`
	Properties      LookupProperties `json:"properties,omitempty" db:"properties"`
	Body            string           `json:"body" db:"body"`
	PlaceholderKeys []string         `json:"placeholder_keys,omitempty" db:"placeholder_keys"`
	Attachments     []Attachment     `json:"attachments,omitempty" db:"attachments"`
}

// CandidateID implements Candidate.
func (r *RichContent) CandidateID() string { return r.ID }

// CandidateBrand implements Candidate.
func (r *RichContent) CandidateBrand() string { return r.Brand }

// CandidateLocale implements Candidate.
func (r *RichContent) CandidateLocale() string { return r.Locale }

// LookupProperties implements Candidate.
func (r *RichContent) LookupProperties() []LookupProperty { return r.Properties }

// PlaceholderValue is a custom placeholder candidate keyed by placeholder key.
type PlaceholderValue struct {
	ID         string           `json:"id" db:"id"`
	Key        string           `json:"key" db:"key"`
	Brand      string           `json:"brand" db:"brand"`
	Locale     string           `json:"locale" db:"locale"`
	Properties LookupProperties `json:"properties,omitempty" db:"properties"`
	Value      string           `json:"value" db:"value"`
}

// CandidateID implements Candidate.
func (p *PlaceholderValue) CandidateID() string { return p.ID }

// CandidateBrand implements Candidate.
func (p *PlaceholderValue) CandidateBrand() string { return p.Brand }

// CandidateLocale implements Candidate.
func (p *PlaceholderValue) CandidateLocale() string { return p.Locale }

// LookupProperties implements Candidate.
func (p *PlaceholderValue) LookupProperties() []LookupProperty { return p.Properties }

// TemplateSettings are per-notification global template options. Their absence
// for a processed notification id is a fatal configuration defect.
type TemplateSettings struct {
	NotificationID   string `json:"notification_id" db:"notification_id"`
	SendAllLanguages bool   `json:"send_all_languages" db:"send_all_languages"`
}

// ResolvedTemplate is the merged, locally mutable template for one locale:
// the winning template candidate's channel content (with any rich-content
// email override applied) plus the merged custom placeholder key list.
type ResolvedTemplate struct {
	Locale          string
	TemplateID      string
	Channels        map[ChannelType]*ChannelContent
	PlaceholderKeys []string
	RichEmail       bool
}

// Content returns the channel content for the given type, or nil.
func (r *ResolvedTemplate) Content(t ChannelType) *ChannelContent {
	return r.Channels[t]
}

// VehicleProfile is the resolved vehicle summary used for payload predicate
// evaluation, entitlement checks, and content decoration.
type VehicleProfile struct {
	VehicleID       string         `json:"vehicle_id" db:"vehicle_id"`
	VIN             string         `json:"vin" db:"vin"`
	Nickname        string         `json:"nickname,omitempty" db:"nickname"`
	MarketingName   string         `json:"marketing_name,omitempty" db:"marketing_name"`
	EnabledServices []string       `json:"enabled_services,omitempty" db:"enabled_services"`
	Attributes      map[string]any `json:"attributes,omitempty" db:"attributes"`
}

// HasService reports whether the named service is enabled on the vehicle.
func (v *VehicleProfile) HasService(name string) bool {
	for _, s := range v.EnabledServices {
		if s == name {
			return true
		}
	}
	return false
}

// Contact is a notification recipient tied to a user. Email and Phone are
// stored encrypted at rest and decrypted by the profile repository on read.
type Contact struct {
	ID     string      `json:"id" db:"id"`
	UserID string      `json:"user_id" db:"user_id"`
	Type   ContactType `json:"type" db:"type"`
	Name   string      `json:"name,omitempty" db:"name"`
	Email  string      `json:"email,omitempty" db:"email"`
	Phone  string      `json:"phone,omitempty" db:"phone"`
}

// UserProfile is the resolved user summary.
type UserProfile struct {
	UserID   string    `json:"user_id" db:"user_id"`
	Nickname string    `json:"nickname,omitempty" db:"nickname"`
	Brand    string    `json:"brand,omitempty" db:"brand"`
	Locale   string    `json:"locale,omitempty" db:"locale"`
	Contacts []Contact `json:"contacts,omitempty" db:"-"`
}

// SecondaryContactIDs returns the ids of all secondary contacts.
func (u *UserProfile) SecondaryContactIDs() []string {
	var ids []string
	for _, c := range u.Contacts {
		if c.Type == ContactSecondary {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// AccidentRecord is persisted as a side effect when an accident event is
// processed.
type AccidentRecord struct {
	EventID    string          `json:"event_id" db:"event_id"`
	UserID     string          `json:"user_id" db:"user_id"`
	VehicleID  string          `json:"vehicle_id" db:"vehicle_id"`
	Payload    json.RawMessage `json:"payload" db:"payload"`
	RecordedAt time.Time       `json:"recorded_at" db:"recorded_at"`
}

// DispatchMessage is the finished product handed to the dispatch subsystem:
// one fully rendered message per (locale, winning config).
type DispatchMessage struct {
	MessageID      string                          `json:"message_id"`
	EventID        string                          `json:"event_id"`
	NotificationID string                          `json:"notification_id"`
	GroupName      string                          `json:"group_name"`
	Locale         string                          `json:"locale"`
	Config         *ChannelConfig                  `json:"config"`
	Channels       map[ChannelType]*ChannelContent `json:"channels"`
	Attachments    []Attachment                    `json:"attachments,omitempty"`

	// AllLanguages carries IVM-only content per locale for multi-language
	// voice playback, present only when the notification's template settings
	// request it.
	AllLanguages map[string]*ChannelContent `json:"all_languages,omitempty"`

	Muted bool `json:"muted,omitempty"`
}
