package types

import (
	"context"
)

// AlertContext is the mutable per-event state threaded through the pipeline
// stages. One context is owned by exactly one pipeline run; it is never shared
// across concurrently processed events.
//
// Field ownership is single-writer: each field is written by exactly one stage.
//
//	EventID                   id-generation stage
//	Group                     group-resolution stage
//	Vehicle                   vehicle-enrichment stage
//	User                      user-enrichment stage
//	Configs                   config-resolution stage
//	Templates, AllLanguages,
//	Attachments               template-resolution stage
//	Placeholders              custom-placeholder stage
//	(template content bodies) content-transformer stage, then assembler
//	Muted                     mute-status stage
type AlertContext struct {
	EventID string
	Event   *AlertEvent

	Group   *Group
	Vehicle *VehicleProfile
	User    *UserProfile

	Configs []*ChannelConfig

	// Templates maps locale -> resolved template.
	Templates map[string]*ResolvedTemplate

	// Placeholders maps locale -> placeholder key -> resolved value.
	Placeholders map[string]map[string]string

	// AllLanguages holds IVM-only templates per locale for multi-language
	// voice playback, populated only when the notification's template
	// settings request it and an IVM channel is enabled.
	AllLanguages map[string]*ResolvedTemplate

	// Attachments maps locale -> email attachments from rich content.
	Attachments map[string][]Attachment

	Muted bool
}

// NewAlertContext wraps an inbound event in a fresh pipeline context.
func NewAlertContext(event *AlertEvent) *AlertContext {
	return &AlertContext{
		Event:        event,
		Templates:    make(map[string]*ResolvedTemplate),
		Placeholders: make(map[string]map[string]string),
		AllLanguages: make(map[string]*ResolvedTemplate),
		Attachments:  make(map[string][]Attachment),
	}
}

// Brand returns the event brand, falling back to the process-wide default.
func (a *AlertContext) Brand(d Defaults) string {
	if a.Event != nil && a.Event.Brand != "" {
		return a.Event.Brand
	}
	return d.Brand
}

// Locale returns the user's preferred locale, falling back to the
// process-wide default.
func (a *AlertContext) Locale(d Defaults) string {
	if a.User != nil && a.User.Locale != "" {
		return a.User.Locale
	}
	return d.Locale
}

// Locales returns the distinct locales present across the resolved configs,
// in first-seen order. Configs without a locale use the default.
func (a *AlertContext) Locales(d Defaults) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, cfg := range a.Configs {
		loc := cfg.Locale
		if loc == "" {
			loc = d.Locale
		}
		if _, ok := seen[loc]; ok {
			continue
		}
		seen[loc] = struct{}{}
		out = append(out, loc)
	}
	return out
}

// ConfigsForLocale returns the resolved configs whose locale (after default
// substitution) matches the given locale.
func (a *AlertContext) ConfigsForLocale(locale string, d Defaults) []*ChannelConfig {
	var out []*ChannelConfig
	for _, cfg := range a.Configs {
		loc := cfg.Locale
		if loc == "" {
			loc = d.Locale
		}
		if loc == locale {
			out = append(out, cfg)
		}
	}
	return out
}

// Context keys for request-scoped values.
type contextKey string

const (
	eventIDKey contextKey = "event_id"
	loggerKey  contextKey = "logger"
)

// WithEventID stores the generated event id in the context for trace
// propagation into transformer calls and dispatch.
func WithEventID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, eventIDKey, id)
}

// GetEventID retrieves the event id from the context.
func GetEventID(ctx context.Context) string {
	id, _ := ctx.Value(eventIDKey).(string)
	return id
}

// WithLogger stores a Logger in the context. The stored logger is expected to
// be pre-enriched with event-scoped fields by the orchestrator.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves the Logger from the context, or nil.
func LoggerFromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return nil
}
