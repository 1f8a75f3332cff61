package resolve

import (
	"context"
	"fmt"

	"vehiclenotify/internal/selection"
	"vehiclenotify/internal/types"
)

// TemplateResolver finds, for every distinct locale across the resolved
// configs, the best-ranked message template and rich-content override.
type TemplateResolver struct {
	templates types.TemplateRepository
	defaults  types.Defaults
	logger    types.Logger
}

// NewTemplateResolver creates a TemplateResolver.
func NewTemplateResolver(templates types.TemplateRepository, defaults types.Defaults, logger types.Logger) *TemplateResolver {
	return &TemplateResolver{templates: templates, defaults: defaults, logger: logger}
}

// Resolve populates ac.Templates (and, when requested, ac.AllLanguages and
// ac.Attachments). A locale without a qualifying template is skipped with a
// warning; missing template settings abort the run.
func (t *TemplateResolver) Resolve(ctx context.Context, ac *types.AlertContext) error {
	notificationID := ac.Event.NotificationID
	brand := ac.Brand(t.defaults)

	settings, err := t.templates.FindSettings(ctx, notificationID)
	if err != nil {
		return err
	}
	if settings == nil {
		return types.NewAppError(types.ErrCodeTemplateSettingsMissing,
			fmt.Sprintf("no template settings for notification id %q", notificationID), nil)
	}

	for _, locale := range ac.Locales(t.defaults) {
		if _, done := ac.Templates[locale]; done {
			continue
		}

		resolved, err := t.resolveLocale(ctx, ac, notificationID, brand, locale)
		if err != nil {
			return err
		}
		if resolved == nil {
			// Non-fatal: other locales still get content.
			t.logger.Warn("no template qualified for locale",
				"notification_id", notificationID,
				"locale", locale,
				"brand", brand,
			)
			continue
		}
		ac.Templates[locale] = resolved
	}

	if settings.SendAllLanguages && hasIVMEnabled(ac.Configs) {
		if err := t.resolveAllLanguages(ctx, ac, notificationID, brand); err != nil {
			return err
		}
	}

	return nil
}

// resolveLocale selects the best template for one locale and applies any
// rich-content override. Returns nil when no candidate qualifies.
func (t *TemplateResolver) resolveLocale(ctx context.Context, ac *types.AlertContext, notificationID, brand, locale string) (*types.ResolvedTemplate, error) {
	locales := localeFallback(locale, t.defaults.Locale)
	brands := brandFallback(brand, t.defaults.Brand)

	candidates, err := t.templates.FindTemplates(ctx, notificationID, locales, brands)
	if err != nil {
		return nil, err
	}

	winner, ok := selection.SelectBest(candidates, brand, locale, ac.Event.Payload)
	if !ok {
		return nil, nil
	}
	// The default locale widens the brand pool only. A winner localized for a
	// different locale never produces content for this one.
	if winner.Locale != locale {
		return nil, nil
	}

	resolved := &types.ResolvedTemplate{
		Locale:          locale,
		TemplateID:      winner.ID,
		Channels:        cloneChannels(winner.Channels),
		PlaceholderKeys: append([]string(nil), winner.PlaceholderKeys...),
	}

	// Rich content is selected independently and, when present, replaces the
	// email body.
	richCandidates, err := t.templates.FindRichContent(ctx, notificationID, locales, brands)
	if err != nil {
		return nil, err
	}
	if rich, ok := selection.SelectBest(richCandidates, brand, locale, ac.Event.Payload); ok && rich.Locale == locale {
		email := resolved.Channels[types.ChannelEmail]
		if email == nil {
			email = &types.ChannelContent{}
			resolved.Channels[types.ChannelEmail] = email
		}
		email.Body = rich.Body
		email.Rich = true
		resolved.RichEmail = true
		resolved.PlaceholderKeys = mergeKeys(resolved.PlaceholderKeys, rich.PlaceholderKeys)
		if len(rich.Attachments) > 0 {
			ac.Attachments[locale] = append([]types.Attachment(nil), rich.Attachments...)
		}
	}

	return resolved, nil
}

// resolveAllLanguages builds the IVM-only template set across every locale
// the store knows for this notification, for multi-language voice playback.
func (t *TemplateResolver) resolveAllLanguages(ctx context.Context, ac *types.AlertContext, notificationID, brand string) error {
	locales, err := t.templates.ListLocales(ctx, notificationID)
	if err != nil {
		return err
	}

	brands := brandFallback(brand, t.defaults.Brand)
	for _, locale := range locales {
		candidates, err := t.templates.FindTemplates(ctx, notificationID, []string{locale}, brands)
		if err != nil {
			return err
		}
		winner, ok := selection.SelectBest(candidates, brand, locale, ac.Event.Payload)
		if !ok {
			continue
		}
		ivm := winner.Channels[types.ChannelIVM]
		if ivm == nil {
			continue
		}
		ac.AllLanguages[locale] = &types.ResolvedTemplate{
			Locale:     locale,
			TemplateID: winner.ID,
			Channels: map[types.ChannelType]*types.ChannelContent{
				types.ChannelIVM: ivm.Clone(),
			},
			PlaceholderKeys: append([]string(nil), winner.PlaceholderKeys...),
		}
	}

	return nil
}

// hasIVMEnabled reports whether any selected config has the IVM channel
// enabled.
func hasIVMEnabled(configs []*types.ChannelConfig) bool {
	for _, cfg := range configs {
		if cfg.HasEnabled(types.ChannelIVM) {
			return true
		}
	}
	return false
}

// cloneChannels deep-copies a channel content map for local mutation.
func cloneChannels(in map[types.ChannelType]*types.ChannelContent) map[types.ChannelType]*types.ChannelContent {
	out := make(map[types.ChannelType]*types.ChannelContent, len(in))
	for k, v := range in {
		if v != nil {
			out[k] = v.Clone()
		}
	}
	return out
}

// mergeKeys appends keys from extra not already present in base.
func mergeKeys(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base))
	for _, k := range base {
		seen[k] = struct{}{}
	}
	for _, k := range extra {
		if _, ok := seen[k]; !ok {
			base = append(base, k)
			seen[k] = struct{}{}
		}
	}
	return base
}
