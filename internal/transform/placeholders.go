package transform

import (
	"context"

	"vehiclenotify/internal/selection"
	"vehiclenotify/internal/types"
)

// PlaceholderResolver resolves the custom placeholder keys referenced by the
// resolved templates into concrete values, ranked per key by the selection
// scorer. A key with no qualifying candidate is omitted from the result map;
// the assembler leaves its token intact.
type PlaceholderResolver struct {
	placeholders types.PlaceholderRepository
	defaults     types.Defaults
	logger       types.Logger
}

// NewPlaceholderResolver creates a PlaceholderResolver.
func NewPlaceholderResolver(placeholders types.PlaceholderRepository, defaults types.Defaults, logger types.Logger) *PlaceholderResolver {
	return &PlaceholderResolver{placeholders: placeholders, defaults: defaults, logger: logger}
}

// Resolve populates ac.Placeholders for every locale with a resolved template,
// including locales that exist only in the all-languages IVM set. Missing
// values are logged and skipped, never fatal.
func (p *PlaceholderResolver) Resolve(ctx context.Context, ac *types.AlertContext) error {
	brand := ac.Brand(p.defaults)

	for locale, keys := range keysByLocale(ac) {
		if len(keys) == 0 {
			continue
		}

		candidates, err := p.placeholders.FindPlaceholders(ctx, keys,
			fallbackSet(locale, p.defaults.Locale),
			fallbackSet(brand, p.defaults.Brand))
		if err != nil {
			return err
		}

		byKey := make(map[string][]*types.PlaceholderValue)
		for _, c := range candidates {
			byKey[c.Key] = append(byKey[c.Key], c)
		}

		resolved := make(map[string]string, len(keys))
		for _, key := range keys {
			best, ok := selection.SelectBest(byKey[key], brand, locale, ac.Event.Payload)
			if !ok {
				p.logger.Warn("no placeholder value qualified",
					"key", key,
					"locale", locale,
					"brand", brand,
				)
				continue
			}
			resolved[key] = best.Value
		}
		if len(resolved) > 0 {
			ac.Placeholders[locale] = resolved
		}
	}

	return nil
}

// keysByLocale collects the distinct placeholder keys per locale across the
// primary templates and the all-languages set, preserving key order.
func keysByLocale(ac *types.AlertContext) map[string][]string {
	out := make(map[string][]string)
	add := func(locale string, keys []string) {
		seen := make(map[string]struct{}, len(out[locale]))
		for _, k := range out[locale] {
			seen[k] = struct{}{}
		}
		for _, k := range keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out[locale] = append(out[locale], k)
		}
	}
	for locale, tmpl := range ac.Templates {
		add(locale, tmpl.PlaceholderKeys)
	}
	for locale, tmpl := range ac.AllLanguages {
		add(locale, tmpl.PlaceholderKeys)
	}
	return out
}

// fallbackSet returns the requested value plus the default, deduplicated, for
// use as a store filter.
func fallbackSet(v, def string) []string {
	if v == def {
		return []string{v}
	}
	return []string{v, def}
}
