// Package assemble performs the final per-locale, per-channel write-back:
// splicing resolved placeholder values and profile decorations into template
// content and disabling channels that ended up with nothing to send.
package assemble

import (
	"context"
	"regexp"

	"vehiclenotify/internal/types"
)

// placeholderPattern matches custom placeholder and decoration tokens of the
// form ${key}.
var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_.-]+)\}`)

// Decoration keys resolved from profiles rather than the placeholder store.
const (
	decorVehicleNickname  = "vehicle.nickname"
	decorVehicleMarketing = "vehicle.marketingName"
	decorUserNickname     = "user.nickname"
)

// Assembler finalizes message content for every resolved locale.
type Assembler struct {
	defaults types.Defaults
	logger   types.Logger
}

// NewAssembler creates an Assembler.
func NewAssembler(defaults types.Defaults, logger types.Logger) *Assembler {
	return &Assembler{defaults: defaults, logger: logger}
}

// Assemble splices placeholder values and decorations into every resolved
// template, then disables, on each config, the channels whose locale ended up
// without content. An unresolved token stays in the text verbatim and is
// logged; partial content still ships.
func (a *Assembler) Assemble(_ context.Context, ac *types.AlertContext) error {
	for locale, tmpl := range ac.Templates {
		a.spliceTemplate(ac, locale, tmpl)
	}
	for locale, tmpl := range ac.AllLanguages {
		a.spliceTemplate(ac, locale, tmpl)
	}

	for _, locale := range ac.Locales(a.defaults) {
		tmpl := ac.Templates[locale]
		for _, cfg := range ac.ConfigsForLocale(locale, a.defaults) {
			for _, ch := range types.AllChannelTypes {
				if hasContent(tmpl, ch) {
					continue
				}
				if cfg.HasEnabled(ch) {
					a.logger.Warn("disabling channel with no content",
						"channel", string(ch),
						"locale", locale,
						"config_id", cfg.ID,
					)
				}
				cfg.Disable(ch)
			}
		}
	}

	return nil
}

func (a *Assembler) spliceTemplate(ac *types.AlertContext, locale string, tmpl *types.ResolvedTemplate) {
	for _, content := range tmpl.Channels {
		if content == nil {
			continue
		}
		content.Subject = a.splice(ac, locale, content.Subject)
		content.Body = a.splice(ac, locale, content.Body)
	}
}

// splice replaces every ${key} token it can resolve. Decorations take
// precedence over store-resolved placeholders.
func (a *Assembler) splice(ac *types.AlertContext, locale, text string) string {
	if text == "" {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		key := token[2 : len(token)-1]

		if value, ok := a.decoration(ac, key); ok {
			return value
		}
		if value, ok := ac.Placeholders[locale][key]; ok {
			return value
		}

		a.logger.Warn("placeholder unresolved, leaving token intact",
			"key", key,
			"locale", locale,
		)
		return token
	})
}

// decoration resolves profile-backed tokens. A decoration only resolves when
// the owning profile was loaded; otherwise the token is left for the
// unresolved path.
func (a *Assembler) decoration(ac *types.AlertContext, key string) (string, bool) {
	switch key {
	case decorVehicleNickname:
		if ac.Vehicle != nil {
			return ac.Vehicle.Nickname, true
		}
	case decorVehicleMarketing:
		if ac.Vehicle != nil {
			return ac.Vehicle.MarketingName, true
		}
	case decorUserNickname:
		if ac.User != nil {
			return ac.User.Nickname, true
		}
	}
	return "", false
}

// hasContent reports whether the template carries non-empty content for the
// channel.
func hasContent(tmpl *types.ResolvedTemplate, ch types.ChannelType) bool {
	if tmpl == nil {
		return false
	}
	content := tmpl.Content(ch)
	return content != nil && (content.Body != "" || content.Subject != "")
}
