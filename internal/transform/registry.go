// Package transform resolves dynamic content inside template bodies: custom
// placeholders fetched from the store and transformer tokens dispatched to
// registered content transformers under a bounded worker pool with per-task
// timeouts.
package transform

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"vehiclenotify/internal/types"
)

// Transformer produces a replacement string for one transformer token. Apply
// may be slow or fail; Fallback must be cheap and must always return a usable
// replacement.
type Transformer interface {
	ID() string
	Apply(ctx context.Context, ac *types.AlertContext, input string) (string, error)
	Fallback(ctx context.Context, ac *types.AlertContext, input string) string
}

// FuncTransformer adapts plain functions to the Transformer interface. Used
// for built-in transformers and tests.
type FuncTransformer struct {
	Name       string
	ApplyFn    func(ctx context.Context, ac *types.AlertContext, input string) (string, error)
	FallbackFn func(ctx context.Context, ac *types.AlertContext, input string) string
}

// Compile-time assertion.
var _ Transformer = (*FuncTransformer)(nil)

// ID implements Transformer.
func (f *FuncTransformer) ID() string { return f.Name }

// Apply implements Transformer.
func (f *FuncTransformer) Apply(ctx context.Context, ac *types.AlertContext, input string) (string, error) {
	return f.ApplyFn(ctx, ac, input)
}

// Fallback implements Transformer. A nil FallbackFn falls back to the raw
// input unchanged.
func (f *FuncTransformer) Fallback(ctx context.Context, ac *types.AlertContext, input string) string {
	if f.FallbackFn == nil {
		return input
	}
	return f.FallbackFn(ctx, ac, input)
}

// identity passes token input through unchanged. It stands in for unknown and
// disabled transformer ids so a stale token never breaks a message.
type identity struct{ id string }

func (i identity) ID() string { return i.id }

func (i identity) Apply(_ context.Context, _ *types.AlertContext, input string) (string, error) {
	return input, nil
}

func (i identity) Fallback(_ context.Context, _ *types.AlertContext, input string) string {
	return input
}

// Registry holds the content transformers available to the engine, keyed by
// id. Registration is explicit; there is no directory scanning.
type Registry struct {
	transformers map[string]Transformer
	disabled     map[string]struct{}
	logger       types.Logger
}

// NewRegistry creates an empty registry with the given ids pre-disabled.
func NewRegistry(disabledIDs []string, logger types.Logger) *Registry {
	disabled := make(map[string]struct{}, len(disabledIDs))
	for _, id := range disabledIDs {
		disabled[id] = struct{}{}
	}
	return &Registry{
		transformers: make(map[string]Transformer),
		disabled:     disabled,
		logger:       logger,
	}
}

// Register adds a transformer. A duplicate id replaces the earlier
// registration and logs a warning; the last registration wins.
func (r *Registry) Register(t Transformer) {
	if _, exists := r.transformers[t.ID()]; exists {
		r.logger.Warn("duplicate transformer registration, last one wins",
			"transformer_id", t.ID(),
		)
	}
	r.transformers[t.ID()] = t
}

// Disable removes the id from service. Tokens naming it resolve via identity.
func (r *Registry) Disable(id string) {
	r.disabled[id] = struct{}{}
}

// Lookup returns the transformer for the id. Unknown and disabled ids resolve
// to an identity transformer so the token input survives verbatim; unknown
// ids additionally log a warning.
func (r *Registry) Lookup(id string) Transformer {
	if _, off := r.disabled[id]; off {
		return identity{id: id}
	}
	t, ok := r.transformers[id]
	if !ok {
		r.logger.Warn("unknown transformer id, passing input through",
			"transformer_id", id,
		)
		return identity{id: id}
	}
	return t
}

// registryFile is the YAML shape of the transformer registry config.
type registryFile struct {
	Disabled     []string `yaml:"disabled"`
	Transformers []struct {
		ID       string `yaml:"id"`
		Endpoint string `yaml:"endpoint"`
		Fallback string `yaml:"fallback"`
	} `yaml:"transformers"`
}

// LoadRegistryFile registers the HTTP-backed transformers declared in the
// YAML file at path and applies its disabled list. An empty path is a no-op.
func (r *Registry) LoadRegistryFile(path string, client httpDoer) error {
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read transformer registry %s: %w", path, err)
	}

	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse transformer registry %s: %w", path, err)
	}

	for _, id := range file.Disabled {
		r.Disable(id)
	}
	for _, entry := range file.Transformers {
		if entry.ID == "" || entry.Endpoint == "" {
			return fmt.Errorf("transformer registry %s: entries require id and endpoint", path)
		}
		r.Register(NewHTTPTransformer(entry.ID, entry.Endpoint, entry.Fallback, client))
	}
	return nil
}
