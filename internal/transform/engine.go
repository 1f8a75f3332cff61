package transform

import (
	"context"
	"regexp"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"vehiclenotify/internal/types"
)

// tokenPattern matches transformer tokens of the form #{transformerId:rawInput}.
// Raw input runs to the first closing brace and may be empty.
var tokenPattern = regexp.MustCompile(`#\{([A-Za-z0-9_.-]+):([^}]*)\}`)

// Engine resolves transformer tokens inside resolved template content. Tokens
// within one field run concurrently under a process-wide worker cap; the field
// write-back waits for all of them. Each task gets one attempt bounded by the
// configured timeout, after which its fallback result is used and the late
// result, if any, is discarded.
type Engine struct {
	registry *Registry
	timeout  time.Duration
	sem      *semaphore.Weighted
	logger   types.Logger
}

// NewEngine creates an Engine with the given per-task timeout and worker cap.
func NewEngine(registry *Registry, timeout time.Duration, workers int, logger types.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		registry: registry,
		timeout:  timeout,
		sem:      semaphore.NewWeighted(int64(workers)),
		logger:   logger,
	}
}

// Resolve rewrites transformer tokens in every resolved template of the
// context, including the all-languages IVM set. Transformer failures never
// abort the run; each failed or elapsed task resolves via its fallback.
func (e *Engine) Resolve(ctx context.Context, ac *types.AlertContext) error {
	for _, tmpl := range ac.Templates {
		e.resolveTemplate(ctx, ac, tmpl)
	}
	for _, tmpl := range ac.AllLanguages {
		e.resolveTemplate(ctx, ac, tmpl)
	}
	return nil
}

func (e *Engine) resolveTemplate(ctx context.Context, ac *types.AlertContext, tmpl *types.ResolvedTemplate) {
	for _, content := range tmpl.Channels {
		if content == nil {
			continue
		}
		content.Subject = e.transformField(ctx, ac, content.Subject)
		content.Body = e.transformField(ctx, ac, content.Body)
	}
}

// transformField resolves every token in one content field. All tokens are
// dispatched before the first wait, then spliced back in reverse so earlier
// match offsets stay valid.
func (e *Engine) transformField(ctx context.Context, ac *types.AlertContext, text string) string {
	matches := tokenPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	results := make([]string, len(matches))
	var wg sync.WaitGroup
	for i, m := range matches {
		id := text[m[2]:m[3]]
		input := text[m[4]:m[5]]
		wg.Add(1)
		go func(i int, id, input string) {
			defer wg.Done()
			results[i] = e.runTask(ctx, ac, id, input)
		}(i, id, input)
	}
	wg.Wait()

	out := text
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		out = out[:m[0]] + results[i] + out[m[1]:]
	}
	return out
}

// runTask executes one transformer call with the engine timeout. The fallback
// is invoked at most once, on error or elapsed timeout; a task that finishes
// after the timeout has its result dropped on the buffered channel.
func (e *Engine) runTask(ctx context.Context, ac *types.AlertContext, id, input string) string {
	t := e.registry.Lookup(id)

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return t.Fallback(ctx, ac, input)
	}

	type taskResult struct {
		out string
		err error
	}
	done := make(chan taskResult, 1)
	go func() {
		defer e.sem.Release(1)
		out, err := t.Apply(ctx, ac, input)
		done <- taskResult{out: out, err: err}
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			e.logger.Warn("transformer failed, using fallback",
				"transformer_id", id,
				"error", res.err.Error(),
			)
			return t.Fallback(ctx, ac, input)
		}
		return res.out
	case <-timer.C:
		e.logger.Warn("transformer timed out, using fallback",
			"transformer_id", id,
			"timeout", e.timeout.String(),
		)
		return t.Fallback(ctx, ac, input)
	case <-ctx.Done():
		return t.Fallback(ctx, ac, input)
	}
}
