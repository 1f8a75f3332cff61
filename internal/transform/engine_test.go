package transform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehiclenotify/internal/types"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)        {}
func (nopLogger) Error(string, ...any)       {}
func (nopLogger) Warn(string, ...any)        {}
func (l nopLogger) With(...any) types.Logger { return l }

func newEngineContext(body string) *types.AlertContext {
	ac := types.NewAlertContext(&types.AlertEvent{NotificationID: "n-1", UserID: "u-1"})
	ac.Templates["en_US"] = &types.ResolvedTemplate{
		Locale: "en_US",
		Channels: map[types.ChannelType]*types.ChannelContent{
			types.ChannelPush: {Body: body},
		},
	}
	return ac
}

func upperTransformer() *FuncTransformer {
	return &FuncTransformer{
		Name: "upper",
		ApplyFn: func(_ context.Context, _ *types.AlertContext, input string) (string, error) {
			return strings.ToUpper(input), nil
		},
	}
}

func TestEngine_ReplacesTokens(t *testing.T) {
	registry := NewRegistry(nil, nopLogger{})
	registry.Register(upperTransformer())

	engine := NewEngine(registry, time.Second, 4, nopLogger{})
	ac := newEngineContext("fuel is #{upper:low} in ${vehicle.nickname}")

	require.NoError(t, engine.Resolve(context.Background(), ac))

	// Placeholder tokens are not the engine's business; they survive.
	assert.Equal(t, "fuel is LOW in ${vehicle.nickname}",
		ac.Templates["en_US"].Channels[types.ChannelPush].Body)
}

func TestEngine_TimeoutResolvesViaFallback(t *testing.T) {
	slow := &FuncTransformer{
		Name: "slow",
		ApplyFn: func(_ context.Context, _ *types.AlertContext, _ string) (string, error) {
			time.Sleep(500 * time.Millisecond)
			return "too late", nil
		},
		FallbackFn: func(_ context.Context, _ *types.AlertContext, _ string) string {
			return "fallback"
		},
	}
	registry := NewRegistry(nil, nopLogger{})
	registry.Register(slow)

	engine := NewEngine(registry, 50*time.Millisecond, 4, nopLogger{})
	ac := newEngineContext("status: #{slow:x}")

	start := time.Now()
	require.NoError(t, engine.Resolve(context.Background(), ac))
	elapsed := time.Since(start)

	assert.Equal(t, "status: fallback", ac.Templates["en_US"].Channels[types.ChannelPush].Body)
	assert.Less(t, elapsed, 400*time.Millisecond, "the engine must not wait out the slow task")
}

func TestEngine_ErrorResolvesViaFallbackExactlyOnce(t *testing.T) {
	var fallbackCalls atomic.Int32
	failing := &FuncTransformer{
		Name: "broken",
		ApplyFn: func(_ context.Context, _ *types.AlertContext, _ string) (string, error) {
			return "", errors.New("boom")
		},
		FallbackFn: func(_ context.Context, _ *types.AlertContext, input string) string {
			fallbackCalls.Add(1)
			return "safe " + input
		},
	}
	registry := NewRegistry(nil, nopLogger{})
	registry.Register(failing)

	engine := NewEngine(registry, time.Second, 4, nopLogger{})
	ac := newEngineContext("#{broken:value}")

	require.NoError(t, engine.Resolve(context.Background(), ac))

	assert.Equal(t, "safe value", ac.Templates["en_US"].Channels[types.ChannelPush].Body)
	assert.Equal(t, int32(1), fallbackCalls.Load(), "no retries: fallback runs once")
}

func TestEngine_UnknownTransformerPassesInputThrough(t *testing.T) {
	engine := NewEngine(NewRegistry(nil, nopLogger{}), time.Second, 4, nopLogger{})
	ac := newEngineContext("value: #{missing:raw text}")

	require.NoError(t, engine.Resolve(context.Background(), ac))
	assert.Equal(t, "value: raw text", ac.Templates["en_US"].Channels[types.ChannelPush].Body)
}

func TestEngine_EveryTokenResolvesBeforeWriteBack(t *testing.T) {
	registry := NewRegistry(nil, nopLogger{})
	registry.Register(&FuncTransformer{
		Name: "echo",
		ApplyFn: func(_ context.Context, _ *types.AlertContext, input string) (string, error) {
			time.Sleep(20 * time.Millisecond)
			return "<" + input + ">", nil
		},
	})

	var body strings.Builder
	for i := 0; i < 16; i++ {
		fmt.Fprintf(&body, "#{echo:t%d} ", i)
	}

	engine := NewEngine(registry, time.Second, 4, nopLogger{})
	ac := newEngineContext(body.String())

	require.NoError(t, engine.Resolve(context.Background(), ac))

	out := ac.Templates["en_US"].Channels[types.ChannelPush].Body
	assert.NotContains(t, out, "#{")
	for i := 0; i < 16; i++ {
		assert.Contains(t, out, fmt.Sprintf("<t%d>", i))
	}
}

func TestEngine_AllLanguagesContentTransformed(t *testing.T) {
	registry := NewRegistry(nil, nopLogger{})
	registry.Register(upperTransformer())

	engine := NewEngine(registry, time.Second, 4, nopLogger{})
	ac := types.NewAlertContext(&types.AlertEvent{NotificationID: "n-1", UserID: "u-1"})
	ac.AllLanguages["fr_FR"] = &types.ResolvedTemplate{
		Locale: "fr_FR",
		Channels: map[types.ChannelType]*types.ChannelContent{
			types.ChannelIVM: {Body: "#{upper:bonjour}"},
		},
	}

	require.NoError(t, engine.Resolve(context.Background(), ac))
	assert.Equal(t, "BONJOUR", ac.AllLanguages["fr_FR"].Channels[types.ChannelIVM].Body)
}
