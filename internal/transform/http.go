package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"vehiclenotify/internal/types"
)

// httpDoer is the minimal HTTP client surface the transformer needs.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPTransformer dispatches token input to an external transform service.
// Calls go through a circuit breaker and are attempted exactly once; any
// failure resolves via Fallback. Retrying here would defeat the engine's
// per-task timeout, so there is none.
type HTTPTransformer struct {
	id       string
	endpoint string
	fallback string
	client   httpDoer
	breaker  *gobreaker.CircuitBreaker[string]
}

// Compile-time assertion.
var _ Transformer = (*HTTPTransformer)(nil)

// NewHTTPTransformer creates a transformer calling the given endpoint. The
// fallback string, when non-empty, is the replacement used on failure;
// otherwise the raw input passes through.
func NewHTTPTransformer(id, endpoint, fallback string, client httpDoer) *HTTPTransformer {
	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "transformer-" + id,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	return &HTTPTransformer{
		id:       id,
		endpoint: endpoint,
		fallback: fallback,
		client:   client,
		breaker:  cb,
	}
}

// ID implements Transformer.
func (t *HTTPTransformer) ID() string { return t.id }

// transformRequest is the wire request to the transform service.
type transformRequest struct {
	EventID        string          `json:"event_id,omitempty"`
	NotificationID string          `json:"notification_id"`
	Input          string          `json:"input"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// transformResponse is the wire response from the transform service.
type transformResponse struct {
	Output string `json:"output"`
}

// Apply implements Transformer.
func (t *HTTPTransformer) Apply(ctx context.Context, ac *types.AlertContext, input string) (string, error) {
	body, err := json.Marshal(transformRequest{
		EventID:        ac.EventID,
		NotificationID: ac.Event.NotificationID,
		Input:          input,
		Payload:        ac.Event.Payload,
	})
	if err != nil {
		return "", types.NewAppError(types.ErrCodeTransformFailed, "failed to encode transform request", err)
	}

	out, err := t.breaker.Execute(func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if id := types.GetEventID(ctx); id != "" {
			req.Header.Set("X-B3-TraceId", id)
		}

		resp, err := t.client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			return "", fmt.Errorf("transform service returned %d", resp.StatusCode)
		}

		var decoded transformResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return "", err
		}
		return decoded.Output, nil
	})
	if err != nil {
		code := types.ErrCodeTransformFailed
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", types.NewAppError(code, "transformer circuit open", err)
		}
		return "", types.NewAppError(code, fmt.Sprintf("transformer %q call failed", t.id), err)
	}
	return out, nil
}

// Fallback implements Transformer.
func (t *HTTPTransformer) Fallback(_ context.Context, _ *types.AlertContext, input string) string {
	if t.fallback != "" {
		return t.fallback
	}
	return input
}
