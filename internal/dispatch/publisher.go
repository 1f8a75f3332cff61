// Package dispatch turns a finished alert context into per-locale, per-config
// messages and publishes them to the dispatch queue for downstream delivery
// workers.
package dispatch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"vehiclenotify/internal/types"
)

// maxPlainBodyBytes is the largest message body sent uncompressed. SQS caps
// messages at 256 KiB; rich email bodies with inline attachments can exceed
// it, so larger bodies are zstd-compressed and base64-wrapped.
const maxPlainBodyBytes = 250 * 1024

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// envelope wraps a compressed message body.
type envelope struct {
	Encoding string `json:"encoding"`
	Data     string `json:"data"`
}

// encodingZstdBase64 identifies zstd-compressed, base64-wrapped bodies.
const encodingZstdBase64 = "zstd+base64"

// Publisher builds and sends dispatch messages.
type Publisher struct {
	client   SQSSender
	queueURL string
	defaults types.Defaults
	encoder  *zstd.Encoder
	logger   types.Logger
}

// NewPublisher creates a Publisher targeting the given queue URL.
func NewPublisher(client SQSSender, queueURL string, defaults types.Defaults, logger types.Logger) (*Publisher, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("dispatch: failed to create zstd encoder: %w", err)
	}
	return &Publisher{
		client:   client,
		queueURL: queueURL,
		defaults: defaults,
		encoder:  encoder,
		logger:   logger,
	}, nil
}

// Build assembles one dispatch message per (locale, config) pair that still
// has at least one enabled channel with content. Configs whose channels were
// all disabled during assembly produce nothing.
func (p *Publisher) Build(ac *types.AlertContext) []*types.DispatchMessage {
	var out []*types.DispatchMessage

	for _, locale := range ac.Locales(p.defaults) {
		tmpl := ac.Templates[locale]
		if tmpl == nil {
			continue
		}
		for _, cfg := range ac.ConfigsForLocale(locale, p.defaults) {
			channels := make(map[types.ChannelType]*types.ChannelContent)
			for _, ch := range types.AllChannelTypes {
				content := tmpl.Content(ch)
				if content == nil || !cfg.HasEnabled(ch) {
					continue
				}
				channels[ch] = content.Clone()
			}
			if len(channels) == 0 {
				continue
			}

			msg := &types.DispatchMessage{
				MessageID:      uuid.NewString(),
				EventID:        ac.EventID,
				NotificationID: ac.Event.NotificationID,
				GroupName:      ac.Group.Name,
				Locale:         locale,
				Config:         cfg,
				Channels:       channels,
				Attachments:    ac.Attachments[locale],
				Muted:          ac.Muted,
			}
			if cfg.HasEnabled(types.ChannelIVM) {
				msg.AllLanguages = allLanguagesIVM(ac)
			}
			out = append(out, msg)
		}
	}

	return out
}

// PublishAll builds and sends every dispatch message for the context. The
// first send failure stops publication and is returned.
func (p *Publisher) PublishAll(ctx context.Context, ac *types.AlertContext) (int, error) {
	messages := p.Build(ac)
	for _, msg := range messages {
		if err := p.publish(ctx, msg); err != nil {
			return 0, err
		}
	}
	return len(messages), nil
}

// publish serializes one message, compressing oversized bodies, and sends it.
func (p *Publisher) publish(ctx context.Context, msg *types.DispatchMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("dispatch: failed to marshal message %s: %w", msg.MessageID, err)
	}

	encoding := "plain"
	if len(body) > maxPlainBodyBytes {
		wrapped, err := json.Marshal(envelope{
			Encoding: encodingZstdBase64,
			Data:     base64.StdEncoding.EncodeToString(p.encoder.EncodeAll(body, nil)),
		})
		if err != nil {
			return fmt.Errorf("dispatch: failed to wrap message %s: %w", msg.MessageID, err)
		}
		body = wrapped
		encoding = encodingZstdBase64
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"content_encoding": {
				DataType:    aws.String("String"),
				StringValue: aws.String(encoding),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("dispatch: failed to send message %s: %w", msg.MessageID, err)
	}

	p.logger.Info("dispatch message sent",
		"message_id", msg.MessageID,
		"event_id", msg.EventID,
		"locale", msg.Locale,
		"channels", len(msg.Channels),
		"encoding", encoding,
	)
	return nil
}

// allLanguagesIVM extracts the per-locale IVM content from the all-languages
// template set.
func allLanguagesIVM(ac *types.AlertContext) map[string]*types.ChannelContent {
	if len(ac.AllLanguages) == 0 {
		return nil
	}
	out := make(map[string]*types.ChannelContent, len(ac.AllLanguages))
	for locale, tmpl := range ac.AllLanguages {
		if content := tmpl.Content(types.ChannelIVM); content != nil {
			out[locale] = content.Clone()
		}
	}
	return out
}
