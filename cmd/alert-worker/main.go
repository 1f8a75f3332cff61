// Package main is the entrypoint for the Alert Worker Lambda function.
//
// The Alert Worker consumes alert events from the inbound SQS queue, runs
// each through the enrichment pipeline (group resolution, config and template
// selection, placeholder and transformer resolution, assembly), and publishes
// the finished per-locale, per-config messages to the dispatch queue.
//
// Cold start:
//  1. Initialize structured logger.
//  2. Load process configuration (fail fast on any invalid value).
//  3. Load AWS SDK configuration; initialize SQS and CloudWatch clients.
//  4. Open the configuration store pool and construct the repositories.
//  5. Build the transformer registry from the YAML registry file.
//  6. Assemble the pipeline stage list and the dispatch publisher.
//  7. Register handler and call lambda.Start.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"vehiclenotify/internal/assemble"
	"vehiclenotify/internal/config"
	"vehiclenotify/internal/db"
	"vehiclenotify/internal/dispatch"
	"vehiclenotify/internal/pipeline"
	"vehiclenotify/internal/resolve"
	"vehiclenotify/internal/secure"
	"vehiclenotify/internal/transform"
	"vehiclenotify/internal/types"
)

// slogAdapter wraps *slog.Logger to implement the types.Logger interface.
// slog.Logger satisfies Info/Warn/Error directly but its With returns
// *slog.Logger, so an adapter is necessary.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

// Compile-time assertion that slogAdapter implements types.Logger.
var _ types.Logger = (*slogAdapter)(nil)

// Handler holds the dependencies for the alert worker Lambda handler.
type Handler struct {
	pipeline  *pipeline.Pipeline
	publisher *dispatch.Publisher
	logger    types.Logger
}

// Handle processes an SQS event containing one or more alert events. Lambda
// SQS integration uses partial batch responses: messages whose failure looks
// transient are returned in batchItemFailures so SQS retries only them.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process SQS record",
				"message_id", record.MessageId,
				"error", err.Error(),
			)
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}

	return response, nil
}

// processRecord runs one alert event through the pipeline and publishes the
// results. A nil return acknowledges the record.
//
// Failure handling: malformed bodies and data/configuration defects are
// permanent, so they are logged and acknowledged; a retry cannot fix them.
// Store and publish failures are transient and reported for retry.
func (h *Handler) processRecord(ctx context.Context, record events.SQSMessage) error {
	var event types.AlertEvent
	if err := json.Unmarshal([]byte(record.Body), &event); err != nil {
		h.logger.Error("failed to unmarshal alert event, dropping record",
			"message_id", record.MessageId,
			"error", err.Error(),
		)
		return nil
	}

	logger := h.logger.With(
		"notification_id", event.NotificationID,
		"user_id", event.UserID,
	)
	logger.Info("processing alert event")

	ac, err := h.pipeline.Process(ctx, &event)
	if err != nil {
		if retryable(err) {
			return err
		}
		logger.Error("alert event permanently failed, dropping record",
			"error", err.Error(),
		)
		return nil
	}

	sent, err := h.publisher.PublishAll(ctx, ac)
	if err != nil {
		return fmt.Errorf("publish dispatch messages: %w", err)
	}

	logger.Info("alert event processed",
		"event_id", ac.EventID,
		"messages_sent", sent,
		"muted", ac.Muted,
	)
	return nil
}

// retryable reports whether a pipeline error is worth an SQS redelivery.
// Infrastructure errors are; data and configuration defects are not.
func retryable(err error) bool {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		return true
	}
	switch appErr.Code {
	case types.ErrCodeInternalDB, types.ErrCodeInternalUnexpected:
		return true
	default:
		return false
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	logger.Info("Alert Worker Lambda initializing (cold start)",
		"environment", cfg.Environment,
	)
	typedLogger := &slogAdapter{logger: logger}

	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Error("failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}
	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = &cfg.AWS.EndpointURL
		}
	})
	cwClient := cloudwatch.NewFromConfig(awsCfg)

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to open configuration store pool", "error", err)
		os.Exit(1)
	}

	cipher, err := secure.NewFieldCipher(cfg.Secure.PIIKeyHex)
	if err != nil {
		logger.Error("failed to initialize PII cipher", "error", err)
		os.Exit(1)
	}

	groups := db.NewGroupRepository(pool)
	configs := db.NewConfigRepository(pool)
	templates := db.NewTemplateRepository(pool)
	placeholders := db.NewPlaceholderRepository(pool)
	profiles := db.NewProfileRepository(pool, cipher)

	defaults := types.Defaults{
		Brand:  cfg.Pipeline.DefaultBrand,
		Locale: cfg.Pipeline.DefaultLocale,
	}

	registry := transform.NewRegistry(cfg.Pipeline.DisabledTransformers, typedLogger)
	httpClient := &http.Client{Timeout: cfg.Pipeline.TransformTimeout + time.Second}
	if err := registry.LoadRegistryFile(cfg.Pipeline.TransformerConfigPath, httpClient); err != nil {
		logger.Error("failed to load transformer registry", "error", err)
		os.Exit(1)
	}

	clock := types.RealClock{}
	stages := pipeline.Stages(pipeline.Deps{
		Groups:       resolve.NewGroupResolver(groups, typedLogger),
		Configs:      resolve.NewConfigResolver(configs, defaults, typedLogger),
		Templates:    resolve.NewTemplateResolver(templates, defaults, typedLogger),
		Placeholders: transform.NewPlaceholderResolver(placeholders, defaults, typedLogger),
		Engine:       transform.NewEngine(registry, cfg.Pipeline.TransformTimeout, cfg.Pipeline.TransformWorkers, typedLogger),
		Assembler:    assemble.NewAssembler(defaults, typedLogger),
		Profiles:     profiles,
		Clock:        clock,
		Logger:       typedLogger,
	})

	metrics := pipeline.NewCloudWatchMetrics(cwClient, cfg.AWS.MetricNamespace, typedLogger)
	pipe := pipeline.New(stages, metrics, clock, typedLogger)

	publisher, err := dispatch.NewPublisher(sqsClient, cfg.AWS.DispatchQueue, defaults, typedLogger)
	if err != nil {
		logger.Error("failed to initialize dispatch publisher", "error", err)
		os.Exit(1)
	}

	handler := &Handler{
		pipeline:  pipe,
		publisher: publisher,
		logger:    typedLogger,
	}

	logger.Info("Alert Worker Lambda initialized",
		"alert_queue", cfg.AWS.AlertQueue,
		"dispatch_queue", cfg.AWS.DispatchQueue,
		"metric_namespace", cfg.AWS.MetricNamespace,
	)

	// Local mode: read a JSON SQS event from stdin instead of starting the
	// Lambda runtime. Enables local integration testing without the RIE.
	if cfg.Environment == "local" {
		runLocal(ctx, handler, logger)
		return
	}

	lambda.Start(handler.Handle)
}

// runLocal executes the handler once against an SQS event read from stdin.
func runLocal(ctx context.Context, handler *Handler, logger *slog.Logger) {
	logger.Info("APP_ENV=local: reading SQS event from stdin")

	payload, err := io.ReadAll(os.Stdin)
	if err != nil || len(payload) == 0 {
		logger.Error("no SQS event on stdin", "error", err)
		os.Exit(1)
	}

	var sqsEvent events.SQSEvent
	if err := json.Unmarshal(payload, &sqsEvent); err != nil {
		logger.Error("failed to parse stdin as SQS event", "error", err)
		os.Exit(1)
	}

	response, err := handler.Handle(ctx, sqsEvent)
	if err != nil {
		logger.Error("handler execution failed", "error", err)
		os.Exit(1)
	}
	if len(response.BatchItemFailures) > 0 {
		respJSON, _ := json.MarshalIndent(response, "", "  ")
		fmt.Fprintln(os.Stderr, string(respJSON))
	}
	logger.Info("handler execution completed",
		"records_processed", len(sqsEvent.Records),
		"failures", len(response.BatchItemFailures),
	)
}

// logLevel maps the configured level name to slog.
func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
