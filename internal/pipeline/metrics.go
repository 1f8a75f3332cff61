package pipeline

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"vehiclenotify/internal/types"
)

// Metric and dimension names.
const (
	metricPipelineRun  = "PipelineRun"
	metricStageLatency = "StageLatency"

	dimResult = "Result"
	dimStage  = "Stage"
)

// Outcome classifies a finished pipeline run for metrics.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFatal   Outcome = "fatal"
	OutcomeInvalid Outcome = "invalid_event"
)

// Metrics records pipeline observability signals.
type Metrics interface {
	RecordOutcome(ctx context.Context, outcome Outcome)
	RecordStageLatency(ctx context.Context, stage string, duration time.Duration)
}

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for
// testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics implements Metrics by publishing to AWS CloudWatch.
// Publish failures are logged and swallowed; metrics never fail a run.
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

// Compile-time assertion.
var _ Metrics = (*CloudWatchMetrics)(nil)

// NewCloudWatchMetrics creates a CloudWatchMetrics publishing to the given
// namespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchMetrics {
	return &CloudWatchMetrics{client: client, namespace: namespace, logger: logger}
}

// RecordOutcome emits a PipelineRun count with the Result dimension.
func (m *CloudWatchMetrics) RecordOutcome(ctx context.Context, outcome Outcome) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(metricPipelineRun),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					{
						Name:  aws.String(dimResult),
						Value: aws.String(string(outcome)),
					},
				},
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record pipeline outcome metric",
			"error", err.Error(),
			"outcome", string(outcome),
		)
	}
}

// RecordStageLatency emits a per-stage latency in milliseconds.
func (m *CloudWatchMetrics) RecordStageLatency(ctx context.Context, stage string, duration time.Duration) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(metricStageLatency),
				Value:      aws.Float64(float64(duration.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
				Dimensions: []cwtypes.Dimension{
					{
						Name:  aws.String(dimStage),
						Value: aws.String(stage),
					},
				},
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record stage latency metric",
			"error", err.Error(),
			"stage", stage,
			"duration_ms", duration.Milliseconds(),
		)
	}
}

// NopMetrics discards all metrics. Used by tests and the event-runner tool.
type NopMetrics struct{}

// Compile-time assertion.
var _ Metrics = NopMetrics{}

// RecordOutcome implements Metrics.
func (NopMetrics) RecordOutcome(context.Context, Outcome) {}

// RecordStageLatency implements Metrics.
func (NopMetrics) RecordStageLatency(context.Context, string, time.Duration) {}
