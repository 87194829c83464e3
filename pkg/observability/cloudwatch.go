package observability

import (
	"context"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"

	"handswers-backend/application/ports"
)

// CloudWatchAPI is the subset of the CloudWatch client used here.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Metrics handles application metrics and monitoring
type Metrics struct {
	namespace string
	client    CloudWatchAPI
	logger    *zap.Logger
}

// NewMetrics creates a new metrics instance. A nil client disables
// publishing.
func NewMetrics(namespace string, client CloudWatchAPI, logger *zap.Logger) *Metrics {
	return &Metrics{namespace: namespace, client: client, logger: logger}
}

// RecordBusinessMetric records a count-style business metric.
func (m *Metrics) RecordBusinessMetric(ctx context.Context, name string, value float64, dims map[string]string) {
	m.put(ctx, types.MetricDatum{
		MetricName: aws.String(name),
		Dimensions: dimensions(dims),
		Value:      aws.Float64(value),
		Unit:       types.StandardUnitCount,
		Timestamp:  aws.Time(time.Now()),
	})
}

// RecordLatency records latency for any operation
func (m *Metrics) RecordLatency(ctx context.Context, operation string, latency time.Duration) {
	m.put(ctx, types.MetricDatum{
		MetricName: aws.String("OperationLatency"),
		Dimensions: dimensions(map[string]string{"Operation": operation}),
		Value:      aws.Float64(float64(latency.Milliseconds())),
		Unit:       types.StandardUnitMilliseconds,
		Timestamp:  aws.Time(time.Now()),
	})
}

func (m *Metrics) put(ctx context.Context, datum types.MetricDatum) {
	if m.client == nil {
		return
	}
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: []types.MetricDatum{datum},
	})
	if err != nil {
		// Metrics never fail the request.
		m.logger.Warn("Failed to send metrics", zap.String("metric", aws.ToString(datum.MetricName)), zap.Error(err))
	}
}

func dimensions(dims map[string]string) []types.Dimension {
	if len(dims) == 0 {
		return nil
	}
	names := make([]string, 0, len(dims))
	for k := range dims {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]types.Dimension, 0, len(dims))
	for _, k := range names {
		out = append(out, types.Dimension{Name: aws.String(k), Value: aws.String(dims[k])})
	}
	return out
}

// Multi fans one metric out to several sinks.
type Multi []ports.BusinessMetrics

func (m Multi) RecordBusinessMetric(ctx context.Context, name string, value float64, dims map[string]string) {
	for _, sink := range m {
		sink.RecordBusinessMetric(ctx, name, value, dims)
	}
}

func (m Multi) RecordLatency(ctx context.Context, operation string, d time.Duration) {
	for _, sink := range m {
		sink.RecordLatency(ctx, operation, d)
	}
}

var (
	_ ports.BusinessMetrics = (*Metrics)(nil)
	_ ports.BusinessMetrics = Multi(nil)
)
