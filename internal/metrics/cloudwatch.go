package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

const (
	namespace = "AWS/SageMaker"

	// DefaultPeriod is the datapoint resolution requested from CloudWatch.
	DefaultPeriod = time.Minute
)

// MetricsAPI is the subset of the CloudWatch client used to read endpoint
// invocation metrics. This allows for easy mocking in tests.
type MetricsAPI interface {
	GetMetricData(ctx context.Context, params *cloudwatch.GetMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error)
}

// NewClient creates a CloudWatch client from a shared AWS configuration.
func NewClient(cfg aws.Config, optFns ...func(*cloudwatch.Options)) *cloudwatch.Client {
	return cloudwatch.NewFromConfig(cfg, optFns...)
}

// Datapoint is one timestamped metric value.
type Datapoint struct {
	Timestamp time.Time
	Value     float64
}

// EndpointMetrics holds the invocation metrics for one endpoint variant.
type EndpointMetrics struct {
	// Invocations is the per-period sum of InvokeEndpoint calls.
	Invocations []Datapoint
	// ModelLatencyMicros is the per-period average model latency, in
	// microseconds as reported by SageMaker.
	ModelLatencyMicros []Datapoint
}

// Fetcher reads endpoint invocation metrics from CloudWatch.
type Fetcher struct {
	client MetricsAPI
	logger *zap.Logger
	period time.Duration
}

// NewFetcher creates a metrics fetcher using the given CloudWatch client.
func NewFetcher(logger *zap.Logger, client MetricsAPI) *Fetcher {
	return &Fetcher{
		client: client,
		logger: logger,
		period: DefaultPeriod,
	}
}

// EndpointMetrics fetches Invocations and ModelLatency for the endpoint
// variant between start and end.
func (f *Fetcher) EndpointMetrics(ctx context.Context, endpointName, variant string, start, end time.Time) (EndpointMetrics, error) {
	dimensions := []types.Dimension{
		{Name: aws.String("EndpointName"), Value: aws.String(endpointName)},
		{Name: aws.String("VariantName"), Value: aws.String(variant)},
	}

	input := &cloudwatch.GetMetricDataInput{
		StartTime: aws.Time(start),
		EndTime:   aws.Time(end),
		MetricDataQueries: []types.MetricDataQuery{
			f.query("invocations", "Invocations", "Sum", dimensions),
			f.query("model_latency", "ModelLatency", "Average", dimensions),
		},
	}

	f.logger.Debug("fetching endpoint metrics",
		zap.String("endpoint_name", endpointName),
		zap.String("variant", variant),
		zap.Time("start", start),
		zap.Time("end", end))

	var result EndpointMetrics
	paginator := cloudwatch.NewGetMetricDataPaginator(f.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return EndpointMetrics{}, fmt.Errorf("failed to fetch metrics for endpoint %s: %w", endpointName, err)
		}

		for _, series := range page.MetricDataResults {
			points := datapoints(series)
			switch aws.ToString(series.Id) {
			case "invocations":
				result.Invocations = append(result.Invocations, points...)
			case "model_latency":
				result.ModelLatencyMicros = append(result.ModelLatencyMicros, points...)
			}
		}
	}

	return result, nil
}

func (f *Fetcher) query(id, metricName, stat string, dimensions []types.Dimension) types.MetricDataQuery {
	return types.MetricDataQuery{
		Id: aws.String(id),
		MetricStat: &types.MetricStat{
			Metric: &types.Metric{
				Namespace:  aws.String(namespace),
				MetricName: aws.String(metricName),
				Dimensions: dimensions,
			},
			Period: aws.Int32(int32(f.period.Seconds())),
			Stat:   aws.String(stat),
		},
	}
}

func datapoints(series types.MetricDataResult) []Datapoint {
	points := make([]Datapoint, 0, len(series.Values))
	for i, value := range series.Values {
		if i >= len(series.Timestamps) {
			break
		}
		points = append(points, Datapoint{
			Timestamp: series.Timestamps[i],
			Value:     value,
		})
	}
	return points
}
