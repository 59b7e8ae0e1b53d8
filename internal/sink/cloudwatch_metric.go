package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/Geun-Oh/elbfilter/internal/record"
)

// CloudWatchMetricCapacity is the number of data points sent per
// PutMetricData call.
const CloudWatchMetricCapacity = 20

// ErrNoTargetGroup is returned for records whose request never reached a
// target group; they cannot carry the TargetGroup dimension.
var ErrNoTargetGroup = errors.New("record has no target group")

// MetricsAPI is the subset of the CloudWatch client the metric sink uses.
type MetricsAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetric publishes one Count data point per record, dimensioned
// by target group and load balancer and stamped with the request creation
// time.
type CloudWatchMetric struct {
	client     MetricsAPI
	namespace  string
	metricName string
}

// NewCloudWatchMetric creates a metric deliverer.
func NewCloudWatchMetric(client MetricsAPI, namespace, metricName string) *CloudWatchMetric {
	return &CloudWatchMetric{
		client:     client,
		namespace:  namespace,
		metricName: metricName,
	}
}

// Deliver sends the batch in a single PutMetricData call.
func (m *CloudWatchMetric) Deliver(ctx context.Context, batch []record.Record) error {
	data := make([]types.MetricDatum, 0, len(batch))
	for i := range batch {
		d, err := m.datum(&batch[i])
		if err != nil {
			return fmt.Errorf("convert record to metric: %w", err)
		}
		data = append(data, d)
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("put metric data to %s: %w", m.namespace, err)
	}
	return nil
}

func (m *CloudWatchMetric) datum(r *record.Record) (types.MetricDatum, error) {
	tg, ok := r.TargetGroupName()
	if !ok {
		return types.MetricDatum{}, fmt.Errorf("%w: %q", ErrNoTargetGroup, r.TargetGroupARN)
	}
	return types.MetricDatum{
		MetricName: aws.String(m.metricName),
		Dimensions: []types.Dimension{
			{Name: aws.String("TargetGroup"), Value: aws.String(tg)},
			{Name: aws.String("LoadBalancer"), Value: aws.String(r.ELB)},
		},
		Value:     aws.Float64(1),
		Unit:      types.StandardUnitCount,
		Timestamp: aws.Time(r.RequestCreationTime),
	}, nil
}
