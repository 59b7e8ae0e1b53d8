package sink

import (
	"errors"
	"fmt"
	"io"

	"github.com/willibrandon/mtlog/core"
	"gopkg.in/yaml.v3"

	"github.com/Geun-Oh/elbfilter/internal/monitor"
)

// Kind discriminates the output variants.
type Kind string

const (
	KindCloudWatchMetric Kind = "cloudwatch_metric"
	KindCloudWatchLog    Kind = "cloudwatch_log"
	KindStdout           Kind = "stdout"
	KindVoid             Kind = "void"
)

// CloudWatchMetricConfig configures a cloudwatch_metric output.
type CloudWatchMetricConfig struct {
	Namespace  string `yaml:"namespace"`
	MetricName string `yaml:"metric_name"`
}

// CloudWatchLogConfig configures a cloudwatch_log output.
type CloudWatchLogConfig struct {
	GroupName        string `yaml:"group_name"`
	StreamNamePrefix string `yaml:"stream_name_prefix"`
}

// StdoutConfig configures a stdout output.
type StdoutConfig struct {
	Format string `yaml:"format,omitempty"`
}

// OutputConfig is the tagged union of output settings. Exactly the field
// matching Type is set.
type OutputConfig struct {
	Type             Kind
	CloudWatchMetric *CloudWatchMetricConfig
	CloudWatchLog    *CloudWatchLogConfig
	Stdout           *StdoutConfig
}

// UnmarshalYAML decodes {"type": ..., <variant fields>}. JSON documents are
// valid YAML, so this also serves pipeline lists given as JSON.
func (o *OutputConfig) UnmarshalYAML(n *yaml.Node) error {
	var head struct {
		Type Kind `yaml:"type"`
	}
	if err := n.Decode(&head); err != nil {
		return err
	}
	*o = OutputConfig{Type: head.Type}

	switch head.Type {
	case KindCloudWatchMetric:
		o.CloudWatchMetric = &CloudWatchMetricConfig{}
		if err := n.Decode(o.CloudWatchMetric); err != nil {
			return err
		}
	case KindCloudWatchLog:
		o.CloudWatchLog = &CloudWatchLogConfig{}
		if err := n.Decode(o.CloudWatchLog); err != nil {
			return err
		}
	case KindStdout:
		o.Stdout = &StdoutConfig{}
		if err := n.Decode(o.Stdout); err != nil {
			return err
		}
	case KindVoid:
	case "":
		return fmt.Errorf("output: line %d: missing type", n.Line)
	default:
		return fmt.Errorf("output: line %d: unknown type %q", n.Line, head.Type)
	}
	return o.Validate()
}

// MarshalYAML flattens the variant back next to its type.
func (o OutputConfig) MarshalYAML() (any, error) {
	out := map[string]string{"type": string(o.Type)}
	switch {
	case o.CloudWatchMetric != nil:
		out["namespace"] = o.CloudWatchMetric.Namespace
		out["metric_name"] = o.CloudWatchMetric.MetricName
	case o.CloudWatchLog != nil:
		out["group_name"] = o.CloudWatchLog.GroupName
		out["stream_name_prefix"] = o.CloudWatchLog.StreamNamePrefix
	case o.Stdout != nil && o.Stdout.Format != "":
		out["format"] = o.Stdout.Format
	}
	return out, nil
}

// Validate checks the variant's required settings.
func (o *OutputConfig) Validate() error {
	switch o.Type {
	case KindCloudWatchMetric:
		c := o.CloudWatchMetric
		if c == nil || c.Namespace == "" || c.MetricName == "" {
			return errors.New("output: cloudwatch_metric requires namespace and metric_name")
		}
	case KindCloudWatchLog:
		c := o.CloudWatchLog
		if c == nil || c.GroupName == "" || c.StreamNamePrefix == "" {
			return errors.New("output: cloudwatch_log requires group_name and stream_name_prefix")
		}
	case KindStdout:
		if o.Stdout != nil {
			switch o.Stdout.Format {
			case "", FormatLog, FormatJSON:
			default:
				return fmt.Errorf("output: stdout format must be %q or %q, got %q", FormatLog, FormatJSON, o.Stdout.Format)
			}
		}
	case KindVoid:
	default:
		return fmt.Errorf("output: unknown type %q", o.Type)
	}
	return nil
}

// Env carries the shared collaborators sinks are built with. Clients are
// only required for the kinds that use them.
type Env struct {
	Logger         core.Logger
	Metrics        *monitor.Metrics
	Stdout         io.Writer
	CloudWatch     MetricsAPI
	CloudWatchLogs LogsAPI
}

// Build creates the sink for one output.
func Build(name string, cfg OutputConfig, env Env) (*Buffered, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := []Option{WithLogger(env.Logger), WithMetrics(env.Metrics)}

	switch cfg.Type {
	case KindCloudWatchMetric:
		if env.CloudWatch == nil {
			return nil, fmt.Errorf("output %s: no CloudWatch client configured", name)
		}
		d := NewCloudWatchMetric(env.CloudWatch, cfg.CloudWatchMetric.Namespace, cfg.CloudWatchMetric.MetricName)
		return NewBuffered(name, CloudWatchMetricCapacity, d, opts...), nil

	case KindCloudWatchLog:
		if env.CloudWatchLogs == nil {
			return nil, fmt.Errorf("output %s: no CloudWatch Logs client configured", name)
		}
		d := NewCloudWatchLog(env.CloudWatchLogs, cfg.CloudWatchLog.GroupName, cfg.CloudWatchLog.StreamNamePrefix, env.Logger)
		return NewBuffered(name, CloudWatchLogCapacity, d, opts...), nil

	case KindStdout:
		format := ""
		if cfg.Stdout != nil {
			format = cfg.Stdout.Format
		}
		d, err := NewStdout(env.Stdout, format)
		if err != nil {
			return nil, err
		}
		return NewBuffered(name, StdoutCapacity, d, opts...), nil

	default: // KindVoid
		return NewBuffered(name, VoidCapacity, &Void{}, opts...), nil
	}
}
