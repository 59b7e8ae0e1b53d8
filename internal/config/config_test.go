package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Geun-Oh/elbfilter/internal/pipeline"
	"github.com/Geun-Oh/elbfilter/internal/sink"
)

const fileConfig = `
aws_region: eu-west-1
bucket_name: alb-logs
bucket_keys:
  - AWSLogs/1/a.log.gz
  - AWSLogs/1/b.log.gz
metrics:
  addr: ":9100"
pipelines:
  - name: errors
    filter: elb_status_code in {502 503}
    output:
      type: cloudwatch_metric
      namespace: ELB/Custom
      metric_name: GatewayErrors
  - filter: user_agent contains "bot"
    output:
      type: void
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "elbfilter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvRegion, EnvPipelines, EnvBucketName, EnvBucketKeys, EnvLogLevel, EnvMetricsAddr, EnvRedisAddr} {
		t.Setenv(k, "")
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, fileConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "eu-west-1", cfg.AWSRegion)
	assert.Equal(t, "alb-logs", cfg.BucketName)
	assert.Equal(t, []string{"AWSLogs/1/a.log.gz", "AWSLogs/1/b.log.gz"}, cfg.BucketKeys)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.Equal(t, "information", cfg.LogLevel)
	assert.Equal(t, "elbfilter:pipelines", cfg.Redis.Key)

	require.Len(t, cfg.Pipelines, 2)
	assert.Equal(t, "errors", cfg.Pipelines[0].Name)
	assert.Equal(t, sink.KindCloudWatchMetric, cfg.Pipelines[0].Output.Type)
	assert.Equal(t, "pipeline-1", cfg.Pipelines[1].Name)
	assert.Equal(t, sink.KindVoid, cfg.Pipelines[1].Output.Type)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvRegion, "us-east-2")
	t.Setenv(EnvBucketName, "other")
	t.Setenv(EnvBucketKeys, "k1, k2,,k3")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvMetricsAddr, ":9200")
	t.Setenv(EnvPipelines, `[{"filter": "elb_status_code >= 500", "output": {"type": "stdout"}}]`)

	cfg, err := Load(writeConfig(t, fileConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "us-east-2", cfg.AWSRegion)
	assert.Equal(t, "other", cfg.BucketName)
	assert.Equal(t, []string{"k1", "k2", "k3"}, cfg.BucketKeys)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9200", cfg.Metrics.Addr)
	require.Len(t, cfg.Pipelines, 1)
	assert.Equal(t, "pipeline-0", cfg.Pipelines[0].Name)
	assert.Equal(t, sink.KindStdout, cfg.Pipelines[0].Output.Type)
}

func TestLoadWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPipelines, `[{"filter": "elb_status_code == 200", "output": {"type": "void"}}]`)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "pipelines: [{filter: x, output: {type: kinesis}}]"))
	assert.ErrorContains(t, err, `unknown type "kinesis"`)

	t.Setenv(EnvPipelines, "not json")
	_, err = Load("")
	assert.ErrorContains(t, err, "PIPELINES")
}

func TestValidate(t *testing.T) {
	void := sink.OutputConfig{Type: sink.KindVoid}
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"no pipelines", Config{LogLevel: "info"}, "pipelines are required"},
		{"empty filter", Config{LogLevel: "info", Pipelines: []pipeline.Config{{Output: void}}}, "pipelines[0].filter is required"},
		{"bad output", Config{LogLevel: "info", Pipelines: []pipeline.Config{{Filter: "x", Output: sink.OutputConfig{Type: sink.KindCloudWatchLog}}}}, "pipelines[0]: output: cloudwatch_log requires"},
		{"bad level", Config{LogLevel: "loud", Pipelines: []pipeline.Config{{Filter: "x", Output: void}}}, "loud"},
		{"keys without bucket", Config{LogLevel: "info", BucketKeys: []string{"k"}, Pipelines: []pipeline.Config{{Filter: "x", Output: void}}}, "bucket_name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorContains(t, tt.cfg.Validate(), tt.wantErr)
		})
	}
}

type fakeRedis struct {
	values map[string]string
	err    error
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func TestLoadPipelinesFromRedis(t *testing.T) {
	ctx := context.Background()
	client := &fakeRedis{values: map[string]string{
		"plain": `[{"name": "a", "filter": "elb_status_code == 502", "output": {"type": "void"}}]`,
		"manifest": `{"version": "3", "elbfilter": {"pipelines": [
			{"filter": "user_agent matches \"curl\"", "output": {"type": "stdout", "format": "json"}}
		]}}`,
		"broken": `{"elbfilter": `,
	}}

	got, err := LoadPipelinesFromRedis(ctx, client, "plain", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Name)

	got, err = LoadPipelinesFromRedis(ctx, client, "manifest", "elbfilter.pipelines")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, `user_agent matches "curl"`, got[0].Filter)
	assert.Equal(t, sink.FormatJSON, got[0].Output.Stdout.Format)

	_, err = LoadPipelinesFromRedis(ctx, client, "missing", "")
	assert.ErrorContains(t, err, "key missing not found")

	_, err = LoadPipelinesFromRedis(ctx, client, "manifest", "other.pipelines")
	assert.ErrorContains(t, err, `path "other.pipelines" not found`)

	_, err = LoadPipelinesFromRedis(ctx, client, "broken", "elbfilter")
	assert.ErrorContains(t, err, "not hold valid JSON")

	_, err = LoadPipelinesFromRedis(ctx, &fakeRedis{err: errors.New("connection refused")}, "plain", "")
	assert.ErrorContains(t, err, "connection refused")
}

func TestResolvePipelinesWithoutRedis(t *testing.T) {
	cfg := &Config{Pipelines: []pipeline.Config{{Name: "kept"}}}
	require.NoError(t, cfg.ResolvePipelines(context.Background()))
	assert.Equal(t, "kept", cfg.Pipelines[0].Name)
}
