// Package config loads the application configuration: a YAML file, then
// environment overrides, then (optionally) pipelines stored in Redis.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Geun-Oh/elbfilter/internal/logging"
	"github.com/Geun-Oh/elbfilter/internal/pipeline"
)

// Environment variables read by Load.
const (
	EnvRegion      = "AWS_REGION"
	EnvPipelines   = "PIPELINES"
	EnvBucketName  = "BUCKET_NAME"
	EnvBucketKeys  = "BUCKET_KEYS"
	EnvLogLevel    = "LOG_LEVEL"
	EnvMetricsAddr = "METRICS_ADDR"
	EnvRedisAddr   = "REDIS_ADDR"
)

type Config struct {
	AWSRegion  string            `yaml:"aws_region"`
	BucketName string            `yaml:"bucket_name"`
	BucketKeys []string          `yaml:"bucket_keys"`
	Pipelines  []pipeline.Config `yaml:"pipelines"`
	LogLevel   string            `yaml:"log_level"`
	Metrics    MetricsConfig     `yaml:"metrics"`
	Redis      RedisConfig       `yaml:"redis"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// RedisConfig points at a JSON pipeline list held in Redis. Path, when
// set, is a gjson path selecting the list inside a larger document.
type RedisConfig struct {
	Addr string `yaml:"addr"`
	Key  string `yaml:"key"`
	Path string `yaml:"path"`
}

// Load reads the file at path, if any, and applies environment overrides
// and defaults. The result is not validated; call Validate once every
// override has been applied.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvRegion); ok && v != "" {
		c.AWSRegion = v
	}
	if v, ok := lookup(EnvBucketName); ok && v != "" {
		c.BucketName = v
	}
	if v, ok := lookup(EnvBucketKeys); ok && v != "" {
		c.BucketKeys = splitList(v)
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvMetricsAddr); ok && v != "" {
		c.Metrics.Addr = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		c.Redis.Addr = v
	}
	if v, ok := lookup(EnvPipelines); ok && strings.TrimSpace(v) != "" {
		pipelines, err := pipeline.ParseConfigs([]byte(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPipelines, err)
		}
		c.Pipelines = pipelines
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "information"
	}
	if c.Redis.Key == "" {
		c.Redis.Key = "elbfilter:pipelines"
	}
	for i := range c.Pipelines {
		if c.Pipelines[i].Name == "" {
			c.Pipelines[i].Name = fmt.Sprintf("pipeline-%d", i)
		}
	}
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if len(c.Pipelines) == 0 {
		return errors.New("pipelines are required (set pipelines, PIPELINES or redis.addr)")
	}
	for i, p := range c.Pipelines {
		if strings.TrimSpace(p.Filter) == "" {
			return fmt.Errorf("pipelines[%d].filter is required", i)
		}
		if err := p.Output.Validate(); err != nil {
			return fmt.Errorf("pipelines[%d]: %w", i, err)
		}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if len(c.BucketKeys) > 0 && c.BucketName == "" {
		return errors.New("bucket_name is required when bucket_keys are set")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
