// Package pipeline routes decoded access-log records through compiled
// filters into their sinks.
package pipeline

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Geun-Oh/elbfilter/internal/filter"
	"github.com/Geun-Oh/elbfilter/internal/sink"
)

// Config is one configured pipeline: a filter expression and the output
// that receives the records it matches.
type Config struct {
	Name   string            `yaml:"name,omitempty"`
	Filter string            `yaml:"filter"`
	Output sink.OutputConfig `yaml:"output"`
}

// ParseConfigs decodes an ordered list of pipelines. The document may be
// YAML or JSON. Pipelines without a name are called pipeline-<index>.
func ParseConfigs(data []byte) ([]Config, error) {
	var configs []Config
	if err := yaml.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("pipeline: parse configs: %w", err)
	}
	if len(configs) == 0 {
		return nil, errors.New("pipeline: no pipelines configured")
	}
	for i := range configs {
		if configs[i].Name == "" {
			configs[i].Name = fmt.Sprintf("pipeline-%d", i)
		}
	}
	return configs, nil
}

// Compiled pairs a Config with its compiled filter.
type Compiled struct {
	Config
	Predicate *filter.Predicate
}

// Compile compiles every pipeline filter against scheme. The first failure
// is returned, naming the pipeline it belongs to.
func Compile(scheme *filter.Scheme, configs []Config) ([]Compiled, error) {
	out := make([]Compiled, 0, len(configs))
	for i, c := range configs {
		if c.Name == "" {
			c.Name = fmt.Sprintf("pipeline-%d", i)
		}
		p, err := filter.Compile(scheme, c.Filter)
		if err != nil {
			return nil, fmt.Errorf("pipeline %d (%s): %w", i, c.Name, err)
		}
		out = append(out, Compiled{Config: c, Predicate: p})
	}
	return out, nil
}

// Kinds returns the distinct output kinds used by configs, in first-use
// order. Callers use it to create only the clients they need.
func Kinds(configs []Config) []sink.Kind {
	var kinds []sink.Kind
	seen := make(map[sink.Kind]bool)
	for _, c := range configs {
		if !seen[c.Output.Type] {
			seen[c.Output.Type] = true
			kinds = append(kinds, c.Output.Type)
		}
	}
	return kinds
}
