// Package config holds the incremental compilation service's typed YAML
// configuration, following the teacher repo's config layer
// (internal/config/config.go): a single struct with a DefaultConfig
// constructor and a Load that overlays a YAML file onto the defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServiceConfig holds all configuration for the compilation service.
type ServiceConfig struct {
	Cache    CacheConfig    `yaml:"cache"`
	Compiler CompilerConfig `yaml:"compiler"`
	Graph    GraphConfig    `yaml:"graph"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// CacheConfig configures the TTL+LRU compilation cache.
type CacheConfig struct {
	TTL      time.Duration `yaml:"ttl"`
	Capacity int           `yaml:"capacity"`
}

// CompilerConfig configures the default Compiler Driver Port configuration
// (spec.md section 6).
type CompilerConfig struct {
	Encoding          string   `yaml:"encoding"`
	ModernSyntax      bool     `yaml:"modern_syntax"`
	Invokedynamic     bool     `yaml:"invokedynamic"`
	PreserveGroovydoc bool     `yaml:"preserve_groovydoc"`
	ClasspathEntries  []string `yaml:"classpath_entries"`
}

// GraphConfig configures the dependency graph.
type GraphConfig struct {
	MaxTraversalDepth int `yaml:"max_traversal_depth"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// DefaultConfig returns the default configuration: 30s/100-entry cache,
// UTF-8/modern-syntax/invokedynamic/groovydoc-preserving compiler defaults
// (spec.md section 6), a 100,000-entry affected-set result cap, metrics
// disabled.
func DefaultConfig() *ServiceConfig {
	return &ServiceConfig{
		Cache: CacheConfig{
			TTL:      30 * time.Second,
			Capacity: 100,
		},
		Compiler: CompilerConfig{
			Encoding:          "UTF-8",
			ModernSyntax:      true,
			Invokedynamic:     true,
			PreserveGroovydoc: true,
		},
		Graph: GraphConfig{
			MaxTraversalDepth: 100000,
		},
		Logging: LoggingConfig{
			Debug: false,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
		},
	}
}

// Load reads a YAML file at path and overlays it onto DefaultConfig. A
// missing file is not an error; the defaults are returned unchanged.
func Load(path string) (*ServiceConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return cfg, nil
}
