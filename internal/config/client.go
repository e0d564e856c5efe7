package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ClientConfig is the complete configuration for the transport client.
type ClientConfig struct {
	UpstreamAddr            string        `yaml:"upstream_addr"`
	ServerFQDN              string        `yaml:"server_fqdn"`
	TrustRootPath           string        `yaml:"trust_root_path"`
	MetricsCollectorURL     string        `yaml:"metrics_collector_url"`
	PluginManifests         []string      `yaml:"plugin_manifests"`
	ReplicatorCacheCapacity int           `yaml:"replicator_cache_capacity"`
	BusCapacities           BusCapacities `yaml:"bus_capacities"`
	Logging                 LoggingInfo   `yaml:"logging"`

	// MaxFrameBytes is a human-readable size ("32mb") bounding a single
	// incoming record frame the demux loop will accept before rejecting
	// the connection; empty means protocol.MaxFrameLen. validate()
	// resolves it into MaxFrameBytesRaw, which transport.Client reads.
	MaxFrameBytes    string `yaml:"max_frame_bytes"`
	MaxFrameBytesRaw int64  `yaml:"-"`
}

// LoadClientConfig reads and validates the client's YAML config file.
func LoadClientConfig(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading client config: %w", err)
	}

	var cfg ClientConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing client config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating client config: %w", err)
	}

	return &cfg, nil
}

func (c *ClientConfig) validate() error {
	if c.UpstreamAddr == "" {
		return fmt.Errorf("upstream_addr is required")
	}
	if c.ServerFQDN == "" {
		return fmt.Errorf("server_fqdn is required")
	}
	if c.TrustRootPath == "" {
		return fmt.Errorf("trust_root_path is required")
	}

	if c.ReplicatorCacheCapacity <= 0 {
		c.ReplicatorCacheCapacity = 4096
	}

	maxFrameBytes, err := resolveMaxFrameBytes(c.MaxFrameBytes)
	if err != nil {
		return err
	}
	c.MaxFrameBytesRaw = maxFrameBytes

	c.BusCapacities.setDefaults()
	c.Logging.setDefaults()

	return nil
}
