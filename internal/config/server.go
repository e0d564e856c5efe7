// Package config loads and validates the YAML configuration files for the
// ample transport server and client, following the same Load*+private
// validate() shape as the teacher's internal/config package: unmarshal,
// then default-and-range-check in one pass.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig is the complete configuration for the transport server.
type ServerConfig struct {
	BindAddr            string                `yaml:"bind_addr"`
	Transport           TransportOpts         `yaml:"transport_opts"`
	TransportCfg        TransportModeCfg      `yaml:"transport_cfg"`
	UseAccountCoalescer bool                  `yaml:"use_account_coalescer"`
	AccountCoalescerUs  int64                 `yaml:"account_coalescer_duration_us"`
	BusCapacities       BusCapacities         `yaml:"bus_capacities"`
	ResourceMonitor     ResourceMonitorConfig `yaml:"resource_monitor"`
	Logging             LoggingInfo           `yaml:"logging"`
}

// TransportOpts names the server's certificate material.
type TransportOpts struct {
	CertPath string `yaml:"cert_path"`
	KeyPath  string `yaml:"key_path"`
	FQDN     string `yaml:"fqdn"`
}

// TransportModeCfg selects the stream compressor. The two booleans are
// mutually exclusive; neither set means no compression.
type TransportModeCfg struct {
	UseLz4Compression  bool `yaml:"use_lz4_compression"`
	UseZstdCompression bool `yaml:"use_zstd_compression"`
}

// ResourceMonitorConfig toggles the CPU/memory sampling goroutine. Enabled
// defaults to true when absent from the YAML; to disable it an operator
// must write `enabled: false` explicitly, the same nil-pointer-means-unset
// trick the teacher uses for chunk_buffer.drain_ratio.
type ResourceMonitorConfig struct {
	Enabled        *bool         `yaml:"enabled"`
	SampleInterval time.Duration `yaml:"sample_interval"`
}

// IsEnabled reports whether the resource monitor should run.
func (r ResourceMonitorConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// LoadServerConfig reads and validates the server's YAML config file.
func LoadServerConfig(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading server config: %w", err)
	}

	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating server config: %w", err)
	}

	return &cfg, nil
}

func (c *ServerConfig) validate() error {
	if c.BindAddr == "" {
		return fmt.Errorf("bind_addr is required")
	}
	if c.Transport.CertPath == "" {
		return fmt.Errorf("transport_opts.cert_path is required")
	}
	if c.Transport.KeyPath == "" {
		return fmt.Errorf("transport_opts.key_path is required")
	}
	if c.Transport.FQDN == "" {
		return fmt.Errorf("transport_opts.fqdn is required")
	}
	if c.TransportCfg.UseLz4Compression && c.TransportCfg.UseZstdCompression {
		return fmt.Errorf("transport_cfg.use_lz4_compression and use_zstd_compression are mutually exclusive")
	}

	if c.UseAccountCoalescer && c.AccountCoalescerUs < 0 {
		return fmt.Errorf("account_coalescer_duration_us must be >= 0, got %d", c.AccountCoalescerUs)
	}

	c.BusCapacities.setDefaults()

	if c.ResourceMonitor.SampleInterval <= 0 {
		c.ResourceMonitor.SampleInterval = 5 * time.Second
	}

	c.Logging.setDefaults()

	return nil
}

// CoalesceDuration converts AccountCoalescerUs to a time.Duration.
func (c *ServerConfig) CoalesceDuration() time.Duration {
	return time.Duration(c.AccountCoalescerUs) * time.Microsecond
}
