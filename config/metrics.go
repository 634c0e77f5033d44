package config

import (
	"fmt"
	"net"
)

// MetricsConfig configures the Prometheus endpoint and InfluxDB persistence.
type MetricsConfig struct {
	// PrometheusEnabled registers the Prometheus sink and serves /metrics.
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusAddr    string `json:"prometheus_addr"`

	// InfluxEnabled activates the InfluxDB sink. When the health check
	// fails the sink silently degrades to a no-op.
	InfluxEnabled bool   `json:"influx_enabled"`
	InfluxURL     string `json:"influx_url"`
	InfluxToken   string `json:"influx_token"`
	InfluxOrg     string `json:"influx_org"`
	InfluxBucket  string `json:"influx_bucket"`
}

// SetDefaults applies sane defaults.
func (c *MetricsConfig) SetDefaults() {
	if c.PrometheusAddr == "" {
		c.PrometheusAddr = ":9090"
	}
}

// Validate rejects listen addresses and influx settings that would only fail
// once the first batch is recorded.
func (c MetricsConfig) Validate() error {
	if c.PrometheusEnabled {
		if _, _, err := net.SplitHostPort(c.PrometheusAddr); err != nil {
			return fmt.Errorf("invalid prometheus_addr %q: %w", c.PrometheusAddr, err)
		}
	}
	if c.InfluxEnabled {
		if c.InfluxURL == "" || c.InfluxOrg == "" || c.InfluxBucket == "" {
			return fmt.Errorf("influx_url, influx_org and influx_bucket are required when influx is enabled")
		}
	}
	return nil
}
