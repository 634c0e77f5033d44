package config

// PricingConfig configures the downstream pricing hand-off.
type PricingConfig struct {
	// PublishEnabled sends the aggregated demand over MQTT after each run.
	PublishEnabled bool `json:"publish_enabled"`
	// Fees maps charging station intersections to the per-kWh fee used for
	// operator profit reporting.
	Fees map[int]float64 `json:"fees"`
}
