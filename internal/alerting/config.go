package alerting

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines alert delivery configuration.
type Config struct {
	WebhookURL   string        `yaml:"webhook_url"`
	Template     string        `yaml:"template"`
	Cooldown     time.Duration `yaml:"cooldown"`
	DedupeWindow time.Duration `yaml:"dedupe_window"`
}

// LoadConfig loads config from yaml or env. ALERTING_CONFIG points to a yaml
// file; ALERT_WEBHOOK_URL fills the url when the file omits it.
func LoadConfig() (Config, error) {
	cfg := Config{
		WebhookURL:   os.Getenv("ALERT_WEBHOOK_URL"),
		Cooldown:     10 * time.Minute,
		DedupeWindow: time.Hour,
	}

	if path := os.Getenv("ALERTING_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.WebhookURL == "" {
		cfg.WebhookURL = os.Getenv("ALERT_WEBHOOK_URL")
	}
	return cfg, nil
}

// Enabled reports whether alerts can be delivered at all.
func (c Config) Enabled() bool {
	return c.WebhookURL != ""
}
