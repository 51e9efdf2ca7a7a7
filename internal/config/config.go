package config

import (
	"encoding/json"
	"os"
)

// Create new config instance
func NewConfig() *Config {
	return &Config{}
}

// Load configuration file in json format
func (c *Config) Read(file string) error {
	data, err := os.ReadFile(file)
	if err == nil {
		_ = json.Unmarshal(data, c)
	}
	return err
}

// ApplyEnv overlays environment variables on top of the file values.
// BASE_URL is the only one the deployment is expected to set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("BASE_URL"); v != "" {
		c.Webhook.BaseURL = v
	}
}
