package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig                 `yaml:"app"`
	Engine     EngineConfig              `yaml:"engine"`
	Automation AutomationConfig          `yaml:"automation"`
	Gateways   map[string]GatewayConfig  `yaml:"gateways"`
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Store      StoreConfig               `yaml:"store"`
}

type AppConfig struct {
	Name string `yaml:"name"`
}

type EngineConfig struct {
	MaxCycles            int `yaml:"max_cycles"`
	MaxAttentionRetries  int `yaml:"max_attention_retries"`
	CycleDelaySeconds    int `yaml:"cycle_delay_seconds"`
	AttentionWaitSeconds int `yaml:"attention_wait_seconds"`
}

type AutomationConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type GatewayConfig struct {
	Token     string `yaml:"token"`
	ChatID    int64  `yaml:"chat_id,omitempty"`    // telegram
	ChannelID string `yaml:"channel_id,omitempty"` // discord
	Enabled   bool   `yaml:"enabled"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
	Enabled bool   `yaml:"enabled"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %v", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %v", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "botpilot"
	}
	if c.Engine.MaxCycles == 0 {
		c.Engine.MaxCycles = 100
	}
	if c.Engine.MaxAttentionRetries == 0 {
		c.Engine.MaxAttentionRetries = 1
	}
	if c.Engine.CycleDelaySeconds == 0 {
		c.Engine.CycleDelaySeconds = 30
	}
	if c.Engine.AttentionWaitSeconds == 0 {
		c.Engine.AttentionWaitSeconds = 300
	}
	if c.Automation.TimeoutSeconds == 0 {
		c.Automation.TimeoutSeconds = 60
	}
	if c.Store.Path == "" {
		c.Store.Path = "botpilot.db"
	}
}

func (c *Config) CycleDelay() time.Duration {
	return time.Duration(c.Engine.CycleDelaySeconds) * time.Second
}

func (c *Config) AttentionWait() time.Duration {
	return time.Duration(c.Engine.AttentionWaitSeconds) * time.Second
}

func (c *Config) AutomationTimeout() time.Duration {
	return time.Duration(c.Automation.TimeoutSeconds) * time.Second
}

// GetDefaultProvider returns the first enabled provider
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// GetTelegramConfig returns telegram config if enabled
func (c *Config) GetTelegramConfig() (GatewayConfig, bool) {
	tg, ok := c.Gateways["telegram"]
	if ok && tg.Enabled && tg.Token != "" {
		return tg, true
	}
	return GatewayConfig{}, false
}

// GetDiscordConfig returns discord config if enabled
func (c *Config) GetDiscordConfig() (GatewayConfig, bool) {
	dc, ok := c.Gateways["discord"]
	if ok && dc.Enabled && dc.Token != "" {
		return dc, true
	}
	return GatewayConfig{}, false
}
