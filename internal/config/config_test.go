package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.TopicName() != "idwby/mac/cpu" {
		t.Errorf("topic: %q", cfg.TopicName())
	}
	if cfg.Period != 5*time.Second || cfg.Broker.Port != 1883 {
		t.Errorf("period=%s port=%d", cfg.Period, cfg.Broker.Port)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cpumon.yaml")
	data := `
broker:
  host: mqtt.local
  port: 8883
  keep_alive: 30s
profile: linux
period: 2s
probe:
  min_celsius: 10
  sensors_timeout: 500ms
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Broker.Host != "mqtt.local" || cfg.Broker.Port != 8883 || cfg.Broker.KeepAlive != 30*time.Second {
		t.Errorf("broker: %+v", cfg.Broker)
	}
	if cfg.Period != 2*time.Second || cfg.Probe.SensorsTimeout != 500*time.Millisecond {
		t.Errorf("durations: period=%s sensors=%s", cfg.Period, cfg.Probe.SensorsTimeout)
	}
	if cfg.Probe.MinCelsius != 10 || cfg.Probe.MaxCelsius != 120 {
		t.Errorf("probe window: %+v", cfg.Probe)
	}
	if cfg.TopicName() != "idwby/linux/cpu" {
		t.Errorf("topic: %q", cfg.TopicName())
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Broker.Host != Default().Broker.Host {
		t.Errorf("expected defaults, got %+v", cfg.Broker)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("broker: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CPUMON_BROKER_HOST": "10.0.0.5",
		"CPUMON_BROKER_PORT": "1884",
		"CPUMON_PROFILE":     "linux",
		"CPUMON_PERIOD":      "7",
		"CPUMON_TOPIC":       "lab/rack1/cpu",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if cfg.Broker.Host != "10.0.0.5" || cfg.Broker.Port != 1884 {
		t.Errorf("broker: %+v", cfg.Broker)
	}
	if cfg.Period != 7*time.Second {
		t.Errorf("period: %s", cfg.Period)
	}
	if cfg.TopicName() != "lab/rack1/cpu" {
		t.Errorf("topic: %q", cfg.TopicName())
	}
	if cfg.ProducerProfile().System != "linux" {
		t.Errorf("profile: %+v", cfg.ProducerProfile())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad profile", func(c *Config) { c.Profile = "bsd" }},
		{"zero period", func(c *Config) { c.Period = 0 }},
		{"port", func(c *Config) { c.Broker.Port = 70000 }},
		{"qos", func(c *Config) { c.Broker.QoS = 3 }},
		{"window", func(c *Config) { c.Probe.MinCelsius = 130 }},
		{"no host", func(c *Config) { c.Broker.Host = "" }},
		{"no topic", func(c *Config) { c.Namespace = ""; c.Topic = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
