package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/idwby/cpumon/internal/model"
)

// Config carries runtime options for every cpumon role.
type Config struct {
	Broker    Broker        `yaml:"broker"`
	Profile   string        `yaml:"profile"`
	Namespace string        `yaml:"namespace"`
	Topic     string        `yaml:"topic"`
	Period    time.Duration `yaml:"period"`
	HTTP      HTTP          `yaml:"http"`
	Probe     Probe         `yaml:"probe"`
	Log       Log           `yaml:"log"`
}

type Broker struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ClientID       string        `yaml:"client_id"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	KeepAlive      time.Duration `yaml:"keep_alive"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	QoS            int           `yaml:"qos"`
	RequireConnect bool          `yaml:"require_connect"`
}

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Probe struct {
	MinCelsius     float64       `yaml:"min_celsius"`
	MaxCelsius     float64       `yaml:"max_celsius"`
	SensorsTimeout time.Duration `yaml:"sensors_timeout"`
	ThermalRoot    string        `yaml:"thermal_root"`
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func Default() Config {
	return Config{
		Broker: Broker{
			Host:           "public-mqtt-broker.bevywise.com",
			Port:           1883,
			KeepAlive:      60 * time.Second,
			ConnectTimeout: 10 * time.Second,
		},
		Profile:   "generic",
		Namespace: "idwby",
		Period:    5 * time.Second,
		HTTP:      HTTP{Addr: "0.0.0.0:8080"},
		Probe: Probe{
			MinCelsius:     20,
			MaxCelsius:     120,
			SensorsTimeout: 2 * time.Second,
			ThermalRoot:    "/sys/class/thermal",
		},
		Log: Log{Level: "info"},
	}
}

// Load reads a YAML file over the defaults. An empty path or a missing
// file yields the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv applies CPUMON_* overrides. lookup is usually os.LookupEnv.
// Unparseable values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("CPUMON_BROKER_HOST"); ok && v != "" {
		c.Broker.Host = v
	}
	if v, ok := lookup("CPUMON_BROKER_PORT"); ok {
		if p, err := strconv.Atoi(v); err == nil {
			c.Broker.Port = p
		}
	}
	if v, ok := lookup("CPUMON_BROKER_USERNAME"); ok {
		c.Broker.Username = v
	}
	if v, ok := lookup("CPUMON_BROKER_PASSWORD"); ok {
		c.Broker.Password = v
	}
	if v, ok := lookup("CPUMON_PROFILE"); ok && v != "" {
		c.Profile = v
	}
	if v, ok := lookup("CPUMON_NAMESPACE"); ok && v != "" {
		c.Namespace = v
	}
	if v, ok := lookup("CPUMON_TOPIC"); ok {
		c.Topic = v
	}
	if v, ok := lookup("CPUMON_PERIOD"); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Period = d
		} else if d, err := time.ParseDuration(v + "s"); err == nil {
			c.Period = d
		}
	}
	if v, ok := lookup("CPUMON_HTTP_ADDR"); ok && v != "" {
		c.HTTP.Addr = v
	}
	if v, ok := lookup("CPUMON_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
}

// Validate rejects settings no role can run with.
func (c Config) Validate() error {
	if _, err := model.ParseProfile(c.Profile); err != nil {
		return err
	}
	if c.Period <= 0 {
		return fmt.Errorf("period must be positive, got %s", c.Period)
	}
	if c.Broker.Host == "" {
		return errors.New("broker host is empty")
	}
	if c.Broker.Port < 1 || c.Broker.Port > 65535 {
		return fmt.Errorf("broker port %d out of range", c.Broker.Port)
	}
	if c.Broker.QoS < 0 || c.Broker.QoS > 2 {
		return fmt.Errorf("qos %d out of range", c.Broker.QoS)
	}
	if c.Probe.MinCelsius >= c.Probe.MaxCelsius {
		return fmt.Errorf("probe window [%v,%v] is empty", c.Probe.MinCelsius, c.Probe.MaxCelsius)
	}
	if c.Topic == "" && c.Namespace == "" {
		return errors.New("either topic or namespace must be set")
	}
	return nil
}

// ProducerProfile returns the parsed profile; call Validate first.
func (c Config) ProducerProfile() model.Profile {
	p, _ := model.ParseProfile(c.Profile)
	return p
}

// TopicName is the explicit topic, or the profile's topic under Namespace.
func (c Config) TopicName() string {
	if c.Topic != "" {
		return c.Topic
	}
	return c.ProducerProfile().Topic(c.Namespace)
}
