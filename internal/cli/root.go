// Package cli wires configuration, logging and the pipeline components into
// the cpumon command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/idwby/cpumon/internal/broker"
	"github.com/idwby/cpumon/internal/config"
	"github.com/idwby/cpumon/internal/probe"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "cpumon",
	Short: "Publish host CPU metrics over MQTT and display the latest snapshot",
	Long: `cpumon samples CPU usage, temperature, memory and disk on one host and
publishes them to an MQTT topic. Another cpumon process subscribes to the
topic and serves the latest snapshot over HTTP or in the terminal.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("config", "", "path to a YAML config file")
	f.String("broker", "", "MQTT broker host")
	f.Int("port", 0, "MQTT broker port")
	f.String("topic", "", "topic to publish to or subscribe on (derived from profile when empty)")
	f.String("profile", "", "producer profile: generic or linux")
	f.String("log-level", "", "log level: debug, info, warn, error")
}

// Execute runs the command tree until it finishes or SIGINT/SIGTERM arrives.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "cpumon:", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig layers defaults, the config file, CPUMON_* env and flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	f := cmd.Flags()
	path, _ := f.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv(os.LookupEnv)

	if f.Changed("broker") {
		cfg.Broker.Host, _ = f.GetString("broker")
	}
	if f.Changed("port") {
		cfg.Broker.Port, _ = f.GetInt("port")
	}
	if f.Changed("topic") {
		cfg.Topic, _ = f.GetString("topic")
	}
	if f.Changed("profile") {
		cfg.Profile, _ = f.GetString("profile")
	}
	if f.Changed("log-level") {
		cfg.Log.Level, _ = f.GetString("log-level")
	}
	if f.Lookup("period") != nil && f.Changed("period") {
		cfg.Period, _ = f.GetDuration("period")
	}
	if f.Lookup("listen") != nil && f.Changed("listen") {
		cfg.HTTP.Addr, _ = f.GetString("listen")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. A non-empty outputPath redirects
// logs away from stderr.
func newLogger(c config.Log, outputPath string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if c.Level != "" {
		lvl, err := zap.ParseAtomicLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		zc.Level = lvl
	}
	if outputPath != "" {
		zc.OutputPaths = []string{outputPath}
		zc.ErrorOutputPaths = []string{outputPath}
	}
	return zc.Build()
}

func brokerOptions(cfg config.Config, log *zap.Logger) broker.Options {
	return broker.Options{
		Host:           cfg.Broker.Host,
		Port:           cfg.Broker.Port,
		ClientID:       cfg.Broker.ClientID,
		Username:       cfg.Broker.Username,
		Password:       cfg.Broker.Password,
		KeepAlive:      cfg.Broker.KeepAlive,
		ConnectTimeout: cfg.Broker.ConnectTimeout,
		QoS:            byte(cfg.Broker.QoS),
		Logger:         log,
	}
}

func probeOptions(cfg config.Config) probe.Options {
	return probe.Options{
		ThermalRoot:    cfg.Probe.ThermalRoot,
		SensorsTimeout: cfg.Probe.SensorsTimeout,
		MinCelsius:     cfg.Probe.MinCelsius,
		MaxCelsius:     cfg.Probe.MaxCelsius,
	}
}

// connectMQTT dials the broker. When the broker is not reachable within the
// connect timeout the client keeps retrying in the background, unless the
// config demands a live connection at startup.
func connectMQTT(ctx context.Context, cfg config.Config, log *zap.Logger) (*broker.MQTT, error) {
	client := broker.NewMQTT(brokerOptions(cfg, log))
	log.Info("connecting to broker", zap.String("host", cfg.Broker.Host), zap.Int("port", cfg.Broker.Port))
	if err := client.Connect(ctx); err != nil {
		if cfg.Broker.RequireConnect || ctx.Err() != nil {
			client.Close()
			return nil, err
		}
		log.Warn("broker not reachable yet, retrying in background", zap.Error(err))
	}
	return client, nil
}
