package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/idwby/cpumon/internal/cache"
	"github.com/idwby/cpumon/internal/config"
	"github.com/idwby/cpumon/internal/model"
)

func testCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	f := cmd.Flags()
	f.String("config", "", "")
	f.String("broker", "", "")
	f.Int("port", 0, "")
	f.String("topic", "", "")
	f.String("profile", "", "")
	f.String("log-level", "", "")
	f.Duration("period", 0, "")
	if err := f.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd
}

func TestLoadConfigLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpumon.yaml")
	yml := "broker:\n  host: file.example\n  port: 1884\nprofile: linux\nperiod: 10s\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CPUMON_BROKER_PORT", "1885")
	t.Setenv("CPUMON_NAMESPACE", "lab")

	cfg, err := loadConfig(testCommand(t, "--config", path, "--broker", "flag.example", "--period", "2s"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Broker.Host != "flag.example" {
		t.Errorf("host = %q, flag should win", cfg.Broker.Host)
	}
	if cfg.Broker.Port != 1885 {
		t.Errorf("port = %d, env should override file", cfg.Broker.Port)
	}
	if cfg.Period != 2*time.Second {
		t.Errorf("period = %s", cfg.Period)
	}
	if got := cfg.TopicName(); got != "lab/linux/cpu" {
		t.Errorf("topic = %q", got)
	}
	// Listen is not defined on this command and must be left alone.
	if cfg.HTTP.Addr != config.Default().HTTP.Addr {
		t.Errorf("http addr = %q", cfg.HTTP.Addr)
	}
}

func TestLoadConfigRejectsUnknownProfile(t *testing.T) {
	if _, err := loadConfig(testCommand(t, "--profile", "solaris")); err == nil {
		t.Fatal("expected an error for an unknown profile")
	}
}

func TestNewLoggerLevel(t *testing.T) {
	log, err := newLogger(config.Log{Level: "warn"}, filepath.Join(t.TempDir(), "cpumon.log"))
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	if log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug should be disabled at warn level")
	}
	if _, err := newLogger(config.Log{Level: "loud"}, ""); err == nil {
		t.Error("expected an error for a bad level")
	}
}

func TestLocalPipelineFillsCache(t *testing.T) {
	if testing.Short() {
		t.Skip("samples the real host")
	}
	cfg := config.Default()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := cache.New(time.Now())
	changed := c.Changed()
	sub, closeFn, err := startSubscription(ctx, cfg, c, true, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("startSubscription: %v", err)
	}
	defer closeFn()

	select {
	case <-changed:
	case <-time.After(10 * time.Second):
		t.Fatal("no snapshot arrived from the local publisher")
	}
	if a, r := sub.Counts(); a == 0 || r != 0 {
		t.Errorf("counts: accepted=%d rejected=%d", a, r)
	}
	got := c.Latest()
	if got.System != model.SystemGeneric {
		t.Errorf("system = %q", got.System)
	}
	if got.TemperatureC < cfg.Probe.MinCelsius || got.TemperatureC > cfg.Probe.MaxCelsius {
		t.Errorf("temperature %v outside probe window", got.TemperatureC)
	}
}

func TestSampleReportsSnapshotTemperature(t *testing.T) {
	if testing.Short() {
		t.Skip("samples the real host")
	}
	cmd := testCommand(t)
	cmd.Flags().Bool("probe", true, "")
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetContext(context.Background())

	if err := runSample(cmd, nil); err != nil {
		t.Fatalf("runSample: %v", err)
	}
	snap, err := model.Decode(stdout.Bytes(), time.Now())
	if err != nil {
		t.Fatalf("decode output: %v\n%s", err, stdout.String())
	}
	want := fmt.Sprintf("temperature %.1f°C from ", snap.TemperatureC)
	if !strings.HasPrefix(stderr.String(), want) {
		t.Errorf("stderr = %q, want prefix %q", stderr.String(), want)
	}
}
