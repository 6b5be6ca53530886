package subscriber

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/idwby/cpumon/internal/broker"
	"github.com/idwby/cpumon/internal/cache"
)

const topic = "idwby/mac/cpu"

func TestEndToEnd(t *testing.T) {
	b := broker.NewMemory()
	c := cache.New(time.Now())
	s := New(b, topic, c, zaptest.NewLogger(t))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	msg := `{"cpu_usage":42.0,"cpu_temperature":47.6,"memory_usage":60.0,"timestamp":1700000000.0}`
	if err := b.Publish(context.Background(), topic, []byte(msg)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got := c.Latest()
	if got.CPUUsage != 42.0 || got.TemperatureC != 47.6 || got.MemoryUsage != 60.0 {
		t.Errorf("got %+v", got)
	}
	if got.DiskUsage != 0 || got.Timestamp != 1700000000.0 {
		t.Errorf("disk=%v timestamp=%v", got.DiskUsage, got.Timestamp)
	}
	if a, r := s.Counts(); a != 1 || r != 0 {
		t.Errorf("counts: accepted=%d rejected=%d", a, r)
	}
}

func TestMalformedKeepsPreviousValue(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := cache.New(time.Now())
	s := New(broker.NewMemory(), topic, c, zap.New(core))

	if err := s.OnSnapshot([]byte(`{"cpu_usage":12.5,"cpu_temperature":40.1,"memory_usage":20,"timestamp":5}`)); err != nil {
		t.Fatalf("OnSnapshot: %v", err)
	}
	before := c.Latest()

	bad := [][]byte{
		[]byte("not json at all"),
		{0xff, 0xfe, 0x00},
		[]byte(`[42]`),
		[]byte(`{"cpu_usage":"hot"}`),
		[]byte(`{"memory_usage":250}`),
	}
	for _, p := range bad {
		if err := s.OnSnapshot(p); err == nil {
			t.Errorf("OnSnapshot(%q) accepted", p)
		}
	}

	after := c.Latest()
	if after.CPUUsage != before.CPUUsage || after.TemperatureC != before.TemperatureC ||
		after.MemoryUsage != before.MemoryUsage || after.Timestamp != before.Timestamp {
		t.Errorf("cache changed: before %+v after %+v", before, after)
	}
	if _, r := s.Counts(); r != uint64(len(bad)) {
		t.Errorf("rejected count %d, want %d", r, len(bad))
	}
	if n := logs.FilterMessage("discarding message").Len(); n != len(bad) {
		t.Errorf("logged %d discards, want %d", n, len(bad))
	}
}

func TestIgnoresOtherTopics(t *testing.T) {
	b := broker.NewMemory()
	c := cache.New(time.Unix(1, 0))
	s := New(b, topic, c, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_ = b.Publish(context.Background(), "idwby/linux/cpu", []byte(`{"cpu_usage":99}`))
	if _, ok := c.Received(); ok {
		t.Error("message on another topic reached the cache")
	}
}

func TestStartCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(broker.NewMemory(), topic, cache.New(time.Now()), nil)
	if err := s.Start(ctx); err == nil {
		t.Error("Start with cancelled context succeeded")
	}
}
