// Package publisher samples the host on a fixed period and publishes each
// snapshot to the broker.
package publisher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/idwby/cpumon/internal/broker"
	"github.com/idwby/cpumon/internal/model"
)

// DefaultPeriod is the publish interval when none is configured.
const DefaultPeriod = 5 * time.Second

// Sampler produces one snapshot per call.
type Sampler interface {
	Sample(ctx context.Context) model.Snapshot
}

// Publisher runs sample → encode → publish once per period. Each tick is
// independent: a failure is logged and the next tick tries again.
type Publisher struct {
	sampler Sampler
	client  broker.Client
	topic   string
	period  time.Duration
	log     *zap.Logger
}

func New(s Sampler, client broker.Client, topic string, period time.Duration, log *zap.Logger) *Publisher {
	if period <= 0 {
		period = DefaultPeriod
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{
		sampler: s,
		client:  client,
		topic:   topic,
		period:  period,
		log:     log.With(zap.String("topic", topic)),
	}
}

// Run publishes immediately and then on every tick until ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.period)
	defer ticker.Stop()

	p.tickLogged(ctx)
	for {
		select {
		case <-ticker.C:
			p.tickLogged(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Publisher) tickLogged(ctx context.Context) {
	snap, err := p.Tick(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.log.Warn("publish failed", zap.Error(err))
		return
	}
	fields := []zap.Field{
		zap.Float64("cpu_usage", snap.CPUUsage),
		zap.Float64("cpu_temperature", snap.TemperatureC),
		zap.Float64("memory_usage", snap.MemoryUsage),
		zap.Float64("disk_usage", snap.DiskUsage),
	}
	if snap.FrequencyMHz > 0 {
		fields = append(fields, zap.Float64("cpu_frequency", snap.FrequencyMHz), zap.Int("cpu_cores", snap.CoreCount))
	}
	p.log.Info("published", fields...)
}

// Tick takes one sample and publishes it, returning what was sent.
func (p *Publisher) Tick(ctx context.Context) (model.Snapshot, error) {
	snap := p.sampler.Sample(ctx).Round()
	payload, err := model.Encode(snap)
	if err != nil {
		return snap, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := p.client.Publish(ctx, p.topic, payload); err != nil {
		return snap, fmt.Errorf("publish: %w", err)
	}
	return snap, nil
}
