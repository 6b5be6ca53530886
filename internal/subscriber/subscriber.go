// Package subscriber feeds broker messages into the latest-snapshot cache.
package subscriber

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/idwby/cpumon/internal/broker"
	"github.com/idwby/cpumon/internal/cache"
	"github.com/idwby/cpumon/internal/model"
)

// Subscriber decodes messages from one topic and replaces the cache value
// on every good one. Bad messages are dropped and the cache keeps its value.
type Subscriber struct {
	client broker.Client
	topic  string
	cache  *cache.Cache
	log    *zap.Logger
	now    func() time.Time

	accepted atomic.Uint64
	rejected atomic.Uint64
}

func New(client broker.Client, topic string, c *cache.Cache, log *zap.Logger) *Subscriber {
	if log == nil {
		log = zap.NewNop()
	}
	return &Subscriber{
		client: client,
		topic:  topic,
		cache:  c,
		log:    log.With(zap.String("topic", topic)),
		now:    time.Now,
	}
}

// Start subscribes and returns once the subscription is registered. The
// transport keeps delivering until ctx is done or the client is closed.
func (s *Subscriber) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client.Subscribe(s.topic, s.handle); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, err)
	}
	return nil
}

func (s *Subscriber) handle(_ string, payload []byte) {
	_ = s.OnSnapshot(payload)
}

// OnSnapshot parses one payload and, if it is valid, swaps it into the cache.
func (s *Subscriber) OnSnapshot(payload []byte) error {
	snap, err := model.Decode(payload, s.now())
	if err != nil {
		s.rejected.Add(1)
		s.log.Warn("discarding message", zap.Int("bytes", len(payload)), zap.Error(err))
		return err
	}
	s.cache.Replace(snap)
	s.accepted.Add(1)
	s.log.Debug("snapshot received",
		zap.Float64("cpu_usage", snap.CPUUsage),
		zap.Float64("cpu_temperature", snap.TemperatureC),
		zap.Float64("memory_usage", snap.MemoryUsage),
	)
	return nil
}

// Counts returns how many messages were accepted and rejected so far.
func (s *Subscriber) Counts() (accepted, rejected uint64) {
	return s.accepted.Load(), s.rejected.Load()
}
