// Package broker carries snapshot messages between processes. MQTT is the
// production transport; Memory runs publisher and subscriber in one process.
package broker

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotConnected = errors.New("broker: not connected")
	ErrTimeout      = errors.New("broker: timed out")
	ErrClosed       = errors.New("broker: closed")
)

// Handler receives one inbound message. It runs on the transport's delivery
// goroutine and must not block.
type Handler func(topic string, payload []byte)

// Client is the publish/subscribe surface the rest of the module uses.
// Delivery is best-effort: Publish does not wait for acknowledgement.
type Client interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(topic string, h Handler) error
	Close()
}

// Match reports whether topic matches an MQTT filter using + and # wildcards.
func Match(filter, topic string) bool {
	if filter == topic {
		return true
	}
	fs := strings.Split(filter, "/")
	ts := strings.Split(topic, "/")
	for i, f := range fs {
		if f == "#" {
			return i == len(fs)-1
		}
		if i >= len(ts) {
			return false
		}
		if f != "+" && f != ts[i] {
			return false
		}
	}
	return len(fs) == len(ts)
}
