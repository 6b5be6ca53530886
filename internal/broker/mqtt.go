package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configures the MQTT connection.
type Options struct {
	Host           string
	Port           int
	ClientID       string // generated when empty
	Username       string
	Password       string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	QoS            byte
	Logger         *zap.Logger
}

// URL returns the broker address in paho's scheme://host:port form.
func (o Options) URL() string {
	return fmt.Sprintf("tcp://%s:%d", o.Host, o.Port)
}

// MQTT is a Client backed by paho. The connection retries and reconnects on
// its own; subscriptions are re-issued every time a connection comes up.
type MQTT struct {
	client mqtt.Client
	opts   Options
	log    *zap.Logger

	mu   sync.Mutex
	subs map[string]Handler
}

// NewMQTT prepares a client without connecting.
func NewMQTT(opts Options) *MQTT {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ClientID == "" {
		opts.ClientID = "cpumon-" + uuid.NewString()[:8]
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 60 * time.Second
	}
	m := &MQTT{
		opts: opts,
		log:  opts.Logger.With(zap.String("broker", opts.URL()), zap.String("client_id", opts.ClientID)),
		subs: make(map[string]Handler),
	}

	co := mqtt.NewClientOptions().
		AddBroker(opts.URL()).
		SetClientID(opts.ClientID).
		SetKeepAlive(opts.KeepAlive).
		SetConnectTimeout(opts.ConnectTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(time.Minute).
		SetOnConnectHandler(m.onConnect).
		SetConnectionLostHandler(m.onConnectionLost).
		SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
			m.log.Info("reconnecting")
		})
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}
	m.client = mqtt.NewClient(co)
	return m
}

// Connect starts the connection and waits up to ConnectTimeout (or ctx) for
// it to come up. On ErrTimeout the client keeps retrying in the background.
func (m *MQTT) Connect(ctx context.Context) error {
	tok := m.client.Connect()
	timer := time.NewTimer(m.opts.ConnectTimeout)
	defer timer.Stop()
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return fmt.Errorf("connect %s: %w", m.opts.URL(), err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("connect %s: %w", m.opts.URL(), ErrTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MQTT) onConnect(c mqtt.Client) {
	m.log.Info("connected")
	m.mu.Lock()
	subs := make(map[string]Handler, len(m.subs))
	for k, v := range m.subs {
		subs[k] = v
	}
	m.mu.Unlock()
	// must not block the paho callback goroutine on acks
	for filter, h := range subs {
		go m.subscribe(filter, h)
	}
}

func (m *MQTT) onConnectionLost(_ mqtt.Client, err error) {
	m.log.Warn("connection lost", zap.Error(err))
}

// Publish hands payload to paho and returns without waiting for the broker.
// A failed delivery is logged once the token settles.
func (m *MQTT) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !m.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	tok := m.client.Publish(topic, m.opts.QoS, false, payload)
	go func() {
		if !tok.WaitTimeout(m.opts.ConnectTimeout) {
			m.log.Warn("publish not acknowledged", zap.String("topic", topic))
			return
		}
		if err := tok.Error(); err != nil {
			m.log.Warn("publish failed", zap.String("topic", topic), zap.Error(err))
		}
	}()
	return nil
}

// Subscribe registers h for filter. The subscription is issued now when
// connected and again after every reconnect.
func (m *MQTT) Subscribe(filter string, h Handler) error {
	m.mu.Lock()
	m.subs[filter] = h
	m.mu.Unlock()
	if !m.client.IsConnectionOpen() {
		return nil
	}
	return m.subscribe(filter, h)
}

func (m *MQTT) subscribe(filter string, h Handler) error {
	tok := m.client.Subscribe(filter, m.opts.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		h(msg.Topic(), msg.Payload())
	})
	if !tok.WaitTimeout(m.opts.ConnectTimeout) {
		m.log.Warn("subscribe not acknowledged", zap.String("topic", filter))
		return fmt.Errorf("subscribe %s: %w", filter, ErrTimeout)
	}
	if err := tok.Error(); err != nil {
		m.log.Warn("subscribe failed", zap.String("topic", filter), zap.Error(err))
		return fmt.Errorf("subscribe %s: %w", filter, err)
	}
	m.log.Info("subscribed", zap.String("topic", filter))
	return nil
}

// Close disconnects, giving in-flight work a short grace period.
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
