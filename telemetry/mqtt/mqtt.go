// Package mqtt publishes fleet telemetry to an MQTT broker.
//
// Device state snapshots are serialized as JSON and published to retained
// topics in the format "{prefix}/{fleet}/device/{id}" on a fixed interval,
// so ground-side dashboards can watch the fleet without linking this
// library. The publisher is a pure observer: it reads snapshots and never
// touches the serial wire.
package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/owl-uav/owlink/device"
)

const (
	// DefaultTopicPrefix is the default MQTT topic prefix for fleet telemetry.
	DefaultTopicPrefix = "owlink"

	// DefaultPublishInterval is the default snapshot publish cadence.
	DefaultPublishInterval = time.Second
)

// SnapshotSource yields the current state of every registered device.
// *fleet.Manager satisfies it.
type SnapshotSource interface {
	Devices() []*device.Device
}

// Config holds the configuration for a telemetry publisher.
type Config struct {
	// Broker is the MQTT broker URL (e.g., "tcp://broker.example.com:1883").
	Broker string
	// Username for MQTT authentication. Leave empty if not required.
	Username string
	// Password for MQTT authentication. Leave empty if not required.
	Password string
	// UseTLS enables TLS for the MQTT connection.
	UseTLS bool
	// ClientID is the MQTT client identifier. If empty, a random one is generated.
	ClientID string
	// TopicPrefix is the MQTT topic prefix (default: "owlink").
	TopicPrefix string
	// FleetID names this fleet in the topic hierarchy (e.g., "field-test-2").
	FleetID string
	// PublishInterval is the snapshot cadence. Defaults to one second.
	PublishInterval time.Duration
	// Logger is the logger to use. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Publisher periodically publishes device snapshots to the broker.
type Publisher struct {
	cfg    Config
	source SnapshotSource
	log    *slog.Logger

	mu        sync.Mutex
	client    paho.Client
	connected bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a telemetry publisher reading from the given source.
func New(cfg Config, source SnapshotSource) *Publisher {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = DefaultPublishInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Publisher{
		cfg:    cfg,
		source: source,
		log:    cfg.Logger.WithGroup("mqtt"),
	}
}

// Start connects to the broker and begins the publish loop.
func (p *Publisher) Start(ctx context.Context) error {
	if p.cfg.Broker == "" {
		return errors.New("broker URL is required")
	}
	if p.cfg.FleetID == "" {
		return errors.New("fleet ID is required")
	}

	clientID := p.cfg.ClientID
	if clientID == "" {
		clientID = "owlink-" + randomString(16)
	}

	opts := paho.NewClientOptions().
		AddBroker(p.cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(2 * time.Minute).
		SetKeepAlive(60 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetCleanSession(true).
		SetOrderMatters(false).
		SetOnConnectHandler(p.onConnected).
		SetConnectionLostHandler(p.onConnectionLost)

	if p.cfg.Username != "" {
		opts.SetUsername(p.cfg.Username)
	}
	if p.cfg.Password != "" {
		opts.SetPassword(p.cfg.Password)
	}
	if p.cfg.UseTLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
		})
	}

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		return errors.New("connection timeout")
	}
	if token.Error() != nil {
		return fmt.Errorf("connecting to broker: %w", token.Error())
	}

	loopCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	p.client = client
	p.cancel = cancel
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go p.publishLoop(loopCtx, done)
	return nil
}

// Stop halts the publish loop and disconnects from the broker.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	client := p.client
	p.cancel = nil
	p.client = nil
	p.connected = false
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if client != nil {
		client.Disconnect(1000)
	}
	return nil
}

// IsConnected reports whether the publisher is connected to the broker.
func (p *Publisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected && p.client != nil && p.client.IsConnected()
}

func (p *Publisher) publishLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.cfg.PublishInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishRound()
		}
	}
}

func (p *Publisher) publishRound() {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	if client == nil || !client.IsConnected() {
		return
	}

	for _, d := range p.source.Devices() {
		snap := d.Snapshot()
		payload, err := json.Marshal(snap)
		if err != nil {
			p.log.Error("marshaling snapshot", "device", snap.ID, "error", err)
			continue
		}

		token := client.Publish(p.deviceTopic(snap.ID), 0, true, payload)
		if !token.WaitTimeout(10 * time.Second) {
			p.log.Warn("timeout publishing snapshot", "device", snap.ID)
			continue
		}
		if err := token.Error(); err != nil {
			p.log.Warn("publishing snapshot", "device", snap.ID, "error", err)
		}
	}
}

func (p *Publisher) deviceTopic(id uint8) string {
	return p.cfg.TopicPrefix + "/" + p.cfg.FleetID + "/device/" + strconv.Itoa(int(id))
}

func (p *Publisher) onConnected(_ paho.Client) {
	p.mu.Lock()
	p.connected = true
	p.mu.Unlock()
	p.log.Info("connected to MQTT broker", "broker", p.cfg.Broker)
}

func (p *Publisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	p.log.Error("MQTT connection lost", "error", err)
}

func randomString(n int) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}
