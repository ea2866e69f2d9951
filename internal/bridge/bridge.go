package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/aqualogic/pool-core/internal/infrastructure/mqtt"
	"github.com/aqualogic/pool-core/internal/point"
)

// Broker is the slice of the MQTT client the bridge needs.
type Broker interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	PublishString(topic string, payload string, qos byte, retained bool) error
}

// Logger is the logging interface the bridge needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Command is the payload published on actuator command topics. The ID
// lets device integrations deduplicate redelivered commands.
type Command struct {
	ID    string `json:"id"`
	Value bool   `json:"value"`
}

// Bridge wires MQTT topics to the point store in both directions.
type Bridge struct {
	store  *point.Store
	broker Broker
	log    Logger
	qos    byte
	topics mqtt.Topics
}

// New creates a bridge. qos applies to every subscription and publish.
func New(store *point.Store, broker Broker, log Logger, qos byte) *Bridge {
	if log == nil {
		log = noopLogger{}
	}
	return &Bridge{store: store, broker: broker, log: log, qos: qos}
}

// Start subscribes the inbound topics and registers the outbound
// mirror. Inbound handlers run on the MQTT client's goroutines; the
// store is safe for that.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.broker.Subscribe(b.topics.AllSensors(), b.qos, b.handleSensor(ctx)); err != nil {
		return fmt.Errorf("subscribing sensors: %w", err)
	}
	if err := b.broker.Subscribe(b.topics.AllSets(), b.qos, b.handleSet(ctx)); err != nil {
		return fmt.Errorf("subscribing sets: %w", err)
	}

	b.store.SubscribeAll(b.mirror)
	return nil
}

// handleSensor feeds device readings into the store.
func (b *Bridge) handleSensor(ctx context.Context) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		name := mqtt.PointName(topic)
		if name == "" {
			return fmt.Errorf("unparseable sensor topic %q", topic)
		}
		if !sensorPoints[name] {
			b.log.Debug("ignoring unknown sensor", "name", name)
			return nil
		}

		v, err := parseValue(name, payload)
		if err != nil {
			return fmt.Errorf("sensor %s: %w", name, err)
		}
		b.store.Write(ctx, name, v)
		return nil
	}
}

// handleSet feeds user and UI writes into the store.
func (b *Bridge) handleSet(ctx context.Context) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		name := mqtt.PointName(topic)
		if name == "" {
			return fmt.Errorf("unparseable set topic %q", topic)
		}
		if !settablePoints[name] {
			b.log.Warn("rejected write to non-settable point", "name", name)
			return nil
		}

		v, err := parseValue(name, payload)
		if err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}
		b.log.Info("external write", "point", name, "payload", string(payload))
		b.store.Write(ctx, name, v)
		return nil
	}
}

// mirror publishes point changes outward: every change goes to the
// retained state topic, actuator changes additionally become commands.
func (b *Bridge) mirror(id string, v point.Value) {
	if err := b.broker.PublishString(b.topics.State(id), formatValue(v), b.qos, true); err != nil {
		b.log.Warn("publishing state failed", "point", id, "error", err)
	}

	if !commandPoints[id] || v.Kind != point.KindBool {
		return
	}

	payload, err := json.Marshal(Command{ID: uuid.New().String(), Value: v.Bool})
	if err != nil {
		return
	}
	if err := b.broker.PublishString(b.topics.Command(id), string(payload), b.qos, false); err != nil {
		b.log.Warn("publishing command failed", "point", id, "error", err)
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
