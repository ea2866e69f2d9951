package bridge

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/aqualogic/pool-core/internal/infrastructure/mqtt"
	"github.com/aqualogic/pool-core/internal/point"
)

// fakeBroker captures subscriptions and publishes in memory.
type fakeBroker struct {
	mu       sync.Mutex
	handlers map[string]mqtt.MessageHandler
	messages []published
}

type published struct {
	topic    string
	payload  string
	retained bool
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{handlers: make(map[string]mqtt.MessageHandler)}
}

func (b *fakeBroker) Subscribe(topic string, _ byte, h mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = h
	return nil
}

func (b *fakeBroker) PublishString(topic, payload string, _ byte, retained bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, published{topic: topic, payload: payload, retained: retained})
	return nil
}

// deliver routes a message the way the broker would for a wildcard
// subscription.
func (b *fakeBroker) deliver(t *testing.T, topic string, payload string) {
	t.Helper()
	b.mu.Lock()
	var handler mqtt.MessageHandler
	for filter, h := range b.handlers {
		if strings.TrimSuffix(filter, "+") == topic[:len(filter)-1] {
			handler = h
			break
		}
	}
	b.mu.Unlock()
	if handler == nil {
		t.Fatalf("no subscription matches %s", topic)
	}
	if err := handler(topic, []byte(payload)); err != nil {
		t.Fatalf("handler(%s): %v", topic, err)
	}
}

func (b *fakeBroker) find(topic string) (published, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.messages) - 1; i >= 0; i-- {
		if b.messages[i].topic == topic {
			return b.messages[i], true
		}
	}
	return published{}, false
}

func newTestBridge(t *testing.T) (*point.Store, *fakeBroker) {
	t.Helper()
	store := point.NewStore()
	broker := newFakeBroker()
	if err := New(store, broker, nil, 1).Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return store, broker
}

func TestBridgeSensorInbound(t *testing.T) {
	store, broker := newTestBridge(t)

	broker.deliver(t, "pool/sensor/pool_temp", "25.4")

	if got := store.FloatOr(point.PoolTemp, -1); got != 25.4 {
		t.Fatalf("pool_temp = %v, want 25.4", got)
	}
}

func TestBridgeSetInbound(t *testing.T) {
	store, broker := newTestBridge(t)

	broker.deliver(t, "pool/set/mode", "auto_pv")
	broker.deliver(t, "pool/set/heat_enabled", "true")
	broker.deliver(t, "pool/set/heat_target", "27.5")

	if got, _ := store.Str(point.Mode); got != "auto_pv" {
		t.Errorf("mode = %q", got)
	}
	if !store.BoolOr(point.HeatEnabled, false) {
		t.Error("heat_enabled should be true")
	}
	if got := store.FloatOr(point.HeatTarget, -1); got != 27.5 {
		t.Errorf("heat_target = %v", got)
	}
}

func TestBridgeRejectsUnknownSetPoint(t *testing.T) {
	store, broker := newTestBridge(t)

	// Derived outputs are not writable from outside.
	broker.deliver(t, "pool/set/fault", "true")

	if _, known := store.Bool(point.Fault); known {
		t.Fatal("non-settable point must not be written")
	}
}

func TestBridgeInvalidPayloadErrors(t *testing.T) {
	store := point.NewStore()
	broker := newFakeBroker()
	if err := New(store, broker, nil, 1).Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	broker.mu.Lock()
	handler := broker.handlers["pool/sensor/+"]
	broker.mu.Unlock()

	if err := handler("pool/sensor/pool_temp", []byte("warm")); err == nil {
		t.Fatal("garbage payload should error")
	}
	if _, known := store.Float(point.PoolTemp); known {
		t.Fatal("garbage payload must not be stored")
	}
}

func TestBridgeMirrorsStateRetained(t *testing.T) {
	store, broker := newTestBridge(t)

	store.WriteFloat(context.Background(), point.PVSurplus, 1200)

	msg, ok := broker.find("pool/state/pv_surplus")
	if !ok {
		t.Fatal("state topic not published")
	}
	if msg.payload != "1200" || !msg.retained {
		t.Fatalf("published %+v, want retained 1200", msg)
	}
}

func TestBridgeActuatorCommands(t *testing.T) {
	store, broker := newTestBridge(t)

	store.WriteBool(context.Background(), point.Pump, true)

	msg, ok := broker.find("pool/command/pump")
	if !ok {
		t.Fatal("command topic not published")
	}

	var cmd Command
	if err := json.Unmarshal([]byte(msg.payload), &cmd); err != nil {
		t.Fatalf("command payload: %v", err)
	}
	if !cmd.Value {
		t.Error("command value should be true")
	}
	if cmd.ID == "" {
		t.Error("command should carry an ID")
	}

	// A second, distinct command gets a distinct ID.
	store.WriteBool(context.Background(), point.Pump, false)
	second, _ := broker.find("pool/command/pump")
	var cmd2 Command
	if err := json.Unmarshal([]byte(second.payload), &cmd2); err != nil {
		t.Fatalf("second command payload: %v", err)
	}
	if cmd2.ID == cmd.ID {
		t.Error("command IDs should be unique")
	}
}

func TestBridgeNonActuatorHasNoCommand(t *testing.T) {
	store, broker := newTestBridge(t)

	store.WriteBool(context.Background(), point.SolarWarning, true)

	if _, ok := broker.find("pool/command/solar_warning"); ok {
		t.Fatal("only actuators produce commands")
	}
}
