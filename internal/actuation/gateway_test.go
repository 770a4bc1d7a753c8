package actuation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fieldsense/irrigation-core/internal/infrastructure/mqtt"
)

// mockBroker captures publishes and lets tests drive subscribed handlers.
type mockBroker struct {
	mu           sync.Mutex
	published    []publishedMessage
	handlers     map[string]mqtt.MessageHandler
	publishErr   error
	subscribeErr error
}

type publishedMessage struct {
	topic   string
	payload []byte
	qos     byte
}

func newMockBroker() *mockBroker {
	return &mockBroker{handlers: make(map[string]mqtt.MessageHandler)}
}

func (b *mockBroker) Publish(topic string, payload []byte, qos byte, retained bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, publishedMessage{topic, payload, qos})
	return nil
}

func (b *mockBroker) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribeErr != nil {
		return b.subscribeErr
	}
	b.handlers[topic] = handler
	return nil
}

func (b *mockBroker) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, topic)
	return nil
}

func (b *mockBroker) lastPublished(t *testing.T) publishedMessage {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.published) == 0 {
		t.Fatal("nothing published")
	}
	return b.published[len(b.published)-1]
}

// decodeCommand unmarshals the last published command.
func (b *mockBroker) decodeCommand(t *testing.T) command {
	t.Helper()
	var cmd command
	if err := json.Unmarshal(b.lastPublished(t).payload, &cmd); err != nil {
		t.Fatalf("decoding published command: %v", err)
	}
	return cmd
}

// deliverAck invokes the ack wildcard handler as the broker would.
func (b *mockBroker) deliverAck(t *testing.T, valveID, commandID string, response ack) {
	t.Helper()
	b.mu.Lock()
	handler, ok := b.handlers[mqtt.Topics{}.AllValveAcks(valveID)]
	b.mu.Unlock()
	if !ok {
		t.Fatal("no ack handler subscribed")
	}
	payload, _ := json.Marshal(response)
	topic := mqtt.Topics{}.ValveAck(valveID, commandID)
	if err := handler(topic, payload); err != nil {
		t.Fatalf("ack handler failed: %v", err)
	}
}

func TestGatewayFireAndForget(t *testing.T) {
	broker := newMockBroker()
	gateway := NewGateway(broker, nil, GatewayConfig{ValveID: "valve-01", QoS: 1})

	err := gateway.Fire(context.Background(), 1350, 0.9, "SCHEDULE_AI")
	if err != nil {
		t.Fatalf("Fire failed: %v", err)
	}

	msg := broker.lastPublished(t)
	if msg.topic != "irrigation/command/valve-01" {
		t.Errorf("topic = %q, want irrigation/command/valve-01", msg.topic)
	}
	if msg.qos != 1 {
		t.Errorf("qos = %d, want 1", msg.qos)
	}

	cmd := broker.decodeCommand(t)
	if cmd.Command != "start" {
		t.Errorf("command = %q, want start", cmd.Command)
	}
	if cmd.DurationSeconds != 1350 || cmd.VolumeM3 != 0.9 {
		t.Errorf("parameters = %d s / %v m3, want 1350 / 0.9", cmd.DurationSeconds, cmd.VolumeM3)
	}
	if cmd.Origin != "SCHEDULE_AI" {
		t.Errorf("origin = %q, want SCHEDULE_AI", cmd.Origin)
	}
	if cmd.ID == "" {
		t.Error("command must carry a unique ID")
	}
}

func TestGatewayFireWaitsForAck(t *testing.T) {
	broker := newMockBroker()
	gateway := NewGateway(broker, nil, GatewayConfig{
		ValveID:    "valve-01",
		QoS:        1,
		AckTimeout: time.Second,
	})
	if err := gateway.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- gateway.Fire(context.Background(), 600, 0.4, "SCHEDULE_AI")
	}()

	// Wait for the publish, then acknowledge it
	var cmd command
	deadline := time.After(time.Second)
	for {
		broker.mu.Lock()
		published := len(broker.published)
		broker.mu.Unlock()
		if published > 0 {
			cmd = broker.decodeCommand(t)
			break
		}
		select {
		case <-deadline:
			t.Fatal("command never published")
		case <-time.After(5 * time.Millisecond):
		}
	}

	broker.deliverAck(t, "valve-01", cmd.ID, ack{Status: "ok"})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Fire failed after ack: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Fire did not return after ack")
	}
}

func TestGatewayFireAckTimeout(t *testing.T) {
	broker := newMockBroker()
	gateway := NewGateway(broker, nil, GatewayConfig{
		ValveID:    "valve-01",
		AckTimeout: 20 * time.Millisecond,
	})
	if err := gateway.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	err := gateway.Fire(context.Background(), 600, 0.4, "SCHEDULE_AI")
	if !errors.Is(err, ErrAckTimeout) {
		t.Errorf("error = %v, want ErrAckTimeout", err)
	}
}

func TestGatewayFireRejectedByController(t *testing.T) {
	broker := newMockBroker()
	gateway := NewGateway(broker, nil, GatewayConfig{
		ValveID:    "valve-01",
		AckTimeout: time.Second,
	})
	if err := gateway.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- gateway.Fire(context.Background(), 600, 0.4, "SCHEDULE_AI")
	}()

	deadline := time.After(time.Second)
	for {
		broker.mu.Lock()
		published := len(broker.published)
		broker.mu.Unlock()
		if published > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("command never published")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cmd := broker.decodeCommand(t)
	broker.deliverAck(t, "valve-01", cmd.ID, ack{Status: "error", Message: "valve jammed"})

	select {
	case err := <-done:
		if !errors.Is(err, ErrCommandRejected) {
			t.Errorf("error = %v, want ErrCommandRejected", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Fire did not return after nack")
	}
}

func TestGatewayFirePublishFailure(t *testing.T) {
	broker := newMockBroker()
	broker.publishErr = errors.New("not connected")
	gateway := NewGateway(broker, nil, GatewayConfig{ValveID: "valve-01"})

	err := gateway.Fire(context.Background(), 600, 0.4, "SCHEDULE_AI")
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("error = %v, want ErrPublishFailed", err)
	}
}

func TestGatewayStop(t *testing.T) {
	broker := newMockBroker()
	gateway := NewGateway(broker, nil, GatewayConfig{ValveID: "valve-01"})

	if err := gateway.Stop(context.Background(), "MANUAL_DIRECT"); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	cmd := broker.decodeCommand(t)
	if cmd.Command != "stop" {
		t.Errorf("command = %q, want stop", cmd.Command)
	}
	if cmd.Origin != "MANUAL_DIRECT" {
		t.Errorf("origin = %q, want MANUAL_DIRECT", cmd.Origin)
	}
	if cmd.DurationSeconds != 0 {
		t.Errorf("stop command should carry no duration, got %d", cmd.DurationSeconds)
	}
}

func TestGatewayUnmatchedAckIgnored(t *testing.T) {
	broker := newMockBroker()
	gateway := NewGateway(broker, nil, GatewayConfig{
		ValveID:    "valve-01",
		AckTimeout: time.Second,
	})
	if err := gateway.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// An ack for an unknown command must not error or panic
	broker.deliverAck(t, "valve-01", "stale-command-id", ack{Status: "ok"})
}

func TestGatewayUniqueCommandIDs(t *testing.T) {
	broker := newMockBroker()
	gateway := NewGateway(broker, nil, GatewayConfig{ValveID: "valve-01"})

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		if err := gateway.Fire(context.Background(), 60, 0.1, "SCHEDULE_AI"); err != nil {
			t.Fatalf("Fire failed: %v", err)
		}
		cmd := broker.decodeCommand(t)
		if seen[cmd.ID] {
			t.Fatalf("duplicate command ID %q", cmd.ID)
		}
		seen[cmd.ID] = true
	}
}
