package actuation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldsense/irrigation-core/internal/infrastructure/mqtt"
)

// Broker is the interface the gateway needs from the MQTT client.
type Broker interface {
	// Publish sends a message to the specified MQTT topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for messages on the given topic.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// Unsubscribe removes a subscription.
	Unsubscribe(topic string) error
}

// Logger is the minimal logging interface the gateway needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is provided.
type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// command is the wire format published to the valve controller.
type command struct {
	ID              string  `json:"id"`
	Command         string  `json:"command"`
	DurationSeconds int     `json:"duration_seconds,omitempty"`
	VolumeM3        float64 `json:"volume_m3,omitempty"`
	Origin          string  `json:"origin"`
	IssuedAt        string  `json:"issued_at"`
}

// ack is the wire format the valve controller publishes in response.
type ack struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ackStatusOK is the controller's success status.
const ackStatusOK = "ok"

// GatewayConfig holds the gateway's transport parameters.
type GatewayConfig struct {
	// ValveID identifies the valve controller in MQTT topics.
	ValveID string

	// QoS is the publish QoS level for commands.
	QoS byte

	// AckTimeout is how long Fire waits for the controller's
	// acknowledgement. Zero disables the wait; Fire then returns as
	// soon as the command is published.
	AckTimeout time.Duration
}

// Gateway publishes valve commands over MQTT and correlates controller
// acknowledgements by command ID.
//
// Each command carries a unique ID; the controller acknowledges on
// irrigation/ack/{valve_id}/{command_id}. The gateway subscribes to the
// ack wildcard once at Start and routes acks to waiting callers.
//
// Thread Safety: all methods are safe for concurrent use.
type Gateway struct {
	broker Broker
	logger Logger
	cfg    GatewayConfig

	// pending maps in-flight command IDs to their ack channels.
	pending   map[string]chan ack
	pendingMu sync.Mutex

	started bool
	mu      sync.Mutex
}

// NewGateway creates a valve gateway.
//
// Parameters:
//   - broker: MQTT transport
//   - logger: Logger instance (may be nil)
//   - cfg: Valve ID, QoS, and ack timeout
func NewGateway(broker Broker, logger Logger, cfg GatewayConfig) *Gateway {
	if logger == nil {
		logger = noopLogger{}
	}
	if cfg.ValveID == "" {
		cfg.ValveID = "valve-01"
	}
	return &Gateway{
		broker:  broker,
		logger:  logger,
		cfg:     cfg,
		pending: make(map[string]chan ack),
	}
}

// Start subscribes to the valve's acknowledgement topics.
//
// Must be called before Fire when AckTimeout is non-zero; without the
// subscription every fire would time out waiting for acks.
//
// Returns:
//   - error: If the subscription fails
func (g *Gateway) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return nil
	}

	topic := mqtt.Topics{}.AllValveAcks(g.cfg.ValveID)
	if err := g.broker.Subscribe(topic, g.cfg.QoS, g.handleAck); err != nil {
		return fmt.Errorf("subscribing to valve acks: %w", err)
	}

	g.started = true
	return nil
}

// Close unsubscribes from the valve's acknowledgement topics.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.started {
		return nil
	}
	g.started = false

	topic := mqtt.Topics{}.AllValveAcks(g.cfg.ValveID)
	return g.broker.Unsubscribe(topic)
}

// Fire opens the valve for the given duration and target volume.
//
// The command is published with a unique ID. When AckTimeout is
// non-zero, Fire blocks until the controller acknowledges, the timeout
// elapses, or ctx is cancelled.
//
// Parameters:
//   - ctx: Context for cancellation
//   - durationSeconds: How long the valve stays open
//   - volumeM3: Target water volume in cubic metres
//   - origin: Command origin tag (e.g., "SCHEDULE_AI", "MANUAL_DIRECT")
//
// Returns:
//   - error: nil on success, or:
//   - ErrPublishFailed if the command could not be published
//   - ErrAckTimeout if no acknowledgement arrived in time
//   - ErrCommandRejected if the controller reported failure
func (g *Gateway) Fire(ctx context.Context, durationSeconds int, volumeM3 float64, origin string) error {
	cmd := command{
		ID:              uuid.New().String(),
		Command:         "start",
		DurationSeconds: durationSeconds,
		VolumeM3:        volumeM3,
		Origin:          origin,
		IssuedAt:        time.Now().UTC().Format(time.RFC3339),
	}
	return g.dispatch(ctx, cmd)
}

// Stop closes the valve immediately, cancelling any running cycle.
//
// Parameters:
//   - ctx: Context for cancellation
//   - origin: Command origin tag
//
// Returns:
//   - error: Same classes as Fire
func (g *Gateway) Stop(ctx context.Context, origin string) error {
	cmd := command{
		ID:       uuid.New().String(),
		Command:  "stop",
		Origin:   origin,
		IssuedAt: time.Now().UTC().Format(time.RFC3339),
	}
	return g.dispatch(ctx, cmd)
}

// dispatch publishes a command and optionally waits for its ack.
func (g *Gateway) dispatch(ctx context.Context, cmd command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("%w: encoding command: %w", ErrPublishFailed, err)
	}

	var ackCh chan ack
	if g.cfg.AckTimeout > 0 {
		// Register before publishing so a fast ack cannot race the
		// pending entry.
		ackCh = make(chan ack, 1)
		g.pendingMu.Lock()
		g.pending[cmd.ID] = ackCh
		g.pendingMu.Unlock()
		defer func() {
			g.pendingMu.Lock()
			delete(g.pending, cmd.ID)
			g.pendingMu.Unlock()
		}()
	}

	topic := mqtt.Topics{}.ValveCommand(g.cfg.ValveID)
	if err := g.broker.Publish(topic, payload, g.cfg.QoS, false); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	g.logger.Debug("valve command published",
		"command_id", cmd.ID,
		"command", cmd.Command,
		"origin", cmd.Origin,
	)

	if ackCh == nil {
		return nil
	}

	timer := time.NewTimer(g.cfg.AckTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting for valve ack: %w", ctx.Err())
	case <-timer.C:
		return fmt.Errorf("%w: command %s after %v", ErrAckTimeout, cmd.ID, g.cfg.AckTimeout)
	case response := <-ackCh:
		if response.Status != ackStatusOK {
			return fmt.Errorf("%w: %s", ErrCommandRejected, response.Message)
		}
		return nil
	}
}

// handleAck routes an incoming acknowledgement to its waiting caller.
// The command ID is the final topic segment.
func (g *Gateway) handleAck(topic string, payload []byte) error {
	segments := strings.Split(topic, "/")
	commandID := segments[len(segments)-1]

	var response ack
	if err := json.Unmarshal(payload, &response); err != nil {
		return fmt.Errorf("decoding valve ack on %s: %w", topic, err)
	}

	g.pendingMu.Lock()
	ch, ok := g.pending[commandID]
	g.pendingMu.Unlock()

	if !ok {
		// Late ack for a command that already timed out
		g.logger.Debug("unmatched valve ack", "command_id", commandID)
		return nil
	}

	select {
	case ch <- response:
	default:
	}
	return nil
}
