package mqtt

import (
	"fmt"
	"log"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/curtain-controller/internal/logic"
)

// inboundCapacity bounds the command queue. The remote task drains it every
// few milliseconds, so overflow only happens if a sender floods the topic;
// the oldest unserviced commands are dropped.
const inboundCapacity = 16

// Client is the broker-backed Publisher, Commander and ConnectionStatus.
// One connection serves both directions.
type Client struct {
	client paho.Client
	ops    chan logic.Op
	errs   chan error
}

// NewClient connects to the broker and subscribes to the command topic.
// The subscription is re-established on every reconnect.
func NewClient(broker string) (*Client, error) {
	c := &Client{
		ops:  make(chan logic.Op, inboundCapacity),
		errs: make(chan error, 4),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("curtain-controller").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(client paho.Client) {
			token := client.Subscribe(TopicCommand, 1, c.onCommand)
			if token.WaitTimeout(5*time.Second) && token.Error() != nil {
				log.Printf("mqtt: subscribe %s: %v", TopicCommand, token.Error())
			}
		})

	c.client = paho.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return c, nil
}

// onCommand decodes one received frame into the bounded queue.
func (c *Client) onCommand(_ paho.Client, msg paho.Message) {
	op, err := ParseCommand(msg.Payload())
	if err != nil {
		select {
		case c.errs <- err:
		default:
		}
		return
	}
	select {
	case c.ops <- op:
	default:
		log.Printf("mqtt: command queue full, dropping %s", op)
	}
}

// TryReceive blocks up to timeout for one command or decode error.
func (c *Client) TryReceive(timeout time.Duration) (logic.Op, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case op := <-c.ops:
		return op, true, nil
	case err := <-c.errs:
		return logic.OpNone, false, err
	case <-timer.C:
		return logic.OpNone, false, nil
	}
}

// PublishEvent sends a transition event at QoS 0.
func (c *Client) PublishEvent(event Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	token := c.client.Publish(TopicEvents, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a lifecycle event at QoS 1 — startup and shutdown
// status should survive a flaky link.
func (c *Client) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	token := c.client.Publish(TopicSystem, 1, event.Retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// IsConnected reports the broker connection state.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects from the broker.
func (c *Client) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}
