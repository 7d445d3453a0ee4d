package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const bufferCapacity = 64

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are held in a ring buffer and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	prefix string

	mu     sync.Mutex
	buffer *backlog
}

// NewRealPublisher connects to broker. The broker retains an OFFLINE system
// event as the will.
func NewRealPublisher(broker, prefix, clientID string) (*RealPublisher, error) {
	p := &RealPublisher{
		prefix: prefix,
		buffer: newBacklog(bufferCapacity),
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: SystemOffline})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(Topic(prefix, TopicSystem), string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		p.client.Disconnect(0)
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	pending, dropped := p.buffer.drain()
	p.mu.Unlock()

	if dropped > 0 {
		log.Printf("mqtt: backlog overflowed, %d messages lost", dropped)
	}
	if len(pending) > 0 {
		log.Printf("mqtt: connected, replaying %d buffered messages", len(pending))
	}
	for _, m := range pending {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

// Publish sends a controller event on the events topic. It does not wait for
// the broker so the control loop is never held up.
func (p *RealPublisher) Publish(event Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	p.send(bufferedMsg{topic: Topic(p.prefix, TopicEvents), payload: payload})
	return nil
}

// PublishSystem sends a lifecycle event on the system topic.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	msg := bufferedMsg{
		topic:    Topic(p.prefix, TopicSystem),
		payload:  payload,
		qos:      1,
		retained: event.Retained,
	}
	if event.Event == SystemShutdown || event.Event == SystemReboot {
		// Last message before the process goes away; wait for it.
		token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		if !token.WaitTimeout(2 * time.Second) {
			return fmt.Errorf("publish system timeout")
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish system: %w", err)
		}
		return nil
	}
	p.send(msg)
	return nil
}

func (p *RealPublisher) send(msg bufferedMsg) {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buffer.push(msg)
		p.mu.Unlock()
		return
	}
	p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
