// Package mqtt publishes decoded IR messages to a mqtt broker and receives send requests.
package mqtt

import (
	"sync"

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/womat/debug"
)

// quiesce is the specified number of milliseconds to wait for existing work to be completed.
const (
	quiesce = 250
)

// Handler contains the handler of the mqtt broker.
type Handler struct {
	handler mqttlib.Client
	// C is the channel to service the mqtt message
	// sending a message to channel C will send the message.
	C chan Message

	// subscriptions are renewed after a reconnect
	mu            sync.Mutex
	subscriptions map[string]subscription
}

// Message contains the properties of the mqtt message.
type Message struct {
	Topic    string
	Payload  []byte
	Qos      byte
	Retained bool
}

type subscription struct {
	qos     byte
	handler func(Message)
}

// New generate a new mqtt broker client.
func New() *Handler {
	return &Handler{
		C:             make(chan Message),
		subscriptions: map[string]subscription{},
	}
}

// Connect connects to the mqtt broker.
// If no broker is defined, no mqtt message are send.
func (m *Handler) Connect(broker, clientID string) error {
	if broker == "" {
		return nil
	}

	opts := mqttlib.NewClientOptions().AddBroker(broker).SetOnConnectHandler(m.resubscribe)
	if clientID != "" {
		opts.SetClientID(clientID)
	}
	m.handler = mqttlib.NewClient(opts)
	return m.ReConnect()
}

// ReConnect reconnects to the defined mqtt broker.
func (m *Handler) ReConnect() error {
	t := m.handler.Connect()
	<-t.Done()
	return t.Error()
}

// Disconnect will end the connection to the broker.
func (m *Handler) Disconnect() error {
	if m.handler == nil {
		return nil
	}

	m.handler.Disconnect(quiesce)
	return nil
}

// Subscribe calls handler for each message received on topic.
// If no broker or topic is defined, the subscription is ignored.
func (m *Handler) Subscribe(topic string, qos byte, handler func(Message)) error {
	if m.handler == nil || topic == "" {
		return nil
	}

	m.mu.Lock()
	m.subscriptions[topic] = subscription{qos: qos, handler: handler}
	m.mu.Unlock()

	return m.subscribe(topic, qos, handler)
}

func (m *Handler) subscribe(topic string, qos byte, handler func(Message)) error {
	t := m.handler.Subscribe(topic, qos, func(_ mqttlib.Client, msg mqttlib.Message) {
		debug.DebugLog.Printf("received %v bytes from topic %v", len(msg.Payload()), msg.Topic())
		handler(Message{Topic: msg.Topic(), Payload: msg.Payload(), Qos: msg.Qos(), Retained: msg.Retained()})
	})
	<-t.Done()
	return t.Error()
}

// resubscribe renews the subscriptions, a clean session drops them with the connection.
func (m *Handler) resubscribe(mqttlib.Client) {
	m.mu.Lock()
	subs := make(map[string]subscription, len(m.subscriptions))
	for topic, s := range m.subscriptions {
		subs[topic] = s
	}
	m.mu.Unlock()

	for topic, s := range subs {
		go func(topic string, s subscription) {
			if err := m.subscribe(topic, s.qos, s.handler); err != nil {
				debug.ErrorLog.Printf("can't subscribe topic %v: %v", topic, err)
			}
		}(topic, s)
	}
}

// Service listen to a message on the channel C and send the message to mqtt.
// If no handler or topic is defined, the message will be ignored.
func (m *Handler) Service() {
	for d := range m.C {
		if m.handler == nil || d.Topic == "" {
			continue
		}

		go m.publish(d)
	}
}

func (m *Handler) publish(msg Message) {
	if !m.handler.IsConnected() {
		debug.DebugLog.Printf("mqtt broker isn't connected, reconnect it")

		if err := m.ReConnect(); err != nil {
			debug.ErrorLog.Printf("can't reconnect to mqtt broker %v", err)
			return
		}
	}

	debug.DebugLog.Printf("publishing %v bytes to topic %v", len(msg.Payload), msg.Topic)
	t := m.handler.Publish(msg.Topic, msg.Qos, msg.Retained, msg.Payload)

	// the asynchronous nature of this library makes it easy to forget to check for errors.
	<-t.Done()
	if err := t.Error(); err != nil {
		debug.ErrorLog.Printf("publishing topic %v: %v", msg.Topic, err)
	}
}
