// Package mqtt wraps the broker connection behind a small client interface so
// services and tests never touch the paho API directly.
package mqtt

import (
	"context"
	"fmt"
	"log"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Client is the broker surface the rest of the backend depends on. The paho
// implementation is injected at startup; tests inject fakes.
type Client interface {
	Connect(ctx context.Context) error
	Publish(topic string, payload []byte) error
	Subscribe(filter string, h Handler) error
	Disconnect()
}

type pahoClient struct {
	client paho.Client
	router *Router
}

// Options configures the broker connection.
type Options struct {
	Host     string
	Port     string
	Username string
	Password string
	ClientID string
}

// NewClient builds a paho-backed client. All inbound traffic lands on the
// default publish handler and is demultiplexed through one router, so each
// subscription's pattern is compiled once and evaluated once per message.
func NewClient(opts Options) Client {
	router := NewRouter()
	c := &pahoClient{router: router}

	pahoOpts := paho.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", opts.Host, opts.Port)).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(true)

	pahoOpts.SetDefaultPublishHandler(func(_ paho.Client, msg paho.Message) {
		router.Dispatch(msg.Topic(), msg.Payload())
	})
	pahoOpts.SetOnConnectHandler(func(client paho.Client) {
		log.Println("mqtt: connected to broker")
		// Re-subscribe after every (re)connect; sessions are not persistent.
		for _, filter := range router.Filters() {
			if token := client.Subscribe(filter, 1, nil); token.Wait() && token.Error() != nil {
				log.Printf("mqtt: subscribe %s failed: %v", filter, token.Error())
			}
		}
	})
	pahoOpts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Printf("mqtt: connection lost: %v", err)
	})

	c.client = paho.NewClient(pahoOpts)
	return c
}

func (c *pahoClient) Connect(ctx context.Context) error {
	token := c.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt.Connect: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mqtt.Connect: %w", ctx.Err())
	}
}

func (c *pahoClient) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, 1, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt.Publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers the handler locally. The broker-side subscription is
// issued from the on-connect hook, so filters registered before Connect are
// picked up there and survive reconnects.
func (c *pahoClient) Subscribe(filter string, h Handler) error {
	c.router.Register(filter, h)
	if c.client.IsConnected() {
		if token := c.client.Subscribe(filter, 1, nil); token.Wait() && token.Error() != nil {
			return fmt.Errorf("mqtt.Subscribe %s: %w", filter, token.Error())
		}
	}
	return nil
}

func (c *pahoClient) Disconnect() {
	c.client.Disconnect(250)
}

// NoopClient satisfies Client when no broker is configured (MQTT_HOST unset).
// Publishes are logged and dropped, subscriptions registered but never fed.
type NoopClient struct{}

func (NoopClient) Connect(ctx context.Context) error { return nil }

func (NoopClient) Publish(topic string, payload []byte) error {
	log.Printf("mqtt: broker disabled, dropping publish to %s", topic)
	return nil
}

func (NoopClient) Subscribe(filter string, h Handler) error { return nil }

func (NoopClient) Disconnect() {}
