package mqttclient

import (
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// Client publishes note lifecycle events to an MQTT broker so external
// automations (home dashboards, notification bots) can react to finished
// transcripts and summaries.
type Client struct {
	conn        mqtt.Client
	topicPrefix string
	connected   atomic.Bool
	log         zerolog.Logger
}

type Options struct {
	BrokerURL   string
	ClientID    string
	TopicPrefix string
	Username    string
	Password    string
	Log         zerolog.Logger
}

func Connect(opts Options) (*Client, error) {
	c := &Client{
		topicPrefix: strings.TrimSuffix(opts.TopicPrefix, "/"),
		log:         opts.Log,
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	c.conn = mqtt.NewClient(clientOpts)
	token := c.conn.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Client) onConnect(_ mqtt.Client) {
	c.connected.Store(true)
	c.log.Info().Str("topic_prefix", c.topicPrefix).Msg("mqtt connected")
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	c.connected.Store(false)
	c.log.Warn().Err(err).Msg("mqtt connection lost, will auto-reconnect")
}

// Publish sends a JSON payload to {prefix}/{suffix} at QoS 0. Fire and
// forget: a disconnected broker just drops the event.
func (c *Client) Publish(suffix string, payload any) {
	if !c.connected.Load() {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		c.log.Warn().Err(err).Str("topic", suffix).Msg("mqtt payload marshal failed")
		return
	}

	topic := c.topicPrefix + "/" + strings.TrimPrefix(suffix, "/")
	token := c.conn.Publish(topic, 0, false, data)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			c.log.Warn().Err(err).Str("topic", topic).Msg("mqtt publish failed")
		}
	}()
}

func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

func (c *Client) Close() {
	c.log.Info().Msg("disconnecting mqtt client")
	c.conn.Disconnect(1000)
}
