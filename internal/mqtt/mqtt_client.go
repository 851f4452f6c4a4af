// internal/mqtt/mqtt_client.go
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("mqtt client already started")

// Options configure the broker connection.
type Options struct {
	Scheme   string // tcp, ssl, ws or wss
	Host     string
	Port     int
	ClientID string
	Username string
	Password string
	QoS      byte

	// StatusTopic receives a retained online/offline document; empty disables it.
	StatusTopic string
	// StatusInfo is merged into the online document.
	StatusInfo map[string]string

	ConnectRetryInterval time.Duration
	MaxReconnectInterval time.Duration
	AckTimeout           time.Duration
}

// DefaultOptions returns options for a local broker.
func DefaultOptions() Options {
	return Options{
		Scheme:               "tcp",
		Host:                 "localhost",
		Port:                 1883,
		ConnectRetryInterval: 5 * time.Second,
		MaxReconnectInterval: time.Minute,
		AckTimeout:           10 * time.Second,
	}
}

// BrokerURL is the paho server URL for these options.
func (o Options) BrokerURL() string {
	return o.Scheme + "://" + net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// Client is the outbound broker connection. Publish is safe for concurrent use.
type Client struct {
	opts Options
	log  *zap.Logger
	paho MQTT.Client

	mid   atomic.Uint32
	state atomic.Int32

	mu           sync.RWMutex
	onConnect    ConnectHandler
	onDisconnect DisconnectHandler
	onPublish    PublishHandler

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup // connectLoop
}

// NewClient configures the paho client. Nothing is sent until Start.
func NewClient(opts Options, log *zap.Logger) *Client {
	c := newClient(opts, log)
	c.paho = MQTT.NewClient(c.clientOptions())
	return c
}

func newClient(opts Options, log *zap.Logger) *Client {
	return &Client{
		opts: opts,
		log:  log.Named("mqtt"),
		stop: make(chan struct{}),
	}
}

// clientOptions configures paho. Reconnection after a connection was once
// established is left to paho's AutoReconnect; failed initial attempts are
// retried by connectLoop so every failure reaches the connect hook.
func (c *Client) clientOptions() *MQTT.ClientOptions {
	opts := MQTT.NewClientOptions()
	opts.AddBroker(c.opts.BrokerURL())
	opts.SetClientID(c.opts.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetMaxReconnectInterval(c.opts.MaxReconnectInterval)
	opts.SetOrderMatters(false)

	if c.opts.Username != "" {
		opts.SetUsername(c.opts.Username)
	}
	if c.opts.Password != "" {
		opts.SetPassword(c.opts.Password)
	}
	if c.opts.StatusTopic != "" {
		opts.SetBinaryWill(c.opts.StatusTopic, offlinePayload, 1, true)
	}

	opts.SetOnConnectHandler(c.onConnectHandler)
	opts.SetConnectionLostHandler(c.connectionLostHandler)
	opts.SetReconnectingHandler(c.reconnectingHandler)
	return opts
}

// OnConnect registers the connect hook.
func (c *Client) OnConnect(h func(code byte, err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = h
}

// OnDisconnect registers the disconnect hook.
func (c *Client) OnDisconnect(h func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnect = h
}

// OnPublishAck registers the publish acknowledgment hook.
func (c *Client) OnPublishAck(h func(mid uint16)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPublish = h
}

func (c *Client) fireConnect(code byte, err error) {
	c.mu.RLock()
	h := c.onConnect
	c.mu.RUnlock()
	if h != nil {
		h(code, err)
	}
}

func (c *Client) fireDisconnect(err error) {
	c.mu.RLock()
	h := c.onDisconnect
	c.mu.RUnlock()
	if h != nil {
		h(err)
	}
}

func (c *Client) firePublish(mid uint16) {
	c.mu.RLock()
	h := c.onPublish
	c.mu.RUnlock()
	if h != nil {
		h(mid)
	}
}

// State reports the current connection state.
func (c *Client) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

func (c *Client) setState(s ConnectionState) {
	c.state.Store(int32(s))
}

// Start begins connecting in the background and returns immediately.
func (c *Client) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	c.log.Info("connecting to MQTT broker", zap.String("broker", c.opts.BrokerURL()), zap.String("client_id", c.opts.ClientID))
	c.setState(Connecting)
	c.wg.Add(1)
	go c.connectLoop(ctx)
	return nil
}

func (c *Client) connectLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		token := c.paho.Connect()
		select {
		case <-token.Done():
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}

		err := token.Error()
		if err == nil {
			// onConnectHandler has fired; paho owns reconnects from here on
			return
		}
		c.setState(Disconnected)
		c.fireConnect(returnCode(token), err)

		select {
		case <-time.After(c.opts.ConnectRetryInterval):
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
		c.setState(Connecting)
	}
}

func returnCode(token MQTT.Token) byte {
	if ct, ok := token.(*MQTT.ConnectToken); ok && ct.ReturnCode() != 0 {
		return ct.ReturnCode()
	}
	return CodeNetworkError
}

// Stop publishes the offline status, disconnects and stops background
// delivery. Only the first call has an effect.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
		if c.paho.IsConnected() && c.opts.StatusTopic != "" {
			if t := c.paho.Publish(c.opts.StatusTopic, 1, true, offlinePayload); !t.WaitTimeout(time.Second) || t.Error() != nil {
				c.log.Warn("offline status not confirmed", zap.String("topic", c.opts.StatusTopic), zap.Error(t.Error()))
			}
		}
		c.log.Info("disconnecting from MQTT broker", zap.Stringer("state", c.State()))
		c.paho.Disconnect(250)
		c.wg.Wait()
		c.setState(Disconnected)
		c.fireDisconnect(nil)
	})
}

// Publish hands payload to paho and returns the local message id. An error
// means paho rejected the message locally (typically not connected); broker
// delivery is reported later through the publish hook.
func (c *Client) Publish(topic string, payload []byte) (uint16, error) {
	mid := c.nextMID()
	token := c.paho.Publish(topic, c.opts.QoS, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return mid, fmt.Errorf("publish to %s: %w", topic, err)
		}
	default:
	}
	go c.awaitAck(token, mid, topic)
	return mid, nil
}

// nextMID returns the next local message id in 1..65535.
func (c *Client) nextMID() uint16 {
	for {
		if mid := uint16(c.mid.Add(1)); mid != 0 {
			return mid
		}
	}
}

func (c *Client) awaitAck(token MQTT.Token, mid uint16, topic string) {
	if !token.WaitTimeout(c.opts.AckTimeout) {
		c.log.Warn("publish not acknowledged in time", zap.Uint16("mid", mid), zap.String("topic", topic))
		return
	}
	if err := token.Error(); err != nil {
		c.log.Error("publish failed after enqueue", zap.Uint16("mid", mid), zap.String("topic", topic), zap.Error(err))
		return
	}
	c.firePublish(mid)
}
