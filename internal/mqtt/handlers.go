package mqtt

import (
	MQTT "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// onConnectHandler runs on every (re)connect.
func (c *Client) onConnectHandler(_ MQTT.Client) {
	c.setState(Connected)
	if c.opts.StatusTopic != "" {
		c.publishOnline()
	}
	c.fireConnect(0, nil)
}

// connectionLostHandler logs nothing itself; AutoReconnect takes over and
// the disconnect hook decides how loud to be.
func (c *Client) connectionLostHandler(_ MQTT.Client, err error) {
	c.setState(Connecting)
	c.fireDisconnect(err)
}

func (c *Client) reconnectingHandler(_ MQTT.Client, _ *MQTT.ClientOptions) {
	c.log.Info("reconnecting to MQTT broker",
		zap.String("broker", c.opts.BrokerURL()),
		zap.Stringer("state", c.State()))
	c.setState(Connecting)
}

// RoutePahoLogs sends paho's internal warning and error output to log.
func RoutePahoLogs(log *zap.Logger) {
	named := log.Named("paho")
	if l, err := zap.NewStdLogAt(named, zap.ErrorLevel); err == nil {
		MQTT.ERROR = l
		MQTT.CRITICAL = l
	}
	if l, err := zap.NewStdLogAt(named, zap.WarnLevel); err == nil {
		MQTT.WARN = l
	}
}
