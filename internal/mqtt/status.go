package mqtt

import (
	"encoding/json"
	"net"
	"time"

	"go.uber.org/zap"
)

var offlinePayload = []byte(`{"online":false}`)

// statusPayload builds the retained online document.
func statusPayload(info map[string]string, ip string, now time.Time) ([]byte, error) {
	doc := make(map[string]any, len(info)+3)
	for k, v := range info {
		doc[k] = v
	}
	doc["online"] = true
	doc["ip_address"] = ip
	doc["timestamp"] = now.Unix()
	return json.Marshal(doc)
}

func (c *Client) publishOnline() {
	payload, err := statusPayload(c.opts.StatusInfo, getIPAddress(c.log), time.Now())
	if err != nil {
		c.log.Error("marshaling status document", zap.Error(err))
		return
	}
	token := c.paho.Publish(c.opts.StatusTopic, 1, true, payload)
	go func() {
		if token.WaitTimeout(3*time.Second) && token.Error() != nil {
			c.log.Error("publishing online status", zap.String("topic", c.opts.StatusTopic), zap.Error(token.Error()))
		}
	}()
}

// getIPAddress returns the first non-loopback IPv4 address.
func getIPAddress(log *zap.Logger) string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		log.Warn("listing interface addresses", zap.Error(err))
		return "unknown"
	}
	for _, address := range addrs {
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			return ipnet.IP.String()
		}
	}
	return "unknown"
}
