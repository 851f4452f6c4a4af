// internal/mqtt/interfaces.go
package mqtt

// ConnectHandler is called after every connection attempt. code is 0 on
// success, otherwise the broker's CONNACK code or CodeNetworkError.
type ConnectHandler func(code byte, err error)

// DisconnectHandler is called when the connection goes away. err is nil
// when the disconnect was requested through Stop.
type DisconnectHandler func(err error)

// PublishHandler is called once paho has flushed the message with the given id.
type PublishHandler func(mid uint16)

// CodeNetworkError is reported when a connection attempt fails before the
// broker sent a CONNACK.
const CodeNetworkError byte = 0xFE

// ConnectionState of the broker connection.
type ConnectionState int32

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "unknown"
}
