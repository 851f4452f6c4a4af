package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AppName is used for the env prefix and the default client id.
const AppName = "midi2mqtt"

const envPrefix = "MIDI2MQTT"

// Flag and viper keys.
const (
	KeyHost        = "host"
	KeyPort        = "port"
	KeyMIDIPort    = "midiport"
	KeyTopicPrefix = "topicprefix"
	KeyClientID    = "clientid"
	KeyUsername    = "username"
	KeyPassword    = "password"
	KeyScheme      = "scheme"
	KeyQoS         = "qos"
	KeyLogLevel    = "loglevel"
	KeyConfigFile  = "config"
)

// Defaults
const (
	DefaultHost        = "localhost"
	DefaultPort        = 1883
	DefaultMIDIPort    = 1
	DefaultTopicPrefix = "midi"
	DefaultScheme      = "tcp"
	DefaultQoS         = 0
	DefaultLogLevel    = "warn"
)

// BindFlags registers the command-line options on fs and binds each of them
// to the same key in v.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	fs.String(KeyHost, DefaultHost, "MQTT broker host")
	fs.Int(KeyPort, DefaultPort, "MQTT broker port")
	fs.Int(KeyMIDIPort, DefaultMIDIPort, "MIDI input port index as listed by the ports command")
	fs.String(KeyTopicPrefix, DefaultTopicPrefix, "prefix for every published topic")
	fs.String(KeyClientID, "", "MQTT client id (default "+AppName+"-<random uuid>)")
	fs.String(KeyUsername, "", "MQTT username")
	fs.String(KeyPassword, "", "MQTT password")
	fs.String(KeyScheme, DefaultScheme, "broker URL scheme: tcp, ssl, ws or wss")
	fs.Int(KeyQoS, DefaultQoS, "QoS for published events (0, 1 or 2)")
	fs.String(KeyLogLevel, DefaultLogLevel, "log level: debug, info, warn or error")
	fs.String(KeyConfigFile, "", "optional YAML config file")

	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}
