package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds the effective settings after file, environment and flags
// have been merged.
type Config struct {
	Host        string `yaml:"host" mapstructure:"host"`
	Port        int    `yaml:"port" mapstructure:"port"`
	MIDIPort    int    `yaml:"midiport" mapstructure:"midiport"`
	TopicPrefix string `yaml:"topicprefix" mapstructure:"topicprefix"`
	ClientID    string `yaml:"clientid" mapstructure:"clientid"`
	Username    string `yaml:"username,omitempty" mapstructure:"username"`
	Password    string `yaml:"password,omitempty" mapstructure:"password"`
	Scheme      string `yaml:"scheme" mapstructure:"scheme"`
	QoS         int    `yaml:"qos" mapstructure:"qos"`
	LogLevel    string `yaml:"loglevel" mapstructure:"loglevel"`
	ConfigFile  string `yaml:"-" mapstructure:"config"`
}

// Load reads the optional config file named by the "config" key, applies
// MIDI2MQTT_* environment overrides and returns the validated result.
// Flags bound with BindFlags take precedence over both.
func Load(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file := v.GetString(KeyConfigFile); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file '%s': %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.ClientID == "" {
		cfg.ClientID = AppName + "-" + uuid.NewString()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyHost, DefaultHost)
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyMIDIPort, DefaultMIDIPort)
	v.SetDefault(KeyTopicPrefix, DefaultTopicPrefix)
	v.SetDefault(KeyScheme, DefaultScheme)
	v.SetDefault(KeyQoS, DefaultQoS)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
}

// Validate reports every setting that cannot work.
func (c Config) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("host must not be empty"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range 1-65535", c.Port))
	}
	if c.MIDIPort < 0 {
		errs = append(errs, fmt.Errorf("midiport %d must not be negative", c.MIDIPort))
	}
	switch c.Scheme {
	case "tcp", "ssl", "ws", "wss":
	default:
		errs = append(errs, fmt.Errorf("unsupported scheme %q", c.Scheme))
	}
	if c.QoS < 0 || c.QoS > 2 {
		errs = append(errs, fmt.Errorf("qos %d must be 0, 1 or 2", c.QoS))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// StatusTopic is where the retained online/offline status lives.
func (c Config) StatusTopic() string {
	return c.TopicPrefix + "/status"
}

// YAML renders the config for the config command. The password is masked.
func (c Config) YAML() ([]byte, error) {
	if c.Password != "" {
		c.Password = "********"
	}
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return out, nil
}
