package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newFlags(t *testing.T, args ...string) *viper.Viper {
	t.Helper()
	v := viper.New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(fs, v))
	require.NoError(t, fs.Parse(args))
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 1883, cfg.Port)
	assert.Equal(t, 1, cfg.MIDIPort)
	assert.Equal(t, "midi", cfg.TopicPrefix)
	assert.Equal(t, "tcp", cfg.Scheme)
	assert.Equal(t, 0, cfg.QoS)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, strings.HasPrefix(cfg.ClientID, "midi2mqtt-"), cfg.ClientID)
}

func TestLoadGeneratesDistinctClientIDs(t *testing.T) {
	a, err := Load(newFlags(t))
	require.NoError(t, err)
	b, err := Load(newFlags(t))
	require.NoError(t, err)
	assert.NotEqual(t, a.ClientID, b.ClientID)
}

func TestLoadFlags(t *testing.T) {
	cfg, err := Load(newFlags(t,
		"--host", "broker.lan",
		"--port", "8883",
		"--midiport", "3",
		"--topicprefix", "studio/keys",
		"--clientid", "desk",
	))
	require.NoError(t, err)

	assert.Equal(t, "broker.lan", cfg.Host)
	assert.Equal(t, 8883, cfg.Port)
	assert.Equal(t, 3, cfg.MIDIPort)
	assert.Equal(t, "studio/keys", cfg.TopicPrefix)
	assert.Equal(t, "desk", cfg.ClientID)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("MIDI2MQTT_HOST", "env-host")
	t.Setenv("MIDI2MQTT_USERNAME", "alice")

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "env-host", cfg.Host)
	assert.Equal(t, "alice", cfg.Username)
}

func TestLoadFlagBeatsEnvironment(t *testing.T) {
	t.Setenv("MIDI2MQTT_HOST", "env-host")

	cfg, err := Load(newFlags(t, "--host", "flag-host"))
	require.NoError(t, err)
	assert.Equal(t, "flag-host", cfg.Host)
}

func TestLoadConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "midi2mqtt.yaml")
	require.NoError(t, os.WriteFile(file, []byte("host: file-host\nport: 1884\nqos: 1\n"), 0o600))

	cfg, err := Load(newFlags(t, "--config", file, "--port", "1999"))
	require.NoError(t, err)
	assert.Equal(t, "file-host", cfg.Host)
	assert.Equal(t, 1999, cfg.Port)
	assert.Equal(t, 1, cfg.QoS)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(newFlags(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")
}

func TestValidate(t *testing.T) {
	good := Config{Host: "h", Port: 1883, MIDIPort: 1, Scheme: "tcp"}
	require.NoError(t, good.Validate())

	tests := map[string]func(*Config){
		"empty host":        func(c *Config) { c.Host = "" },
		"port zero":         func(c *Config) { c.Port = 0 },
		"port too large":    func(c *Config) { c.Port = 70000 },
		"negative midiport": func(c *Config) { c.MIDIPort = -1 },
		"bad scheme":        func(c *Config) { c.Scheme = "http" },
		"bad qos":           func(c *Config) { c.QoS = 3 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := good
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestStatusTopic(t *testing.T) {
	c := Config{TopicPrefix: "midi"}
	assert.Equal(t, "midi/status", c.StatusTopic())
}

func TestYAMLMasksPassword(t *testing.T) {
	c := Config{Host: "h", Port: 1883, Username: "u", Password: "secret", ConfigFile: "x.yaml"}
	out, err := c.YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "secret")
	assert.NotContains(t, string(out), "x.yaml")

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, "h", back["host"])
	assert.Equal(t, "********", back["password"])
	assert.Equal(t, "secret", c.Password)
}
