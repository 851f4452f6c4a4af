package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/farouk15160/midi2mqtt/internal/bridge"
	"github.com/farouk15160/midi2mqtt/internal/config"
	"github.com/farouk15160/midi2mqtt/internal/logging"
	"github.com/farouk15160/midi2mqtt/internal/midi"
	myMqtt "github.com/farouk15160/midi2mqtt/internal/mqtt"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:           config.AppName,
		Short:         "Publish MIDI input events to an MQTT broker",
		Long:          "midi2mqtt listens on one MIDI input port and publishes every 3-byte message as {\"value\":N} to <topicprefix>/chan/<channel>/note/<note>.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}
			log, err := logging.New(cfg.LogLevel)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, cfg, log); err != nil {
				log.Error("midi2mqtt stopped", zap.Error(err))
				return err
			}
			return nil
		},
	}
	if err := config.BindFlags(cmd.PersistentFlags(), v); err != nil {
		panic(err)
	}

	cmd.AddCommand(newPortsCmd())
	cmd.AddCommand(newConfigCmd(v))
	return cmd
}

// run wires device, bus client and router and blocks until ctx is done or
// the bridge faults.
func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	log.Info("to watch the published events run",
		zap.String("command", fmt.Sprintf("mosquitto_sub -h %s -t \"%s/#\" -v", cfg.Host, cfg.TopicPrefix)))

	device, name, err := midi.Open(cfg.MIDIPort, log)
	if err != nil {
		return fmt.Errorf("opening MIDI port %d: %w", cfg.MIDIPort, err)
	}
	log.Info("listening to MIDI device", zap.String("device", name))

	myMqtt.RoutePahoLogs(log)
	client := myMqtt.NewClient(clientOptions(cfg, name, os.Hostname), log)

	b := bridge.New(bridge.Options{
		Router: bridge.NewRouter(cfg.TopicPrefix, client, log),
		Device: device,
		Loop:   client,
		Log:    log,
	})
	return b.Run(ctx)
}

// clientOptions maps the configuration onto the broker client options.
// The status document names the device and, when known, the host.
func clientOptions(cfg config.Config, device string, hostname func() (string, error)) myMqtt.Options {
	opts := myMqtt.DefaultOptions()
	opts.Scheme = cfg.Scheme
	opts.Host = cfg.Host
	opts.Port = cfg.Port
	opts.ClientID = cfg.ClientID
	opts.Username = cfg.Username
	opts.Password = cfg.Password
	opts.QoS = byte(cfg.QoS)
	opts.StatusTopic = cfg.StatusTopic()
	opts.StatusInfo = map[string]string{"device": device, "client_id": cfg.ClientID}
	if host, err := hostname(); err == nil {
		opts.StatusInfo["host"] = host
	}
	return opts
}

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List the available MIDI input ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := midi.ListPorts()
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}
			if len(ports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), midi.ErrNoPorts)
				return nil
			}
			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func newConfigCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
