package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/owl-uav/owlink/config"
	"github.com/owl-uav/owlink/fleet"
	"github.com/owl-uav/owlink/telemetry/mqtt"
	"github.com/owl-uav/owlink/transport/serial"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the link daemon",
	Long: `Open the serial line and run the link until interrupted: relay inbound
telemetry into per-device state, broadcast heartbeats, and (if configured)
publish device snapshots to MQTT.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	manager, err := openLink(cfg, log)
	if err != nil {
		return err
	}
	defer manager.Stop()

	var publisher *mqtt.Publisher
	if cfg.MQTT.Enabled {
		publisher = mqtt.New(mqtt.Config{
			Broker:          cfg.MQTT.Broker,
			Username:        cfg.MQTT.Username,
			Password:        cfg.MQTT.Password,
			UseTLS:          cfg.MQTT.UseTLS,
			TopicPrefix:     cfg.MQTT.TopicPrefix,
			FleetID:         cfg.MQTT.FleetID,
			PublishInterval: time.Duration(cfg.MQTT.PublishInterval),
			Logger:          log,
		}, manager)
		if err := publisher.Start(context.Background()); err != nil {
			return err
		}
		defer publisher.Stop()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info("shutting down", "signal", s.String())
		return manager.Stop()
	case <-manager.Done():
		return manager.Err()
	}
}

// openLink opens the configured serial port and starts a link manager on it.
func openLink(cfg config.Config, log *slog.Logger) (*fleet.Manager, error) {
	port, err := serial.Open(serial.Config{
		Port:     cfg.Serial.Port,
		BaudRate: cfg.Serial.BaudRate,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}

	manager, err := fleet.New(fleet.Config{
		Port:              port,
		HeartbeatInterval: time.Duration(cfg.Fleet.HeartbeatInterval),
		QueueSize:         cfg.Fleet.QueueSize,
		Logger:            log,
	})
	if err != nil {
		port.Close()
		return nil, err
	}
	if err := manager.Start(); err != nil {
		port.Close()
		return nil, err
	}
	return manager, nil
}
