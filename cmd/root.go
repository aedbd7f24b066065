package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/owl-uav/owlink/config"
)

var (
	configPath string
	portName   string
	baudRate   int
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "owlink",
	Short: "Serial link multiplexer for owl flight controller fleets",
	Long: `Owlink relays MAVLink control and telemetry between a host and up to 16
flight controllers sharing one serial line.

The run command starts the long-lived link daemon; the one-shot commands
(arm, disarm, takeoff, land, rtl, version) open the link just long enough
to deliver a single command to one device.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device (overrides config)")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 0, "Baud rate (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig merges the config file, if any, with command-line overrides,
// and installs the logger.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return cfg, nil, err
		}
		cfg = loaded
	}

	if portName != "" {
		cfg.Serial.Port = portName
	}
	if baudRate != 0 {
		cfg.Serial.BaudRate = baudRate
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(log)
	return cfg, log, nil
}
