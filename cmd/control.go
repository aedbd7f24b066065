package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/owl-uav/owlink/core/mavlink"
	"github.com/owl-uav/owlink/fleet"
)

var (
	targetDevice    uint8
	takeoffAltitude int
)

var armCmd = &cobra.Command{
	Use:   "arm",
	Short: "Arm a device's motors",
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(func(m *fleet.Manager) error {
			return m.Arm(targetDevice)
		})
	},
}

var disarmCmd = &cobra.Command{
	Use:   "disarm",
	Short: "Disarm a device's motors",
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(func(m *fleet.Manager) error {
			return m.Disarm(targetDevice)
		})
	},
}

var takeoffCmd = &cobra.Command{
	Use:   "takeoff",
	Short: "Command a takeoff to the given altitude",
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(func(m *fleet.Manager) error {
			return m.Takeoff(targetDevice, takeoffAltitude)
		})
	},
}

var landCmd = &cobra.Command{
	Use:   "land",
	Short: "Command a landing at the current position",
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(func(m *fleet.Manager) error {
			return m.Land(targetDevice)
		})
	},
}

var rtlCmd = &cobra.Command{
	Use:   "rtl",
	Short: "Command a return to the launch point",
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(func(m *fleet.Manager) error {
			return m.ReturnToLaunch(targetDevice)
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Request and print a device's firmware version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(func(m *fleet.Manager) error {
			if err := m.RequestVersion(targetDevice); err != nil {
				return err
			}
			// The reply arrives asynchronously; give the device a moment.
			deadline := time.Now().Add(3 * time.Second)
			for time.Now().Before(deadline) {
				if c, ok := m.CachedMessage(targetDevice, mavlink.MsgIDAutopilotVersion); ok {
					v := c.Msg.(*mavlink.AutopilotVersion)
					fmt.Printf("device %d: firmware %s board %d serial %s\n",
						targetDevice, v.FlightSwVersionString(), v.BoardVersion, v.SerialNumber())
					return nil
				}
				time.Sleep(100 * time.Millisecond)
			}
			return fmt.Errorf("device %d did not report a version", targetDevice)
		})
	},
}

func init() {
	control := []*cobra.Command{armCmd, disarmCmd, takeoffCmd, landCmd, rtlCmd, versionCmd}
	for _, c := range control {
		c.Flags().Uint8VarP(&targetDevice, "device", "d", 0, "Target device id (1-16)")
		c.MarkFlagRequired("device")
		rootCmd.AddCommand(c)
	}
	takeoffCmd.Flags().IntVarP(&takeoffAltitude, "altitude", "a", 0, "Takeoff altitude in centimetres")
	takeoffCmd.MarkFlagRequired("altitude")
}

// oneShot opens the link, runs op, flushes the outbound queue and shuts
// down. Delivery is best-effort: the command is on the wire when oneShot
// returns, but device-side completion arrives asynchronously.
func oneShot(op func(*fleet.Manager) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	manager, err := openLink(cfg, log)
	if err != nil {
		return err
	}
	defer manager.Stop()

	if err := op(manager); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return manager.Flush(ctx)
}
