// Owlink relays MAVLink control and telemetry between a host and a fleet of
// flight controllers multiplexed over one shared serial line.
package main

import (
	"os"

	"github.com/owl-uav/owlink/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
