// cmd/bridgectl/sensor.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tamzrod/stlink-bridge/internal/i2cbus"
)

var (
	cmdSensor = &cobra.Command{
		Use:   "sensor",
		Short: "Read an SHTC3 temperature/humidity sensor on the bridge I2C bus",
		Args:  cobra.NoArgs,
		RunE:  runSensor,
	}
)

func init() {
	rootCmd.AddCommand(cmdSensor)
}

func runSensor(cmd *cobra.Command, _ []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.connect(); err != nil {
		return err
	}
	defer e.bridge.Session.Disconnect()

	r, err := i2cbus.ReadSHTC3(i2cbus.New(e.bridge.Dispatch))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), r)
	return nil
}
