// cmd/bridgectl/gpio.go
package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tamzrod/stlink-bridge/internal/brgerr"
	"github.com/tamzrod/stlink-bridge/internal/link"
)

var (
	cmdGpio = &cobra.Command{
		Use:   "gpio",
		Short: "Read or drive the bridge GPIO channels",
	}
	cmdGpioRead = &cobra.Command{
		Use:   "read",
		Short: "Read all four channels",
		Args:  cobra.NoArgs,
		RunE:  runGpioRead,
	}
	cmdGpioWrite = &cobra.Command{
		Use:   "write <channel> <0|1>",
		Short: "Drive one output channel",
		Args:  cobra.ExactArgs(2),
		RunE:  runGpioWrite,
	}
)

func init() {
	rootCmd.AddCommand(cmdGpio)
	cmdGpio.AddCommand(cmdGpioRead, cmdGpioWrite)
}

func runGpioRead(cmd *cobra.Command, _ []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.connect(); err != nil {
		return err
	}
	defer e.bridge.Session.Disconnect()

	res := e.bridge.Dispatch.ReadGpio(link.GpioAll)
	if res.Err != nil {
		return res.Err
	}
	out := cmd.OutOrStdout()
	for ch, v := range res.Values {
		fmt.Fprintf(out, "GPIO%d  %s\n", ch, v)
	}
	return nil
}

func runGpioWrite(_ *cobra.Command, args []string) error {
	ch, err := strconv.Atoi(args[0])
	if err != nil || ch < 0 || ch >= link.GpioChannels {
		return brgerr.Param(brgerr.InvalidChannel, "bridgectl.gpio", "channel "+args[0])
	}
	var lv link.GpioLevel
	switch args[1] {
	case "0", "reset":
		lv = link.GpioReset
	case "1", "set":
		lv = link.GpioSet
	default:
		return brgerr.Param(brgerr.InvalidNumericInput, "bridgectl.gpio", "level "+args[1])
	}

	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.connect(); err != nil {
		return err
	}
	defer e.bridge.Session.Disconnect()

	return e.bridge.Dispatch.WriteGpio(link.MaskOf(ch), lv).Err
}
