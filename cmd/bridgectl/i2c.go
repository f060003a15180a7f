// cmd/bridgectl/i2c.go
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tamzrod/stlink-bridge/internal/i2cbus"
	"github.com/tamzrod/stlink-bridge/internal/numbase"
)

var (
	cmdI2c = &cobra.Command{
		Use:   "i2c",
		Short: "I2C master transfers",
	}
	cmdI2cWrite = &cobra.Command{
		Use:   "write <address> <byte>[,<byte>...]",
		Short: "Write bytes to a target",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runI2cWrite,
	}
	cmdI2cRead = &cobra.Command{
		Use:   "read <address> <count>",
		Short: "Read bytes from a target",
		Args:  cobra.ExactArgs(2),
		RunE:  runI2cRead,
	}
	cmdI2cScan = &cobra.Command{
		Use:   "scan",
		Short: "Probe every 7-bit address",
		Args:  cobra.NoArgs,
		RunE:  runI2cScan,
	}
)

func init() {
	rootCmd.AddCommand(cmdI2c)
	cmdI2c.AddCommand(cmdI2cWrite, cmdI2cRead, cmdI2cScan)
}

func runI2cWrite(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.connect(); err != nil {
		return err
	}
	defer e.bridge.Session.Disconnect()

	// "1, 2" and "1 2" both work
	_, line, err := e.bridge.WriteI2cText(args[0], strings.Join(args[1:], ","))
	if line != "" {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return err
}

func runI2cRead(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.connect(); err != nil {
		return err
	}
	defer e.bridge.Session.Disconnect()

	_, line, err := e.bridge.ReadI2cText(args[0], args[1])
	if line != "" {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return err
}

func runI2cScan(cmd *cobra.Command, _ []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.connect(); err != nil {
		return err
	}
	defer e.bridge.Session.Disconnect()

	found := i2cbus.New(e.bridge.Dispatch).Scan()
	out := cmd.OutOrStdout()
	if len(found) == 0 {
		fmt.Fprintln(out, "no targets")
		return nil
	}
	for _, a := range found {
		fmt.Fprintln(out, numbase.Format(uint64(a), e.bridge.Base()))
	}
	return nil
}
