// cmd/bridgectl/list.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	cmdList = &cobra.Command{
		Use:   "list",
		Short: "List attached bridges",
		Long:  ``,
		RunE:  runList,
	}
)

func init() {
	rootCmd.AddCommand(cmdList)
}

func runList(cmd *cobra.Command, _ []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	devs, err := e.bridge.Session.List()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(devs) == 0 {
		fmt.Fprintln(out, "no device found")
		return nil
	}
	for _, d := range devs {
		use := ""
		if d.InUse {
			use = " (in use)"
		}
		fmt.Fprintf(out, "%s  %04x:%04x  %s%s\n", d.UniqueID, d.VendorID, d.ProductID, d.BridgeID, use)
	}
	return nil
}
