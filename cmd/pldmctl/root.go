package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var addrFlag string

var rootCmd = &cobra.Command{
	Use:   "pldmctl",
	Short: "Operator CLI for pldmd",
	Long: `pldmctl talks to a running pldmd's debug/metrics surface to report live
device and update-session state, and can drive a standalone firmware-update
session against a device directly.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "http://localhost:9200", "pldmd debug surface base URL")
	rootCmd.AddCommand(statusCmd, dumpPDRCmd, startUpdateCmd, diagCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
