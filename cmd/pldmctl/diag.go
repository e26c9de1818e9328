package main

import (
	"fmt"
	"os"
	"time"

	"github.com/openpldm/pldmd/internal/diag"
	"github.com/spf13/cobra"
)

var (
	diagHost          string
	diagPort          string
	diagUser          string
	diagKeyPath       string
	diagInsecureHostKey bool
	diagTimeout       time.Duration
)

// diagCmd runs a read-only command on the management host wired to a
// device's physical bus, for troubleshooting transport failures that
// aren't visible from pldmd's own PLDM-level view (SPEC_FULL.md DOMAIN
// STACK: operator diagnostics over SSH).
var diagCmd = &cobra.Command{
	Use:   "diag -- <command> [args...]",
	Short: "Run a diagnostic command on a management host over SSH",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDiag,
}

func init() {
	diagCmd.Flags().StringVar(&diagHost, "host", "", "management host (SSH); local exec if empty")
	diagCmd.Flags().StringVar(&diagPort, "port", "", "SSH port (default 22)")
	diagCmd.Flags().StringVar(&diagUser, "user", "", "SSH user")
	diagCmd.Flags().StringVar(&diagKeyPath, "key", "", "SSH private key path")
	diagCmd.Flags().BoolVar(&diagInsecureHostKey, "insecure-skip-host-key-check", false, "skip known_hosts verification")
	diagCmd.Flags().DurationVar(&diagTimeout, "timeout", 10*time.Second, "dial timeout")
}

func runDiag(cmd *cobra.Command, args []string) error {
	var runner diag.Runner
	if diagHost == "" {
		runner = diag.LocalRunner{}
	} else {
		runner = diag.SSHRunner{
			Host:                        diagHost,
			Port:                        diagPort,
			User:                        diagUser,
			KeyPath:                     diagKeyPath,
			InsecureSkipHostKeyChecking: diagInsecureHostKey,
			Timeout:                     diagTimeout,
		}
	}

	out, err := runner.Run(args[0], args[1:]...)
	fmt.Fprint(os.Stdout, out)
	if err != nil {
		return fmt.Errorf("pldmctl: diag command failed: %w", err)
	}
	return nil
}
