package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var dumpPDRTID uint8

var dumpPDRCmd = &cobra.Command{
	Use:   "dump-pdr",
	Short: "Print one device's retrieved PDR summary as JSON",
	RunE:  runDumpPDR,
}

func init() {
	dumpPDRCmd.Flags().Uint8Var(&dumpPDRTID, "tid", 0, "device TID")
	dumpPDRCmd.MarkFlagRequired("tid")
}

func runDumpPDR(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("%s/devices/%d", addrFlag, dumpPDRTID))
	if err != nil {
		return fmt.Errorf("pldmctl: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pldmctl: tid %d: unexpected status %d", dumpPDRTID, resp.StatusCode)
	}

	var pretty map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&pretty); err != nil {
		return fmt.Errorf("pldmctl: decode response: %w", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(pretty)
}
