package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/openpldm/pldmd/internal/debugapi"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List every device pldmd currently tracks",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(addrFlag + "/devices")
	if err != nil {
		return fmt.Errorf("pldmctl: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pldmctl: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Devices []debugapi.DeviceView `json:"devices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("pldmctl: decode response: %w", err)
	}

	if len(body.Devices) == 0 {
		fmt.Println("no devices")
		return nil
	}
	fmt.Printf("%-5s %-5s %-10s %-8s %-24s %s\n", "TID", "EID", "RECORDS", "UPDATE", "NAME", "LOCATION")
	for _, d := range body.Devices {
		fmt.Printf("%-5d %-5d %-10d %-8t %-24s %s\n", d.TID, d.EID, d.RecordCount, d.UpdateActive, d.DeviceName, d.LocationHint)
	}
	return nil
}
