package main

import (
	"context"
	"fmt"
	"time"

	"github.com/openpldm/pldmd/internal/control"
	"github.com/openpldm/pldmd/internal/identifier"
	"github.com/openpldm/pldmd/internal/logging"
	"github.com/openpldm/pldmd/internal/platform"
	"github.com/openpldm/pldmd/internal/transport"
	"github.com/spf13/cobra"
)

var (
	startUpdateTID          uint8
	startUpdateEID          uint8
	startUpdateLocationHint string
	startUpdateImagePath    string
	startUpdateVersion      string
)

// startUpdateCmd drives a standalone firmware-update session directly,
// independent of any running pldmd process — the debug surface is
// read-only (SPEC_FULL.md §2), so triggering an update never goes through
// it. The real packet transport is wired by swapping transport.Unconfigured
// here for a production binding.
var startUpdateCmd = &cobra.Command{
	Use:   "start-update",
	Short: "Run a standalone firmware-update session against one device",
	RunE:  runStartUpdate,
}

func init() {
	startUpdateCmd.Flags().Uint8Var(&startUpdateTID, "tid", 0, "device TID")
	startUpdateCmd.Flags().Uint8Var(&startUpdateEID, "eid", 0, "device EID")
	startUpdateCmd.Flags().StringVar(&startUpdateLocationHint, "location-hint", "", "PDR retrieval location hint")
	startUpdateCmd.Flags().StringVar(&startUpdateImagePath, "image", "", "path to the firmware image file")
	startUpdateCmd.Flags().StringVar(&startUpdateVersion, "version", "", "component image set version string")
	startUpdateCmd.MarkFlagRequired("tid")
	startUpdateCmd.MarkFlagRequired("eid")
	startUpdateCmd.MarkFlagRequired("image")
	startUpdateCmd.MarkFlagRequired("version")
}

func runStartUpdate(cmd *cobra.Command, args []string) error {
	logging.ConfigureRuntime()

	image, err := newFileImageAccessor(startUpdateImagePath, startUpdateVersion)
	if err != nil {
		return err
	}

	idents := identifier.NewService()
	pt := &transport.Unconfigured{}
	adapter := transport.New(pt, idents)
	plat := platform.LoggingSurface{}
	ctrl := control.New(adapter, idents, plat, plat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	tid := identifier.TID(startUpdateTID)
	ctrl.AddDevice(tid, identifier.EID(startUpdateEID), startUpdateLocationHint)

	deadline := time.Now().Add(10 * time.Second)
	ready := func() bool { _, ok := ctrl.Repository(tid); return ok }
	for time.Now().Before(deadline) && !ready() {
		time.Sleep(50 * time.Millisecond)
	}
	if !ready() {
		return fmt.Errorf("pldmctl: device tid=%d never came ready (PDR retrieval failed or timed out)", startUpdateTID)
	}

	result, err := ctrl.StartUpdate(ctx, tid, image)
	if err != nil {
		return fmt.Errorf("pldmctl: update failed: %w", err)
	}
	fmt.Printf("update succeeded: tid=%d components=%d activation_secs=%d\n", result.TID, result.AppliedComponents, result.EstimatedActivationSecs)
	return nil
}
