// Command pldmd runs the manageability-controller agent: the session
// controller's device add/remove/teardown event loop plus the
// operator-facing debug/metrics HTTP surface, grounded on the teacher's
// cmd/miragectl main's service-wiring shape.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/openpldm/pldmd/internal/config"
	"github.com/openpldm/pldmd/internal/control"
	"github.com/openpldm/pldmd/internal/debugapi"
	"github.com/openpldm/pldmd/internal/fwupdate"
	"github.com/openpldm/pldmd/internal/identifier"
	"github.com/openpldm/pldmd/internal/logging"
	"github.com/openpldm/pldmd/internal/pdr"
	"github.com/openpldm/pldmd/internal/platform"
	"github.com/openpldm/pldmd/internal/transport"
	"github.com/rs/zerolog/log"
)

// applyTimeouts overrides fwupdate's and pdr's package-level timing vars
// from the loaded config, before any session or repository retrieval
// starts.
func applyTimeouts(t config.Timeouts) {
	fwupdate.RequestTimeout = t.RequestTimeout
	fwupdate.FDCmdTimeout = t.FDCmdTimeout
	fwupdate.RequestFirmwareDataIdleTimeout = t.RequestFirmwareDataIdleTimeout
	fwupdate.RetryRequestForUpdateDelay = t.RetryRequestForUpdateDelay
	fwupdate.InterCommandDelay = t.InterCommandDelay
	fwupdate.RenewalLeadTime = t.RenewalLeadTime
	fwupdate.MaxRequestUpdateRetries = t.MaxRequestUpdateRetries
	pdr.RequestTimeout = t.PDRRequestTimeout
	pdr.RepositoryRetries = t.PDRRepositoryRetries
}

func main() {
	configPath := flag.String("config", "cmd/pldmd/pldmd.toml", "path to pldmd.toml")
	flag.Parse()

	logging.ConfigureRuntime()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pldmd: %v\n", err)
		os.Exit(1)
	}

	applyTimeouts(cfg.Timeouts)

	idents := identifier.NewService()
	pt := &transport.Unconfigured{}
	adapter := transport.New(pt, idents)
	plat := platform.LoggingSurface{}

	ctrl := control.New(adapter, idents, plat, plat)

	for _, d := range cfg.Devices {
		ctrl.AddDevice(identifier.TID(d.TID), identifier.EID(d.EID), d.LocationHint)
	}

	debug := debugapi.New(cfg.Name, cfg.DebugAddr, ctrl, cfg.CorsOrigins)

	ctx := context.Background()
	go func() {
		log.Info().Str("addr", cfg.DebugAddr).Msg("pldmd: debug surface listening")
		if err := debug.Serve(); err != nil {
			log.Error().Err(err).Msg("pldmd: debug surface exited")
		}
	}()

	log.Info().Str("name", cfg.Name).Int("bootstrap_devices", len(cfg.Devices)).Msg("pldmd: starting")
	if err := ctrl.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "pldmd: %v\n", err)
		os.Exit(1)
	}
}
