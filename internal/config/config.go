// Package config loads the pldmd process configuration from TOML,
// grounded on the teacher's LoadGhostConfig/loadToml/Validate* shape:
// a defaulted, validated struct loaded with
// github.com/pelletier/go-toml/v2.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DeviceBootstrap seeds the session controller with a device known ahead
// of live discovery (spec.md §4.5 AddDevice), for deployments where
// device-added events are not otherwise surfaced to this process.
type DeviceBootstrap struct {
	TID          uint8  `toml:"tid"`
	EID          uint8  `toml:"eid"`
	LocationHint string `toml:"location_hint"`
}

// Timeouts overrides the named timing vars in internal/fwupdate/session.go
// and internal/pdr/manager.go (SPEC_FULL.md §2: config covers timeouts
// and retry counts as well as addressing/CORS).
type Timeouts struct {
	RequestTimeout                  time.Duration `toml:"request_timeout"`
	FDCmdTimeout                    time.Duration `toml:"fd_cmd_timeout"`
	RequestFirmwareDataIdleTimeout  time.Duration `toml:"request_firmware_data_idle_timeout"`
	RetryRequestForUpdateDelay      time.Duration `toml:"retry_request_for_update_delay"`
	InterCommandDelay               time.Duration `toml:"inter_command_delay"`
	RenewalLeadTime                 time.Duration `toml:"renewal_lead_time"`
	MaxRequestUpdateRetries         int           `toml:"max_request_update_retries"`
	PDRRequestTimeout                time.Duration `toml:"pdr_request_timeout"`
	PDRRepositoryRetries             int           `toml:"pdr_repository_retries"`
}

// Config is the top-level pldmd daemon configuration (teacher: GhostConfig).
type Config struct {
	Name                 string            `toml:"name"`
	DebugAddr            string            `toml:"debug_addr"`
	CorsOrigins          []string          `toml:"cors_origins"`
	DeviceDescriptorPath string            `toml:"device_descriptor_path"`
	Devices              []DeviceBootstrap `toml:"devices"`
	Timeouts             Timeouts          `toml:"timeouts"`
}

// LoadConfig reads path, fills in defaults for anything left zero, and
// validates the result (teacher: LoadGhostConfig).
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if err := loadToml(path, &cfg); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Name == "" {
		cfg.Name = "pldmd"
	}
	if cfg.DebugAddr == "" {
		cfg.DebugAddr = ":9200"
	}
	if cfg.DeviceDescriptorPath == "" {
		cfg.DeviceDescriptorPath = "devices.toml"
	}

	t := &cfg.Timeouts
	if t.RequestTimeout == 0 {
		t.RequestTimeout = 100 * time.Millisecond
	}
	if t.FDCmdTimeout == 0 {
		t.FDCmdTimeout = 5 * time.Second
	}
	if t.RequestFirmwareDataIdleTimeout == 0 {
		t.RequestFirmwareDataIdleTimeout = 90 * time.Second
	}
	if t.RetryRequestForUpdateDelay == 0 {
		t.RetryRequestForUpdateDelay = 5 * time.Second
	}
	if t.InterCommandDelay == 0 {
		t.InterCommandDelay = 500 * time.Millisecond
	}
	if t.RenewalLeadTime == 0 {
		t.RenewalLeadTime = 5 * time.Second
	}
	if t.MaxRequestUpdateRetries == 0 {
		t.MaxRequestUpdateRetries = 5
	}
	if t.PDRRequestTimeout == 0 {
		t.PDRRequestTimeout = 100 * time.Millisecond
	}
	if t.PDRRepositoryRetries == 0 {
		t.PDRRepositoryRetries = 3
	}
}

// Validate checks required fields and every bootstrap device entry
// (teacher: ValidateGhostConfig/ValidateSeedEntry).
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("config missing name")
	}
	if strings.TrimSpace(cfg.DebugAddr) == "" {
		return fmt.Errorf("config missing debug_addr")
	}
	seen := make(map[uint8]bool, len(cfg.Devices))
	for i, d := range cfg.Devices {
		if seen[d.TID] {
			return fmt.Errorf("devices[%d]: duplicate tid %d", i, d.TID)
		}
		seen[d.TID] = true
	}
	return nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}
