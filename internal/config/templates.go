package config

import (
	"fmt"
	"os"
)

// WriteTemplate writes a starter pldmd.toml to path (teacher: WriteTemplate).
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(pldmdTemplate), 0o600)
}

const pldmdTemplate = `name = "pldmd"
debug_addr = ":9200"
cors_origins = ["http://localhost:3000"]
device_descriptor_path = "devices.toml"

[[devices]]
tid = 1
eid = 10
location_hint = "smbus:0:0x50"

[timeouts]
request_timeout = "100ms"
fd_cmd_timeout = "5s"
request_firmware_data_idle_timeout = "90s"
retry_request_for_update_delay = "5s"
inter_command_delay = "500ms"
renewal_lead_time = "5s"
max_request_update_retries = 5
pdr_request_timeout = "100ms"
pdr_repository_retries = 3
`
