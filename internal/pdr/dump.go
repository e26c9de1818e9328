package pdr

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/openpldm/pldmd/internal/identifier"
)

// DumpPath returns the fixed dump-file location for tid (spec §6
// "Persisted state").
func DumpPath(tid identifier.TID) string {
	return fmt.Sprintf("/tmp/pldm_pdr_dump_%d.txt", uint8(tid))
}

// Dump writes one "PDR Type: <n>\nLength: <n>\nData: <hex bytes>" block
// per record to path, matching the persisted-state format named in spec
// §6.
func (r *Repository) Dump(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("pdr: dump mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pdr: dump create: %w", err)
	}
	defer f.Close()

	for _, rec := range r.Records {
		if _, err := fmt.Fprintf(f, "PDR Type: %d\nLength: %d\nData: %x\n\n", rec.Type, len(rec.Raw), rec.Raw); err != nil {
			return fmt.Errorf("pdr: dump write: %w", err)
		}
	}
	return nil
}
