// Package ids resolves a BLE device MAC's OUI prefix to a vendor name,
// used by internal/engine to give discovery-cache entries a cosmetic
// name when an advertisement itself carries none (spec.md §3's
// discovery cache is UI-only).
package ids

import (
	"fmt"
	"os"
	"path/filepath"
)

// LoadConfig locates the vendor data files: data/default/oui.csv,
// optionally overlaid by a custom file an operator drops under
// data/custom/oui.csv. The repository ships neither file; both are
// optional.
type LoadConfig struct {
	// DataDir is the root directory that contains default/ and custom/ subfolders.
	// Example:
	//   data/default/oui.csv
	//   data/custom/oui.csv
	DataDir string

	// CustomDir optionally overrides the custom directory path. When empty, it is
	// assumed to be <DataDir>/custom.
	CustomDir string
}

// Load builds a Resolver from the OUI vendor table under cfg.DataDir.
// Returns (nil, nil) if no vendor data is found anywhere — callers
// (cmd/gatekeeper/main.go) treat that as "enrichment disabled", not a
// fatal error, since the hub tracks presence fine without vendor names.
func Load(cfg LoadConfig) (*Resolver, error) {
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	defaultDir := filepath.Join(cfg.DataDir, "default")
	customDir := cfg.CustomDir
	if customDir == "" {
		customDir = filepath.Join(cfg.DataDir, "custom")
	}

	res := &Resolver{vendors: map[string]string{}}

	// Load defaults (best-effort), then overlay custom on top.
	_ = loadOUIInto(res.vendors, filepath.Join(defaultDir, "oui.csv"))
	_ = loadOUIInto(res.vendors, filepath.Join(customDir, "oui.csv"))

	if len(res.vendors) == 0 {
		return nil, nil
	}

	// Validate directories existence only when user explicitly provided them.
	if cfg.CustomDir != "" {
		if _, err := os.Stat(cfg.CustomDir); err != nil {
			return res, fmt.Errorf("custom-data-dir not accessible: %w", err)
		}
	}

	return res, nil
}

func loadOUIInto(dst map[string]string, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	items, err := LoadOUI(path)
	if err != nil {
		return err
	}
	for k, v := range items {
		dst[k] = v
	}
	return nil
}
