// Package configstore implements the on-disk JSON configuration store
// described by spec.md §6: known devices, satellites, settings and MQTT
// credentials, loaded/saved through an abstract store with atomic
// (write-temp-then-rename-with-fsync) writes.
package configstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Device is a known, tracked device (spec.md §3 "Known device").
type Device struct {
	Identifier string `json:"identifier"`
	Kind       string `json:"kind"` // "mac" or "uuid"
	Alias      string `json:"alias"`
	Type       string `json:"type,omitempty"`
}

// Satellite is a persisted satellite record (spec.md §3).
type Satellite struct {
	Room      string  `json:"room"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	RefRSSI1M int     `json:"ref_rssi_1m"`
	LastSeen  int64   `json:"last_seen"`
}

// Settings holds core-recognised settings plus pass-through values for
// surrounding collaborators.
type Settings struct {
	// PrefBeaconExpiration is PREF_BEACON_EXPIRATION (seconds, 15-300,
	// default 60) — the absence_timeout used by the zoning arbiter.
	PrefBeaconExpiration int `json:"pref_beacon_expiration"`

	// Extra carries all other settings the core does not interpret.
	Extra map[string]any `json:"extra,omitempty"`
}

// MQTTConfig is the MQTT broker connection configuration.
type MQTTConfig struct {
	Broker   string `json:"broker"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Prefix   string `json:"prefix"`
	Identity string `json:"identity"`
}

const defaultBeaconExpiration = 60

// Store is a mutex-guarded, file-backed config store. It keeps no
// in-memory copy: every call reads or writes the JSON file on disk, and
// a single mutex serialises those calls; writes persist atomically.
// The locking discipline follows the teacher's sqlite-backed store,
// adapted to JSON documents.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Open ensures dir exists and returns a Store rooted there. Failure to
// create the directory is fatal per spec.md §7.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// ListDevices returns the known-device set, or an empty slice (not an
// error) if the file does not exist or fails to parse.
func (s *Store) ListDevices() []Device {
	s.mu.Lock()
	defer s.mu.Unlock()

	var devices []Device
	if err := readJSON(s.path("devices.json"), &devices); err != nil {
		return []Device{}
	}
	return devices
}

// SaveDevices atomically persists the known-device set.
func (s *Store) SaveDevices(devices []Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.path("devices.json"), devices)
}

// ListSatellites returns the satellite registry, or an empty map if the
// file does not exist or fails to parse.
func (s *Store) ListSatellites() map[string]Satellite {
	s.mu.Lock()
	defer s.mu.Unlock()

	sats := map[string]Satellite{}
	if err := readJSON(s.path("satellites.json"), &sats); err != nil {
		return map[string]Satellite{}
	}
	return sats
}

// SaveSatellites atomically persists the satellite registry.
func (s *Store) SaveSatellites(sats map[string]Satellite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.path("satellites.json"), sats)
}

// LoadSettings returns settings, falling back to defaults on any parse
// or read error.
func (s *Store) LoadSettings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := Settings{PrefBeaconExpiration: defaultBeaconExpiration}
	if err := readJSON(s.path("settings.json"), &settings); err != nil {
		return Settings{PrefBeaconExpiration: defaultBeaconExpiration}
	}
	if settings.PrefBeaconExpiration < 15 || settings.PrefBeaconExpiration > 300 {
		settings.PrefBeaconExpiration = defaultBeaconExpiration
	}
	return settings
}

// SaveSettings atomically persists settings.
func (s *Store) SaveSettings(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.path("settings.json"), settings)
}

// LoadMQTT returns the MQTT connection configuration, or a zero-value
// (caller must supply broker via flags) if unset.
func (s *Store) LoadMQTT() MQTTConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cfg MQTTConfig
	_ = readJSON(s.path("mqtt.json"), &cfg)
	return cfg
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// writeJSONAtomic writes v to path via write-temp-then-rename with an
// explicit fsync, so a crash mid-write never leaves a corrupt or
// partially-written config file (spec.md §6).
func writeJSONAtomic(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
