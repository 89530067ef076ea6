// Package identity implements the device identifier tagged union used
// throughout the hub: a BLE MAC address or an iBeacon UUID.
package identity

import (
	"regexp"
	"strings"
)

// Kind distinguishes the two identifier variants.
type Kind int

const (
	MAC Kind = iota
	UUID
)

func (k Kind) String() string {
	if k == UUID {
		return "uuid"
	}
	return "mac"
}

var (
	macRe  = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}([0-9A-Fa-f]{2})$`)
	uuidRe = regexp.MustCompile(`^[0-9A-Fa-f]{8}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{12}$`)
)

// ID is a canonicalised device identifier. MAC values are upper-cased
// with ':' separators; UUID values keep their source casing.
type ID struct {
	Kind  Kind
	Value string
}

// Parse canonicalises a raw identifier string. MACs are upper-cased;
// UUIDs are returned with the casing they were supplied in. Values that
// match neither shape are still returned as a MAC (best-effort), since
// spec.md's wire formats never emit anything else.
func Parse(raw string) ID {
	s := strings.TrimSpace(raw)
	if uuidRe.MatchString(s) {
		return ID{Kind: UUID, Value: s}
	}
	if macRe.MatchString(s) {
		return ID{Kind: MAC, Value: normalizeMAC(s)}
	}
	// Fall back to MAC-shaped normalisation; callers that already know
	// the kind (e.g. from topic shape) should prefer FromMAC/FromUUID.
	return ID{Kind: MAC, Value: normalizeMAC(s)}
}

// FromMAC builds an ID known (by topic shape) to be a MAC address.
func FromMAC(raw string) ID {
	return ID{Kind: MAC, Value: normalizeMAC(raw)}
}

// FromUUID builds an ID known (by topic shape) to be an iBeacon UUID.
// Casing is preserved verbatim per spec.md §3.
func FromUUID(raw string) ID {
	return ID{Kind: UUID, Value: strings.TrimSpace(raw)}
}

func normalizeMAC(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "-", ":")
	return strings.ToUpper(s)
}

// Equal compares two identifiers per spec.md §3: MAC equality is
// case-insensitive (both sides are already canonicalised upper-case by
// Parse/FromMAC so a plain string compare suffices); UUID equality is
// exact.
func (id ID) Equal(other ID) bool {
	return id.Kind == other.Kind && id.Value == other.Value
}

// Key returns the canonical map key: MAC keys are upper-case, UUID keys
// are byte-identical to the source casing, matching spec.md §3's
// "Identifier casing" invariant for known_devices/current_state/
// discovery_cache.
func (id ID) Key() string {
	return id.Value
}

func (id ID) IsMAC() bool  { return id.Kind == MAC }
func (id ID) IsUUID() bool { return id.Kind == UUID }

func (id ID) String() string { return id.Value }
