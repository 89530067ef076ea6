package ids

import (
	"strings"
)

// Resolver resolves a MAC's OUI prefix (the first three octets) to the
// registered vendor name. A nil *Resolver is valid and resolves
// nothing, so callers that skip loading vendor data (no oui.csv
// present) don't need a nil check before using one.
type Resolver struct {
	vendors map[string]string
}

// VendorForMAC returns the vendor name for mac's OUI, or "" if mac is
// malformed or the OUI is unregistered. Used by
// internal/engine.Engine.Ingest to fill the discovery cache's Name
// field when an advertisement carries no local name.
func (r *Resolver) VendorForMAC(mac string) string {
	if r == nil || len(r.vendors) == 0 {
		return ""
	}
	oui := macToOUI(mac)
	if oui == "" {
		return ""
	}
	if v, ok := r.vendors[oui]; ok {
		return v
	}
	return ""
}

func macToOUI(mac string) string {
	mac = strings.TrimSpace(mac)
	if mac == "" {
		return ""
	}
	// Expected formats: AA:BB:CC:DD:EE:FF or AA-BB-CC-DD-EE-FF
	parts := strings.FieldsFunc(mac, func(r rune) bool {
		return r == ':' || r == '-'
	})
	if len(parts) < 3 {
		return ""
	}
	oui := strings.ToUpper(parts[0] + parts[1] + parts[2])
	if len(oui) != 6 {
		return ""
	}
	return oui
}
