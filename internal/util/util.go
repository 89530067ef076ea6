// String helpers used by the local-radio source (internal/bleradio) to
// clean up advertised names before they reach the discovery cache.
package util

import (
	"regexp"
	"strings"
)

var macRe = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}([0-9A-Fa-f]{2})$`)

// IsMACAddress reports whether s looks like a colon- or dash-separated
// 48-bit MAC address, used by SafeName to filter out radios that
// advertise their own address as the local name.
func IsMACAddress(s string) bool {
	return macRe.MatchString(strings.TrimSpace(s))
}

// SafeName normalises a BLE advertisement's local name for the
// discovery cache: blank or MAC-shaped names (some beacons advertise
// their own address) collapse to "Unknown" rather than surfacing noise
// in Home Assistant.
func SafeName(localName string) string {
	name := strings.TrimSpace(localName)
	if name == "" {
		return "Unknown"
	}
	if IsMACAddress(name) {
		return "Unknown"
	}
	return name
}
