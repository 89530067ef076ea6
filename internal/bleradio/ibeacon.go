package bleradio

import "fmt"

const appleCompanyID = 0x004C

// manufacturerEntry mirrors the teacher's adv.go shape for Apple
// manufacturer-specific data (company ID + raw bytes).
type manufacturerEntry struct {
	CompanyID uint16
	Data      []byte
}

// parseIBeacon extracts (uuid, major, minor) from Apple iBeacon
// manufacturer data, matching original_source/gatekeeper_ng/
// app/ble_scanner.py's manufacturer-data prefix check (0x02, 0x15
// following company ID 0x004C).
func parseIBeacon(entries []manufacturerEntry) (uuid string, major, minor int, ok bool) {
	for _, m := range entries {
		if m.CompanyID != appleCompanyID {
			continue
		}
		d := m.Data
		if len(d) < 23 || d[0] != 0x02 || d[1] != 0x15 {
			continue
		}
		uuidBytes := d[2:18]
		major = int(d[18])<<8 | int(d[19])
		minor = int(d[20])<<8 | int(d[21])
		return formatUUID(uuidBytes), major, minor, true
	}
	return "", 0, 0, false
}

func formatUUID(b []byte) string {
	return fmt.Sprintf("%02x%02x%02x%02x-%02x%02x-%02x%02x-%02x%02x-%02x%02x%02x%02x%02x%02x",
		b[0], b[1], b[2], b[3], b[4], b[5], b[6], b[7],
		b[8], b[9], b[10], b[11], b[12], b[13], b[14], b[15])
}
