package mqttbus

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Observation is a parsed inbound satellite message, routed to the
// ingestion router. IsHealth distinguishes a health-sensor reading from
// a device RSSI observation.
type Observation struct {
	SatID      string
	IsHealth   bool
	HealthName string
	HealthVal  string

	IsUUID     bool
	Identifier string // MAC (upper-case) or UUID (source casing)
	RSSI       int
	Major      *int
	Minor      *int
}

type uuidPayload struct {
	RSSI  int  `json:"rssi"`
	Major *int `json:"major,omitempty"`
	Minor *int `json:"minor,omitempty"`
}

// ParseTopic parses an inbound message under the `<prefix>/satellite/#`
// wildcard per spec.md §6. ok=false for malformed/unrecognised shapes,
// which callers must silently ignore after a debug log (spec.md §7).
//
// Recognised shapes:
//
//	<prefix>/satellite/<sat_id>/<MAC>                payload: decimal RSSI
//	<prefix>/satellite/<sat_id>/uuid/<UUID>           payload: JSON {rssi,major?,minor?}
//	<prefix>/satellite/<sat_id>/health/<sensor_name>  payload: raw value (not routed to zoning)
func ParseTopic(prefix, topic string, payload []byte) (Observation, bool) {
	root := prefix + "/satellite/"
	if !strings.HasPrefix(topic, root) {
		return Observation{}, false
	}
	rest := strings.TrimPrefix(topic, root)
	parts := strings.Split(rest, "/")
	if len(parts) < 2 {
		return Observation{}, false
	}
	satID := parts[0]
	if satID == "" {
		return Observation{}, false
	}

	if parts[1] == "health" {
		if len(parts) != 3 || parts[2] == "" {
			return Observation{}, false
		}
		return Observation{SatID: satID, IsHealth: true, HealthName: parts[2], HealthVal: string(payload)}, true
	}

	if parts[1] == "uuid" {
		if len(parts) != 3 || parts[2] == "" {
			return Observation{}, false
		}
		var p uuidPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return Observation{}, false
		}
		return Observation{
			SatID:      satID,
			IsUUID:     true,
			Identifier: parts[2],
			RSSI:       p.RSSI,
			Major:      p.Major,
			Minor:      p.Minor,
		}, true
	}

	if len(parts) != 2 || parts[1] == "" {
		return Observation{}, false
	}
	rssi, err := parseRSSI(strings.TrimSpace(string(payload)))
	if err != nil {
		return Observation{}, false
	}
	return Observation{SatID: satID, IsUUID: false, Identifier: parts[1], RSSI: rssi}, true
}

func parseRSSI(s string) (int, error) {
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
