// Package publish implements the Presence Publisher (C9): state
// updates and Home Assistant MQTT discovery, per spec.md §4.9 and §6.
package publish

import (
	"strings"
)

// Slug derives the alias_slug used in publish topics: lower-cased,
// spaces and dashes replaced with underscore (spec.md §6 "Alias slug
// rule").
func Slug(alias string) string {
	s := strings.ReplaceAll(alias, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ToLower(s)
}

// legacySlug applies only the spaces->underscore normalisation,
// preserving original case and dashes — the "pre-normalisation alias
// form" spec.md §6 requires legacy-cleanup payloads to target.
func legacySlug(alias string) string {
	return strings.ReplaceAll(alias, " ", "_")
}

// AttributeDoc is the JSON attribute document published alongside the
// device_tracker state topic (spec.md §4.9).
type AttributeDoc struct {
	RSSI       float64        `json:"rssi"`
	Identifier string         `json:"identifier"`
	IDType     string         `json:"id_type"`
	SourceType string         `json:"source_type"`
	Confidence int            `json:"confidence"`
	Room       string         `json:"room"`
	Distance   float64        `json:"distance"`
	LastSeen   int64          `json:"last_seen"`
	RawSources map[string]int `json:"raw_sources"`
}
