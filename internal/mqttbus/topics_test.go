package mqttbus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTopicMACDecimalPayload(t *testing.T) {
	obs, ok := ParseTopic("gatekeeper", "gatekeeper/satellite/s1/AA:BB:CC:DD:EE:01", []byte("-60"))
	require.True(t, ok)
	require.Equal(t, "s1", obs.SatID)
	require.False(t, obs.IsUUID)
	require.Equal(t, -60, obs.RSSI)
	require.Equal(t, "AA:BB:CC:DD:EE:01", obs.Identifier)
}

func TestParseTopicUUIDJSONPayload(t *testing.T) {
	obs, ok := ParseTopic("gatekeeper", "gatekeeper/satellite/s1/uuid/4f7247da-7b6d-4e67-8f54-3e1a1c9e2233", []byte(`{"rssi":-65,"major":1,"minor":2}`))
	require.True(t, ok)
	require.True(t, obs.IsUUID)
	require.Equal(t, -65, obs.RSSI)
	require.NotNil(t, obs.Major)
	require.Equal(t, 1, *obs.Major)
}

func TestParseTopicHealthSubtree(t *testing.T) {
	obs, ok := ParseTopic("gatekeeper", "gatekeeper/satellite/s1/health/battery", []byte("87"))
	require.True(t, ok)
	require.True(t, obs.IsHealth)
	require.Equal(t, "battery", obs.HealthName)
	require.Equal(t, "87", obs.HealthVal)
}

func TestParseTopicMalformedJSONIgnored(t *testing.T) {
	_, ok := ParseTopic("gatekeeper", "gatekeeper/satellite/s1/uuid/4f7247da-7b6d-4e67-8f54-3e1a1c9e2233", []byte("not json"))
	require.False(t, ok)
}

func TestParseTopicNonNumericRSSIIgnored(t *testing.T) {
	_, ok := ParseTopic("gatekeeper", "gatekeeper/satellite/s1/AA:BB:CC:DD:EE:01", []byte("not-a-number"))
	require.False(t, ok)
}

func TestParseTopicWrongPrefixIgnored(t *testing.T) {
	_, ok := ParseTopic("gatekeeper", "other/satellite/s1/AA:BB:CC:DD:EE:01", []byte("-60"))
	require.False(t, ok)
}

func TestParseTopicFloatRSSIAccepted(t *testing.T) {
	obs, ok := ParseTopic("gatekeeper", "gatekeeper/satellite/s1/AA:BB:CC:DD:EE:01", []byte("-60.0"))
	require.True(t, ok)
	require.Equal(t, -60, obs.RSSI)
}
