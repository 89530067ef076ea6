package publish

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gatekeeper/internal/configstore"
	"gatekeeper/internal/devicestate"
)

type recordedMsg struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeBus struct {
	msgs []recordedMsg
}

func (f *fakeBus) Publish(topic string, retained bool, payload []byte) {
	f.msgs = append(f.msgs, recordedMsg{topic: topic, retained: retained, payload: payload})
}

func (f *fakeBus) topics() []string {
	out := make([]string, len(f.msgs))
	for i, m := range f.msgs {
		out[i] = m.topic
	}
	return out
}

func TestSlugRule(t *testing.T) {
	require.Equal(t, "alice_phone", Slug("Alice Phone"))
	require.Equal(t, "my_device", Slug("My-Device"))
}

func TestPublishStateTopics(t *testing.T) {
	bus := &fakeBus{}
	p := New(bus, "gatekeeper", "gatekeeper")
	device := configstore.Device{Identifier: "AA:BB:CC:DD:EE:01", Kind: "mac", Alias: "Phone"}
	st := &devicestate.State{Present: true, Room: "Kitchen", RSSI: -59, Distance: 1.0, LastSeen: time.Unix(1000, 0)}

	p.PublishState(device, st)

	require.Contains(t, bus.topics(), "gatekeeper/gatekeeper/phone/device_tracker")
	require.Contains(t, bus.topics(), "gatekeeper/gatekeeper/phone")
}

func TestPublishStateHomeNotHome(t *testing.T) {
	bus := &fakeBus{}
	p := New(bus, "gatekeeper", "gatekeeper")
	device := configstore.Device{Identifier: "AA:BB:CC:DD:EE:01", Kind: "mac", Alias: "Phone"}

	p.PublishState(device, &devicestate.State{Present: false, Room: "not_home"})
	require.Equal(t, []byte("not_home"), bus.msgs[0].payload)
}

func TestPublishDiscoveryLegacyCleanupBeforeNewConfig(t *testing.T) {
	bus := &fakeBus{}
	p := New(bus, "gatekeeper", "gatekeeper")
	devices := []configstore.Device{{Identifier: "x", Kind: "mac", Alias: "Alice Phone"}}

	p.PublishDiscovery(devices)

	legacyIdx, newIdx := -1, -1
	for i, topic := range bus.topics() {
		if topic == "homeassistant/device_tracker/gk_gatekeeper_Alice_Phone/config" {
			legacyIdx = i
		}
		if topic == "homeassistant/device_tracker/gk_gatekeeper_alice_phone/config" {
			newIdx = i
		}
	}
	require.GreaterOrEqual(t, legacyIdx, 0)
	require.GreaterOrEqual(t, newIdx, 0)
	require.Less(t, legacyIdx, newIdx)

	require.Empty(t, bus.msgs[legacyIdx].payload)
	require.NotEmpty(t, bus.msgs[newIdx].payload)
}

func TestPublishDiscoveryEmitsHubAndThreeSensorsPerDevice(t *testing.T) {
	bus := &fakeBus{}
	p := New(bus, "gatekeeper", "gatekeeper")
	devices := []configstore.Device{{Identifier: "x", Kind: "mac", Alias: "Phone"}}

	p.PublishDiscovery(devices)

	require.Contains(t, bus.topics(), "homeassistant/binary_sensor/gk_gatekeeper_hub/config")
	require.Contains(t, bus.topics(), "homeassistant/sensor/gk_gatekeeper_phone_room/config")
	require.Contains(t, bus.topics(), "homeassistant/sensor/gk_gatekeeper_phone_distance/config")
	require.Contains(t, bus.topics(), "homeassistant/sensor/gk_gatekeeper_phone_rssi/config")
}
