package publish

import (
	"encoding/json"
	"fmt"

	"gatekeeper/internal/configstore"
	"gatekeeper/internal/devicestate"
)

// Bus is the minimal publish surface the Presence Publisher needs.
// Satisfied by *mqttbus.Client.
type Bus interface {
	Publish(topic string, retained bool, payload []byte)
}

// deviceBlock is the HA "device" block shared by every entity belonging
// to one tracked device, identifying it and linking it to the hub via
// via_device, per the discovery pattern in spec.md §4.9.
type deviceBlock struct {
	Identifiers []string `json:"identifiers"`
	Name        string   `json:"name"`
	ViaDevice   string   `json:"via_device,omitempty"`
}

type discoveryConfig struct {
	Name              string      `json:"name"`
	UniqueID          string      `json:"unique_id"`
	StateTopic        string      `json:"state_topic"`
	JSONAttrTopic     string      `json:"json_attributes_topic,omitempty"`
	ValueTemplate     string      `json:"value_template,omitempty"`
	Device            deviceBlock `json:"device"`
	DeviceClass       string      `json:"device_class,omitempty"`
	UnitOfMeasurement string      `json:"unit_of_measurement,omitempty"`
	PayloadOn         string      `json:"payload_on,omitempty"`
	PayloadOff        string      `json:"payload_off,omitempty"`
}

// Publisher emits the two kinds of outbound message spec.md §4.9 names:
// state updates and discovery configs.
type Publisher struct {
	bus      Bus
	prefix   string
	identity string
}

// New returns a Publisher for the given bus, MQTT topic prefix and
// identity string (spec.md §6; identity defaults to "gatekeeper").
func New(bus Bus, prefix, identity string) *Publisher {
	if identity == "" {
		identity = "gatekeeper"
	}
	return &Publisher{bus: bus, prefix: prefix, identity: identity}
}

// PublishState emits the device_tracker state topic and attribute JSON
// document for a known device, both retained, per spec.md §4.9.
func (p *Publisher) PublishState(device configstore.Device, st *devicestate.State) {
	slug := Slug(device.Alias)
	base := fmt.Sprintf("%s/%s/%s", p.prefix, p.identity, slug)

	state := "not_home"
	confidence := 0
	if st.Present {
		state = "home"
		confidence = 100
	}
	p.bus.Publish(base+"/device_tracker", true, []byte(state))

	raw := make(map[string]int, len(st.Sources))
	for satID, src := range st.Sources {
		raw[satID] = src.RawRSSI
	}

	idType := "mac"
	if device.Kind == "uuid" {
		idType = "uuid"
	}

	doc := AttributeDoc{
		RSSI:       st.RSSI,
		Identifier: device.Identifier,
		IDType:     idType,
		SourceType: "bluetooth",
		Confidence: confidence,
		Room:       st.Room,
		Distance:   st.Distance,
		LastSeen:   st.LastSeen.Unix(),
		RawSources: raw,
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return
	}
	p.bus.Publish(base, true, b)
}

// PublishStartupStatus emits the identity online status retained on
// startup (spec.md §6).
func (p *Publisher) PublishStartupStatus() {
	p.bus.Publish(fmt.Sprintf("%s/%s/status", p.prefix, p.identity), true, []byte("online"))
}

// PublishDiscovery emits the hub binary_sensor config and, for every
// known device, a device_tracker plus three sensor configs, clearing
// legacy retained topics first per spec.md §4.9/§6.
func (p *Publisher) PublishDiscovery(devices []configstore.Device) {
	hubUID := fmt.Sprintf("gk_%s_hub", p.identity)
	hub := deviceBlock{Identifiers: []string{hubUID}, Name: "Gatekeeper Hub"}

	p.publishConfig(fmt.Sprintf("homeassistant/binary_sensor/%s/config", hubUID), discoveryConfig{
		Name:       "Gatekeeper Hub",
		UniqueID:   hubUID,
		StateTopic: fmt.Sprintf("%s/%s/status", p.prefix, p.identity),
		Device:     hub,
		PayloadOn:  "online",
		PayloadOff: "offline",
	})

	for _, d := range devices {
		p.publishDeviceDiscovery(d, hubUID)
	}
}

func (p *Publisher) publishDeviceDiscovery(d configstore.Device, hubUID string) {
	slug := Slug(d.Alias)
	legacy := legacySlug(d.Alias)
	uid := fmt.Sprintf("gk_%s_%s", p.identity, slug)
	attrTopic := fmt.Sprintf("%s/%s/%s", p.prefix, p.identity, slug)

	dev := deviceBlock{Identifiers: []string{uid}, Name: d.Alias, ViaDevice: hubUID}

	// Legacy cleanup (pre-normalisation alias form) before new configs.
	p.clearLegacy(fmt.Sprintf("gk_%s_%s", p.identity, legacy))

	p.publishConfig(fmt.Sprintf("homeassistant/device_tracker/%s/config", uid), discoveryConfig{
		Name:          d.Alias,
		UniqueID:      uid,
		StateTopic:    attrTopic + "/device_tracker",
		JSONAttrTopic: attrTopic,
		Device:        dev,
		PayloadOn:     "home",
		PayloadOff:    "not_home",
	})

	p.publishConfig(fmt.Sprintf("homeassistant/sensor/%s_room/config", uid), discoveryConfig{
		Name:          d.Alias + " Room",
		UniqueID:      uid + "_room",
		StateTopic:    attrTopic,
		ValueTemplate: "{{ value_json.room }}",
		Device:        dev,
	})
	p.publishConfig(fmt.Sprintf("homeassistant/sensor/%s_distance/config", uid), discoveryConfig{
		Name:              d.Alias + " Distance",
		UniqueID:          uid + "_distance",
		StateTopic:        attrTopic,
		ValueTemplate:     "{{ value_json.distance }}",
		UnitOfMeasurement: "m",
		Device:            dev,
	})
	p.publishConfig(fmt.Sprintf("homeassistant/sensor/%s_rssi/config", uid), discoveryConfig{
		Name:              d.Alias + " RSSI",
		UniqueID:          uid + "_rssi",
		StateTopic:        attrTopic,
		ValueTemplate:     "{{ value_json.rssi }}",
		UnitOfMeasurement: "dBm",
		DeviceClass:       "signal_strength",
		Device:            dev,
	})
}

// clearLegacy publishes empty retained payloads to the legacy node-id
// topic shapes, per spec.md §6, before new discovery configs are sent.
func (p *Publisher) clearLegacy(legacyUID string) {
	p.bus.Publish(fmt.Sprintf("homeassistant/device_tracker/%s/config", legacyUID), true, nil)
	p.bus.Publish(fmt.Sprintf("homeassistant/sensor/%s_room/config", legacyUID), true, nil)
	p.bus.Publish(fmt.Sprintf("homeassistant/sensor/%s_distance/config", legacyUID), true, nil)
	p.bus.Publish(fmt.Sprintf("homeassistant/sensor/%s_rssi/config", legacyUID), true, nil)
	p.bus.Publish(fmt.Sprintf("homeassistant/binary_sensor/%s/config", legacyUID), true, nil)
}

func (p *Publisher) publishConfig(topic string, cfg discoveryConfig) {
	b, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	p.bus.Publish(topic, true, b)
}
