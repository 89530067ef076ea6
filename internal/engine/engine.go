// Package engine is the single "engine" value Design Notes §9 calls
// for: it owns every process-lifetime map (current_state via
// devicestate.Store, signal_buffers, discovery_cache, zoning_state via
// zoning.Arbiter, last_sat_signals, calib_sessions via
// calibration.Sessions) and implements the Ingestion Router (C7) and
// Maintenance Loop (C8). Grounded on original_source/gatekeeper_ng/
// app/tracker.py's DeviceTracker (process_remote_packet, process_packet,
// maintenance_loop) and app/core.py's wiring shape, translated from
// asyncio callbacks to goroutines/channels per spec.md §5.
package engine

import (
	"strings"
	"sync"
	"time"

	"gatekeeper/internal/bleradio"
	"gatekeeper/internal/calibration"
	"gatekeeper/internal/configstore"
	"gatekeeper/internal/devicestate"
	"gatekeeper/internal/identity"
	"gatekeeper/internal/ids"
	"gatekeeper/internal/satellite"
	"gatekeeper/internal/signalproc"
	"gatekeeper/internal/zoning"
)

// HubSatelliteID is the reserved satellite id attributing locally
// observed advertisements (spec.md §3).
const HubSatelliteID = "gatekeeper-hub"

// Extra carries the optional per-observation fields spec.md §4.7
// allows (major/minor/name), e.g. from an iBeacon payload.
type Extra struct {
	Name  string
	Major *int
	Minor *int
}

// Publisher is the C9 dependency the engine drives.
type Publisher interface {
	PublishState(device configstore.Device, st *devicestate.State)
	PublishDiscovery(devices []configstore.Device)
	PublishStartupStatus()
}

// Config holds the engine's reconfigurable knobs.
type Config struct {
	Zoning          zoning.Config
	TimeoutInterval time.Duration // C8 absence-publish threshold, default 45s (15-300)
}

// DefaultConfig returns spec.md's documented defaults.
func DefaultConfig() Config {
	return Config{
		Zoning:          zoning.DefaultConfig(),
		TimeoutInterval: 45 * time.Second,
	}
}

// Engine is the process-lifetime owner of all in-memory tracking state.
type Engine struct {
	cfg       Config
	store     *configstore.Store
	sats      *satellite.Registry
	states    *devicestate.Store
	arbiter   *zoning.Arbiter
	publisher Publisher
	Calib     *calibration.Sessions

	devicesMu sync.RWMutex
	devices   map[string]configstore.Device // keyed by identity.Key()

	buffersMu sync.Mutex
	buffers   map[string]*signalproc.Buffer // keyed by satID+"|"+identifier

	discovery *discoveryCache
	resolver  *ids.Resolver

	sigMu          sync.Mutex
	lastSatSignals map[string]sigSample

	statsMu        sync.Mutex
	satelliteStats map[string]map[string]string
}

type sigSample struct {
	rssi int
	ts   time.Time
}

// New builds an engine over store, registering it as the calibration
// session's signal source. resolver is optional (nil disables
// discovery-cache vendor-name enrichment); callers typically load one
// via ids.Load against the same data directory serving the config
// store.
func New(store *configstore.Store, publisher Publisher, cfg Config, resolver *ids.Resolver) *Engine {
	e := &Engine{
		cfg:            cfg,
		store:          store,
		sats:           satellite.New(store),
		states:         devicestate.New(),
		arbiter:        zoning.New(cfg.Zoning),
		publisher:      publisher,
		devices:        map[string]configstore.Device{},
		buffers:        map[string]*signalproc.Buffer{},
		discovery:      newDiscoveryCache(),
		resolver:       resolver,
		lastSatSignals: map[string]sigSample{},
		satelliteStats: map[string]map[string]string{},
	}
	e.Calib = calibration.New(e)
	e.ReloadDevices()
	return e
}

// ReloadDevices reloads the known-device set from the config store and
// atomically swaps it in; never blocks ingestion (spec.md §5).
func (e *Engine) ReloadDevices() {
	list := e.store.ListDevices()
	next := make(map[string]configstore.Device, len(list))
	for _, d := range list {
		id := canonicalIdentifier(d.Identifier, d.Kind)
		next[id] = d
	}
	e.devicesMu.Lock()
	e.devices = next
	e.devicesMu.Unlock()
}

func canonicalIdentifier(raw, kind string) string {
	if strings.EqualFold(kind, "uuid") {
		return identity.FromUUID(raw).Key()
	}
	return identity.FromMAC(raw).Key()
}

func (e *Engine) lookupDevice(idKey string) (configstore.Device, bool) {
	e.devicesMu.RLock()
	defer e.devicesMu.RUnlock()
	d, ok := e.devices[idKey]
	return d, ok
}

// KnownDeviceCount reports the number of configured (not necessarily
// active) devices, for status reporting.
func (e *Engine) KnownDeviceCount() int {
	e.devicesMu.RLock()
	defer e.devicesMu.RUnlock()
	return len(e.devices)
}

// ActiveDeviceCount reports the number of devices with fused state.
func (e *Engine) ActiveDeviceCount() int { return e.states.Len() }

// SatelliteStats routes a health-sensor reading to the satellite_stats
// map; these never enter the zoning pipeline (spec.md §6).
func (e *Engine) SatelliteStats(satID, sensor, value string) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	m, ok := e.satelliteStats[satID]
	if !ok {
		m = map[string]string{}
		e.satelliteStats[satID] = m
	}
	m[sensor] = value
}

// Ingest is the C7 entry point: accepts one observation from satellite
// satID for identifier, with raw RSSI and optional extra fields.
func (e *Engine) Ingest(satID string, rawIdentifier string, isUUID bool, rawRSSI int, extra Extra) {
	var id identity.ID
	if isUUID {
		id = identity.FromUUID(rawIdentifier)
	} else {
		id = identity.FromMAC(rawIdentifier)
	}
	idKey := id.Key()
	now := time.Now()

	// Step 2: per-satellite "strongest recent raw RSSI" cache for C3,
	// overwritten unconditionally by the newest sample.
	e.sigMu.Lock()
	e.lastSatSignals[satID] = sigSample{rssi: rawRSSI, ts: now}
	e.sigMu.Unlock()

	// Step 3: discovery cache (UI only). Falls back to OUI vendor name
	// when the advertisement itself carried none (spec.md §3's
	// discovery cache is UI-only, so cosmetic enrichment belongs here).
	if extra.Name == "" && !isUUID && e.resolver != nil {
		if vendor := e.resolver.VendorForMAC(rawIdentifier); vendor != "" {
			extra.Name = vendor
		}
	}
	e.discovery.update(idKey, satID, rawRSSI, extra, now)

	// Step 4: satellite registration / freshness.
	e.sats.Observe(satID)

	// Step 5: stop if not a known device.
	device, known := e.lookupDevice(idKey)
	if !known {
		return
	}

	// Step 6: ensure fused state exists.
	e.states.GetOrInit(idKey)

	// Step 7: satellite room + reference RSSI.
	sat, _ := e.sats.Get(satID)
	roomName := e.sats.RoomName(satID)

	// Step 8: smooth + distance.
	buf := e.bufferFor(satID, idKey)
	smooth := buf.Add(rawRSSI)
	dist := signalproc.Distance(smooth, sat.RefRSSI1M)

	// Step 9: update source sub-state.
	e.states.UpdateSource(idKey, satID, devicestate.Source{
		RawRSSI:    rawRSSI,
		SmoothRSSI: smooth,
		Distance:   dist,
		LastSeen:   now,
		RoomName:   roomName,
	})

	// Step 10: re-arbitrate.
	e.arbiter.Evaluate(idKey, e.states, publisherAdapter{e, device})
}

// IngestLocal routes a locally observed advertisement through Ingest
// attributed to the reserved hub satellite id (spec.md §4.7).
func (e *Engine) IngestLocal(rec bleradio.Record) {
	var extra Extra
	// util.SafeName reports a missing or MAC-shaped local name as
	// "Unknown"; treat that as no name so the vendor fallback applies
	// and an existing name is kept.
	if rec.Name != "" && rec.Name != "Unknown" {
		extra.Name = rec.Name
	}
	extra.Major = rec.Major
	extra.Minor = rec.Minor
	e.Ingest(HubSatelliteID, rec.Identifier, rec.IsUUID, rec.RSSI, extra)
}

func (e *Engine) bufferFor(satID, idKey string) *signalproc.Buffer {
	e.buffersMu.Lock()
	defer e.buffersMu.Unlock()
	key := satID + "|" + idKey
	b, ok := e.buffers[key]
	if !ok {
		b = signalproc.NewBuffer()
		e.buffers[key] = b
	}
	return b
}

// LastRawRSSI implements calibration.SignalSource.
func (e *Engine) LastRawRSSI(satID string) (int, time.Duration, bool) {
	e.sigMu.Lock()
	defer e.sigMu.Unlock()
	s, ok := e.lastSatSignals[satID]
	if !ok {
		return 0, 0, false
	}
	return s.rssi, time.Since(s.ts), true
}

// publisherAdapter bridges zoning.Publisher (identifier-keyed) to the
// configstore.Device-aware Publisher interface.
type publisherAdapter struct {
	e      *Engine
	device configstore.Device
}

func (p publisherAdapter) PublishState(idKey string, st *devicestate.State) {
	if p.e.publisher == nil {
		return
	}
	p.e.publisher.PublishState(p.device, st)
}

// PublishDiscoveryNow re-emits discovery configs for all known devices
// (admin-demand path, spec.md §4.9).
func (e *Engine) PublishDiscoveryNow() {
	if e.publisher == nil {
		return
	}
	e.devicesMu.RLock()
	list := make([]configstore.Device, 0, len(e.devices))
	for _, d := range e.devices {
		list = append(list, d)
	}
	e.devicesMu.RUnlock()
	e.publisher.PublishStartupStatus()
	e.publisher.PublishDiscovery(list)
}
