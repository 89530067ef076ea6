package engine

import (
	"context"
	"time"

	"gatekeeper/internal/bleradio"
	"gatekeeper/internal/mqttbus"
)

// Run is the single cooperative loop spec.md §5 requires: "A single
// cooperative task runtime hosts: the maintenance timer, ... the
// ingestion pipeline, and the inbound bus dispatch." Every mutation of
// the engine's in-memory maps (current_state, zoning_state,
// signal_buffers, discovery_cache, last_sat_signals, satellite_stats)
// happens on this one goroutine. localCh carries records forwarded from
// the dedicated local-radio worker thread; satelliteCh carries
// observations posted from the MQTT client's own callback goroutine.
// Cross-thread handoff is sequenced through these two channels only,
// so the loop observes inbound samples for a fixed (satellite,
// identifier) pair in arrival order and the maintenance tick never
// overlaps an in-flight ingest.
func (e *Engine) Run(ctx context.Context, localCh <-chan bleradio.Record, satelliteCh <-chan mqttbus.Observation, maintenanceInterval time.Duration) {
	if maintenanceInterval <= 0 {
		maintenanceInterval = maintenanceTick
	}
	t := time.NewTicker(maintenanceInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-localCh:
			e.IngestLocal(rec)
		case obs := <-satelliteCh:
			e.dispatch(obs)
		case <-t.C:
			e.maintenanceTick()
		}
	}
}

func (e *Engine) dispatch(obs mqttbus.Observation) {
	if obs.IsHealth {
		e.SatelliteStats(obs.SatID, obs.HealthName, obs.HealthVal)
		return
	}
	e.Ingest(obs.SatID, obs.Identifier, obs.IsUUID, obs.RSSI, Extra{Major: obs.Major, Minor: obs.Minor})
}
