package bleradio

import (
	"context"
	"fmt"
	"strings"
	"time"

	tg "tinygo.org/x/bluetooth"

	"gatekeeper/internal/util"
)

// Scan runs a passive BLE scan on adapterID until ctx is cancelled,
// forwarding one Record per observed advertisement to out. Adapted
// from the teacher's scanFor (internal/bluetooth/scanner.go): the
// GATT-connect/classic-discovery machinery that surrounded it there is
// dropped, since presence tracking only needs passive advertisement
// RSSI (spec.md §1).
func Scan(ctx context.Context, adapterID string, out chan<- Record) error {
	adapter := tg.DefaultAdapter
	if adapterID != "" {
		adapter = tg.NewAdapter(adapterID)
	}
	if err := adapter.Enable(); err != nil {
		return fmt.Errorf("enable adapter %s: %w", adapterID, err)
	}

	scanErrCh := make(chan error, 1)
	go func() {
		scanErrCh <- adapter.Scan(func(_ *tg.Adapter, res tg.ScanResult) {
			rec := buildRecord(res)
			select {
			case out <- rec:
			case <-ctx.Done():
			default:
				// Back-pressure: drop rather than block the radio callback.
			}
		})
	}()

	select {
	case <-ctx.Done():
		_ = adapter.StopScan()
		select {
		case <-scanErrCh:
		case <-time.After(5 * time.Second):
		}
		return ctx.Err()
	case err := <-scanErrCh:
		return err
	}
}

func buildRecord(res tg.ScanResult) Record {
	mac := strings.ToUpper(res.Address.String())
	name := util.SafeName(res.LocalName())
	rssi := int(res.RSSI)

	entries := make([]manufacturerEntry, 0, len(res.ManufacturerData()))
	for _, m := range res.ManufacturerData() {
		entries = append(entries, manufacturerEntry{CompanyID: m.CompanyID, Data: append([]byte(nil), m.Data...)})
	}

	rec := Record{MAC: mac, Name: name, RSSI: rssi, Identifier: mac}
	if uuid, major, minor, ok := parseIBeacon(entries); ok {
		rec.Identifier = uuid
		rec.IsUUID = true
		maj, min := major, minor
		rec.Major = &maj
		rec.Minor = &min
	}
	return rec
}
