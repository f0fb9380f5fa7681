package threads

import (
	"context"

	"aprsballoon/internal/ax25"
	"aprsballoon/internal/collector"
	"aprsballoon/internal/config"
	"aprsballoon/internal/datapoint"
	"aprsballoon/internal/errs"
	"aprsballoon/internal/geofence"
	"aprsballoon/internal/packetpool"
	"aprsballoon/internal/radio"
	"aprsballoon/internal/varint"
)

// maxInfoField is the AX.25 UI frame info field's maximum length (spec §3).
const maxInfoField = 256

// LogThread walks the Log Ring from a cursor, packing several records'
// worth of compressed telemetry into one AX.25 frame per cycle (a packed
// payload longer than maxInfoField-16 bytes is cut to that length),
// using the teacher's own varint codec (tve-devices' varint/varint.go,
// originally built for GPS-nav MQTT payloads) repurposed to log-record
// packing.
type LogThread struct {
	Collector *collector.Collector
	Manager   *radio.Manager
	Pool      *packetpool.Pool
	OurCall   ax25.Callsign
	Cfg       config.LogConfig
	Freq      geofence.Frequency
	Log       LogPrintf
	Heartbeat Heartbeat

	cursor int
}

// Run drives the log thread loop until ctx is cancelled.
func (l *LogThread) Run(ctx context.Context) {
	runLoop(ctx, "log", l.Cfg.Cycle, l.Heartbeat, l.Log, l.cycle)
}

func (l *LogThread) cycle(ctx context.Context) error {
	if !l.Cfg.Enabled {
		return nil
	}
	perPkt := l.Cfg.RecordsPerPkt
	if perPkt <= 0 {
		perPkt = 1
	}

	var ints []int
	n := 0
	for ; n < perPkt; n++ {
		dp, err := l.Collector.GetLog(l.cursor + n)
		if err != nil {
			break
		}
		ints = append(ints, recordToInts(dp)...)
	}
	if n == 0 {
		return errs.ErrNoPosition
	}
	l.cursor += n

	payload := varint.Encode(ints)
	if len(payload) > maxInfoField-16 {
		payload = payload[:maxInfoField-16]
	}

	path, err := buildPath(l.OurCall, nil)
	if err != nil {
		return err
	}
	body, err := buildFrameBody(path, string(payload))
	if err != nil {
		return err
	}
	pk, pbody, err := acquirePacket(l.Pool, body)
	if err != nil {
		return err
	}
	return l.Manager.Submit(ctx, radio.RadioTask{
		Body:       pbody,
		Packet:     pk,
		Freq:       l.Freq,
		Power:      0x20,
		Modulation: radio.ModAFSK1200,
		Priority:   radio.PriorityBeacon,
	})
}

// recordToInts packs the subset of a DataPoint the spec calls "compressed
// telemetry" into a flat int slice for varint.Encode.
func recordToInts(dp datapoint.DataPoint) []int {
	return []int{
		int(dp.ID),
		int(dp.SysTime),
		int(dp.GPSLat),
		int(dp.GPSLon),
		int(dp.AdcVBat),
		int(dp.AdcVSol),
	}
}
