package threads

import (
	"context"
	"time"

	"aprsballoon/internal/aprs"
	"aprsballoon/internal/ax25"
	"aprsballoon/internal/collector"
	"aprsballoon/internal/config"
	"aprsballoon/internal/geofence"
	"aprsballoon/internal/packetpool"
	"aprsballoon/internal/radio"
)

// Beacon is the position+telemetry beacon thread (spec §4.7): every cycle it
// transmits a position/telemetry packet, every tel_enc_cycle it additionally
// advertises the four telemetry-config PDUs, then an APRSD summary.
type Beacon struct {
	Collector *collector.Collector
	Manager   *radio.Manager
	Pool      *packetpool.Pool
	Heard     *aprs.HeardSet
	OurCall   ax25.Callsign
	Cfg       config.BeaconConfig
	Freq      geofence.Frequency
	Log       LogPrintf
	Heartbeat Heartbeat

	seq        uint16
	lastTelCfg time.Time
}

// Run drives the beacon loop until ctx is cancelled.
func (b *Beacon) Run(ctx context.Context) {
	runLoop(ctx, "beacon", b.Cfg.Cycle, b.Heartbeat, b.Log, b.cycle)
}

func (b *Beacon) cycle(ctx context.Context) error {
	dp, err := b.Collector.RequestSnapshot(ctx, true)
	if err != nil {
		return err
	}
	if b.Cfg.SleepVBat > 0 && dp.AdcVBat < b.Cfg.SleepVBat {
		return nil // sleep_conf unmet: battery too low to transmit this cycle
	}

	path, err := buildPath(b.OurCall, b.Cfg.Path)
	if err != nil {
		return err
	}

	// Telemetry-config PDUs must precede any position/telemetry packet that
	// relies on their (non-default) scaling, so the config group goes out
	// first whenever it's due, including on the very first cycle after boot.
	if b.Cfg.TelEncCycle > 0 && time.Since(b.lastTelCfg) >= b.Cfg.TelEncCycle {
		for _, pdu := range aprs.TelemetryConfigPDUs(b.OurCall.String()) {
			if err := b.transmit(ctx, path, pdu); err != nil {
				return err
			}
			time.Sleep(5 * time.Second)
		}
		b.lastTelCfg = time.Now()
	}

	if posInfo, err := aprs.EncodePosition(dp, ""); err == nil {
		if err := b.transmit(ctx, path, posInfo); err != nil {
			return err
		}
	}
	// Telemetry is always sent, even without a fix (spec §4.1: a
	// FROM_LOG/ERROR gps_state still yields a valid telemetry record).
	if err := b.transmit(ctx, path, aprs.EncodeTelemetryReport(b.seq, dp)); err != nil {
		return err
	}
	b.seq++

	if b.Heard != nil {
		dest := b.OurCall.String()
		if b.Cfg.APRSDToBase && b.Cfg.BaseCall != "" {
			dest = b.Cfg.BaseCall
		}
		calls := b.Heard.Snapshot(time.Now())
		msg, err := aprs.EncodeMessage(dest, aprs.EncodeAPRSDResponse(calls), "")
		if err == nil {
			return b.transmit(ctx, path, msg)
		}
	}
	return nil
}

func (b *Beacon) transmit(ctx context.Context, path ax25.Path, info string) error {
	body, err := buildFrameBody(path, info)
	if err != nil {
		return err
	}
	pk, pbody, err := acquirePacket(b.Pool, body)
	if err != nil {
		return err
	}
	task := radio.RadioTask{
		Body:       pbody,
		Packet:     pk,
		Freq:       b.Freq,
		Power:      0x20,
		Modulation: radio.ModAFSK1200,
		Priority:   radio.PriorityBeacon,
	}
	return b.Manager.Submit(ctx, task)
}
