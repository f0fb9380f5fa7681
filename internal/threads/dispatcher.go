package threads

import (
	"context"
	"time"

	"aprsballoon/internal/aprs"
	"aprsballoon/internal/ax25"
	"aprsballoon/internal/config"
	"aprsballoon/internal/diag"
	"aprsballoon/internal/packetpool"
	"aprsballoon/internal/radio"
)

// Dispatcher is the combined Digipeater/Receiver thread (spec §4.7/§4.4): it
// continuously drains the Radio Manager's receive channel, decodes each
// frame, and applies the dispatcher policy — ack incoming messages, track
// heard-direct stations for APRSD, and digipeat frames naming us in the next
// unused WIDEn-N path slot.
type Dispatcher struct {
	Manager    *radio.Manager
	Pool       *packetpool.Pool
	OurCall    ax25.Callsign
	Cfg        config.DigiConfig
	Modulation radio.Modulation
	Heard      *aprs.HeardSet
	Dedup      *aprs.Dedup
	Diag       *diag.Store
	Log        LogPrintf
	Heartbeat  Heartbeat
}

// Run drains Manager.Recv() until ctx is cancelled, heartbeating after every
// handled frame (or every idle poll, so a quiet RF channel doesn't trip the
// watchdog).
func (d *Dispatcher) Run(ctx context.Context) {
	hb := d.Heartbeat
	if hb == nil {
		hb = func(string) {}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-d.Manager.Recv():
			if !ok {
				return
			}
			d.handle(ctx, raw)
			hb("dispatcher")
		case <-time.After(time.Second):
			hb("dispatcher")
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, raw radio.RxFrame) {
	body, ok := radio.DecodeFrame(raw.Body, d.Modulation)
	if !ok {
		return // invalid FCS or bad framing: dropped per spec §4.4
	}
	frame, err := ax25.Decode(body)
	if err != nil {
		return
	}
	event := aprs.Decode(frame)

	if aprs.HeardDirect(frame.Path) && d.Heard != nil {
		d.Heard.Mark(frame.Path.Src.String(), raw.At)
	}
	if d.Diag != nil {
		if err := d.Diag.MarkHeard(ctx, frame.Path.Src.String(), raw.At, false); err != nil {
			d.logf("dispatcher: diag.MarkHeard failed: %v", err)
		}
	}

	switch event.Kind {
	case aprs.EventMessage:
		d.handleMessage(ctx, frame, event)
	}

	if d.Cfg.Enabled {
		d.digipeat(ctx, frame)
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, frame ax25.Frame, event aprs.Event) {
	if event.Msg.Addressee != d.OurCall.String() {
		return
	}
	if event.Msg.MsgNo == "" {
		return
	}
	if d.Dedup != nil && d.Dedup.Seen(frame.Path.Src.String(), event.Msg.MsgNo, time.Now()) {
		return // duplicate within MSG_DEDUP_WINDOW: acked already, not re-dispatched
	}
	var msgID int64
	if d.Diag != nil {
		id, err := d.Diag.RecordMessage(ctx, frame.Path.Src.String(), string(frame.Info), event.Msg.MsgNo)
		if err != nil {
			d.logf("dispatcher: diag.RecordMessage failed: %v", err)
		}
		msgID = id
	}

	ack := aprs.EncodeAck(frame.Path.Src.String(), event.Msg.MsgNo)
	body, err := buildFrameBody(replyPath(d.OurCall, frame.Path.Src), ack)
	if err != nil {
		return
	}
	pk, pbody, err := acquirePacket(d.Pool, body)
	if err != nil {
		d.logf("dispatcher: ack to %s dropped, packet pool exhausted: %v", frame.Path.Src, err)
		return
	}
	if err := d.Manager.Submit(ctx, radio.RadioTask{
		Body:       pbody,
		Packet:     pk,
		Modulation: d.Modulation,
		Priority:   radio.PriorityAck,
	}); err != nil {
		d.logf("dispatcher: ack to %s failed: %v", frame.Path.Src, err)
		return
	}
	if d.Diag != nil && msgID != 0 {
		if err := d.Diag.MarkAcked(ctx, msgID, time.Now()); err != nil {
			d.logf("dispatcher: diag.MarkAcked failed: %v", err)
		}
	}
}

func (d *Dispatcher) digipeat(ctx context.Context, frame ax25.Frame) {
	decision := aprs.Digipeat(frame.Path, d.OurCall, d.Cfg.Aliases)
	if !decision.Repeat {
		return
	}
	f := ax25.Frame{Path: decision.NewPath, Info: frame.Info}
	body, err := f.Encode()
	if err != nil {
		return
	}
	pk, pbody, err := acquirePacket(d.Pool, body)
	if err != nil {
		d.logf("dispatcher: digipeat of %s dropped, packet pool exhausted: %v", frame.Path.Src, err)
		return
	}
	if err := d.Manager.Submit(ctx, radio.RadioTask{
		Body:       pbody,
		Packet:     pk,
		Modulation: d.Modulation,
		Priority:   radio.PriorityDigipeat,
	}); err != nil {
		d.logf("dispatcher: digipeat of %s failed: %v", frame.Path.Src, err)
		return
	}
	if d.Diag != nil {
		if err := d.Diag.MarkHeard(ctx, frame.Path.Src.String(), time.Now(), true); err != nil {
			d.logf("dispatcher: diag.MarkHeard(digipeated) failed: %v", err)
		}
	}
}

func (d *Dispatcher) logf(format string, v ...interface{}) {
	if d.Log != nil {
		d.Log(format, v...)
	}
}
