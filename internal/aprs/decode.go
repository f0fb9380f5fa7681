package aprs

import (
	"regexp"
	"strconv"
	"time"

	"aprsballoon/internal/ax25"
)

// EventKind classifies a decoded incoming frame for the dispatcher.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventMessage
	EventAck
	EventReject
	EventPosition
)

// Event is a decoded incoming APRS frame, annotated with the path it arrived
// on so the dispatcher can apply heard/digipeat policy.
type Event struct {
	Kind EventKind
	Path ax25.Path
	Msg  Message // valid when Kind is EventMessage/EventAck/EventReject
	Raw  string  // original info field, for logging/diagnostics
}

// Decode classifies and parses frame's info field into an Event. Frames whose
// FCS has already failed never reach here (internal/ax25.VerifyFCS is checked
// by the caller, spec §4.4 "frames with invalid FCS are dropped").
func Decode(frame ax25.Frame) Event {
	info := string(frame.Info)
	ev := Event{Path: frame.Path, Raw: info}
	if len(info) == 0 {
		return ev
	}
	switch info[0] {
	case ':':
		if m, err := ParseMessage(info); err == nil {
			if _, ok := m.IsAck(); ok {
				ev.Kind = EventAck
			} else if _, ok := m.IsReject(); ok {
				ev.Kind = EventReject
			} else {
				ev.Kind = EventMessage
			}
			ev.Msg = m
		}
	case '!', '=', '/', '@':
		ev.Kind = EventPosition
	}
	return ev
}

// HeardDirect reports whether frame arrived without having been digipeated,
// i.e. no path entry has its H-bit set (spec §4.4: "heard direct (no digis in
// path with H-bit set upstream)").
func HeardDirect(p ax25.Path) bool {
	for _, d := range p.Digis {
		if d.H {
			return false
		}
	}
	return true
}

var wideRe = regexp.MustCompile(`^WIDE([1-7])-([1-7])$`)

// DigipeatDecision describes what a digipeater should do with an incoming
// frame: whether to repeat it, and if so the updated path (spec §4.4's
// generic WIDE1-1/WIDEn-N alias semantics: set our H-bit, decrement n).
type DigipeatDecision struct {
	Repeat  bool
	NewPath ax25.Path
}

// Digipeat evaluates whether ourCall should repeat frame per path. A path
// entry matching the generic WIDEn-N pattern is always eligible regardless of
// n (spec §4.4's "generic alias WIDE1-1 / WIDEn-n semantics" is a prefix
// family, not a fixed enumeration); aliases carries any other fixed,
// non-WIDE names ourCall is configured to answer to.
func Digipeat(p ax25.Path, ourCall ax25.Callsign, aliases []string) DigipeatDecision {
	idx := p.NextUnusedDigi()
	if idx < 0 {
		return DigipeatDecision{}
	}
	entry := p.Digis[idx]
	name := entry.String()
	m := wideRe.FindStringSubmatch(name)
	if m == nil && !containsAlias(aliases, name) {
		return DigipeatDecision{}
	}
	newPath := p
	newPath.Digis = append([]ax25.Callsign{}, p.Digis...)

	if m != nil {
		n, _ := strconv.Atoi(m[2])
		if n > 1 {
			// Decrement n and leave our own call out of the path; the next
			// digipeater down the chain sees WIDEn-(n-1) still unrepeated.
			newPath.Digis[idx].SSID = byte(n - 1)
			return DigipeatDecision{Repeat: true, NewPath: newPath}
		}
	}
	// n==1 (or a plain alias like WIDE1-1 generic): insert our call, H-bit set.
	newPath.Digis[idx] = ax25.Callsign{Call: ourCall.Call, SSID: ourCall.SSID, H: true}
	return DigipeatDecision{Repeat: true, NewPath: newPath}
}

func containsAlias(aliases []string, name string) bool {
	for _, a := range aliases {
		if a == name {
			return true
		}
	}
	return false
}

// Dedup tracks recently-seen message numbers per source call to implement
// spec §4.4's "duplicate message numbers within MSG_DEDUP_WINDOW are acked but
// not re-dispatched".
type Dedup struct {
	window time.Duration
	seen   map[string]time.Time
}

// NewDedup returns a Dedup evicting entries older than window.
func NewDedup(window time.Duration) *Dedup {
	return &Dedup{window: window, seen: make(map[string]time.Time)}
}

// key identifies a message for dedup purposes: source call + message number.
func dedupKey(srcCall, msgNo string) string {
	return srcCall + "#" + msgNo
}

// Seen reports whether (srcCall, msgNo) was already dispatched within the
// window, and records it as seen at `at` regardless of the result, so a
// repeated retransmission by the sender doesn't re-dispatch the command.
func (d *Dedup) Seen(srcCall, msgNo string, at time.Time) bool {
	if msgNo == "" {
		return false // no msgno means no ack requested, nothing to dedup
	}
	key := dedupKey(srcCall, msgNo)
	last, ok := d.seen[key]
	for k, t := range d.seen {
		if at.Sub(t) > d.window {
			delete(d.seen, k)
		}
	}
	d.seen[key] = at
	return ok && at.Sub(last) <= d.window
}
