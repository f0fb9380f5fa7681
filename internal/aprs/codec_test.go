package aprs

import (
	"strings"
	"testing"
	"time"

	"aprsballoon/internal/ax25"
	"aprsballoon/internal/datapoint"
)

func TestEncodePositionRequiresFix(t *testing.T) {
	dp := datapoint.DataPoint{GPSState: datapoint.GPSLockedOff}
	if _, err := EncodePosition(dp, ""); err == nil {
		t.Fatalf("EncodePosition with no fix should error")
	}
}

func TestEncodePositionFormat(t *testing.T) {
	dp := datapoint.DataPoint{
		GPSState: datapoint.GPSLockedOn,
		GPSLat:   490_350_000, // 49.035N
		GPSLon:   -72_029_167, // 7.2029W... placeholder value
		GPSAlt:   1000,
	}
	s, err := EncodePosition(dp, "hi")
	if err != nil {
		t.Fatalf("EncodePosition: %v", err)
	}
	if s[0] != '!' {
		t.Fatalf("position PDU must start with '!', got %q", s)
	}
	if !strings.Contains(s, "/A=") {
		t.Fatalf("position PDU missing altitude field: %q", s)
	}
	if !strings.HasSuffix(s, "hi") {
		t.Fatalf("position PDU missing comment: %q", s)
	}
}

func TestEncodeTelemetryReportFormat(t *testing.T) {
	dp := datapoint.DataPoint{PacVBat: 3700, PacVSol: 4100, PacPBat: 100, PacPSol: 500}
	s := EncodeTelemetryReport(7, dp)
	if !strings.HasPrefix(s, "T#007,") {
		t.Fatalf("telemetry report = %q, want T#007,... prefix", s)
	}
	fields := strings.Split(s, ",")
	if len(fields) != 7 {
		t.Fatalf("telemetry report has %d fields, want 7 (seq+5 analog+digital)", len(fields))
	}
}

func TestTelemetryConfigPDUsAddressSelf(t *testing.T) {
	pdus := TelemetryConfigPDUs("DL7AD-12")
	prefixes := []string{"PARM.", "UNIT.", "EQNS.", "BITS."}
	for i, p := range pdus {
		if !strings.HasPrefix(p, ":DL7AD-12") {
			t.Fatalf("PDU %d = %q, want addressed to DL7AD-12", i, p)
		}
		if !strings.Contains(p, prefixes[i]) {
			t.Fatalf("PDU %d = %q, want to contain %q", i, p, prefixes[i])
		}
	}
}

func TestMessageRoundTripAndAck(t *testing.T) {
	s, err := EncodeMessage("N0CALL-1", "hello", "001")
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	m, err := ParseMessage(s)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if m.Addressee != "N0CALL-1" || m.Text != "hello" || m.MsgNo != "001" {
		t.Fatalf("ParseMessage = %+v", m)
	}

	ack := EncodeAck("N0CALL-1", "001")
	am, err := ParseMessage(ack)
	if err != nil {
		t.Fatalf("ParseMessage(ack): %v", err)
	}
	msgNo, ok := am.IsAck()
	if !ok || msgNo != "001" {
		t.Fatalf("IsAck() = (%q, %v), want (001, true)", msgNo, ok)
	}
}

func TestDecodeDispatchesByKind(t *testing.T) {
	dest, _ := ax25.ParseCallsign("APRS")
	src, _ := ax25.ParseCallsign("N0CALL-1")
	frame := ax25.Frame{
		Path: ax25.Path{Dest: dest, Src: src},
		Info: []byte(":N0CALL-2 :hi there{001"),
	}
	ev := Decode(frame)
	if ev.Kind != EventMessage {
		t.Fatalf("Decode kind = %v, want EventMessage", ev.Kind)
	}

	frame.Info = []byte("!4903.50N/07201.75W-test")
	ev = Decode(frame)
	if ev.Kind != EventPosition {
		t.Fatalf("Decode kind = %v, want EventPosition", ev.Kind)
	}
}

func TestHeardDirectVsDigipeated(t *testing.T) {
	clean := ax25.Path{Digis: []ax25.Callsign{{Call: "WIDE2", SSID: 1}}}
	if !HeardDirect(clean) {
		t.Fatalf("HeardDirect(no H-bit set) = false, want true")
	}
	repeated := ax25.Path{Digis: []ax25.Callsign{{Call: "DIGI1", SSID: 0, H: true}}}
	if HeardDirect(repeated) {
		t.Fatalf("HeardDirect(H-bit set) = true, want false")
	}
}

func TestDigipeatDecrementsWideN(t *testing.T) {
	our, _ := ax25.ParseCallsign("DL7AD-12")
	p := ax25.Path{Digis: []ax25.Callsign{{Call: "WIDE2", SSID: 2}}}
	d := Digipeat(p, our, []string{"WIDE1-1", "WIDE2-1", "WIDE2-2"})
	if !d.Repeat {
		t.Fatalf("Digipeat did not repeat WIDE2-2")
	}
	if d.NewPath.Digis[0].String() != "WIDE2-1" {
		t.Fatalf("Digipeat did not decrement: %v", d.NewPath.Digis[0])
	}
}

func TestDigipeatSetsHBitOnFinalHop(t *testing.T) {
	our, _ := ax25.ParseCallsign("DL7AD-12")
	p := ax25.Path{Digis: []ax25.Callsign{{Call: "WIDE1", SSID: 1}}}
	d := Digipeat(p, our, []string{"WIDE1-1"})
	if !d.Repeat {
		t.Fatalf("Digipeat did not repeat WIDE1-1")
	}
	if d.NewPath.Digis[0].String() != "DL7AD-12" || !d.NewPath.Digis[0].H {
		t.Fatalf("Digipeat did not insert our call with H-bit: %v", d.NewPath.Digis[0])
	}
}

func TestDedupSuppressesRepeats(t *testing.T) {
	d := NewDedup(30 * time.Second)
	now := time.Unix(1000, 0)
	if d.Seen("N0CALL-1", "001", now) {
		t.Fatalf("first Seen() = true, want false")
	}
	if !d.Seen("N0CALL-1", "001", now.Add(5*time.Second)) {
		t.Fatalf("second Seen() within window = false, want true")
	}
	if d.Seen("N0CALL-1", "001", now.Add(time.Hour)) {
		t.Fatalf("Seen() after window expired = true, want false")
	}
}

func TestHeardSetEvictsStale(t *testing.T) {
	h := NewHeardSet(10 * time.Minute)
	base := time.Unix(2000, 0)
	h.Mark("N0CALL-1", base)
	if got := h.Snapshot(base.Add(time.Minute)); len(got) != 1 {
		t.Fatalf("Snapshot before window expiry = %v, want 1 entry", got)
	}
	if got := h.Snapshot(base.Add(20 * time.Minute)); len(got) != 0 {
		t.Fatalf("Snapshot after window expiry = %v, want 0 entries", got)
	}
}
