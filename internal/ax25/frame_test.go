package ax25

import (
	"bytes"
	"testing"
)

func mustCall(t *testing.T, s string) Callsign {
	t.Helper()
	c, err := ParseCallsign(s)
	if err != nil {
		t.Fatalf("ParseCallsign(%q): %v", s, err)
	}
	return c
}

func TestCallsignRoundTrip(t *testing.T) {
	cases := []string{"N0CALL", "DL7AD-12", "WIDE1-1"}
	for _, s := range cases {
		c := mustCall(t, s)
		if got := c.String(); got != s {
			t.Fatalf("String() = %q, want %q", got, s)
		}
	}
}

func TestAddressEncodeDecodeRoundTrip(t *testing.T) {
	p := Path{
		Dest: mustCall(t, "APRS"),
		Src:  mustCall(t, "DL7AD-12"),
		Digis: []Callsign{
			mustCall(t, "WIDE1-1"),
			mustCall(t, "WIDE2-1"),
		},
	}
	buf, err := p.encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, n, err := decodePath(buf)
	if err != nil {
		t.Fatalf("decodePath: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("decodePath consumed %d bytes, want %d", n, len(buf))
	}
	if got.Dest.String() != p.Dest.String() || got.Src.String() != p.Src.String() {
		t.Fatalf("decodePath dest/src mismatch: got %+v", got)
	}
	if len(got.Digis) != 2 || got.Digis[0].String() != "WIDE1-1" || got.Digis[1].String() != "WIDE2-1" {
		t.Fatalf("decodePath digis mismatch: got %+v", got.Digis)
	}
}

func TestNextUnusedDigi(t *testing.T) {
	p := Path{Digis: []Callsign{
		{Call: "WIDE1", SSID: 1, H: true},
		{Call: "WIDE2", SSID: 1, H: false},
	}}
	if i := p.NextUnusedDigi(); i != 1 {
		t.Fatalf("NextUnusedDigi() = %d, want 1", i)
	}
	p2 := Path{Digis: []Callsign{{Call: "WIDE1", SSID: 1, H: true}}}
	if i := p2.NextUnusedDigi(); i != -1 {
		t.Fatalf("NextUnusedDigi() on fully-repeated path = %d, want -1", i)
	}
}

func TestFrameEncodeDecodeRoundTrip(t *testing.T) {
	f := Frame{
		Path: Path{
			Dest: mustCall(t, "APRS"),
			Src:  mustCall(t, "DL7AD-12"),
			Digis: []Callsign{mustCall(t, "WIDE1-1")},
		},
		Info: []byte("!4903.50N/07201.75W-test"),
	}
	buf, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got.Info, f.Info) {
		t.Fatalf("Decode Info = %q, want %q", got.Info, f.Info)
	}
	if got.Path.Src.String() != "DL7AD-12" {
		t.Fatalf("Decode Src = %q, want DL7AD-12", got.Path.Src.String())
	}
}

func TestFCSDetectsCorruption(t *testing.T) {
	body := []byte("hello ax25 frame body")
	framed := AppendFCS(append([]byte{}, body...))
	if _, ok := VerifyFCS(framed); !ok {
		t.Fatalf("VerifyFCS rejected an uncorrupted frame")
	}
	framed[3] ^= 0xff
	if _, ok := VerifyFCS(framed); ok {
		t.Fatalf("VerifyFCS accepted a corrupted frame")
	}
}

func TestBitStuffRoundTrip(t *testing.T) {
	body := []byte{0xff, 0xff, 0x00, 0xff, 0x7e, 0x81}
	stuffed := StuffBits(body)
	// No six consecutive set bits should survive stuffing.
	run := 0
	for _, b := range stuffed {
		if b == 1 {
			run++
			if run >= 6 {
				t.Fatalf("stuffed stream has a run of %d ones", run)
			}
		} else {
			run = 0
		}
	}
	got, ok := DestuffBits(stuffed)
	if !ok {
		t.Fatalf("DestuffBits reported not ok")
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("DestuffBits = %x, want %x", got, body)
	}
}

func TestNRZIRoundTrip(t *testing.T) {
	bits := []byte{1, 0, 0, 1, 1, 0, 1, 0, 0, 0, 1}
	enc := NRZIEncode(bits)
	dec := NRZIDecode(enc, 1)
	if !bytes.Equal(dec, bits) {
		t.Fatalf("NRZIDecode(NRZIEncode(bits)) = %v, want %v", dec, bits)
	}
}

func TestG3RUHScramblerRoundTrip(t *testing.T) {
	bits := make([]byte, 200)
	for i := range bits {
		bits[i] = byte((i * 7) % 2)
	}
	scrambled := ScrambleG3RUH(bits)
	descrambled := DescrambleG3RUH(scrambled)
	if !bytes.Equal(descrambled, bits) {
		t.Fatalf("DescrambleG3RUH(ScrambleG3RUH(bits)) did not round-trip")
	}
}
