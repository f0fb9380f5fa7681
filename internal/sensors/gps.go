// Package sensors is the uniform façade (C1) the Collector reads every cycle:
// GPS fix, bus voltages/currents, chip/ambient temperature, pressure and
// humidity (spec §4.1). Each sensor gets its own file and its own small
// struct wrapper; the GPS one is mutex-guarded, the way tve-devices'
// sx1231.Radio itself wraps a hardware device behind a mutex-guarded struct
// with a persistent error field.
package sensors

import (
	"bufio"
	"fmt"
	"sync"
	"time"

	"github.com/adrianmo/go-nmea"
	"go.bug.st/serial"

	"aprsballoon/internal/errs"
)

// GPSFix is one parsed GPS position, the sensors façade's raw input to the
// Collector's GPS power/freshness policy (spec §4.1).
type GPSFix struct {
	Lat, Lon   float64 // decimal degrees
	Alt        float64 // meters
	Sats       int
	FixQuality int // 0 = no fix
	At         time.Time
}

// GPS wraps a serial NMEA receiver, tracking the latest fix under a mutex the
// way ArgusSDR's NMEASerial does (internal/gps/gps.go), trimmed to this
// tracker's single NMEA-serial backend (no gpsd variant: this is an embedded
// single-board tracker, not a desktop SDR collector with a system gpsd).
type GPS struct {
	mu   sync.RWMutex
	port serial.Port
	fix  GPSFix
}

// OpenGPS opens portName at baudRate and starts the NMEA read loop.
func OpenGPS(portName string, baudRate int) (*GPS, error) {
	mode := &serial.Mode{BaudRate: baudRate, Parity: serial.NoParity, DataBits: 8, StopBits: serial.OneStopBit}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("sensors: open GPS port %s: %w", portName, err)
	}
	g := &GPS{port: port}
	go g.readLoop()
	return g, nil
}

func (g *GPS) readLoop() {
	scanner := bufio.NewScanner(g.port)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 || line[0] != '$' {
			continue
		}
		sentence, err := nmea.Parse(line)
		if err != nil {
			continue
		}
		switch s := sentence.(type) {
		case nmea.GGA:
			g.processGGA(s)
		case nmea.RMC:
			g.processRMC(s)
		}
	}
}

func (g *GPS) processGGA(s nmea.GGA) {
	if s.FixQuality == nmea.Invalid {
		return
	}
	g.mu.Lock()
	g.fix = GPSFix{
		Lat: s.Latitude, Lon: s.Longitude, Alt: s.Altitude,
		Sats: int(s.NumSatellites), FixQuality: 1, At: time.Now(),
	}
	g.mu.Unlock()
}

func (g *GPS) processRMC(s nmea.RMC) {
	if s.Validity != "A" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fix.FixQuality == 0 {
		return
	}
	g.fix.Lat, g.fix.Lon = s.Latitude, s.Longitude
	g.fix.At = time.Now()
}

// Read returns the latest fix, or errs.ErrNoPosition if no fix has ever been
// seen.
func (g *GPS) Read() (GPSFix, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.fix.FixQuality == 0 {
		return GPSFix{}, errs.ErrNoPosition
	}
	return g.fix, nil
}

// Close closes the underlying serial port.
func (g *GPS) Close() error {
	return g.port.Close()
}
