// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

// Command trackerd is the high-altitude tracker's main flight process: it
// brings up the sensor and radio buses, wires the Data Collector, the Radio
// Manager, and the five application threads together, and then runs until
// killed, following cmd/mqttradio's own bring-up-then-sleep-forever shape.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"

	"aprsballoon/internal/ax25"
	"aprsballoon/internal/aprs"
	"aprsballoon/internal/collector"
	"aprsballoon/internal/config"
	"aprsballoon/internal/devices"
	"aprsballoon/internal/devices/spimux"
	"aprsballoon/internal/diag"
	"aprsballoon/internal/geofence"
	"aprsballoon/internal/logring"
	"aprsballoon/internal/packetpool"
	"aprsballoon/internal/radio"
	"aprsballoon/internal/sensors"
	"aprsballoon/internal/threads"
	"aprsballoon/internal/watchdog"
)

// packetPoolCapacity is the C8 pool's fixed slot count: generous headroom
// over the five threads' worst-case concurrent in-flight frames (an SSDV
// burst queued behind an ack and a digipeat).
const packetPoolCapacity = 32

func main() {
	configFile := flag.String("config", "/etc/tracker/tracker.toml", "path to configuration file")
	logRingFile := flag.String("logring", "/var/lib/tracker/logring.dat", "path to the log ring's backing file")
	logRingCapacity := flag.Int("logring-capacity", 4096, "log ring record capacity")
	diagFile := flag.String("diag", "/var/lib/tracker/diag.sqlite", "path to the diagnostic sqlite store")
	bandplanFile := flag.String("bandplan", "/etc/tracker/bandplan.yaml", "path to the band-plan region table")
	flag.Parse()

	cfg := config.Load(*configFile, log.Printf)

	logger := func(string, ...interface{}) {}
	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
		logger = log.Printf
	}

	ourCall, err := ax25.ParseCallsign(cfg.Callsign)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trackerd: invalid callsign %q: %s\n", cfg.Callsign, err)
		os.Exit(1)
	}

	bus, err := openBus(cfg.Radio, cfg.Hardware, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trackerd: failed to open device buses: %s\n", err)
		os.Exit(1)
	}

	logger("trackerd: opening log ring %s", *logRingFile)
	ring, err := logring.Open(*logRingFile, *logRingCapacity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trackerd: failed to open log ring: %s\n", err)
		os.Exit(1)
	}

	diagStore, err := diag.Open(*diagFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trackerd: failed to open diagnostic store: %s\n", err)
		os.Exit(1)
	}

	logger("trackerd: configuring radio")
	chip, err := radio.NewChip(bus.SPI, bus.RadioIntr, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trackerd: failed to bring up radio: %s\n", err)
		os.Exit(1)
	}

	policy := geofence.Load(*bandplanFile)

	snapshotSensors := collector.Sensors{
		GPSPower:     bus.GPSPower,
		ADCVBatChan:  cfg.Hardware.ADCVBatChan,
		ADCVSolChan:  cfg.Hardware.ADCVSolChan,
		ADCLightChan: cfg.Hardware.ADCLightChan,
	}
	if gps, err := sensors.OpenGPS(cfg.GPS.Port, cfg.GPS.BaudRate); err == nil {
		snapshotSensors.GPS = gps
	} else {
		logger("trackerd: gps: %s, running without a GPS fix source", err)
	}
	if bus.I2C != nil {
		if cfg.Hardware.PAC1720Addr != 0 {
			snapshotSensors.Power = sensors.NewPAC1720(bus.I2C, cfg.Hardware.PAC1720Addr)
		}
		if cfg.Hardware.ADCAddr != 0 {
			snapshotSensors.ADC = sensors.NewADC(bus.I2C, cfg.Hardware.ADCAddr, cfg.Hardware.ADCVrefMv)
		}
		for slot, addr := range [3]uint16{cfg.Hardware.BME280Onboard, cfg.Hardware.BME280Ext1, cfg.Hardware.BME280Ext2} {
			if addr != 0 {
				snapshotSensors.BME[slot] = sensors.NewBME280(bus.I2C, addr)
			}
		}
		if cfg.Hardware.ThermalMCU != 0 || cfg.Hardware.ThermalRadio != 0 {
			snapshotSensors.Thermal = sensors.NewThermal(bus.I2C, cfg.Hardware.ThermalMCU, cfg.Hardware.ThermalRadio)
		}
	}

	col := collector.New(cfg.GPS, snapshotSensors, ring, 0, time.Now(), logger)

	manager := radio.New(chip, policy, col.Latest, cfg.Radio, logger)

	pool := packetpool.New(packetPoolCapacity)
	heard := aprs.NewHeardSet(cfg.APRSDWindow)
	dedup := aprs.NewDedup(cfg.MsgDedupWindow)

	wdg := watchdog.New(cfg.Watchdog.Timeout, func(reason string) {
		logger("trackerd: watchdog fired for %s, exiting", reason)
		if err := diagStore.RecordWatchdogReset(context.Background(), reason, time.Now()); err != nil {
			logger("trackerd: diag.RecordWatchdogReset: %s", err)
		}
		os.Exit(1)
	})

	// No config field pins a fixed transmit frequency (there is no such
	// thing as "the" APRS frequency for a balloon that crosses band-plan
	// regions); the beacon, image and log threads resolve their frequency
	// dynamically through the geofence policy per spec §4.3. The Dispatcher's
	// acks and digipeats carry a zero static frequency, which the Radio
	// Manager maps to the band-plan default.
	dynamicFreq := geofence.Frequency{Kind: geofence.Dynamic}

	reg := &threads.Registry{}
	reg.Add(&threads.Beacon{
		Collector: col, Manager: manager, Pool: pool, Heard: heard,
		OurCall: ourCall, Cfg: cfg.Beacon, Freq: dynamicFreq, Log: logger, Heartbeat: wdg.Heartbeat,
	})
	reg.Add(&threads.Image{
		Collector: col, Manager: manager, Pool: pool, Camera: nil,
		OurCall: ourCall, Cfg: cfg.Image, Freq: dynamicFreq, Log: logger, Heartbeat: wdg.Heartbeat,
	})
	reg.Add(&threads.LogThread{
		Collector: col, Manager: manager, Pool: pool,
		OurCall: ourCall, Cfg: cfg.Log, Freq: dynamicFreq, Log: logger, Heartbeat: wdg.Heartbeat,
	})
	reg.Add(&threads.Dispatcher{
		Manager: manager, Pool: pool, OurCall: ourCall, Cfg: cfg.Digi,
		Modulation: radio.ModAFSK1200, Heard: heard, Dedup: dedup,
		Diag: diagStore, Log: logger, Heartbeat: wdg.Heartbeat,
	})

	for _, name := range []string{"beacon", "image", "log", "dispatcher"} {
		wdg.Register(name)
	}

	logger("trackerd: starting collector and radio manager")
	go col.Run()
	go manager.Run()

	ctx := context.Background()
	reg.Start(ctx)

	logger("trackerd: tracker is running as %s", ourCall)
	for {
		time.Sleep(time.Hour)
	}
}

// openBus opens the SPI/I2C/GPIO buses trackerd needs, per cfg.Radio.Backend.
// The periph backend is the default; embd is kept selectable for boards
// periph doesn't support, matching spec's ambient "two selectable backends"
// note carried over from the teacher's own periph/embd split.
func openBus(radioCfg config.RadioConfig, hw config.HardwareConfig, logger func(string, ...interface{})) (devices.Bus, error) {
	var bus devices.Bus

	switch radioCfg.Backend {
	case "embd":
		bus.SPI = devices.NewEmbdSPI()
		if hw.I2CBus != "" {
			bus.I2C = devices.NewEmbdI2C(0)
		}
		if radioCfg.IntrPin != "" {
			bus.RadioIntr = devices.NewEmbdGPIO(radioCfg.IntrPin)
		}
		if hw.GPSPowerPin != "" {
			bus.GPSPower = devices.NewEmbdGPIO(hw.GPSPowerPin)
		}
	default:
		if err := devices.InitHost(); err != nil {
			return bus, err
		}
		spiDev, err := openPeriphRadioSPI(radioCfg, logger)
		if err != nil {
			return bus, err
		}
		bus.SPI = spiDev
		if hw.I2CBus != "" {
			i2c, err := devices.OpenPeriphI2C(hw.I2CBus)
			if err != nil {
				return bus, fmt.Errorf("trackerd: opening i2c bus %s: %w", hw.I2CBus, err)
			}
			bus.I2C = i2c
		}
		if radioCfg.IntrPin != "" {
			pin, err := devices.OpenPeriphGPIO(radioCfg.IntrPin)
			if err != nil {
				return bus, fmt.Errorf("trackerd: opening radio interrupt pin %s: %w", radioCfg.IntrPin, err)
			}
			bus.RadioIntr = pin
		}
		if hw.GPSPowerPin != "" {
			pin, err := devices.OpenPeriphGPIO(hw.GPSPowerPin)
			if err != nil {
				return bus, fmt.Errorf("trackerd: opening gps power pin %s: %w", hw.GPSPowerPin, err)
			}
			bus.GPSPower = pin
		}
	}
	return bus, nil
}

// openPeriphRadioSPI opens the radio's SPI connection, demuxing it through
// spimux when radioCfg.SpiMux is set (the radio always takes the demux's Low
// side; see internal/devices/spimux's package doc for the unclaimed High
// side).
func openPeriphRadioSPI(radioCfg config.RadioConfig, logger func(string, ...interface{})) (devices.SPI, error) {
	if !radioCfg.SpiMux {
		return devices.OpenPeriphSPI(radioCfg.SpiPort, 4_000_000, spi.Mode0)
	}
	port, err := spireg.Open(radioCfg.SpiPort)
	if err != nil {
		return nil, fmt.Errorf("trackerd: spireg.Open(%s): %w", radioCfg.SpiPort, err)
	}
	selPin := gpioreg.ByName(radioCfg.SpiMuxPin)
	if selPin == nil {
		port.Close()
		return nil, fmt.Errorf("trackerd: no such spi mux select pin %q", radioCfg.SpiMuxPin)
	}
	radioConn, unusedConn := spimux.New(port, selPin)
	_ = unusedConn.Close()
	logger("trackerd: spi bus %s muxed via %s, radio on the low side", radioCfg.SpiPort, radioCfg.SpiMuxPin)
	return devices.WrapPeriphSPI(radioConn, 4_000_000, spi.Mode0)
}
