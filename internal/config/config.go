// Package config loads the tracker's non-volatile configuration (conf_sram, spec
// §4.8). The format is TOML, the same as tve-devices' cmd/mqttradio/main.go reads
// its mqttradio.toml; a trailing CRC-16/CCITT is appended to the saved file so a
// torn write is detected the same way internal/logring detects torn log records,
// and on any read/CRC failure Load silently falls back to Defaults().
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"aprsballoon/internal/crc16"
	"aprsballoon/internal/errs"
)

// Config is the tracker's full runtime configuration.
type Config struct {
	Callsign string `toml:"callsign"` // our station call, e.g. "DL7AD-12"
	Debug    bool   `toml:"debug"`

	Beacon   BeaconConfig   `toml:"beacon"`
	Image    ImageConfig    `toml:"image"`
	Log      LogConfig      `toml:"log"`
	Digi     DigiConfig     `toml:"digipeater"`
	GPS      GPSConfig      `toml:"gps"`
	Radio    RadioConfig    `toml:"radio"`
	Hardware HardwareConfig `toml:"hardware"`
	Watchdog WatchdogConfig `toml:"watchdog"`

	// SPEC_FULL open question (a): APRSD/dedup window defaults.
	APRSDWindow    time.Duration `toml:"aprsd_window"`
	MsgDedupWindow time.Duration `toml:"msg_dedup_window"`
}

// HardwareConfig names the I2C bus and device addresses the sensor façade
// (internal/sensors, C1) opens at startup. Any address left zero disables
// that sensor; the Collector already tolerates a nil façade member (spec
// §4.1's "sensor absent" path).
type HardwareConfig struct {
	I2CBus        string `toml:"i2c_bus"`       // e.g. "I2C1" or "/dev/i2c-1"
	BME280Onboard uint16 `toml:"bme280_onboard_addr"`
	BME280Ext1    uint16 `toml:"bme280_ext1_addr"`
	BME280Ext2    uint16 `toml:"bme280_ext2_addr"`
	PAC1720Addr   uint16 `toml:"pac1720_addr"`
	ADCAddr       uint16 `toml:"adc_addr"`
	ADCVrefMv     uint16 `toml:"adc_vref_mv"`
	ADCVBatChan   byte   `toml:"adc_vbat_chan"`
	ADCVSolChan   byte   `toml:"adc_vsol_chan"`
	ADCLightChan  byte   `toml:"adc_light_chan"`
	ThermalMCU    uint16 `toml:"thermal_mcu_addr"`
	ThermalRadio  uint16 `toml:"thermal_radio_addr"`
	GPSPowerPin   string `toml:"gps_power_pin"`
}

// BeaconConfig configures the position+telemetry beacon thread.
type BeaconConfig struct {
	Cycle       time.Duration `toml:"cycle"`         // position beacon period
	TelEncCycle time.Duration `toml:"tel_enc_cycle"` // telemetry-config period
	Path        []string      `toml:"path"`           // digi path, e.g. ["WIDE1-1"]
	SleepVBat   uint16        `toml:"sleep_vbat_mv"`  // skip cycle below this vbat
	APRSDToBase bool          `toml:"aprsd_to_base"`  // true: send APRSD to base, false: to self
	BaseCall    string        `toml:"base_call"`
}

// ImageConfig configures the SSDV image thread.
type ImageConfig struct {
	Enabled    bool          `toml:"enabled"`
	Cycle      time.Duration `toml:"cycle"`
	Continuous bool          `toml:"continuous"`
	Width      int           `toml:"width"`
	Height     int           `toml:"height"`
	Quality    uint8         `toml:"quality"`
	Retries    int           `toml:"retries"`
	Callsign   string        `toml:"callsign"`
}

// LogConfig configures the log-ring-replay thread.
type LogConfig struct {
	Enabled       bool          `toml:"enabled"`
	Cycle         time.Duration `toml:"cycle"`
	RecordsPerPkt int           `toml:"records_per_packet"`
}

// DigiConfig configures digipeating and receive behavior.
type DigiConfig struct {
	Enabled bool     `toml:"enabled"`
	Aliases []string `toml:"aliases"` // e.g. ["WIDE1-1", "WIDE2-1"]
}

// GPSConfig configures the GPS power policy (spec §4.1).
type GPSConfig struct {
	Port          string        `toml:"port"`
	BaudRate      int           `toml:"baud_rate"`
	OffVBatMv     uint16        `toml:"off_vbat_mv"`
	OnVBatMv      uint16        `toml:"on_vbat_mv"`
	OnPerVBatMv   uint16        `toml:"onper_vbat_mv"`
	FreshWindow   time.Duration `toml:"fresh_window"`
	FixTimeout    time.Duration `toml:"fix_timeout"`
	LogFallback   time.Duration `toml:"log_fallback_window"`
}

// RadioConfig configures the transceiver and its bus wiring.
type RadioConfig struct {
	Backend      string `toml:"backend"` // "periph" or "embd"
	SpiPort      string `toml:"spi_port"`
	SpiMux       bool   `toml:"spi_mux"`
	SpiMuxPin    string `toml:"spi_mux_pin"` // demux select GPIO, only read when SpiMux is set
	IntrPin      string `toml:"intr_pin"`
	PowerDbm     byte   `toml:"power_dbm"`
	CCAThreshold int    `toml:"cca_threshold_dbm"`
	CCARetries   int    `toml:"cca_retries"`
	PreambleLen  int    `toml:"preamble_len"`
	TaskTimeout  time.Duration `toml:"task_timeout"`
}

// WatchdogConfig configures per-thread heartbeat timeouts.
type WatchdogConfig struct {
	Timeout time.Duration `toml:"timeout"`
}

// Defaults returns the compile-time default configuration, used whenever the
// non-volatile page is absent or fails its CRC check.
func Defaults() Config {
	return Config{
		Callsign: "N0CALL-11",
		Beacon: BeaconConfig{
			Cycle:       120 * time.Second,
			TelEncCycle: 3 * time.Hour,
			Path:        []string{"WIDE1-1"},
			SleepVBat:   3300,
			APRSDToBase: false,
		},
		Image: ImageConfig{
			Enabled: true,
			Cycle:   10 * time.Minute,
			Width:   640, Height: 480, Quality: 4,
			Retries: 3,
		},
		Log: LogConfig{
			Enabled: true, Cycle: 20 * time.Minute, RecordsPerPkt: 4,
		},
		Digi: DigiConfig{
			Enabled: true, Aliases: []string{"WIDE1-1", "WIDE2-1"},
		},
		GPS: GPSConfig{
			BaudRate: 9600, OffVBatMv: 3100, OnVBatMv: 3400, OnPerVBatMv: 3200,
			FreshWindow: 10 * time.Minute, FixTimeout: 90 * time.Second,
			LogFallback: 30 * time.Minute,
		},
		Radio: RadioConfig{
			Backend: "periph", PowerDbm: 20, CCAThreshold: -90, CCARetries: 5,
			PreambleLen: 8, TaskTimeout: 30 * time.Second,
		},
		Hardware: HardwareConfig{
			I2CBus:        "I2C1",
			BME280Onboard: 0x76,
			PAC1720Addr:   0x4C,
			ADCAddr:       0x48,
			ADCVrefMv:     3300,
			ADCVBatChan:   0,
			ADCVSolChan:   1,
			ADCLightChan:  2,
			ThermalMCU:    0x4F,
			ThermalRadio:  0x4F,
		},
		Watchdog: WatchdogConfig{Timeout: 60 * time.Second},
		// SPEC_FULL open question (a) defaults.
		APRSDWindow:    10 * time.Minute,
		MsgDedupWindow: 30 * time.Second,
	}
}

// Load reads and CRC-validates the configuration page at path. On any read,
// parse, or CRC error it logs (if debug is non-nil) and returns Defaults(),
// matching spec §4.8's "fall back to compile-time defaults" contract; it never
// returns an error itself since a corrupt config must never block boot.
func Load(path string, debug func(string, ...interface{})) Config {
	if debug == nil {
		debug = func(string, ...interface{}) {}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		debug("config: cannot read %s: %s, using defaults", path, err)
		return Defaults()
	}
	body, ok := splitCRC(raw)
	if !ok {
		debug("config: %s: %s, using defaults", path, errs.ErrConfigInvalid)
		return Defaults()
	}
	cfg := Defaults()
	if err := toml.Unmarshal(body, &cfg); err != nil {
		debug("config: %s: cannot parse: %s, using defaults", path, err)
		return Defaults()
	}
	return cfg
}

// Save writes cfg to path as TOML with a trailing CRC-16/CCITT, so that a
// subsequent Load can detect a torn write the same way LogRing detects one.
func Save(path string, cfg Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	body := buf.Bytes()
	sum := crc16.Checksum(body)
	out := append(body, byte(sum), byte(sum>>8))
	return os.WriteFile(path, out, 0o644)
}

// splitCRC verifies the trailing 2-byte CRC-16/CCITT and returns the body
// without it.
func splitCRC(raw []byte) ([]byte, bool) {
	if len(raw) < 2 {
		return nil, false
	}
	body := raw[:len(raw)-2]
	want := uint16(raw[len(raw)-2]) | uint16(raw[len(raw)-1])<<8
	return body, crc16.Checksum(body) == want
}
