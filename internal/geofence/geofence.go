// Package geofence resolves the APRS frequency the tracker should transmit on,
// given its current position and an optional band-plan override (spec §4.3). The
// region table is loaded from an optional bandplan.yaml the way houneTeam's
// internal/ids.Resolver loads its vendor/UUID name tables from yaml, falling back to
// a compiled-in default the way internal/config falls back to Defaults() when the
// file is absent or malformed.
package geofence

import (
	"os"

	"gopkg.in/yaml.v3"

	"aprsballoon/internal/datapoint"
)

// Hz is a frequency in hertz.
type Hz uint32

// Kind distinguishes a fixed frequency from one resolved by position.
type Kind uint8

const (
	Static Kind = iota
	Dynamic
)

// Frequency describes how to pick the transmit frequency: either a fixed value, or
// "look it up from the region table" (APRS_REGIONAL).
type Frequency struct {
	Kind  Kind
	Fixed Hz // meaningful only when Kind == Static
}

// Region is one rectangular entry in the band-plan region table.
type Region struct {
	Name      string `yaml:"name"`
	LatMin    int32  `yaml:"lat_min"`
	LatMax    int32  `yaml:"lat_max"`
	LonMin    int32  `yaml:"lon_min"`
	LonMax    int32  `yaml:"lon_max"`
	Frequency Hz     `yaml:"frequency_hz"`
}

// contains reports whether the 1e-7-degree lat/lon point falls within r. Region
// bounds are plain integer degrees, matching the resolution spec §4.3's table uses.
func (r Region) contains(lat1e7, lon1e7 int32) bool {
	lat := lat1e7 / 10_000_000
	lon := lon1e7 / 10_000_000
	return lat >= r.LatMin && lat <= r.LatMax && lon >= r.LonMin && lon <= r.LonMax
}

// bandplanFile is the on-disk shape of bandplan.yaml.
type bandplanFile struct {
	Regions        []Region `yaml:"regions"`
	DefaultFreqHz  Hz       `yaml:"default_frequency_hz"`
}

// DefaultRegions is the compiled-in region table from spec §4.3, used whenever
// bandplan.yaml is absent or fails to parse.
func DefaultRegions() []Region {
	return []Region{
		{Name: "NA", LatMin: 5, LatMax: 75, LonMin: -170, LonMax: -50, Frequency: 144390000},
		{Name: "EU", LatMin: 35, LatMax: 72, LonMin: -12, LonMax: 40, Frequency: 144800000},
		{Name: "AU", LatMin: -48, LatMax: -8, LonMin: 110, LonMax: 155, Frequency: 145175000},
		{Name: "JP", LatMin: 24, LatMax: 46, LonMin: 122, LonMax: 148, Frequency: 144640000},
	}
}

// DefaultBandDefault is the fallback frequency used when no region matches and
// bandplan.yaml does not override it (spec §4.3's "fall back to the configured
// default"). It is NA's calling frequency, the most populous region in the pack's
// reference deployments.
const DefaultBandDefault Hz = 144390000

// Policy holds the resolved region table plus the band default frequency. It is safe
// for concurrent read access once built — callers never mutate it after Load.
type Policy struct {
	regions []Region
	bandDefault Hz
}

// Load reads path (a bandplan.yaml file) and returns a Policy; on any read or parse
// error it silently returns the compiled-in default policy, mirroring internal/config's
// Load fallback contract.
func Load(path string) *Policy {
	raw, err := os.ReadFile(path)
	if err != nil {
		return defaultPolicy()
	}
	var f bandplanFile
	if err := yaml.Unmarshal(raw, &f); err != nil || len(f.Regions) == 0 {
		return defaultPolicy()
	}
	def := f.DefaultFreqHz
	if def == 0 {
		def = DefaultBandDefault
	}
	return &Policy{regions: f.Regions, bandDefault: def}
}

func defaultPolicy() *Policy {
	return &Policy{regions: DefaultRegions(), bandDefault: DefaultBandDefault}
}

// Resolve implements spec §4.3's `resolve(Frequency, dataPoint) -> Hz` contract. A
// Static frequency is returned unchanged (still checked against the band plan); a
// Dynamic frequency is resolved by containment against dp's lat/lon, falling back to
// the band default when no region matches, the position is stale, or dp has no fix.
func (p *Policy) Resolve(f Frequency, dp datapoint.DataPoint) Hz {
	if f.Kind == Static {
		return p.clampToBand(f.Fixed)
	}
	if !dp.HasPosition() {
		return p.bandDefault
	}
	for _, r := range p.regions {
		if r.contains(dp.GPSLat, dp.GPSLon) {
			return r.Frequency
		}
	}
	return p.bandDefault
}

// clampToBand returns hz unchanged if it matches any region's or the default's
// frequency, otherwise returns the band default (spec §4.3: "the result must always
// lie inside the active radio band plan; if not, return the band's default APRS
// frequency").
func (p *Policy) clampToBand(hz Hz) Hz {
	if hz == p.bandDefault {
		return hz
	}
	for _, r := range p.regions {
		if r.Frequency == hz {
			return hz
		}
	}
	return p.bandDefault
}
