package geofence

import (
	"testing"

	"aprsballoon/internal/datapoint"
)

func point(lat, lon int32) datapoint.DataPoint {
	return datapoint.DataPoint{
		GPSState: datapoint.GPSLockedOn,
		GPSLat:   lat,
		GPSLon:   lon,
	}
}

func TestResolveDynamicByRegion(t *testing.T) {
	p := defaultPolicy()
	cases := []struct {
		name     string
		dp       datapoint.DataPoint
		wantFreq Hz
	}{
		{"NA", point(40_0000000, -105_0000000), 144390000},
		{"EU", point(50_0000000, 10_0000000), 144800000},
		{"AU", point(-25_0000000, 135_0000000), 145175000},
		{"JP", point(35_0000000, 139_0000000), 144640000},
		{"mid ocean falls back", point(0, 0), DefaultBandDefault},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := p.Resolve(Frequency{Kind: Dynamic}, c.dp)
			if got != c.wantFreq {
				t.Fatalf("Resolve(%s) = %d, want %d", c.name, got, c.wantFreq)
			}
		})
	}
}

func TestResolveDynamicNoFixFallsBackToDefault(t *testing.T) {
	p := defaultPolicy()
	dp := datapoint.DataPoint{GPSState: datapoint.GPSLockedOff}
	got := p.Resolve(Frequency{Kind: Dynamic}, dp)
	if got != DefaultBandDefault {
		t.Fatalf("Resolve() with no fix = %d, want default %d", got, DefaultBandDefault)
	}
}

func TestResolveStaticInBandPassesThrough(t *testing.T) {
	p := defaultPolicy()
	got := p.Resolve(Frequency{Kind: Static, Fixed: 144800000}, point(50_0000000, 10_0000000))
	if got != 144800000 {
		t.Fatalf("Resolve(Static in-band) = %d, want 144800000", got)
	}
}

func TestResolveStaticOutOfBandClamps(t *testing.T) {
	p := defaultPolicy()
	got := p.Resolve(Frequency{Kind: Static, Fixed: 433920000}, point(40_0000000, -105_0000000))
	if got != DefaultBandDefault {
		t.Fatalf("Resolve(Static out-of-band) = %d, want default %d", got, DefaultBandDefault)
	}
}

func TestLoadFallsBackOnMissingFile(t *testing.T) {
	p := Load("/nonexistent/bandplan.yaml")
	if len(p.regions) != len(DefaultRegions()) {
		t.Fatalf("Load(missing) did not fall back to defaults")
	}
}
