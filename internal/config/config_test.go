package config

import (
	"testing"

	"github.com/OpenFogStack/celestial/internal/types"
)

func baseConfig() *Config {
	return &Config{
		BoundingBox: types.BoundingBox{Lat1: -90, Lat2: 90, Lon1: -180, Lon2: 180},
		Shells: []Shell{
			{Planes: 6, Sats: 6, AltitudeKM: 550, InclinationDeg: 53, ArcOfAscendingDeg: 180},
		},
		DelayUpdateThresholdUS: 500,
	}
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	cfg := baseConfig()
	warnings, err := Validate(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
}

func TestValidateRejectsEmptyShells(t *testing.T) {
	cfg := baseConfig()
	cfg.Shells = nil
	if _, err := Validate(cfg); err == nil {
		t.Fatal("expected error for empty shell list")
	}
}

func TestValidateRejectsShellOverSatelliteCeiling(t *testing.T) {
	cfg := baseConfig()
	cfg.Shells = []Shell{{Planes: 200, Sats: 200, AltitudeKM: 550}}
	if _, err := Validate(cfg); err == nil {
		t.Fatal("expected error for shell exceeding satellite ceiling")
	}
}

func TestValidateRejectsDuplicateGroundStationNames(t *testing.T) {
	cfg := baseConfig()
	cfg.GroundStations = []GroundStation{
		{Name: "berlin", MinElevationDeg: 25},
		{Name: "berlin", MinElevationDeg: 25},
	}
	if _, err := Validate(cfg); err == nil {
		t.Fatal("expected error for duplicate ground station name")
	}
}

func TestValidateRejectsOutOfRangeMinElevation(t *testing.T) {
	cfg := baseConfig()
	cfg.GroundStations = []GroundStation{{Name: "berlin", MinElevationDeg: 95}}
	if _, err := Validate(cfg); err == nil {
		t.Fatal("expected error for out-of-range min_elevation")
	}
}

func TestValidateWarnsOnGroundStationOutsideBbox(t *testing.T) {
	cfg := baseConfig()
	cfg.BoundingBox = types.BoundingBox{Lat1: 0, Lat2: 10, Lon1: 0, Lon2: 10}
	cfg.GroundStations = []GroundStation{{Name: "berlin", LatDeg: 52.5, LonDeg: 13.4, MinElevationDeg: 25}}

	warnings, err := Validate(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %d: %v", len(warnings), warnings)
	}
}

func TestShellDerivedQuantities(t *testing.T) {
	sh := Shell{Planes: 6, Sats: 6, AltitudeKM: 550}
	if sh.TotalSats() != 36 {
		t.Fatalf("TotalSats() = %d, want 36", sh.TotalSats())
	}
	wantAxis := EarthRadiusM + 550*1000
	if sh.SemiMajorAxisM() != wantAxis {
		t.Fatalf("SemiMajorAxisM() = %f, want %f", sh.SemiMajorAxisM(), wantAxis)
	}
	if sh.PeriodSeconds() <= 0 {
		t.Fatalf("PeriodSeconds() = %f, want positive", sh.PeriodSeconds())
	}
}

func TestTicks(t *testing.T) {
	cfg := &Config{DurationSeconds: 100, ResolutionSeconds: 10}
	if cfg.Ticks() != 10 {
		t.Fatalf("Ticks() = %d, want 10", cfg.Ticks())
	}
}
