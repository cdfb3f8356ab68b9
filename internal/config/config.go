// Package config defines the validated configuration document consumed by
// the simulator (spec.md §6: "consumed, not specified" by the core, but its
// shape and validation rules are specified here as an external
// collaborator). It replicates the schema semantics of the original
// celestial/config.py: per-shell satellite-count ceiling, unique
// ground-station names and min-elevation bounds. There is no top-level
// network/compute section and no inheritance: every shell and ground
// station carries its own MachineConfig and bandwidth as written.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/OpenFogStack/celestial/internal/errs"
	"github.com/OpenFogStack/celestial/internal/types"
)

// MaxSatellitesPerShell is the schema ceiling from spec.md §6/§7.
const MaxSatellitesPerShell = 16384

// EarthRadiusM is the WGS-72/spherical-Earth radius used throughout the
// engine, matching celestial/shell.py's EARTH_RADIUS_M.
const EarthRadiusM = 6_371_000.0

// EarthMu is the Earth gravitational parameter (m^3/s^2), spec.md §4.1.
const EarthMu = 3.986004418e14

// MachineConfig is the per-machine VM configuration carried into the
// archive's init listing (spec.md §6: "i" file).
type MachineConfig struct {
	VCPUCount      int      `json:"vcpu_count"`
	MemSizeMiB     int      `json:"mem_size_mib"`
	DiskSizeMiB    int      `json:"disk_size_mib"`
	KernelPath     string   `json:"kernel"`
	RootfsPath     string   `json:"rootfs"`
	BootParameters []string `json:"boot_parameters,omitempty"`
}

// Shell is one orbital ring, spec.md §3.
type Shell struct {
	Planes            int           `json:"planes"`
	Sats              int           `json:"sats"`
	AltitudeKM        float64       `json:"altitude_km"`
	InclinationDeg    float64       `json:"inclination"`
	ArcOfAscendingDeg float64       `json:"arc_of_ascending_nodes"`
	Eccentricity      float64       `json:"eccentricity"`
	ISLBandwidthKbits uint32        `json:"isl_bandwidth_kbits"`
	Machine           MachineConfig `json:"machine"`
}

// TotalSats is P*S, spec.md §3.
func (s Shell) TotalSats() int { return s.Planes * s.Sats }

// SemiMajorAxisM is EARTH_RADIUS_M + altitude_km*1000, spec.md §3.
func (s Shell) SemiMajorAxisM() float64 { return EarthRadiusM + s.AltitudeKM*1000 }

// PeriodSeconds is T = 2*pi*sqrt(a^3/mu), spec.md §4.1.
func (s Shell) PeriodSeconds() float64 {
	a := s.SemiMajorAxisM()
	return 2 * math.Pi * math.Sqrt(a*a*a/EarthMu)
}

// GroundStation is a fixed ground terminal, spec.md §3.
type GroundStation struct {
	Name            string               `json:"name"`
	LatDeg          float64              `json:"latitude"`
	LonDeg          float64              `json:"longitude"`
	ConnectionType  types.ConnectionType `json:"-"`
	ConnectionName  string               `json:"connection_type"`
	MinElevationDeg float64              `json:"min_elevation"`
	UplinkBandwidth uint32               `json:"uplink_bandwidth_kbits"`
	Machine         MachineConfig        `json:"machine"`
}

// Config is the top-level, validated simulation configuration.
type Config struct {
	BoundingBox       types.BoundingBox `json:"bounding_box"`
	DurationSeconds   int               `json:"duration_s"`
	ResolutionSeconds int               `json:"resolution_s"`
	Shells            []Shell           `json:"shells"`
	GroundStations    []GroundStation   `json:"ground_stations"`

	// DelayUpdateThresholdUS is the differ's suppression threshold,
	// spec.md §4.5, recommended default 500.
	DelayUpdateThresholdUS uint32 `json:"delay_update_threshold_us,omitempty"`

	// StrictUplink, when true, makes an uplink-less node a fatal solver
	// error rather than the lenient default of spec.md §7.
	StrictUplink bool `json:"strict_uplink,omitempty"`
}

// Ticks is the number of ticks the run covers.
func (c Config) Ticks() int {
	if c.ResolutionSeconds <= 0 {
		return 0
	}
	return c.DurationSeconds / c.ResolutionSeconds
}

// Load reads and validates a configuration document from path. Validation
// errors are Configuration-category and fatal per spec.md §7; warnings
// (bbox does not cover a ground station) are returned alongside a non-nil
// *Config and do not block the run.
func Load(path string) (cfg *Config, warnings []string, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errs.WrapConfigError("read configuration file", err)
	}

	cfg = &Config{
		DelayUpdateThresholdUS: 500,
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, nil, errs.WrapConfigError("parse configuration document", err)
	}

	if cfg.DelayUpdateThresholdUS == 0 {
		cfg.DelayUpdateThresholdUS = 500
	}

	for i := range cfg.GroundStations {
		gs := &cfg.GroundStations[i]
		if gs.ConnectionName == "ONE" {
			gs.ConnectionType = types.ConnectionOne
		} else {
			gs.ConnectionType = types.ConnectionAll
		}
	}

	warnings, err = Validate(cfg)
	if err != nil {
		return nil, warnings, err
	}
	return cfg, warnings, nil
}

// Validate checks the configuration against the schema rules of spec.md §6
// and §7. It returns non-fatal warnings separately from the fatal error.
func Validate(cfg *Config) ([]string, error) {
	var warnings []string

	if len(cfg.Shells) == 0 {
		return nil, errs.NewConfigError("configuration must declare at least one shell")
	}

	for i, sh := range cfg.Shells {
		if sh.Planes < 1 || sh.Sats < 1 {
			return nil, errs.NewConfigError(fmt.Sprintf("shell %d: planes and sats must each be >= 1", i))
		}
		if sh.TotalSats() > MaxSatellitesPerShell {
			return nil, errs.NewConfigError(fmt.Sprintf(
				"shell %d: %d satellites exceeds the %d-satellite ceiling", i, sh.TotalSats(), MaxSatellitesPerShell))
		}
	}

	seen := make(map[string]bool, len(cfg.GroundStations))
	for _, gs := range cfg.GroundStations {
		if seen[gs.Name] {
			return nil, errs.NewConfigError(fmt.Sprintf("duplicate ground station name %q", gs.Name))
		}
		seen[gs.Name] = true

		if gs.MinElevationDeg < 0 || gs.MinElevationDeg > 90 {
			return nil, errs.NewConfigError(fmt.Sprintf(
				"ground station %q: min_elevation %.2f outside [0,90]", gs.Name, gs.MinElevationDeg))
		}

		if !cfg.BoundingBox.Contains(gs.LatDeg, gs.LonDeg) {
			warnings = append(warnings, fmt.Sprintf(
				"ground station %q at (%.4f,%.4f) lies outside the configured bounding box", gs.Name, gs.LatDeg, gs.LonDeg))
		}
	}

	return warnings, nil
}

