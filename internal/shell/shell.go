// Package shell orchestrates, for one orbital shell, the per-tick
// propagator / Earth-frame / link-generator / path-solver sequence of
// spec.md §2, producing the satellite states and path matrix that the
// simulator later diffs.
//
// Grounded on celestial/shell.py's Shell.step, which runs the same four
// stages in the same order for one shell each tick.
package shell

import (
	"context"

	"github.com/OpenFogStack/celestial/internal/config"
	"github.com/OpenFogStack/celestial/internal/earthframe"
	"github.com/OpenFogStack/celestial/internal/orbital"
	"github.com/OpenFogStack/celestial/internal/pathsolver"
	"github.com/OpenFogStack/celestial/internal/topology"
	"github.com/OpenFogStack/celestial/internal/types"
)

// Shell holds the fixed, once-computed state of one orbital ring: its
// propagator's mean elements, its +GRID link list, and the derived
// distance ceilings for ISL and ground-uplink activation, spec.md §4.1/§4.3.
type Shell struct {
	GroupID uint8
	Cfg     config.Shell

	propagator      *orbital.Propagator
	links           []topology.Link
	maxISLDistanceM float64
	semiMajorAxisM  float64
	bbox            types.BoundingBox

	groundStations   []config.GroundStation
	groundPlacements []types.Vec3
	maxUplinkRangeM  []float64

	strictUplink bool
}

// New builds a Shell for groupID (spec.md §3's satellite group, ≥1) from
// cfg, reusing the shared ground-station list and bounding box supplied by
// the simulator.
func New(groupID uint8, cfg config.Shell, bbox types.BoundingBox, groundStations []config.GroundStation, strictUplink bool) *Shell {
	placements := make([]types.Vec3, len(groundStations))
	maxRanges := make([]float64, len(groundStations))
	for i, gs := range groundStations {
		placements[i] = topology.GroundStationPlacement(gs)
		maxRanges[i] = topology.MaxUplinkRangeM(cfg, gs.MinElevationDeg)
	}

	return &Shell{
		GroupID:          groupID,
		Cfg:              cfg,
		propagator:       orbital.NewShellPropagator(cfg),
		links:            topology.BuildLinks(cfg),
		maxISLDistanceM:  topology.MaxISLDistanceM(cfg, topology.DefaultMinCommsAltitudeM),
		semiMajorAxisM:   cfg.SemiMajorAxisM(),
		bbox:             bbox,
		groundStations:   groundStations,
		groundPlacements: placements,
		maxUplinkRangeM:  maxRanges,
		strictUplink:     strictUplink,
	}
}

// TotalSats is this shell's total satellite count.
func (s *Shell) TotalSats() int { return s.Cfg.TotalSats() }

// Result is one tick's output for one shell: current positions, current
// ACTIVE/STOPPED classification, and the path matrix over this shell's
// N_sat satellites plus every configured ground station.
type Result struct {
	Positions []types.Position
	States    []types.VMState
	Matrix    *pathsolver.Matrix
}

// Step runs the four per-shell stages at tSeconds since orbital.Epoch,
// spec.md §2 stages 1-4.
func (s *Shell) Step(ctx context.Context, tSeconds float64) (*Result, error) {
	positions := make([]types.Position, s.TotalSats())
	s.propagator.Propagate(tSeconds, positions)

	states := make([]types.VMState, len(positions))
	for i, p := range positions {
		states[i] = earthframe.Classify(p, s.semiMajorAxisM, s.bbox, tSeconds)
	}

	topology.Update(s.links, positions, s.maxISLDistanceM)

	gsInputs := make([]pathsolver.GroundStationInput, len(s.groundStations))
	for i, gs := range s.groundStations {
		curPos := earthframe.RotateGroundStation(s.groundPlacements[i], tSeconds)
		uplinks := topology.SelectUplinks(curPos, positions, gs.ConnectionType, s.maxUplinkRangeM[i])
		gsInputs[i] = pathsolver.GroundStationInput{
			Uplinks:         uplinks,
			UplinkBandwidth: gs.UplinkBandwidth,
		}
	}

	matrix, err := pathsolver.Solve(ctx, s.links, len(positions), s.Cfg.ISLBandwidthKbits, gsInputs, s.strictUplink)
	if err != nil {
		return nil, err
	}

	return &Result{Positions: positions, States: states, Matrix: matrix}, nil
}
