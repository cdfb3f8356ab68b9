// Package differ computes the minimum set of machine-state and link-state
// changes between consecutive ticks, spec.md §4.5. Machine diffs precede
// link diffs, and link diffs are ordered lexicographically by
// (group_i,id_i,group_j,id_j), matching the deterministic ordering
// guarantee of spec.md §5/§9.
//
// Grounded on celestial/shell.py's numba_get_link_diff for the comparison
// rules, and internal/platform/dtn/storage.go's explicit-comparison/filter
// idiom for the style (no map iteration, explicit sorted slices).
package differ

import (
	"math"
	"sort"

	"github.com/OpenFogStack/celestial/internal/pathsolver"
	"github.com/OpenFogStack/celestial/internal/types"
)

// MachineDiff is one emitted machine-state change, spec.md §4.5/§6.
type MachineDiff struct {
	ID    types.MachineID
	State types.VMState
}

// LinkDiff is one emitted link-state change, spec.md §4.5/§6. It always
// carries the *current* path attributes, never a delta.
type LinkDiff struct {
	Src, Tgt         types.MachineID
	Active           bool
	LatencyUS        uint32
	BandwidthKbits   uint32
	NextHop, PrevHop types.MachineID
}

// NodeIndex maps a path-matrix index to its MachineID, used to translate
// pathsolver output and propagator/earthframe state into wire identities.
type NodeIndex struct {
	IDs []types.MachineID
}

func (n NodeIndex) of(i int32) types.MachineID {
	if i < 0 {
		return types.MachineID{}
	}
	return n.IDs[i]
}

// MachineDiffs compares the previous and current per-node ACTIVE state and
// emits one record per satellite whose state flipped, spec.md §4.5.
// Ground stations never participate (their state is always ACTIVE per
// DESIGN.md's Open Question decision) and are excluded by the caller only
// passing satellite indices.
func MachineDiffs(idx NodeIndex, prev, cur []types.VMState) []MachineDiff {
	var diffs []MachineDiff
	for i := range cur {
		if prev[i] != cur[i] {
			diffs = append(diffs, MachineDiff{ID: idx.IDs[i], State: cur[i]})
		}
	}
	sort.Slice(diffs, func(a, b int) bool { return less(diffs[a].ID, diffs[b].ID) })
	return diffs
}

// LinkDiffs compares prev and cur path matrices over the same node set and
// emits a diff for every pair whose attributes changed beyond the
// configured threshold, spec.md §4.5.
func LinkDiffs(idx NodeIndex, prev, cur *pathsolver.Matrix, delayUpdateThresholdUS uint32) []LinkDiff {
	return LinkDiffsFiltered(idx, prev, cur, delayUpdateThresholdUS, nil)
}

// LinkDiffsFiltered is LinkDiffs restricted to pairs (i,j) for which include
// reports true (a nil include keeps every pair). The simulator uses this to
// partition one shell's N_sat+N_gst matrix into its sat-core/sat-to-ground
// range (i < N_sat) and the separately-merged ground-to-ground range, since
// a ground-station pair may be reachable through more than one shell and is
// reconciled before diffing rather than diffed per shell.
func LinkDiffsFiltered(idx NodeIndex, prev, cur *pathsolver.Matrix, delayUpdateThresholdUS uint32, include func(i, j int) bool) []LinkDiff {
	var diffs []LinkDiff
	n := cur.N

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if include != nil && !include(i, j) {
				continue
			}
			if changed(prev, cur, i, j, delayUpdateThresholdUS) {
				diffs = append(diffs, LinkDiff{
					Src:            idx.of(int32(i)),
					Tgt:            idx.of(int32(j)),
					Active:         cur.Active[i][j],
					LatencyUS:      cur.DelayUS[i][j],
					BandwidthKbits: cur.BandwidthKbits[i][j],
					NextHop:        idx.of(cur.NextHop[i][j]),
					PrevHop:        idx.of(cur.PrevHop(i, j)),
				})
			}
		}
	}

	sort.Slice(diffs, func(a, b int) bool {
		if diffs[a].Src != diffs[b].Src {
			return less(diffs[a].Src, diffs[b].Src)
		}
		return less(diffs[a].Tgt, diffs[b].Tgt)
	})
	return diffs
}

func less(a, b types.MachineID) bool {
	if a.Group != b.Group {
		return a.Group < b.Group
	}
	return a.ID < b.ID
}

// changed implements spec.md §4.5's emission predicate: the int32-cast
// delay delta exceeds the threshold, or active/bandwidth/next_hop changed.
// A nil prev (never diffed before) always counts as changed.
func changed(prev, cur *pathsolver.Matrix, i, j int, thresholdUS uint32) bool {
	if prev == nil {
		return true
	}

	if prev.Active[i][j] != cur.Active[i][j] {
		return true
	}
	if prev.BandwidthKbits[i][j] != cur.BandwidthKbits[i][j] {
		return true
	}
	if prev.NextHop[i][j] != cur.NextHop[i][j] {
		return true
	}

	delta := int32(cur.DelayUS[i][j]) - int32(prev.DelayUS[i][j])
	return math.Abs(float64(delta)) > float64(thresholdUS)
}
