package simulator

import (
	"math"

	"github.com/OpenFogStack/celestial/internal/config"
	"github.com/OpenFogStack/celestial/internal/differ"
	"github.com/OpenFogStack/celestial/internal/shell"
	"github.com/OpenFogStack/celestial/internal/types"
)

// GroundGroundState holds the best-of-all-shells ground-to-ground path for
// every unordered pair of ground stations. A ground-station pair is not
// owned by any single shell the way a satellite is (spec.md §3): any
// shell's satellites may carry traffic between two ground stations, so the
// simulator reconciles every shell's candidate before diffing rather than
// diffing each shell's view independently, which would otherwise let two
// shells emit conflicting diffs for the same pair on the same tick.
type GroundGroundState struct {
	n              int
	active         [][]bool
	delayUS        [][]uint32
	bandwidthKbits [][]uint32
	nextHop        [][]types.MachineID
}

func NewGroundGroundState(n int) *GroundGroundState {
	s := &GroundGroundState{n: n}
	s.active = make([][]bool, n)
	s.delayUS = make([][]uint32, n)
	s.bandwidthKbits = make([][]uint32, n)
	s.nextHop = make([][]types.MachineID, n)
	for i := 0; i < n; i++ {
		s.active[i] = make([]bool, n)
		s.delayUS[i] = make([]uint32, n)
		s.bandwidthKbits[i] = make([]uint32, n)
		s.nextHop[i] = make([]types.MachineID, n)
	}
	return s
}

// MergeGroundGround picks, for every ground-station pair, the active
// candidate with the lowest delay across all shells, spec.md §4.4's
// tie-break rule ("first strictly lower delay wins") applied across shells
// rather than within one.
func MergeGroundGround(shells []*shell.Shell, results []*shell.Result, n int) *GroundGroundState {
	s := NewGroundGroundState(n)

	for si, sh := range shells {
		res := results[si]
		nSat := sh.TotalSats()

		for g1 := 0; g1 < n; g1++ {
			for g2 := g1 + 1; g2 < n; g2++ {
				i, j := nSat+g1, nSat+g2
				if !res.Matrix.Active[i][j] {
					continue
				}
				delay := res.Matrix.DelayUS[i][j]
				if s.active[g1][g2] && delay >= s.delayUS[g1][g2] {
					continue
				}

				s.active[g1][g2] = true
				s.active[g2][g1] = true
				s.delayUS[g1][g2] = delay
				s.delayUS[g2][g1] = delay
				s.bandwidthKbits[g1][g2] = res.Matrix.BandwidthKbits[i][j]
				s.bandwidthKbits[g2][g1] = res.Matrix.BandwidthKbits[i][j]
				s.nextHop[g1][g2] = types.MachineID{Group: sh.GroupID, ID: uint16(res.Matrix.NextHop[i][j])}
				s.nextHop[g2][g1] = types.MachineID{Group: sh.GroupID, ID: uint16(res.Matrix.NextHop[j][i])}
			}
		}
	}

	return s
}

// GroundGroundDiffs applies differ's emission predicate to the merged
// ground-to-ground submatrix, since its entries never pass through a
// *pathsolver.Matrix of their own. Unlike differ, a pair that is inactive
// on both ticks is never emitted, including on the first tick.
func GroundGroundDiffs(prev, cur *GroundGroundState, thresholdUS uint32, stations []config.GroundStation) []differ.LinkDiff {
	var diffs []differ.LinkDiff
	for i := 0; i < cur.n; i++ {
		for j := i + 1; j < cur.n; j++ {
			if !groundPairChanged(prev, cur, i, j, thresholdUS) {
				continue
			}
			diffs = append(diffs, differ.LinkDiff{
				Src:            types.MachineID{Group: 0, ID: uint16(i)},
				Tgt:            types.MachineID{Group: 0, ID: uint16(j)},
				Active:         cur.active[i][j],
				LatencyUS:      cur.delayUS[i][j],
				BandwidthKbits: cur.bandwidthKbits[i][j],
				NextHop:        cur.nextHop[i][j],
				PrevHop:        cur.nextHop[j][i],
			})
		}
	}
	return diffs
}

func groundPairChanged(prev, cur *GroundGroundState, i, j int, thresholdUS uint32) bool {
	if !prev.active[i][j] && !cur.active[i][j] {
		return false
	}
	if prev.active[i][j] != cur.active[i][j] {
		return true
	}
	if prev.bandwidthKbits[i][j] != cur.bandwidthKbits[i][j] {
		return true
	}
	if prev.nextHop[i][j] != cur.nextHop[i][j] {
		return true
	}
	delta := int32(cur.delayUS[i][j]) - int32(prev.delayUS[i][j])
	return math.Abs(float64(delta)) > float64(thresholdUS)
}
