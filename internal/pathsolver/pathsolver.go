// Package pathsolver implements spec.md §4.4: the three-stage all-pairs
// path computation over one shell's N_sat+N_gst node set (satellite-core
// Floyd–Warshall exploiting symmetry, sat-to-ground, ground-to-ground),
// producing for every ordered pair an active flag, one-way delay,
// bottleneck bandwidth, next-hop and prev-hop.
//
// Grounded on celestial/shell.py's numba_update_paths for the algorithm
// shape. The k-loop's i-range relaxation is fanned out with
// golang.org/x/sync/errgroup per spec.md §5's "loop-level parallelism on i
// for a fixed k".
package pathsolver

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/OpenFogStack/celestial/internal/errs"
	"github.com/OpenFogStack/celestial/internal/topology"
)

// LinkPropagationSPerM is ~1/c, spec.md §4.4.
const LinkPropagationSPerM = 3.336e-9

const infDist = math.MaxFloat64

// Matrix holds the active/delay/bandwidth/next-hop state for every ordered
// pair of one shell's N_sat+N_gst nodes. Satellite nodes occupy
// [0,N_sat), ground-station nodes [N_sat,N_sat+N_gst), matching spec.md §3.
type Matrix struct {
	N              int
	NSat           int
	Active         [][]bool
	DelayUS        [][]uint32
	BandwidthKbits [][]uint32
	NextHop        [][]int32
}

func newMatrix(n, nSat int) *Matrix {
	m := &Matrix{N: n, NSat: nSat}
	m.Active = make([][]bool, n)
	m.DelayUS = make([][]uint32, n)
	m.BandwidthKbits = make([][]uint32, n)
	m.NextHop = make([][]int32, n)
	for i := 0; i < n; i++ {
		m.Active[i] = make([]bool, n)
		m.DelayUS[i] = make([]uint32, n)
		m.BandwidthKbits[i] = make([]uint32, n)
		row := make([]int32, n)
		for j := range row {
			row[j] = -1
		}
		m.NextHop[i] = row
	}
	return m
}

// PrevHop returns the node adjacent to j on the path from i to j: the
// reverse-direction next hop, spec.md §4.4's "prev_hop from direction i→j
// is the next-hop on the reverse path, recorded as next_hop[j,i]".
func (m *Matrix) PrevHop(i, j int) int32 {
	return m.NextHop[j][i]
}

func delayUS(distM float64) uint32 {
	return uint32(math.Round(distM * LinkPropagationSPerM * 1e6))
}

// GroundStationInput is one ground station's per-shell solver input: its
// accepted uplink candidates (topology.SelectUplinks's output) and its
// uplink bandwidth.
type GroundStationInput struct {
	Uplinks         []topology.Uplink
	UplinkBandwidth uint32
}

// Solve runs the three-stage path computation for one shell. strictUplink
// makes an uplink-less ground station a fatal *errs.Error (Solver category)
// per spec.md §7; the default (false) marks the pair inactive instead.
func Solve(ctx context.Context, links []topology.Link, nSat int, islBandwidthKbits uint32, gstations []GroundStationInput, strictUplink bool) (*Matrix, error) {
	nGst := len(gstations)
	n := nSat + nGst

	dist := make([][]float64, nSat)
	next := make([][]int32, nSat)
	for i := 0; i < nSat; i++ {
		dist[i] = make([]float64, nSat)
		next[i] = make([]int32, nSat)
		for j := 0; j < nSat; j++ {
			if i == j {
				dist[i][j] = 0
				next[i][j] = int32(i)
			} else {
				dist[i][j] = infDist
				next[i][j] = -1
			}
		}
	}

	for _, l := range links {
		if !l.Active {
			continue
		}
		dist[l.NodeA][l.NodeB] = l.DistanceM
		dist[l.NodeB][l.NodeA] = l.DistanceM
		next[l.NodeA][l.NodeB] = int32(l.NodeB)
		next[l.NodeB][l.NodeA] = int32(l.NodeA)
	}

	if err := floydWarshall(ctx, dist, next, nSat); err != nil {
		return nil, err
	}

	m := newMatrix(n, nSat)
	for i := 0; i < nSat; i++ {
		for j := 0; j < nSat; j++ {
			if i == j {
				m.Active[i][j] = true
				m.NextHop[i][j] = int32(i)
				continue
			}
			if dist[i][j] >= infDist {
				m.Active[i][j] = false
				m.NextHop[i][j] = -1
				continue
			}
			m.Active[i][j] = true
			m.DelayUS[i][j] = delayUS(dist[i][j])
			m.BandwidthKbits[i][j] = islBandwidthKbits
			m.NextHop[i][j] = next[i][j]
		}
	}

	if err := solveSatToGround(m, dist, gstations, islBandwidthKbits, strictUplink); err != nil {
		return nil, err
	}
	solveGroundToGround(m, dist, gstations, islBandwidthKbits)

	return m, nil
}

func floydWarshall(ctx context.Context, dist [][]float64, next [][]int32, nSat int) error {
	workers := runtime.GOMAXPROCS(0)
	if workers > nSat {
		workers = nSat
	}
	if workers < 1 {
		workers = 1
	}

	for k := 0; k < nSat; k++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		chunk := (nSat + workers - 1) / workers
		for w := 0; w < workers; w++ {
			lo := w * chunk
			hi := lo + chunk
			if hi > nSat {
				hi = nSat
			}
			if lo >= hi {
				continue
			}
			lo, hi := lo, hi
			g.Go(func() error {
				for i := lo; i < hi; i++ {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					dik := dist[i][k]
					if dik >= infDist {
						continue
					}
					for j := i + 1; j < nSat; j++ {
						via := dik + dist[k][j]
						if via < dist[i][j] {
							dist[i][j] = via
							dist[j][i] = via
							next[i][j] = next[i][k]
							next[j][i] = next[j][k]
						}
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func solveSatToGround(m *Matrix, satDist [][]float64, gstations []GroundStationInput, islBandwidthKbits uint32, strictUplink bool) error {
	nSat := m.NSat
	for gi, gs := range gstations {
		gGlobal := nSat + gi

		if len(gs.Uplinks) == 0 {
			if strictUplink {
				return errs.WrapSolverError("ground station has no uplink candidates in strict mode", nil)
			}
			for s := 0; s < nSat; s++ {
				m.Active[s][gGlobal] = false
				m.Active[gGlobal][s] = false
			}
			continue
		}

		for s := 0; s < nSat; s++ {
			bestDist := infDist
			bestUplinkSat := -1
			direct := false

			for _, c := range gs.Uplinks {
				if c.SatIndex == s {
					bestDist = c.DistanceM
					bestUplinkSat = c.SatIndex
					direct = true
					break
				}
				d := satDist[s][c.SatIndex]
				if d >= infDist {
					continue
				}
				total := d + c.DistanceM
				if total < bestDist {
					bestDist = total
					bestUplinkSat = c.SatIndex
					direct = false
				}
			}

			if bestUplinkSat == -1 || bestDist >= infDist {
				m.Active[s][gGlobal] = false
				m.Active[gGlobal][s] = false
				continue
			}

			m.Active[s][gGlobal] = true
			m.Active[gGlobal][s] = true
			d := delayUS(bestDist)
			m.DelayUS[s][gGlobal] = d
			m.DelayUS[gGlobal][s] = d
			bw := islBandwidthKbits
			if gs.UplinkBandwidth < bw {
				bw = gs.UplinkBandwidth
			}
			m.BandwidthKbits[s][gGlobal] = bw
			m.BandwidthKbits[gGlobal][s] = bw

			m.NextHop[gGlobal][s] = int32(bestUplinkSat)
			if direct {
				m.NextHop[s][gGlobal] = int32(gGlobal)
			} else {
				m.NextHop[s][gGlobal] = m.NextHop[s][bestUplinkSat]
			}
		}
	}
	return nil
}

func solveGroundToGround(m *Matrix, satDist [][]float64, gstations []GroundStationInput, islBandwidthKbits uint32) {
	nSat := m.NSat
	for g1i := 0; g1i < len(gstations); g1i++ {
		for g2i := g1i + 1; g2i < len(gstations); g2i++ {
			g1 := gstations[g1i]
			g2 := gstations[g2i]
			g1Global := nSat + g1i
			g2Global := nSat + g2i

			bestCost := infDist
			bestX1, bestX2 := -1, -1

			for _, x1 := range g1.Uplinks {
				for _, x2 := range g2.Uplinks {
					d := satDist[x1.SatIndex][x2.SatIndex]
					if d >= infDist {
						continue
					}
					cost := x1.DistanceM + d + x2.DistanceM
					if cost < bestCost {
						bestCost = cost
						bestX1, bestX2 = x1.SatIndex, x2.SatIndex
					}
				}
			}

			if bestX1 == -1 {
				m.Active[g1Global][g2Global] = false
				m.Active[g2Global][g1Global] = false
				continue
			}

			m.Active[g1Global][g2Global] = true
			m.Active[g2Global][g1Global] = true
			d := delayUS(bestCost)
			m.DelayUS[g1Global][g2Global] = d
			m.DelayUS[g2Global][g1Global] = d

			bw := islBandwidthKbits
			if g1.UplinkBandwidth < bw {
				bw = g1.UplinkBandwidth
			}
			if g2.UplinkBandwidth < bw {
				bw = g2.UplinkBandwidth
			}
			m.BandwidthKbits[g1Global][g2Global] = bw
			m.BandwidthKbits[g2Global][g1Global] = bw

			m.NextHop[g1Global][g2Global] = int32(bestX1)
			m.NextHop[g2Global][g1Global] = int32(bestX2)
		}
	}
}
