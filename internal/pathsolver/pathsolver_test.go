package pathsolver

import (
	"context"
	"testing"

	"github.com/OpenFogStack/celestial/internal/topology"
)

func TestSolveTwoSatellitesSingleLink(t *testing.T) {
	links := []topology.Link{{NodeA: 0, NodeB: 1, Active: true, DistanceM: 1_000_000}}
	m, err := Solve(context.Background(), links, 2, 10_000, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Active[0][1] || !m.Active[1][0] {
		t.Fatal("expected both directions active")
	}
	if m.DelayUS[0][1] != m.DelayUS[1][0] {
		t.Fatalf("expected symmetric delay, got %d vs %d", m.DelayUS[0][1], m.DelayUS[1][0])
	}
	wantDelay := delayUS(1_000_000)
	if m.DelayUS[0][1] != wantDelay {
		t.Fatalf("delay = %d, want %d", m.DelayUS[0][1], wantDelay)
	}
}

func TestSolveDisconnectedGraphStaysInactive(t *testing.T) {
	// Three satellites, only 0-1 linked; 2 is isolated.
	links := []topology.Link{{NodeA: 0, NodeB: 1, Active: true, DistanceM: 500}}
	m, err := Solve(context.Background(), links, 3, 10_000, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Active[0][2] || m.Active[2][0] || m.Active[1][2] || m.Active[2][1] {
		t.Fatal("expected pairs involving the isolated satellite to stay inactive")
	}
}

func TestSolveMatrixIsSymmetric(t *testing.T) {
	links := []topology.Link{
		{NodeA: 0, NodeB: 1, Active: true, DistanceM: 100},
		{NodeA: 1, NodeB: 2, Active: true, DistanceM: 200},
		{NodeA: 2, NodeB: 3, Active: true, DistanceM: 300},
		{NodeA: 3, NodeB: 0, Active: true, DistanceM: 400},
	}
	m, err := Solve(context.Background(), links, 4, 10_000, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < m.N; i++ {
		for j := 0; j < m.N; j++ {
			if m.Active[i][j] != m.Active[j][i] {
				t.Fatalf("active not symmetric at (%d,%d)", i, j)
			}
			if m.DelayUS[i][j] != m.DelayUS[j][i] {
				t.Fatalf("delay not symmetric at (%d,%d)", i, j)
			}
			if m.BandwidthKbits[i][j] != m.BandwidthKbits[j][i] {
				t.Fatalf("bandwidth not symmetric at (%d,%d)", i, j)
			}
		}
	}
}

func TestSolveGroundStationDirectUplink(t *testing.T) {
	links := []topology.Link{{NodeA: 0, NodeB: 1, Active: true, DistanceM: 1000}}
	gs := []GroundStationInput{
		{Uplinks: []topology.Uplink{{SatIndex: 0, DistanceM: 500}}, UplinkBandwidth: 5000},
	}
	m, err := Solve(context.Background(), links, 2, 10_000, gs, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gIdx := 2
	if !m.Active[0][gIdx] {
		t.Fatal("expected ground station to be reachable from direct uplink satellite")
	}
	if m.NextHop[gIdx][0] != 0 {
		t.Fatalf("next hop from gs should be the uplink satellite 0, got %d", m.NextHop[gIdx][0])
	}
	if m.NextHop[0][gIdx] != int32(gIdx) {
		t.Fatalf("next hop from sat 0 directly to gs should be gs itself, got %d", m.NextHop[0][gIdx])
	}
}

func TestSolveGroundStationNoUplinkIsInactive(t *testing.T) {
	links := []topology.Link{{NodeA: 0, NodeB: 1, Active: true, DistanceM: 1000}}
	gs := []GroundStationInput{{Uplinks: nil, UplinkBandwidth: 5000}}
	m, err := Solve(context.Background(), links, 2, 10_000, gs, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Active[0][2] {
		t.Fatal("expected pair with no uplink candidates to be inactive")
	}
}

func TestSolveGroundStationNoUplinkStrictIsError(t *testing.T) {
	links := []topology.Link{{NodeA: 0, NodeB: 1, Active: true, DistanceM: 1000}}
	gs := []GroundStationInput{{Uplinks: nil, UplinkBandwidth: 5000}}
	_, err := Solve(context.Background(), links, 2, 10_000, gs, true)
	if err == nil {
		t.Fatal("expected strict-mode uplink-less ground station to error")
	}
}

func TestSolveGroundToGroundPicksCheapestPair(t *testing.T) {
	links := []topology.Link{
		{NodeA: 0, NodeB: 1, Active: true, DistanceM: 100},
		{NodeA: 1, NodeB: 2, Active: true, DistanceM: 100},
	}
	gs := []GroundStationInput{
		{Uplinks: []topology.Uplink{{SatIndex: 0, DistanceM: 10}}, UplinkBandwidth: 5000},
		{Uplinks: []topology.Uplink{{SatIndex: 2, DistanceM: 10}}, UplinkBandwidth: 5000},
	}
	m, err := Solve(context.Background(), links, 3, 10_000, gs, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g1, g2 := 3, 4
	if !m.Active[g1][g2] {
		t.Fatal("expected ground-to-ground path to be active")
	}
	if m.NextHop[g1][g2] != 0 {
		t.Fatalf("next hop from g1 should be satellite 0, got %d", m.NextHop[g1][g2])
	}
	if m.NextHop[g2][g1] != 2 {
		t.Fatalf("next hop from g2 should be satellite 2, got %d", m.NextHop[g2][g1])
	}
	if m.PrevHop(g1, g2) != m.NextHop[g2][g1] {
		t.Fatal("PrevHop helper must mirror NextHop[j][i]")
	}
}

func TestDiagonalIsZeroDelayAndActive(t *testing.T) {
	links := []topology.Link{{NodeA: 0, NodeB: 1, Active: true, DistanceM: 100}}
	m, err := Solve(context.Background(), links, 2, 10_000, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < m.N; i++ {
		if !m.Active[i][i] || m.DelayUS[i][i] != 0 {
			t.Fatalf("diagonal %d: expected active with zero delay", i)
		}
	}
}
