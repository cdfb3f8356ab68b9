package differ

import (
	"context"
	"testing"

	"github.com/OpenFogStack/celestial/internal/pathsolver"
	"github.com/OpenFogStack/celestial/internal/topology"
	"github.com/OpenFogStack/celestial/internal/types"
)

func idx(n int) NodeIndex {
	ids := make([]types.MachineID, n)
	for i := range ids {
		ids[i] = types.MachineID{Group: 1, ID: uint16(i)}
	}
	return NodeIndex{IDs: ids}
}

func TestMachineDiffsOnlyFlips(t *testing.T) {
	ni := idx(3)
	prev := []types.VMState{types.StateActive, types.StateStopped, types.StateActive}
	cur := []types.VMState{types.StateActive, types.StateActive, types.StateStopped}

	diffs := MachineDiffs(ni, prev, cur)
	if len(diffs) != 2 {
		t.Fatalf("expected 2 diffs, got %d", len(diffs))
	}
	if diffs[0].ID.ID != 1 || diffs[0].State != types.StateActive {
		t.Fatalf("unexpected first diff: %+v", diffs[0])
	}
	if diffs[1].ID.ID != 2 || diffs[1].State != types.StateStopped {
		t.Fatalf("unexpected second diff: %+v", diffs[1])
	}
}

func TestMachineDiffsEmptyWhenNoChange(t *testing.T) {
	ni := idx(2)
	state := []types.VMState{types.StateActive, types.StateActive}
	diffs := MachineDiffs(ni, state, state)
	if len(diffs) != 0 {
		t.Fatalf("expected no diffs, got %d", len(diffs))
	}
}

func buildMatrix(t *testing.T, distM float64) *pathsolver.Matrix {
	t.Helper()
	links := []topology.Link{{NodeA: 0, NodeB: 1, Active: true, DistanceM: distM}}
	m, err := pathsolver.Solve(context.Background(), links, 2, 10_000, nil, false)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	return m
}

func TestLinkDiffsFirstTickAlwaysEmits(t *testing.T) {
	ni := idx(2)
	cur := buildMatrix(t, 1000)
	diffs := LinkDiffs(ni, nil, cur, 500)
	if len(diffs) != 1 {
		t.Fatalf("expected 1 diff on first tick, got %d", len(diffs))
	}
}

func TestLinkDiffsSuppressedBelowThreshold(t *testing.T) {
	ni := idx(2)
	prev := buildMatrix(t, 1000)
	cur := buildMatrix(t, 1000.01) // sub-micrometre change, no meaningful delay delta
	diffs := LinkDiffs(ni, prev, cur, 500)
	if len(diffs) != 0 {
		t.Fatalf("expected no diffs below threshold, got %d", len(diffs))
	}
}

func TestLinkDiffsEmittedAboveThreshold(t *testing.T) {
	ni := idx(2)
	prev := buildMatrix(t, 1000)
	cur := buildMatrix(t, 1_000_000)
	diffs := LinkDiffs(ni, prev, cur, 500)
	if len(diffs) != 1 {
		t.Fatalf("expected 1 diff, got %d", len(diffs))
	}
}

func TestLinkDiffsEmittedOnActiveFlip(t *testing.T) {
	ni := idx(3)
	linksPrev := []topology.Link{{NodeA: 0, NodeB: 1, Active: true, DistanceM: 100}}
	prev, err := pathsolver.Solve(context.Background(), linksPrev, 3, 10_000, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	linksCur := []topology.Link{{NodeA: 0, NodeB: 1, Active: false, DistanceM: 100}}
	cur, err := pathsolver.Solve(context.Background(), linksCur, 3, 10_000, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	diffs := LinkDiffs(ni, prev, cur, 500)
	if len(diffs) != 1 || diffs[0].Active {
		t.Fatalf("expected exactly one diff reporting inactive, got %+v", diffs)
	}
}

func TestLinkDiffsOrderingIsLexicographic(t *testing.T) {
	ni := idx(4)
	links := []topology.Link{
		{NodeA: 0, NodeB: 1, Active: true, DistanceM: 100},
		{NodeA: 2, NodeB: 3, Active: true, DistanceM: 100},
	}
	cur, err := pathsolver.Solve(context.Background(), links, 4, 10_000, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	diffs := LinkDiffs(ni, nil, cur, 500)
	for i := 1; i < len(diffs); i++ {
		if less(diffs[i].Src, diffs[i-1].Src) {
			t.Fatalf("diffs not in lexicographic order: %+v before %+v", diffs[i-1], diffs[i])
		}
	}
}
