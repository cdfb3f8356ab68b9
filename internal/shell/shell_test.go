package shell

import (
	"context"
	"testing"

	"github.com/OpenFogStack/celestial/internal/config"
	"github.com/OpenFogStack/celestial/internal/types"
)

func testCfg() config.Shell {
	return config.Shell{
		Planes:            1,
		Sats:              2,
		AltitudeKM:        550,
		InclinationDeg:    53,
		ArcOfAscendingDeg: 0,
		Eccentricity:      0,
		ISLBandwidthKbits: 10_000,
	}
}

func wholeEarth() types.BoundingBox {
	return types.BoundingBox{Lat1: -90, Lon1: -180, Lat2: 90, Lon2: 180}
}

func TestStepProducesOneStatePerSatellite(t *testing.T) {
	sh := New(1, testCfg(), wholeEarth(), nil, false)
	res, err := sh.Step(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.States) != sh.TotalSats() {
		t.Fatalf("expected %d states, got %d", sh.TotalSats(), len(res.States))
	}
	for _, st := range res.States {
		if st != types.StateActive {
			t.Fatalf("expected whole-earth bbox to keep every satellite ACTIVE, got %v", st)
		}
	}
}

func TestStepSingleRingISLIsActive(t *testing.T) {
	sh := New(1, testCfg(), wholeEarth(), nil, false)
	res, err := sh.Step(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Matrix.Active[0][1] {
		t.Fatal("expected the two-satellite ring to have an active ISL")
	}
	if res.Matrix.DelayUS[0][1] != res.Matrix.DelayUS[1][0] {
		t.Fatal("expected symmetric delay between the pair")
	}
}

func TestStepWithGroundStation(t *testing.T) {
	gs := []config.GroundStation{
		{Name: "berlin", LatDeg: 52.5, LonDeg: 13.4, MinElevationDeg: 10, UplinkBandwidth: 5000, ConnectionType: types.ConnectionAll},
	}
	sh := New(1, testCfg(), wholeEarth(), gs, false)
	res, err := sh.Step(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Matrix.N != sh.TotalSats()+1 {
		t.Fatalf("expected matrix to include the ground station node, N=%d", res.Matrix.N)
	}
}

func TestStepIsDeterministicAcrossCalls(t *testing.T) {
	sh1 := New(1, testCfg(), wholeEarth(), nil, false)
	sh2 := New(1, testCfg(), wholeEarth(), nil, false)
	r1, err := sh1.Step(context.Background(), 120)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := sh2.Step(context.Background(), 120)
	if err != nil {
		t.Fatal(err)
	}
	for i := range r1.Positions {
		if r1.Positions[i] != r2.Positions[i] {
			t.Fatalf("expected deterministic positions at index %d", i)
		}
	}
}
