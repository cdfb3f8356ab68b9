// Package simulator drives the whole-constellation tick loop of spec.md §2
// and §5: it owns every shell, the shared ground-station list, and the
// previous/current state needed to diff consecutive ticks, and it is the
// only caller of the archive writer.
//
// Grounded on the now-retired cmd/satnet_router/main.go's context-cancelled
// run loop (SIGINT/SIGTERM via os/signal, graceful stop between iterations)
// and celestial/shell.py's driving loop, which runs every shell once per
// tick and persists before advancing.
package simulator

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/OpenFogStack/celestial/internal/archive"
	"github.com/OpenFogStack/celestial/internal/config"
	"github.com/OpenFogStack/celestial/internal/differ"
	"github.com/OpenFogStack/celestial/internal/errs"
	"github.com/OpenFogStack/celestial/internal/pathsolver"
	"github.com/OpenFogStack/celestial/internal/shell"
	"github.com/OpenFogStack/celestial/internal/types"
)

// Observer receives per-tick telemetry. A nil Observer is valid; Simulator
// checks before calling it.
type Observer interface {
	ObserveTick(tick int, elapsed time.Duration, activeSatellites, machineDiffs, linkDiffs int)
}

// Notifier is told when a tick's diffs have been durably written. A nil
// Notifier is valid.
type Notifier interface {
	PublishTickComplete(ctx context.Context, tick int) error
}

// Simulator owns every shell and the shared ground-station list for one
// run, spec.md §3's "shells share only the bounding box and ground-station
// list (read-only)".
type Simulator struct {
	cfg            *config.Config
	shells         []*shell.Shell
	groundStations []config.GroundStation

	prevStates   [][]types.VMState
	prevMatrices []*pathsolver.Matrix
	prevGround   *GroundGroundState

	archive  *archive.Writer
	observer Observer
	notifier Notifier
	trace    TraceFunc
}

// TraceFunc opens a span covering one tick's pipeline stages and returns a
// derived context plus a function that ends the span. A nil TraceFunc (the
// default) disables tracing entirely.
type TraceFunc func(ctx context.Context, tick int) (context.Context, func())

// WithTracer attaches fn as the per-tick span hook, typically
// observability.StartTick adapted to this signature, and returns s for
// chaining onto New.
func (s *Simulator) WithTracer(fn TraceFunc) *Simulator {
	s.trace = fn
	return s
}

// New builds a Simulator for cfg. archiveWriter must already have had
// WriteConfig/WriteInit called, or the caller may do so via WritePreamble.
func New(cfg *config.Config, archiveWriter *archive.Writer, observer Observer, notifier Notifier) *Simulator {
	shells := make([]*shell.Shell, len(cfg.Shells))
	for i, sc := range cfg.Shells {
		shells[i] = shell.New(uint8(i+1), sc, cfg.BoundingBox, cfg.GroundStations, cfg.StrictUplink)
	}

	return &Simulator{
		cfg:            cfg,
		shells:         shells,
		groundStations: cfg.GroundStations,
		prevStates:     make([][]types.VMState, len(shells)),
		prevMatrices:   make([]*pathsolver.Matrix, len(shells)),
		prevGround:     NewGroundGroundState(len(cfg.GroundStations)),
		archive:        archiveWriter,
		observer:       observer,
		notifier:       notifier,
	}
}

// WritePreamble writes the archive's "c" and "i" entries, spec.md §4.6. It
// must be called once, before Run.
func (s *Simulator) WritePreamble() error {
	if err := s.archive.WriteConfig(s.cfg); err != nil {
		return err
	}

	var records []archive.InitRecord
	for i, sc := range s.shells {
		for id := 0; id < sc.TotalSats(); id++ {
			records = append(records, archive.InitRecord{
				ID:      types.MachineID{Group: uint8(i + 1), ID: uint16(id)},
				Name:    "",
				Machine: s.cfg.Shells[i].Machine,
			})
		}
	}
	for id, gs := range s.groundStations {
		records = append(records, archive.InitRecord{
			ID:      types.MachineID{Group: 0, ID: uint16(id)},
			Name:    gs.Name,
			Machine: gs.Machine,
		})
	}
	return s.archive.WriteInit(records)
}

// Run advances the simulation clock one tick at a time until the
// configured duration elapses or ctx is cancelled, spec.md §5. A
// cancellation between ticks discards only the tick in progress; every
// prior tick's diffs are already durably written.
func (s *Simulator) Run(ctx context.Context) error {
	ticks := s.cfg.Ticks()
	resolution := float64(s.cfg.ResolutionSeconds)

	for tick := 0; tick < ticks; tick++ {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		tSeconds := float64(tick) * resolution

		tickCtx := ctx
		endSpan := func() {}
		if s.trace != nil {
			tickCtx, endSpan = s.trace(ctx, tick)
		}

		results, err := s.stepShells(tickCtx, tSeconds)
		if err != nil {
			endSpan()
			if ctx.Err() != nil {
				break
			}
			return err
		}

		if ctx.Err() != nil {
			endSpan()
			break
		}

		machineDiffs, linkDiffs, activeCount := s.diffTick(results)

		if err := s.archive.WriteTick(tick, machineDiffs, linkDiffs); err != nil {
			endSpan()
			return err
		}

		s.commit(results)

		if s.observer != nil {
			s.observer.ObserveTick(tick, time.Since(start), activeCount, len(machineDiffs), len(linkDiffs))
		}
		if s.notifier != nil {
			if err := s.notifier.PublishTickComplete(ctx, tick); err != nil {
				endSpan()
				return errs.Wrap(errs.Driver, "publish tick completion", err)
			}
		}

		endSpan()
	}

	if err := s.archive.Close(); err != nil {
		return err
	}
	return nil
}

func (s *Simulator) stepShells(ctx context.Context, tSeconds float64) ([]*shell.Result, error) {
	results := make([]*shell.Result, len(s.shells))
	g, gctx := errgroup.WithContext(ctx)
	for i, sh := range s.shells {
		i, sh := i, sh
		g.Go(func() error {
			res, err := sh.Step(gctx, tSeconds)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Simulator) diffTick(results []*shell.Result) ([]differ.MachineDiff, []differ.LinkDiff, int) {
	var machineDiffs []differ.MachineDiff
	var linkDiffs []differ.LinkDiff
	activeCount := 0

	for i, sh := range s.shells {
		res := results[i]
		idx := shellNodeIndex(sh.GroupID, sh.TotalSats(), len(s.groundStations))

		var prevStates []types.VMState
		if s.prevStates[i] != nil {
			prevStates = s.prevStates[i]
		} else {
			prevStates = make([]types.VMState, len(res.States))
		}
		satIdx := differ.NodeIndex{IDs: idx.IDs[:sh.TotalSats()]}
		md := differ.MachineDiffs(satIdx, prevStates, res.States)
		machineDiffs = append(machineDiffs, md...)

		for _, st := range res.States {
			if st == types.StateActive {
				activeCount++
			}
		}

		nSat := sh.TotalSats()
		ld := differ.LinkDiffsFiltered(idx, s.prevMatrices[i], res.Matrix, s.cfg.DelayUpdateThresholdUS, func(i, j int) bool {
			return i < nSat
		})
		linkDiffs = append(linkDiffs, ld...)
	}

	if len(s.groundStations) > 1 {
		curGround := MergeGroundGround(s.shells, results, len(s.groundStations))
		linkDiffs = append(linkDiffs, GroundGroundDiffs(s.prevGround, curGround, s.cfg.DelayUpdateThresholdUS, s.groundStations)...)
		s.prevGround = curGround
	}

	sort.Slice(machineDiffs, func(a, b int) bool { return lessID(machineDiffs[a].ID, machineDiffs[b].ID) })
	sort.Slice(linkDiffs, func(a, b int) bool {
		if linkDiffs[a].Src != linkDiffs[b].Src {
			return lessID(linkDiffs[a].Src, linkDiffs[b].Src)
		}
		return lessID(linkDiffs[a].Tgt, linkDiffs[b].Tgt)
	})

	return machineDiffs, linkDiffs, activeCount
}

func (s *Simulator) commit(results []*shell.Result) {
	for i, res := range results {
		s.prevStates[i] = res.States
		s.prevMatrices[i] = res.Matrix
	}
}

func shellNodeIndex(groupID uint8, nSat, nGst int) differ.NodeIndex {
	ids := make([]types.MachineID, nSat+nGst)
	for i := 0; i < nSat; i++ {
		ids[i] = types.MachineID{Group: groupID, ID: uint16(i)}
	}
	for g := 0; g < nGst; g++ {
		ids[nSat+g] = types.MachineID{Group: 0, ID: uint16(g)}
	}
	return differ.NodeIndex{IDs: ids}
}

func lessID(a, b types.MachineID) bool {
	if a.Group != b.Group {
		return a.Group < b.Group
	}
	return a.ID < b.ID
}
