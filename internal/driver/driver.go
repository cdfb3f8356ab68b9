// Package driver implements the replay-side client that applies an
// archive's per-tick diffs to a remote emulation host, spec.md §6: the
// gRPC/host-management driver is deliberately out of scope for the core
// engine, but §6 still names it as an external interface the core must
// produce wire-compatible data for, so this module is the collaborator
// that consumes archive.Reader's output and forwards it.
//
// Grounded on the now-deleted internal/platform/realtime/websocket.go's
// gorilla/websocket dial/ping/write-deadline idiom (that file served the
// inverse direction — an HTTP-upgrade server handler — but the
// connection-keepalive and JSON-frame-write pattern is reused directly for
// a client dialing out to hosts).
package driver

import (
	"context"

	"github.com/OpenFogStack/celestial/internal/differ"
	"github.com/OpenFogStack/celestial/internal/types"
)

// HostClient is the contract every transport (WebSocket, or a future
// gRPC client) implements to drive one emulation host, spec.md §6.
type HostClient interface {
	// RegisterHost announces this driver to the host before any tick is
	// applied.
	RegisterHost(ctx context.Context) error

	// Init sends the full machine roster once, before tick 0.
	Init(ctx context.Context, machines []Machine) error

	// Update applies one tick's machine and link diffs.
	Update(ctx context.Context, tick int, machines []differ.MachineDiff, links []differ.LinkDiff) error

	// Stop tells the host the run has ended (clean end-of-duration or a
	// cancelled run), spec.md §6's replay exit-code contract.
	Stop(ctx context.Context) error
}

// Machine is the minimal per-machine identity the host needs at Init,
// independent of archive.InitRecord so this package does not need to
// import internal/archive merely for a struct shape.
type Machine struct {
	ID   types.MachineID
	Name string
}
