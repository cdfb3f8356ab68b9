// Package eventbus publishes tick-completion notifications over NATS for
// an optional external animation sink or monitoring consumer, spec.md §2's
// "single-producer pipeline" augmented with a side-channel notification.
//
// Grounded on the teacher's NATSURI() config accessor
// (internal/platform/db/config.go, deleted) and the publish/subscribe shape
// implied by its indirect nats-io/nkeys and nats-io/nuid dependencies; the
// teacher's own call sites lived in the deleted
// internal/controlplane/events.go.
package eventbus

import (
	"context"
	"encoding/json"
	"os"

	"github.com/nats-io/nats.go"

	"github.com/OpenFogStack/celestial/internal/errs"
)

const tickCompleteSubject = "celestial.tick.complete"

// Publisher publishes tick-completion events to NATS. It implements
// simulator.Notifier.
type Publisher struct {
	nc *nats.Conn
}

// NATSURI reads the NATS connection URI, matching the teacher's
// environment-variable-driven config accessor pattern.
func NATSURI() string {
	if v := os.Getenv("CELESTIAL_NATS_URI"); v != "" {
		return v
	}
	return nats.DefaultURL
}

// Connect dials the NATS server at uri.
func Connect(uri string) (*Publisher, error) {
	nc, err := nats.Connect(uri)
	if err != nil {
		return nil, errs.Wrap(errs.Driver, "connect to nats", err)
	}
	return &Publisher{nc: nc}, nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.nc.Drain()
}

// tickCompleteEvent is the wire payload published per tick.
type tickCompleteEvent struct {
	Tick int `json:"tick"`
}

// PublishTickComplete satisfies simulator.Notifier.
func (p *Publisher) PublishTickComplete(ctx context.Context, tick int) error {
	payload, err := json.Marshal(tickCompleteEvent{Tick: tick})
	if err != nil {
		return errs.Wrap(errs.Driver, "marshal tick completion event", err)
	}
	if err := p.nc.Publish(tickCompleteSubject, payload); err != nil {
		return errs.Wrap(errs.Driver, "publish tick completion event", err)
	}
	return nil
}
