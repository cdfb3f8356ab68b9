package driver

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/OpenFogStack/celestial/internal/differ"
	"github.com/OpenFogStack/celestial/internal/errs"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// WebSocketClient drives one emulation host over a long-lived WebSocket
// connection, keeping it alive with periodic pings the way the teacher's
// realtime handler did from the server side.
type WebSocketClient struct {
	conn    *websocket.Conn
	hostURL string
}

// DialWebSocketClient dials hostURL (a ws:// or wss:// endpoint). insecure
// skips TLS certificate verification for local/test hosts only; production
// dials must leave it false.
func DialWebSocketClient(ctx context.Context, hostURL string, insecure bool) (*WebSocketClient, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if insecure {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	conn, _, err := dialer.DialContext(ctx, hostURL, http.Header{})
	if err != nil {
		return nil, errs.WrapDriverError("dial emulation host", err)
	}

	c := &WebSocketClient{conn: conn, hostURL: hostURL}
	go c.keepalive()
	return c, nil
}

func (c *WebSocketClient) keepalive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			return
		}
	}
}

type frame struct {
	Type     string               `json:"type"`
	Tick     int                  `json:"tick,omitempty"`
	Machines []Machine            `json:"machines,omitempty"`
	MachineD []differ.MachineDiff `json:"machine_diffs,omitempty"`
	LinkD    []differ.LinkDiff    `json:"link_diffs,omitempty"`
}

func (c *WebSocketClient) writeJSON(v any) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(v); err != nil {
		return errs.WrapDriverError("write frame to emulation host", err)
	}
	return nil
}

// RegisterHost satisfies HostClient.
func (c *WebSocketClient) RegisterHost(ctx context.Context) error {
	return c.writeJSON(frame{Type: "register"})
}

// Init satisfies HostClient.
func (c *WebSocketClient) Init(ctx context.Context, machines []Machine) error {
	return c.writeJSON(frame{Type: "init", Machines: machines})
}

// MaxDiffUpdateSize caps the number of diff records per update frame,
// spec.md §6's MAX_DIFF_UPDATE_SIZE.
const MaxDiffUpdateSize = 2048

// Update satisfies HostClient, splitting machines and links across
// multiple frames of at most MaxDiffUpdateSize records each.
func (c *WebSocketClient) Update(ctx context.Context, tick int, machines []differ.MachineDiff, links []differ.LinkDiff) error {
	for len(machines) > 0 || len(links) > 0 {
		mChunk, mRest := chunkMachines(machines, MaxDiffUpdateSize)
		budget := MaxDiffUpdateSize - len(mChunk)
		lChunk, lRest := chunkLinks(links, budget)

		if err := c.writeJSON(frame{Type: "update", Tick: tick, MachineD: mChunk, LinkD: lChunk}); err != nil {
			return err
		}
		machines, links = mRest, lRest
	}
	return nil
}

func chunkMachines(in []differ.MachineDiff, n int) (head, rest []differ.MachineDiff) {
	if len(in) <= n {
		return in, nil
	}
	return in[:n], in[n:]
}

func chunkLinks(in []differ.LinkDiff, n int) (head, rest []differ.LinkDiff) {
	if n <= 0 || len(in) == 0 {
		return nil, in
	}
	if len(in) <= n {
		return in, nil
	}
	return in[:n], in[n:]
}

// Stop satisfies HostClient.
func (c *WebSocketClient) Stop(ctx context.Context) error {
	if err := c.writeJSON(frame{Type: "stop"}); err != nil {
		return err
	}
	return c.conn.Close()
}
