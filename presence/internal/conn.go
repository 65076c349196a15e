package internal

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Conn wraps a presence websocket with per-operation timeouts.
type Conn struct {
	ws           *websocket.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewConn(ws *websocket.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{ws: ws, readTimeout: readTimeout, writeTimeout: writeTimeout}
}

// Announce sends the first frame of a presence session. On failure the socket
// is torn down; a connection that cannot announce itself is useless.
func (c *Conn) Announce(ctx context.Context, v any) error {
	if err := c.Write(ctx, v); err != nil {
		_ = c.ws.Close(websocket.StatusInternalError, "announce failed")
		return err
	}
	return nil
}

func (c *Conn) Read(ctx context.Context, v any) error {
	if c.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.readTimeout)
		defer cancel()
	}
	return wsjson.Read(ctx, c.ws, v)
}

func (c *Conn) Write(ctx context.Context, v any) error {
	if c.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}
	return wsjson.Write(ctx, c.ws, v)
}

// CloseNormal performs the deliberate client-side goodbye.
func (c *Conn) CloseNormal(reason string) error {
	return c.ws.Close(websocket.StatusNormalClosure, reason)
}
