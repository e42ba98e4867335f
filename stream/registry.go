// Package stream tracks the long-lived MJPEG responses currently being served.
package stream

import (
	"context"

	"detection-stream/logger"

	"github.com/puzpuzpuz/xsync/v3"
)

type entry struct {
	client *Client
	cancel context.CancelFunc
}

// Registry holds every live stream so they can be cancelled together on
// shutdown; http.Server.Shutdown does not interrupt in-flight responses.
type Registry struct {
	streams *xsync.MapOf[string, entry]
	logger  logger.Logger
}

func NewRegistry(log logger.Logger) *Registry {
	if log == nil {
		log = logger.Default
	}
	return &Registry{
		streams: xsync.NewMapOf[string, entry](),
		logger:  log,
	}
}

// Register derives a cancellable context for the client's stream. The
// returned func must be called when the stream ends.
func (r *Registry) Register(ctx context.Context, c *Client) (context.Context, func()) {
	streamCtx, cancel := context.WithCancel(ctx)
	r.streams.Store(c.ID, entry{client: c, cancel: cancel})
	r.logger.Debugf("Stream %s registered. Active streams: %d", c.ID, r.streams.Size())

	return streamCtx, func() {
		cancel()
		if _, ok := r.streams.LoadAndDelete(c.ID); ok {
			r.logger.Debugf("Stream %s finished. Active streams: %d", c.ID, r.streams.Size())
		}
	}
}

func (r *Registry) Len() int {
	return r.streams.Size()
}

// Clients returns a snapshot of the live stream clients.
func (r *Registry) Clients() []*Client {
	clients := make([]*Client, 0, r.streams.Size())
	r.streams.Range(func(_ string, e entry) bool {
		clients = append(clients, e.client)
		return true
	})
	return clients
}

// CancelAll cancels every live stream. Entries are removed by their own
// done funcs as the handlers return.
func (r *Registry) CancelAll() {
	n := 0
	r.streams.Range(func(_ string, e entry) bool {
		e.cancel()
		n++
		return true
	})
	if n > 0 {
		r.logger.Logf("Cancelled %d active stream(s)", n)
	}
}
