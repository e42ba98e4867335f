package stream

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client is one streaming HTTP response. Headers are committed on the first
// write; later header changes are ignored.
type Client struct {
	ID          string
	Request     *http.Request
	StartedAt   time.Time
	HeadersSent bool
	writer      http.ResponseWriter
	flusher     http.Flusher
	written     int64
}

func NewClient(w http.ResponseWriter, r *http.Request) *Client {
	var flusher http.Flusher
	if f, ok := w.(http.Flusher); ok {
		flusher = f
	}

	return &Client{
		ID:        uuid.New().String(),
		Request:   r,
		StartedAt: time.Now(),
		writer:    w,
		flusher:   flusher,
	}
}

func (c *Client) Header() http.Header {
	return c.writer.Header()
}

func (c *Client) WriteHeader(statusCode int) {
	if c.HeadersSent {
		return
	}
	c.writer.WriteHeader(statusCode)
	c.HeadersSent = true
}

// Start commits the response with the given content type and pushes the
// headers to the client so it can begin rendering before the first frame.
func (c *Client) Start(contentType string) {
	h := c.writer.Header()
	h.Set("Content-Type", contentType)
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Pragma", "no-cache")
	c.WriteHeader(http.StatusOK)
	c.Flush()
}

func (c *Client) Write(data []byte) (int, error) {
	if !c.HeadersSent {
		c.WriteHeader(http.StatusOK)
	}
	n, err := c.writer.Write(data)
	c.written += int64(n)
	return n, err
}

func (c *Client) Flush() {
	if c.flusher != nil {
		c.flusher.Flush()
	}
}

// BytesWritten is the number of body bytes sent so far.
func (c *Client) BytesWritten() int64 {
	return c.written
}
