package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"detection-stream/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_StartCommitsHeadersOnce(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/video", nil)
	c := NewClient(rec, req)

	c.Start("multipart/x-mixed-replace; boundary=frame")
	c.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "multipart/x-mixed-replace; boundary=frame", rec.Header().Get("Content-Type"))
	assert.True(t, rec.Flushed)
	assert.NotEmpty(t, c.ID)
	assert.Same(t, req, c.Request)
	assert.False(t, c.StartedAt.IsZero())
}

func TestClient_WriteImpliesOK(t *testing.T) {
	rec := httptest.NewRecorder()
	c := NewClient(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	n, err := c.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, int64(3), c.BytesWritten())
	assert.True(t, c.HeadersSent)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegistry_RegisterAndDone(t *testing.T) {
	r := NewRegistry(logger.New(&discard{}))
	c := NewClient(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	ctx, done := r.Register(context.Background(), c)
	assert.Equal(t, 1, r.Len())
	assert.Len(t, r.Clients(), 1)
	assert.NoError(t, ctx.Err())

	done()
	assert.Equal(t, 0, r.Len())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	// done is safe to call twice
	done()
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_CancelAll(t *testing.T) {
	r := NewRegistry(logger.New(&discard{}))
	var ctxs []context.Context
	var dones []func()
	for i := 0; i < 3; i++ {
		c := NewClient(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		ctx, done := r.Register(context.Background(), c)
		ctxs = append(ctxs, ctx)
		dones = append(dones, done)
	}

	r.CancelAll()
	for _, ctx := range ctxs {
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	}
	assert.Equal(t, 3, r.Len(), "entries are removed by their done funcs")

	for _, done := range dones {
		done()
	}
	assert.Equal(t, 0, r.Len())
}

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }
