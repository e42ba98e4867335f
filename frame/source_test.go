package frame

import (
	"context"
	"image"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceSource_Order(t *testing.T) {
	a := image.NewRGBA(image.Rect(0, 0, 1, 1))
	b := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src := NewSliceSource(a, b)
	ctx := context.Background()

	img, release, err := src.Next(ctx)
	require.NoError(t, err)
	release()
	assert.Same(t, a, img)

	img, release, err = src.Next(ctx)
	require.NoError(t, err)
	release()
	assert.Same(t, b, img)

	_, release, err = src.Next(ctx)
	release()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSliceSource_CloseStopsIteration(t *testing.T) {
	src := NewSliceSource(image.NewGray(image.Rect(0, 0, 1, 1)))
	require.NoError(t, src.Close())
	assert.True(t, src.Closed())

	_, _, err := src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestSliceSource_CancelledContext(t *testing.T) {
	src := NewSliceSource(image.NewGray(image.Rect(0, 0, 1, 1)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmpty(t *testing.T) {
	_, _, err := Empty().Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}
