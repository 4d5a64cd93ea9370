package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "predict", "req-1")
	_, child := StartChildSpan(ctx, "fuse")
	child.SetAttr("padded", false)
	child.End()
	root.End()

	require.Len(t, root.Children(), 1)
	assert.Equal(t, "req-1", child.TraceID)
	v, ok := child.Attr("padded")
	assert.True(t, ok)
	assert.Equal(t, false, v)
	assert.Same(t, root, SpanFromContext(ctx))
}

func TestChildWithoutParent(t *testing.T) {
	ctx, span := StartChildSpan(context.Background(), "orphan")
	assert.Empty(t, span.TraceID)
	assert.Same(t, span, SpanFromContext(ctx))
}

func TestLogWritesEverySpan(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, root := StartSpan(context.Background(), "predict", "req-2")
	_, a := StartChildSpan(ctx, "encode")
	a.End()
	_, b := StartChildSpan(ctx, "infer")
	b.End()
	root.End()
	root.Log(logger)

	out := buf.String()
	assert.Contains(t, out, "span=predict")
	assert.Contains(t, out, "span=encode")
	assert.Contains(t, out, "span=infer")
	assert.Contains(t, out, "depth=1")
}
