package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	appctx "backoffice/internal/core/context"
	"backoffice/internal/core/id"
)

func TestFromContext_AddsRequestAndUserFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := &Logger{zap.New(core).Sugar()}

	branch := id.New()
	ctx := appctx.WithTrace(context.Background(), &appctx.TraceContext{TraceID: "t-1", RequestID: "r-1"})
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: "u-1", BranchID: branch})
	ctx = WithLogger(ctx, base)

	Info(ctx, "session approved", "code", "SO-2026-00001")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "t-1", fields["trace_id"])
	assert.Equal(t, "r-1", fields["request_id"])
	assert.Equal(t, "u-1", fields["user_id"])
	assert.Equal(t, branch.String(), fields["branch_id"])
	assert.Equal(t, "SO-2026-00001", fields["code"])
}

func TestFromContext_NoBranchForHeadOffice(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := WithLogger(context.Background(), &Logger{zap.New(core).Sugar()})
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: "admin"})

	Warn(ctx, "audit failed")

	require.Equal(t, 1, logs.Len())
	assert.NotContains(t, logs.All()[0].ContextMap(), "branch_id")
}

func TestSetDefault(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prev := Default()
	SetDefault(&Logger{zap.New(core).Sugar()})
	t.Cleanup(func() { SetDefault(prev) })

	Info(context.Background(), "hello")

	assert.Equal(t, 1, logs.Len())
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	l, err := New(Config{Level: "verbose", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.False(t, l.Desugar().Core().Enabled(zap.DebugLevel))
	assert.True(t, l.Desugar().Core().Enabled(zap.InfoLevel))
}

func TestWithComponent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := (&Logger{zap.New(core).Sugar()}).WithComponent("http")

	l.Infow("http request", "status", 200)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "http", logs.All()[0].ContextMap()["component"])
}
