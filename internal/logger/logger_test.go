package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	require.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	require.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestNewBuildsForBothEnvironments(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		log, err := New(Config{Level: "info", Environment: env, ServiceName: "upendo-test"})
		require.NoError(t, err)
		require.NotNil(t, log)
	}
}

func TestFromContextFallsBack(t *testing.T) {
	fallback := zap.NewNop()
	require.Same(t, fallback, FromContext(context.Background(), fallback))

	scoped := zap.NewExample()
	ctx := WithContext(context.Background(), scoped)
	require.Same(t, scoped, FromContext(ctx, fallback))
}
