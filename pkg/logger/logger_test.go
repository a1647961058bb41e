package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestWithContextAddsRunFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil) })

	ctx := context.WithValue(context.Background(), RunIDKey, "run-1")
	ctx = context.WithValue(ctx, InputKey, "data.xlsx")

	WithContext(ctx, nil).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "run-1", fields["run_id"])
	assert.Equal(t, "data.xlsx", fields["input"])
}

func TestWithContextUsesBaseLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core).With(zap.String("component", "converter"))

	ctx := context.WithValue(context.Background(), RunIDKey, "run-2")
	WithContext(ctx, base).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "run-2", fields["run_id"])
	assert.Equal(t, "converter", fields["component"])
	assert.NotContains(t, fields, "input")
}

func TestGetFallsBackToDefault(t *testing.T) {
	Set(nil)
	l := Get()
	assert.NotNil(t, l)
}
