package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Levels(t *testing.T) {
	logger, err := New(Config{Level: "warn", Encoding: "console"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger, err = New(Config{})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Config{Level: "info", Encoding: "xml"})
	assert.Error(t, err)
}

func TestWithJob(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	WithJob(zap.New(core), "job-1", "invoices").Info("started")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "job-1", fields["job_id"])
	assert.Equal(t, "invoices", fields["table"])
}

func TestInitAndGet(t *testing.T) {
	require.NoError(t, Init(Config{Level: "error"}))
	assert.False(t, Get().Core().Enabled(zapcore.WarnLevel))

	require.Error(t, Init(Config{Level: "nope"}))
	assert.False(t, Get().Core().Enabled(zapcore.WarnLevel), "failed Init keeps the previous logger")
}
