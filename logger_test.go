package orm

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel(" WARN "))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("nonsense"))
	assert.Equal(t, "ERROR", LogLevelError.String())
}

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := WrapZapLogger(zap.New(core))

	logger.With(String("table", "cart")).Info("converted", Int64("order_id", 7))
	logger.SetLevel(LogLevelWarn)
	logger.Info("dropped")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "converted", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "cart", fields["table"])
	assert.Equal(t, int64(7), fields["order_id"])
}

func TestLogErrorWithContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := WrapZapLogger(zap.New(core))

	err := WrapErrorWithQuery(ErrConflict, "EXEC", "user", `INSERT INTO "user"`)
	LogErrorWithContext(logger, err, String("extra", "x"))
	LogErrorWithContext(logger, nil)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "EXEC", fields["operation"])
	assert.Equal(t, "user", fields["table"])
	assert.Equal(t, "x", fields["extra"])
	assert.True(t, strings.Contains(entries[0].Message, "table=user"))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg, "test")
	require.NoError(t, err)

	m.Observe("SELECT", time.Millisecond, nil)
	m.Observe("EXEC", time.Millisecond, errors.New("boom"))
	m.Observe("EXEC", time.Millisecond, nil)

	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("EXEC")))

	_, err = NewMetrics(reg, "test")
	assert.Error(t, err)

	var disabled *Metrics
	assert.NotPanics(t, func() { disabled.Observe("SELECT", time.Second, nil) })
}
