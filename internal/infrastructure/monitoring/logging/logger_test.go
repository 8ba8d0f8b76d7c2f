package logging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func newTestLogger(t *testing.T) (Logger, *zaptest.Buffer) {
	t.Helper()
	buf := &zaptest.Buffer{}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), buf, zapcore.DebugLevel)
	return &zapLogger{z: zap.New(core)}, buf
}

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		l, err := NewLogger(LogConfig{Level: "debug", Format: format, OutputPaths: []string{"stdout"}})
		require.NoError(t, err, format)
		assert.NotNil(t, l)
	}
}

func TestNewLogger_BadOutputPath(t *testing.T) {
	_, err := NewLogger(LogConfig{OutputPaths: []string{"/nonexistent-dir/for/sure/log.txt"}})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestZapLogger_LevelsAndFields(t *testing.T) {
	l, buf := newTestLogger(t)

	l.Debug("tick", Float64("progress", 12.5))
	l.Info("submitted", String(FieldTaskID, "t1"), Strings("kinds", []string{"toxicity"}))
	l.Warn("slow gateway", Duration("elapsed", 2*time.Second))
	l.Error("failed", Err(errors.New("boom")), Int("attempt", 1), Int64("n", 2), Bool("ok", false))

	out := buf.String()
	assert.Contains(t, out, `"level":"debug"`)
	assert.Contains(t, out, `"progress":12.5`)
	assert.Contains(t, out, `"task_id":"t1"`)
	assert.Contains(t, out, `"kinds":["toxicity"]`)
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"error":"boom"`)
}

func TestZapLogger_WithAndNamed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewLoggerFromCore(core).Named("queue").With(String(FieldComponent, "scheduler"))

	l.Info("pass started")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "queue", entry.LoggerName)
	assert.Equal(t, "scheduler", entry.ContextMap()[FieldComponent])
}

func TestErr_Nil(t *testing.T) {
	assert.Equal(t, "<nil>", Err(nil).Value)
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	assert.Equal(t, l, l.With(String("k", "v")))
	assert.Equal(t, l, l.Named("n"))
	assert.NoError(t, l.Sync())
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")
	assert.Equal(t, "req-42", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))

	core, logs := observer.New(zapcore.InfoLevel)
	FromContext(ctx, NewLoggerFromCore(core)).Info("handled")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-42", logs.All()[0].ContextMap()[FieldRequestID])
}

func TestSetDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	l, _ := newTestLogger(t)
	SetDefault(l)
	assert.Equal(t, l, Default())

	SetDefault(nil)
	assert.Equal(t, l, Default())
}

func TestSetLevel(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: "info", Format: "json", OutputPaths: []string{"stdout"}})
	require.NoError(t, err)
	child := l.Named("queue")

	require.True(t, SetLevel(l, "error"))
	zl := child.(*zapLogger)
	assert.False(t, zl.z.Core().Enabled(zapcore.WarnLevel))
	assert.True(t, zl.z.Core().Enabled(zapcore.ErrorLevel))

	assert.False(t, SetLevel(NewNopLogger(), "debug"))
	fixed, _ := newTestLogger(t)
	assert.False(t, SetLevel(fixed, "debug"))
}
