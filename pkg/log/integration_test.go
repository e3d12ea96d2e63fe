package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/censreg/pkg/errors"
)

func TestTestLoggerLevelsAndFields(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationFit)
	testLogger.Warn("warning message", ErrorCodeKey, ErrorConvergence)
	testLogger.Error("error message", fmt.Errorf("boom"), SolverKey, "adam")

	require.NotEmpty(t, buffer.String())
	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		assert.True(t, testLogger.ContainsMessage(msg), msg)
	}
	assert.True(t, testLogger.ContainsField("key1", "value1"))
	assert.True(t, testLogger.ContainsField("number", 42.0))
	assert.True(t, testLogger.ContainsField(ErrAttrKey, "boom"))
	assert.Equal(t, 1, testLogger.CountLevel(LevelError))
}

func TestTestLoggerWith(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)

	child := testLogger.With(ModelNameKey, "CensoredRegression", ComponentKey, "linear")
	child.Info("fit started", BatchSizeKey, 8)

	assert.True(t, testLogger.ContainsField(ModelNameKey, "CensoredRegression"))
	assert.True(t, testLogger.ContainsField(ComponentKey, "linear"))
	assert.True(t, testLogger.ContainsField(BatchSizeKey, 8.0))
}

func TestTestLoggerEnabled(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)
	ctx := context.Background()

	assert.True(t, testLogger.Enabled(ctx, LevelInfo))
	assert.True(t, testLogger.Enabled(ctx, LevelError))
	assert.False(t, testLogger.Enabled(ctx, LevelDebug))

	testLogger.Debug("this should not appear")
	testLogger.Info("this should appear")
	assert.False(t, testLogger.ContainsMessage("this should not appear"))
	assert.True(t, testLogger.ContainsMessage("this should appear"))
}

func TestTestLoggerConcurrent(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)

	const goroutines, perGoroutine = 8, 25
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				testLogger.Info("element fitted", "element", id, IterationKey, j)
			}
		}(g)
	}
	wg.Wait()

	entries, err := testLogger.GetLogEntries()
	require.NoError(t, err)
	assert.Len(t, entries, goroutines*perGoroutine)
}

func TestZerologLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo)

	logger.Debug("hidden")
	logger.With(ModelNameKey, "CensoredRegression").Info("fit completed", LossKey, 1.25, IterationKey, 10)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "fit completed", entry["message"])
	assert.Equal(t, "CensoredRegression", entry[ModelNameKey])
	assert.Equal(t, 1.25, entry[LossKey])
	assert.Equal(t, 10.0, entry[IterationKey])
}

func TestZerologLoggerErrorStacktrace(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelDebug)

	logger.Error("fit failed", errors.NewValueError("Fit", "bad input"), OperationKey, OperationFit)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Contains(t, entry[ErrAttrKey], "bad input")
	assert.Equal(t, OperationFit, entry[OperationKey])
	assert.NotEmpty(t, entry[StacktraceAttrKey])
}

func TestZerologLoggerEnabled(t *testing.T) {
	logger := NewZerologLogger(&bytes.Buffer{}, LevelWarn)
	ctx := context.Background()
	assert.False(t, logger.Enabled(ctx, LevelInfo))
	assert.True(t, logger.Enabled(ctx, LevelWarn))
	assert.True(t, logger.Enabled(ctx, LevelError))
}

func TestZerologProviderBridgesWarnings(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(NewZerologLogger(&buf, LevelDebug))
	p.BridgeWarnings()
	defer errors.SetZerologWarnFunc(nil)

	errors.Warn(errors.NewConvergenceWarning("Adam", 1000, ""))

	out := buf.String()
	assert.Contains(t, out, `"type":"ConvergenceWarning"`)
	assert.Contains(t, out, `"level":"warn"`)

	p.GetLoggerWithName("linear").Info("named")
	assert.Contains(t, buf.String(), `"`+ComponentKey+`":"linear"`)
}

func TestSlogProvider(t *testing.T) {
	var buf bytes.Buffer
	p := NewSlogProvider(&buf, LevelInfo)

	logger := p.GetLoggerWithName("linear")
	logger.Debug("hidden")
	logger.Error("fit failed", errors.NewModelError("Fit", "empty data", errors.ErrEmptyData))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "ERROR", entry["severity"])
	assert.Equal(t, "fit failed", entry["message"])
	assert.Equal(t, "linear", entry[ComponentKey])
	assert.NotEmpty(t, entry[StacktraceAttrKey])

	p.SetLevel(LevelDebug)
	assert.True(t, logger.Enabled(context.Background(), LevelDebug))
}

func TestSlogProviderBridgesWarnings(t *testing.T) {
	var buf bytes.Buffer
	p := NewSlogProvider(&buf, LevelInfo)
	p.BridgeWarnings()
	defer errors.SetWarningHandler(func(error) {})

	errors.Warn(errors.NewConvergenceWarning("Adam", 1000, ""))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "WARN", entry["severity"])
	assert.Contains(t, entry["message"], "Adam")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestGlobalProvider(t *testing.T) {
	prev := GetProvider()
	defer SetProvider(prev)

	p, logger := NewTestLoggerProvider(LevelInfo)
	SetProvider(p)

	GetLoggerWithName("datasets").Info("loaded")
	assert.True(t, logger.ContainsField(ComponentKey, "datasets"))
}

func BenchmarkZerologLogger(b *testing.B) {
	logger := NewZerologLogger(&bytes.Buffer{}, LevelInfo)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("iteration", IterationKey, i, LossKey, 0.5)
	}
}
