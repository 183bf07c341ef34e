package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in   string
		want Level
	}{
		{"trace", LevelTrace},
		{"DEBUG", LevelDebug},
		{"", LevelInfo},
		{"info", LevelInfo},
		{"warning", LevelWarning},
		{"WARN", LevelWarning},
		{"error", LevelError},
		{"fatal", LevelFatal},
	}
	for _, tc := range testCases {
		got, err := ParseLevel(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	got, err := ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, LevelInfo, got)
}

func TestJSONOutputRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	prev := GetLevel()
	defer SetLevel(prev)

	SetLevel(LevelWarning)
	Info("hidden")
	assert.Zero(t, buf.Len())

	Warn("shown", "rule", "101")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "101", line["rule"])
}

func TestCountersIgnoreSampling(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	SetSampleRate(1 << 30)
	defer SetSampleRate(1)

	before := TotalErrors.Load()
	for i := 0; i < 10; i++ {
		Error("sampled")
	}
	assert.Equal(t, before+10, TotalErrors.Load())
}

func TestCountRun(t *testing.T) {
	failures := RuleFailures.Load()
	cancelled := RunsCancelled.Load()

	CountRun(3, false)
	CountRun(0, true)

	snap := Snapshot()
	assert.Equal(t, failures+3, snap["rule_failures"])
	assert.Equal(t, cancelled+1, snap["runs_cancelled"])
}

func TestHTTPCounters(t *testing.T) {
	s4, s5 := Total4xxErrors.Load(), Total5xxErrors.Load()

	WarnHttp4xx()
	ErrorHttp5xx()

	assert.Equal(t, s4+1, Total4xxErrors.Load())
	assert.Equal(t, s5+1, Total5xxErrors.Load())
}
