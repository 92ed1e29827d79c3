package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LogLevelWarn, &buf)

	logger.Info("should be filtered")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should be filtered") {
		t.Errorf("Info message logged at warn level: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("Warn message missing: %s", out)
	}
}

func TestLoggerContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LogLevelInfo, &buf).
		WithComponent("runner").
		WithRun("20250314_092653")

	logger.Info("Accepted scenario", "id", 1)

	out := buf.String()
	if !strings.Contains(out, "component=runner") {
		t.Errorf("Component attribute missing: %s", out)
	}
	if !strings.Contains(out, "run=20250314_092653") {
		t.Errorf("Run attribute missing: %s", out)
	}
}
