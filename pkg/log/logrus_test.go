package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestSimpleFormatter(t *testing.T) {
	f := &SimpleFormatter{TimestampFormat: "15:04:05"}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 4, 6, 17, 30, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "watchdog expired",
		Data:    logrus.Fields{"side": "vehicle", "count": 3},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	want := "17:30:00 [WAR] watchdog expired count=3 side=vehicle\n"
	if string(out) != want {
		t.Errorf("Expected %q, got %q", want, string(out))
	}
}

func TestNewLogrusLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogrusLogger("debug", dir, "vehicle", "")
	if err != nil {
		t.Fatalf("NewLogrusLogger failed: %v", err)
	}
	logger.WithField("state", "forward").Infof("hello %d", 42)

	data, err := os.ReadFile(filepath.Join(dir, "vehicle.log"))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "[INF] hello 42 state=forward") {
		t.Errorf("Unexpected log content: %s", string(data))
	}
}
