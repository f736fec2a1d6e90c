package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "subpipe.log")

	fl, err := NewFileLogger(path, LevelWarn)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer fl.Close()

	fl.Info("below threshold %d", 1)
	fl.Warn("written %d", 2)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "below threshold") {
		t.Fatalf("info entry leaked past warn level: %q", out)
	}
	if !strings.Contains(out, "written 2") {
		t.Fatalf("warn entry missing: %q", out)
	}
}

func TestUseLogger(t *testing.T) {
	orig := GetLogger()
	defer UseLogger(orig)

	path := filepath.Join(t.TempDir(), "subpipe.log")
	fl, err := NewFileLogger(path, LevelInfo)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer fl.Close()

	UseLogger(fl.Logger)
	Info("routed %s", "to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "routed to file") {
		t.Fatalf("package-level call did not reach the file: %q", string(data))
	}
}
