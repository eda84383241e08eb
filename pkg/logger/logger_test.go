package logger

import (
	"testing"

	"go.uber.org/zap"
)

// The package-level helpers must be usable before Init: library
// consumers and test binaries log without configuring the process
// logger first.
func TestHelpersSafeBeforeInit(t *testing.T) {
	saved := Log
	Log = nil
	t.Cleanup(func() { Log = saved })

	Info("info before init", zap.String("k", "v"))
	Error("error before init")
	Debug("debug before init")
	Warn("warn before init")
	Sync()

	if got := GetLogger(); got == nil {
		t.Fatal("GetLogger() returned nil before Init")
	}
}

func TestInitThenLog(t *testing.T) {
	saved := Log
	t.Cleanup(func() { Log = saved })

	if err := Init("debug", "json", "stdout"); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if Log == nil {
		t.Fatal("Init() did not set the process logger")
	}
	if got := GetLogger(); got != Log {
		t.Error("GetLogger() should return the initialized logger")
	}

	Info("initialized", zap.Int("n", 1))
}

func TestInitRejectsBadLevel(t *testing.T) {
	saved := Log
	t.Cleanup(func() { Log = saved })

	if err := Init("loud", "json", "stdout"); err == nil {
		t.Error("Init() should reject an unknown level")
	}
}
