package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewProductionLogger_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		debug     bool
		wantDebug bool
	}{
		{"info by default", false, false},
		{"debug mode", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			log, err := NewProductionLogger(tt.debug)
			if err != nil {
				t.Fatalf("NewProductionLogger: %v", err)
			}
			if got := log.Core().Enabled(zapcore.DebugLevel); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if !log.Core().Enabled(zapcore.InfoLevel) {
				t.Error("info should always be enabled")
			}
		})
	}
}

func TestNewCLILogger_QuietUnlessDebug(t *testing.T) {
	t.Parallel()

	quiet, err := NewCLILogger(false)
	if err != nil {
		t.Fatalf("NewCLILogger: %v", err)
	}
	if quiet.Core().Enabled(zapcore.InfoLevel) || !quiet.Core().Enabled(zapcore.WarnLevel) {
		t.Error("CLI logger should only show warnings and above")
	}
	loud, err := NewCLILogger(true)
	if err != nil {
		t.Fatalf("NewCLILogger: %v", err)
	}
	if !loud.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug CLI logger should show debug entries")
	}
}

func TestSync_NilLogger(t *testing.T) {
	t.Parallel()
	if err := Sync(nil); err != nil {
		t.Errorf("Sync(nil) = %v", err)
	}
}
