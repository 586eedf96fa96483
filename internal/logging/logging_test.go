package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		mode    string
		verbose bool
		debug   bool
		wantErr bool
	}{
		{"prod", false, false, false},
		{"", false, false, false},
		{"prod", true, true, false},
		{"DEV", false, true, false},
		{"loud", false, false, true},
	}
	for _, tt := range tests {
		logger, err := New(tt.mode, tt.verbose)
		if (err != nil) != tt.wantErr {
			t.Fatalf("New(%q): err=%v wantErr=%v", tt.mode, err, tt.wantErr)
		}
		if err != nil {
			continue
		}
		if got := logger.Core().Enabled(zapcore.DebugLevel); got != tt.debug {
			t.Errorf("New(%q, %v): debug enabled=%v want %v", tt.mode, tt.verbose, got, tt.debug)
		}
	}
}
