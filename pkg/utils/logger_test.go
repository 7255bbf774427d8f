package utils

import "testing"

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"json info", "info", "json", false},
		{"console debug", "debug", "console", false},
		{"warn level", "warn", "json", false},
		{"error level", "error", "json", false},
		{"defaults", "", "", false},
		{"unknown level", "trace", "json", true},
		{"unknown format", "info", "logfmt", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := InitLogger(tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("InitLogger(%q, %q) error = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Error("expected non-nil logger")
			}
		})
	}
}
