package domain

import "testing"

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"DEBUG", LevelDebug},
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"WARN", LevelWarn},
		{"warning", LevelWarn},
		{"ERROR", LevelError},
		{"err", LevelError},
		{"FATAL", LevelError},
		{" info ", LevelInfo},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLevel_AtLeast(t *testing.T) {
	if !LevelError.AtLeast(LevelWarn) {
		t.Error("ERROR should be at least WARN")
	}
	if LevelDebug.AtLeast(LevelInfo) {
		t.Error("DEBUG should not be at least INFO")
	}
	if !LevelInfo.AtLeast(LevelInfo) {
		t.Error("level should be at least itself")
	}
}

func TestLevel_IsValid(t *testing.T) {
	for _, l := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		if !l.IsValid() {
			t.Errorf("%s should be valid", l)
		}
	}
	if Level("TRACE").IsValid() {
		t.Error("TRACE should not be valid")
	}
}
