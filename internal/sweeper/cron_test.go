package sweeper

import (
	"testing"
	"time"
)

func TestNextRun(t *testing.T) {
	from := time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		expr string
		want time.Time
	}{
		{
			name: "daily at 3am",
			expr: "0 3 * * *",
			want: time.Date(2026, 8, 2, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "every hour",
			expr: "0 * * * *",
			want: time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC),
		},
		{
			name: "every five minutes",
			expr: "*/5 * * * *",
			want: time.Date(2026, 8, 1, 12, 35, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextRun(tt.expr, from)
			if err != nil {
				t.Fatalf("NextRun: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextRun(%q) = %s, want %s", tt.expr, got, tt.want)
			}
		})
	}
}

func TestNextRun_Invalid(t *testing.T) {
	if _, err := NextRun("not a cron", time.Now()); err == nil {
		t.Error("expected error for invalid expression")
	}
}

func TestValidateCronExpr(t *testing.T) {
	if err := ValidateCronExpr("0 3 * * *"); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	if err := ValidateCronExpr("61 * * * *"); err == nil {
		t.Error("expected error for minute out of range")
	}
	// Секундное поле не поддерживается (стандартные 5 полей)
	if err := ValidateCronExpr("0 0 3 * * *"); err == nil {
		t.Error("expected error for six fields")
	}
}

func TestNew_InvalidCron(t *testing.T) {
	_, err := New(Config{PurgeCron: "bad"})
	if err == nil {
		t.Error("expected error for invalid purge cron")
	}
}

func TestNew_Defaults(t *testing.T) {
	s, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}

	if s.retention != defaultRetention {
		t.Errorf("expected default retention, got %v", s.retention)
	}
	if s.redriveBatch != defaultRedriveBatch {
		t.Errorf("expected default redrive batch, got %d", s.redriveBatch)
	}
	if s.nextPurge.IsZero() {
		t.Error("nextPurge should be computed on construction")
	}
}
