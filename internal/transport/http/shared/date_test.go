package shared

import (
	"testing"
	"time"
)

func TestParseDeadline(t *testing.T) {
	got, err := ParseDeadline("2024-06-30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}

	got, err = ParseDeadline("2024-06-30T12:00:00+02:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2024, 6, 30, 10, 0, 0, 0, time.UTC); !got.Equal(want) || got.Location() != time.UTC {
		t.Fatalf("expected %s in UTC, got %s", want, got)
	}

	if got, err := ParseDeadline("  "); err != nil || !got.IsZero() {
		t.Fatalf("expected zero time for blank input, got %s, %v", got, err)
	}
	if _, err := ParseDeadline("30/06/2024"); err == nil {
		t.Fatal("expected malformed deadline to fail")
	}
}
