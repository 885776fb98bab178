package utils

import (
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"08:00", 480, false},
		{"18:30", 1110, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"garbage", 0, true},
	}
	for _, c := range cases {
		got, err := ParseClock(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q): expected error, got %d", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q): unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseClock(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestFormatClockRoundTrip(t *testing.T) {
	for _, clock := range []string{"00:00", "08:05", "17:30", "23:59"} {
		minutes, err := ParseClock(clock)
		if err != nil {
			t.Fatalf("ParseClock(%q): %v", clock, err)
		}
		if got := FormatClock(minutes); got != clock {
			t.Errorf("FormatClock(ParseClock(%q)) = %q", clock, got)
		}
	}
}

func TestComposeLocal(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	at, err := ComposeLocal("2026-03-02", "14:30", loc)
	if err != nil {
		t.Fatalf("ComposeLocal: %v", err)
	}
	if at.Hour() != 14 || at.Minute() != 30 {
		t.Errorf("wall clock = %02d:%02d, want 14:30", at.Hour(), at.Minute())
	}
	if at.Location() != loc {
		t.Errorf("location = %v, want %v", at.Location(), loc)
	}

	if _, err := ComposeLocal("02/03/2026", "14:30", loc); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestRoundCents(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{10.005, 10.01},
		{3.333, 3.33},
		{99.999, 100},
		{0, 0},
	}
	for _, c := range cases {
		if got := RoundCents(c.in); got != c.want {
			t.Errorf("RoundCents(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
