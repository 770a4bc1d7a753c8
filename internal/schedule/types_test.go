package schedule

import (
	"errors"
	"testing"
	"time"
)

func TestParseDay(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Day
		wantErr bool
	}{
		{"english lowercase", "monday", Monday, false},
		{"english mixed case", "TueSDay", Tuesday, false},
		{"english with whitespace", "  friday ", Friday, false},
		{"french monday", "Lundi", Monday, false},
		{"french wednesday", "mercredi", Wednesday, false},
		{"french sunday", "Dimanche", Sunday, false},
		{"unknown name", "someday", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDay(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDay) {
					t.Fatalf("expected ErrInvalidDay, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseDay(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDayFor(t *testing.T) {
	// 2026-03-02 is a Monday
	monday := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	if got := DayFor(monday); got != Monday {
		t.Errorf("DayFor(monday) = %q, want %q", got, Monday)
	}

	sunday := time.Date(2026, 3, 8, 23, 59, 0, 0, time.UTC)
	if got := DayFor(sunday); got != Sunday {
		t.Errorf("DayFor(sunday) = %q, want %q", got, Sunday)
	}
}

func TestParseStartTime(t *testing.T) {
	tests := []struct {
		input      string
		wantHour   int
		wantMinute int
		wantErr    bool
	}{
		{"08:00", 8, 0, false},
		{"00:00", 0, 0, false},
		{"23:59", 23, 59, false},
		{"24:00", 0, 0, true},
		{"12:60", 0, 0, true},
		{"8:00", 0, 0, true},
		{"0800", 0, 0, true},
		{"ab:cd", 0, 0, true},
		{"", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			hour, minute, err := ParseStartTime(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidStartTime) {
					t.Fatalf("expected ErrInvalidStartTime, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if hour != tt.wantHour || minute != tt.wantMinute {
				t.Errorf("ParseStartTime(%q) = %d:%d, want %d:%d", tt.input, hour, minute, tt.wantHour, tt.wantMinute)
			}
		})
	}
}

func TestSlotDurationSeconds(t *testing.T) {
	tests := []struct {
		minutes float64
		want    int
	}{
		{22.5, 1350},
		{30, 1800},
		{0.5, 30},
		{0, 0},
		{1.0083, 60}, // 60.498s rounds down
	}

	for _, tt := range tests {
		slot := Slot{DurationMinutes: tt.minutes}
		if got := slot.DurationSeconds(); got != tt.want {
			t.Errorf("DurationSeconds(%v) = %d, want %d", tt.minutes, got, tt.want)
		}
	}
}

func TestSlotValidate(t *testing.T) {
	valid := Slot{Enabled: true, StartTime: "06:30", DurationMinutes: 20, VolumeM3: 0.8}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid slot rejected: %v", err)
	}

	badTime := Slot{StartTime: "25:00"}
	if err := badTime.Validate(); !errors.Is(err, ErrInvalidStartTime) {
		t.Errorf("expected ErrInvalidStartTime, got %v", err)
	}

	negDuration := Slot{StartTime: "06:30", DurationMinutes: -1}
	if err := negDuration.Validate(); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("expected ErrInvalidSlot, got %v", err)
	}

	negVolume := Slot{StartTime: "06:30", VolumeM3: -0.1}
	if err := negVolume.Validate(); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("expected ErrInvalidSlot, got %v", err)
	}
}

func TestSlotMatchesMinute(t *testing.T) {
	slot := Slot{StartTime: "08:00"}

	exact := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	if !slot.matchesMinute(exact) {
		t.Error("expected match at 08:00:00")
	}

	midMinute := time.Date(2026, 3, 2, 8, 0, 45, 0, time.UTC)
	if !slot.matchesMinute(midMinute) {
		t.Error("expected match at 08:00:45 (seconds ignored)")
	}

	oneMinuteLate := time.Date(2026, 3, 2, 8, 1, 0, 0, time.UTC)
	if slot.matchesMinute(oneMinuteLate) {
		t.Error("expected no match at 08:01")
	}

	malformed := Slot{StartTime: "junk"}
	if malformed.matchesMinute(exact) {
		t.Error("malformed start time must never match")
	}
}
