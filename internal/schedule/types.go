package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Day identifies a day of the week in a weekly irrigation plan.
//
// Values match time.Weekday string representations lowered, so
// DayFor(time.Now()) is a direct mapping.
type Day string

// Days of the week, in Monday-first order as presented by the plan API.
const (
	Monday    Day = "monday"
	Tuesday   Day = "tuesday"
	Wednesday Day = "wednesday"
	Thursday  Day = "thursday"
	Friday    Day = "friday"
	Saturday  Day = "saturday"
	Sunday    Day = "sunday"
)

// AllDays lists every day in plan order (Monday first).
var AllDays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// dayAliases maps accepted spellings to canonical days. Incoming plans
// from the farm dashboard historically used French day names, so both
// sets are accepted.
var dayAliases = map[string]Day{
	"monday":    Monday,
	"tuesday":   Tuesday,
	"wednesday": Wednesday,
	"thursday":  Thursday,
	"friday":    Friday,
	"saturday":  Saturday,
	"sunday":    Sunday,
	"lundi":     Monday,
	"mardi":     Tuesday,
	"mercredi":  Wednesday,
	"jeudi":     Thursday,
	"vendredi":  Friday,
	"samedi":    Saturday,
	"dimanche":  Sunday,
}

// ParseDay converts a day name to its canonical Day value.
//
// Matching is case-insensitive and accepts English and French names.
//
// Returns:
//   - Day: The canonical day
//   - error: ErrInvalidDay if the name is not recognized
func ParseDay(name string) (Day, error) {
	day, ok := dayAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidDay, name)
	}
	return day, nil
}

// DayFor returns the Day for a given wall-clock instant.
func DayFor(t time.Time) Day {
	return Day(strings.ToLower(t.Weekday().String()))
}

// Slot is the irrigation plan for a single day of the week.
type Slot struct {
	// Enabled controls whether the slot fires. Disabled slots are kept
	// in the plan but never actuated.
	Enabled bool `json:"enabled"`

	// StartTime is the local fire time in "HH:MM" (24-hour) form.
	StartTime string `json:"start_time"`

	// DurationMinutes is how long the valve stays open.
	DurationMinutes float64 `json:"duration_minutes"`

	// VolumeM3 is the target water volume in cubic metres.
	VolumeM3 float64 `json:"volume_m3"`

	// Optimized is true when DurationMinutes/VolumeM3 came from the
	// recommendation model rather than the fixed fallback values.
	Optimized bool `json:"optimized"`
}

// DurationSeconds converts the slot duration to whole seconds,
// rounding to the nearest second.
func (s Slot) DurationSeconds() int {
	return int(s.DurationMinutes*60 + 0.5)
}

// Validate checks the slot for structural errors.
//
// Returns:
//   - error: Description of the first problem found, or nil if valid
func (s Slot) Validate() error {
	if _, _, err := ParseStartTime(s.StartTime); err != nil {
		return err
	}
	if s.DurationMinutes < 0 {
		return fmt.Errorf("%w: duration_minutes must not be negative", ErrInvalidSlot)
	}
	if s.VolumeM3 < 0 {
		return fmt.Errorf("%w: volume_m3 must not be negative", ErrInvalidSlot)
	}
	return nil
}

// ParseStartTime parses an "HH:MM" start time into hour and minute.
//
// Returns:
//   - int: Hour (0-23)
//   - int: Minute (0-59)
//   - error: ErrInvalidStartTime if the format or range is wrong
func ParseStartTime(s string) (int, int, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil || len(s) != 5 || s[2] != ':' {
		return 0, 0, fmt.Errorf("%w: %q (expected HH:MM)", ErrInvalidStartTime, s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q out of range", ErrInvalidStartTime, s)
	}
	return hour, minute, nil
}

// FormatStartTime renders an hour and minute as "HH:MM".
func FormatStartTime(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// matchesMinute reports whether the slot's start time equals the
// wall-clock minute of t. Comparison is at minute resolution; seconds
// within the minute are ignored.
func (s Slot) matchesMinute(t time.Time) bool {
	hour, minute, err := ParseStartTime(s.StartTime)
	if err != nil {
		return false
	}
	return t.Hour() == hour && t.Minute() == minute
}
