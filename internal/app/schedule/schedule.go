// Package schedule parses the date and time-of-day strings exam papers are scheduled with.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yigit/exampapers/internal/pkg/apperrors"
)

const (
	// DateLayout is the strict scheduled-date format (YYYY-MM-DD HH:mm:ss)
	DateLayout = "2006-01-02 15:04:05"
	// TimeLayout is the time-of-day format (HH:mm:ss)
	TimeLayout = "15:04:05"
)

// Schedule is a validated exam slot
type Schedule struct {
	Date  time.Time
	Start time.Time
	End   time.Time
}

// Validator turns schedule strings into absolute timestamps in a fixed location
type Validator struct {
	loc *time.Location
}

// NewValidator creates a Validator. A nil location means UTC.
func NewValidator(loc *time.Location) *Validator {
	if loc == nil {
		loc = time.UTC
	}
	return &Validator{loc: loc}
}

// Location returns the location schedules are anchored in
func (v *Validator) Location() *time.Location {
	return v.loc
}

// Parse validates the scheduled date and both times of day. It does not compare
// start and end; see Schedule.Ordered.
func (v *Validator) Parse(scheduledDate, startTime, endTime string) (Schedule, error) {
	date, err := v.ParseDate(scheduledDate)
	if err != nil {
		return Schedule{}, err
	}

	start, err := v.AtTimeOfDay(date, startTime)
	if err != nil {
		return Schedule{}, err
	}
	end, err := v.AtTimeOfDay(date, endTime)
	if err != nil {
		return Schedule{}, err
	}

	return Schedule{Date: date, Start: start, End: end}, nil
}

// ParseDate parses a scheduled date in the strict DateLayout
func (v *Validator) ParseDate(value string) (time.Time, error) {
	date, err := time.ParseInLocation(DateLayout, value, v.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidScheduleFormat, value)
	}
	return date, nil
}

// AtTimeOfDay substitutes an HH:MM:SS time of day into date's calendar day
func (v *Validator) AtTimeOfDay(date time.Time, value string) (time.Time, error) {
	hour, minute, second, err := splitTimeOfDay(value)
	if err != nil {
		return time.Time{}, err
	}

	d := date.In(v.loc)
	ts := time.Date(d.Year(), d.Month(), d.Day(), hour, minute, second, 0, v.loc)
	if ts.Day() != d.Day() {
		// normalised into a neighbouring day
		return time.Time{}, fmt.Errorf("%w: %q does not exist on %s", apperrors.ErrInvalidTimeFormat, value, d.Format("2006-01-02"))
	}
	return ts, nil
}

func splitTimeOfDay(value string) (hour, minute, second int, err error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: %q", apperrors.ErrInvalidTimeFormat, value)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, convErr := strconv.Atoi(p)
		if convErr != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("%w: %q", apperrors.ErrInvalidTimeFormat, value)
		}
		nums[i] = n
	}

	if nums[0] > 23 || nums[1] > 59 || nums[2] > 59 {
		return 0, 0, 0, fmt.Errorf("%w: %q out of range", apperrors.ErrInvalidTimeFormat, value)
	}
	return nums[0], nums[1], nums[2], nil
}

// Ordered returns ErrInvalidTimeRange unless the slot starts before it ends
func (s Schedule) Ordered() error {
	if !s.Start.Before(s.End) {
		return fmt.Errorf("%w: %s is not before %s", apperrors.ErrInvalidTimeRange,
			s.Start.Format(TimeLayout), s.End.Format(TimeLayout))
	}
	return nil
}

// FormatDate renders a scheduled date in DateLayout
func (v *Validator) FormatDate(t time.Time) string {
	return t.In(v.loc).Format(DateLayout)
}

// FormatTime renders a timestamp's time of day in TimeLayout
func (v *Validator) FormatTime(t time.Time) string {
	return t.In(v.loc).Format(TimeLayout)
}
