package delivery

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorhill/cronexpr"
)

// DefaultSendTime applies when a subscriber never configured one.
const DefaultSendTime = "09:00"

// NextOccurrence computes the next recurring send: now plus the cadence
// interval, with the wall-clock time overwritten by sendTime ("HH:MM")
// and seconds/nanoseconds zeroed. An unparseable sendTime falls back to
// DefaultSendTime.
func NextOccurrence(now time.Time, freq Frequency, sendTime string) time.Time {
	hour, minute, err := parseSendTime(sendTime)
	if err != nil {
		hour, minute, _ = parseSendTime(DefaultSendTime)
	}
	next := now.Add(freq.Interval())
	return time.Date(next.Year(), next.Month(), next.Day(), hour, minute, 0, 0, next.Location())
}

// NextCronOccurrence evaluates a subscriber's cron override. The cron
// expression carries its own wall-clock time, so sendTime is ignored.
func NextCronOccurrence(now time.Time, expr string) (time.Time, error) {
	parsed, err := cronexpr.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron %q: %w", expr, err)
	}
	next := parsed.Next(now)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("cron %q has no future occurrence", expr)
	}
	return next, nil
}

// ValidateSendTime checks an "HH:MM" wall-clock time.
func ValidateSendTime(s string) error {
	_, _, err := parseSendTime(s)
	return err
}

func parseSendTime(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("send time %q is not HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("send time %q has invalid hour", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("send time %q has invalid minute", s)
	}
	return hour, minute, nil
}
