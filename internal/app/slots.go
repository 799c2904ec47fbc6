package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DeriveSlots expands the weekday's "HH:MM-HH:MM" ranges into whole-hour slots
// ("HH:00", from the start hour up to but excluding the end hour) and drops every
// slot equal to the start time of a booked lesson. Only exact hour-start matches
// are detected; bookings that begin off the hour do not remove any slot.
func DeriveSlots(schedule map[string][]string, date time.Time, booked []time.Time) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[b.In(date.Location()).Format("15:04")] = struct{}{}
	}

	ranges := schedule[strings.ToLower(date.Weekday().String())]
	slots := make([]string, 0)
	for _, r := range ranges {
		startHour, endHour, err := parseRange(r)
		if err != nil {
			continue
		}
		for hour := startHour; hour < endHour; hour++ {
			slot := fmt.Sprintf("%02d:00", hour)
			if _, ok := taken[slot]; !ok {
				slots = append(slots, slot)
			}
		}
	}
	return slots
}

// parseRange reads the hours of a "HH:MM-HH:MM" range; minutes are ignored.
func parseRange(r string) (int, int, error) {
	start, end, ok := strings.Cut(strings.TrimSpace(r), "-")
	if !ok {
		return 0, 0, fmt.Errorf("malformed range %q", r)
	}
	startHour, err := parseHour(start)
	if err != nil {
		return 0, 0, err
	}
	endHour, err := parseHour(end)
	if err != nil {
		return 0, 0, err
	}
	return startHour, endHour, nil
}

func parseHour(hhmm string) (int, error) {
	h, _, _ := strings.Cut(strings.TrimSpace(hhmm), ":")
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 24 {
		return 0, fmt.Errorf("malformed hour %q", hhmm)
	}
	return hour, nil
}

// dayBounds returns the first and last instant of date's calendar day.
func dayBounds(date time.Time) (time.Time, time.Time) {
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}
