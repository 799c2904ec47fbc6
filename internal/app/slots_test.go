package app_test

import (
	"reflect"
	"testing"
	"time"

	"autoescola-portal/internal/app"
)

func TestDeriveSlots(t *testing.T) {
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	schedule := map[string][]string{
		"monday":  {"08:00-12:00", "14:00-16:00"},
		"tuesday": {"09:00-10:00"},
	}

	cases := []struct {
		name   string
		date   time.Time
		booked []time.Time
		want   []string
	}{
		{
			name: "free day",
			date: monday,
			want: []string{"08:00", "09:00", "10:00", "11:00", "14:00", "15:00"},
		},
		{
			name:   "booked hours removed",
			date:   monday,
			booked: []time.Time{monday.Add(9 * time.Hour), monday.Add(15 * time.Hour)},
			want:   []string{"08:00", "10:00", "11:00", "14:00"},
		},
		{
			name:   "off-hour booking removes nothing",
			date:   monday,
			booked: []time.Time{monday.Add(9*time.Hour + 30*time.Minute)},
			want:   []string{"08:00", "09:00", "10:00", "11:00", "14:00", "15:00"},
		},
		{
			name: "no schedule that weekday",
			date: monday.AddDate(0, 0, 2),
			want: []string{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := app.DeriveSlots(schedule, tc.date, tc.booked)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDeriveSlotsSkipsMalformedRanges(t *testing.T) {
	tuesday := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	got := app.DeriveSlots(map[string][]string{"tuesday": {"garbage", "13:00-14:00"}}, tuesday, nil)
	if !reflect.DeepEqual(got, []string{"13:00"}) {
		t.Fatalf("got %v", got)
	}
}
