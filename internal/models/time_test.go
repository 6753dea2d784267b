package models

import (
	"testing"
	"time"
)

func TestFormatRelativeTime(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"just now", now.Add(-30 * time.Second), "just now"},
		{"one minute", now.Add(-90 * time.Second), "1 minute ago"},
		{"minutes", now.Add(-45 * time.Minute), "45 minutes ago"},
		{"one hour", now.Add(-90 * time.Minute), "1 hour ago"},
		{"hours", now.Add(-5 * time.Hour), "5 hours ago"},
		{"one day", now.Add(-30 * time.Hour), "1 day ago"},
		{"days", now.Add(-4 * 24 * time.Hour), "4 days ago"},
		{"one week", now.Add(-8 * 24 * time.Hour), "1 week ago"},
		{"weeks", now.Add(-20 * 24 * time.Hour), "2 weeks ago"},
		{"one month", now.Add(-35 * 24 * time.Hour), "1 month ago"},
		{"months", now.Add(-100 * 24 * time.Hour), "3 months ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatRelativeTime(tt.t); got != tt.want {
				t.Errorf("FormatRelativeTime = %q, want %q", got, tt.want)
			}
		})
	}
}
