package utils

import (
	"testing"
	"time"
)

func TestDayKey(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{
			name: "UTC afternoon",
			t:    time.Date(2024, 1, 15, 14, 30, 45, 0, time.UTC),
			want: "2024-01-15",
		},
		{
			name: "non-UTC zone converted",
			t:    time.Date(2024, 1, 15, 23, 30, 0, 0, time.FixedZone("UTC+3", 3*3600)),
			want: "2024-01-15", // 20:30 UTC
		},
		{
			name: "midnight boundary",
			t:    time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
			want: "2024-01-16",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DayKey(tt.t); got != tt.want {
				t.Errorf("DayKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDayKey(t *testing.T) {
	got, err := ParseDayKey("2024-01-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseDayKey() = %v, want %v", got, want)
	}

	if _, err := ParseDayKey("15.01.2024"); err == nil {
		t.Error("expected error for invalid key format")
	}
}

func TestGetDayStartFrom(t *testing.T) {
	in := time.Date(2024, 1, 15, 14, 30, 45, 123, time.UTC)
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if got := GetDayStartFrom(in); !got.Equal(want) {
		t.Errorf("GetDayStartFrom() = %v, want %v", got, want)
	}
}

func TestWindowStart(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	want := time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)
	if got := WindowStart(now, 7); !got.Equal(want) {
		t.Errorf("WindowStart(7) = %v, want %v", got, want)
	}
}

func TestInWindow(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		key  string
		days int
		want bool
	}{
		{"today", "2024-01-15", 7, true},
		{"six days ago", "2024-01-09", 7, true},
		{"exactly at window edge", "2024-01-08", 7, false}, // 00:00 раньше границы 12:00
		{"far outside", "2023-12-01", 7, false},
		{"inside monthly window", "2023-12-20", 30, true},
		{"invalid key", "not-a-date", 7, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InWindow(tt.key, now, tt.days); got != tt.want {
				t.Errorf("InWindow(%q, %d) = %v, want %v", tt.key, tt.days, got, tt.want)
			}
		})
	}
}
