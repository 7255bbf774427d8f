package utils

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name             string
		value, min, max  float64
		want             float64
	}{
		{"inside range", 0.5, 0, 1, 0.5},
		{"above max", 1.3, 0, 1, 1.0},
		{"below min", -0.2, 0, 1, 0.0},
		{"at max", 1.0, 0, 1, 1.0},
		{"at min", 0.0, 0, 1, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.value, tt.min, tt.max); got != tt.want {
				t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.value, tt.min, tt.max, got, tt.want)
			}
		})
	}
}

func TestRoundTo(t *testing.T) {
	tests := []struct {
		value    float64
		decimals int
		want     float64
	}{
		{1.23456, 2, 1.23},
		{1.995, 2, 2.0},
		{-0.061, 2, -0.06},
		{100.5, 0, 101.0},
		{1.5, -1, 1.5}, // отрицательные знаки - без изменений
	}

	for _, tt := range tests {
		if got := RoundTo(tt.value, tt.decimals); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("RoundTo(%v, %d) = %v, want %v", tt.value, tt.decimals, got, tt.want)
		}
	}
}

func TestPercentOf(t *testing.T) {
	tests := []struct {
		part, whole float64
		want        float64
	}{
		{30, 50000, 0.06},
		{-2500, 50000, -5.0},
		{0, 50000, 0},
		{100, 0, 0}, // защита от деления на ноль
	}

	for _, tt := range tests {
		if got := PercentOf(tt.part, tt.whole); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("PercentOf(%v, %v) = %v, want %v", tt.part, tt.whole, got, tt.want)
		}
	}
}

func TestSafeDiv(t *testing.T) {
	if got := SafeDiv(40, 30, 0); math.Abs(got-40.0/30.0) > 1e-9 {
		t.Errorf("SafeDiv(40, 30, 0) = %v", got)
	}
	if got := SafeDiv(40, 0, 0); got != 0 {
		t.Errorf("SafeDiv(40, 0, 0) = %v, want 0", got)
	}
	if got := SafeDiv(40, 0, -1); got != -1 {
		t.Errorf("SafeDiv(40, 0, -1) = %v, want -1", got)
	}
}
