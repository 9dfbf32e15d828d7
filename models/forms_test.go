package models

import "testing"

func TestFormNumbers(t *testing.T) {
	tests := []struct {
		in    string
		float float64
		whole int
	}{
		{"10", 10, 10},
		{" 12.7 ", 12.7, 12},
		{"-3", -3, -3},
		{"1e30", 1e30, 1},
		{"NaN", 0, 0},
		{"Inf", 0, 0},
		{"-Infinity", 0, 0},
		{"abc", 0, 0},
		{"", 0, 0},
		{"99999999999999999999", 1e20, 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f := NewForm("Numbers", "Value").Set(0, tt.in)
			if got := f.Float(0); got != tt.float {
				t.Errorf("Float(%q) = %v, want %v", tt.in, got, tt.float)
			}
			if got := f.Whole(0); got != tt.whole {
				t.Errorf("Whole(%q) = %d, want %d", tt.in, got, tt.whole)
			}
		})
	}
}
