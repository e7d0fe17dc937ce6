package common

import "testing"

func TestCoalesce(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{name: "first set wins", values: []string{"", "gbuffer", "fallback"}, want: "gbuffer"},
		{name: "all empty", values: []string{"", ""}, want: ""},
		{name: "no values", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Coalesce(tt.values...); got != tt.want {
				t.Errorf("Coalesce(%q) = %q, want %q", tt.values, got, tt.want)
			}
		})
	}
}
