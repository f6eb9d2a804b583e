package config

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"15s", 15 * time.Second, false},
		{"1m", 1 * time.Minute, false},
		{"1.5h", 90 * time.Minute, false},
		{"1d", 24 * time.Hour, false},
		{"1w", 168 * time.Hour, false},
		{"2d2h", 50 * time.Hour, false},
		{"250ms", 250 * time.Millisecond, false},
		{"", 0, false},
		{"invalid", 0, true},
		{"3dx", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDuration(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestDurationYAML(t *testing.T) {
	type wrapper struct {
		Delay Duration `yaml:"delay"`
	}

	var w wrapper
	if err := yaml.Unmarshal([]byte("delay: 2d\n"), &w); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if w.Delay.Std() != 48*time.Hour {
		t.Errorf("Expected 48h, got %v", w.Delay)
	}

	out, err := yaml.Marshal(wrapper{Delay: Duration(15 * time.Second)})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != "delay: 15s\n" {
		t.Errorf("Expected 'delay: 15s', got %q", out)
	}
}
