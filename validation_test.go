package gatelist

import "testing"

func TestValidGamertag(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"abc", true},
		{"Steve123", true},
		{"Steve 123", true},
		{"1234567890123456", true},
		{"   ", true},
		{"ab", false},
		{"", false},
		{"12345678901234567", false},
		{"valid_name!", false},
		{"Steve-123", false},
		{"Stéve123", false},
		{"Steve\t123", false},
		{"Steve123\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidGamertag(tt.name); got != tt.valid {
				t.Errorf("ValidGamertag(%q) = %v, want %v", tt.name, got, tt.valid)
			}
		})
	}
}
