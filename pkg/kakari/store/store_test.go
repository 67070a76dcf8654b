package store

import "testing"

func TestFeatureName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"F_H0:私", "F_H0"},
		{"A:", "A"},
		{"G_PUNC::", "G_PUNC"},
		{"bare", "bare"},
	}
	for _, tt := range tests {
		if got := FeatureName(tt.in); got != tt.want {
			t.Errorf("FeatureName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
