package command

import "testing"

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"  Filter   Active ": "filter active",
		"QUIT":               "quit",
		"   ":                "",
	}
	for in, want := range tests {
		if got := normalize(in); got != want {
			t.Errorf("normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
