package id

import (
	"strings"
	"testing"
)

func TestGenerateFormat(t *testing.T) {
	got := Generate("run")
	if !strings.HasPrefix(got, "run-") {
		t.Errorf("Generate() = %q, want run- prefix", got)
	}
	if parts := strings.Split(got, "-"); len(parts) != 3 {
		t.Errorf("Generate() = %q, want prefix-timestamp-random", got)
	}
}

func TestGenerateUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Generate("job")
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
