package ids

import (
	"testing"
	"time"
)

func TestNewIsMonotonicWithinMillisecond(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	prev := At(at)
	for i := 0; i < 100; i++ {
		next := At(at)
		if next <= prev {
			t.Fatalf("expected increasing ids, got %s after %s", next, prev)
		}
		prev = next
	}
	if len(New()) != 26 {
		t.Fatal("expected 26-character ULID")
	}
}
