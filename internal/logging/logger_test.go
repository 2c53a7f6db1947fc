package logging

import "testing"

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	if _, err := New("local", "loud"); err == nil {
		t.Fatalf("expected invalid level error")
	}
	logger, err := New("production", " DEBUG ")
	if err != nil {
		t.Fatalf("expected debug level to parse, got %v", err)
	}
	if logger.GetLevel().String() != "debug" {
		t.Fatalf("unexpected level %s", logger.GetLevel())
	}
}
