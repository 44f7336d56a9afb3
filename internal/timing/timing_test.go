package timing

import (
	"errors"
	"testing"
	"time"
)

func TestMeasure_Success(t *testing.T) {
	val, span, err := Measure(func() (string, error) {
		time.Sleep(5 * time.Millisecond)
		return "done", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "done" {
		t.Errorf("expected done, got %q", val)
	}
	if span.Duration < 5*time.Millisecond {
		t.Errorf("expected duration >= 5ms, got %v", span.Duration)
	}
	if !span.End.After(span.Start) && !span.End.Equal(span.Start) {
		t.Errorf("expected End >= Start, got %v / %v", span.Start, span.End)
	}
}

func TestMeasure_PopulatesSpanOnFailure(t *testing.T) {
	_, span, err := Measure(func() (int, error) {
		time.Sleep(2 * time.Millisecond)
		return 0, errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if span.Start.IsZero() || span.End.IsZero() {
		t.Error("expected span populated on failure")
	}
	if span.Duration < 2*time.Millisecond {
		t.Errorf("expected duration >= 2ms, got %v", span.Duration)
	}
}
