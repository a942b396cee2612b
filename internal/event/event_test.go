package event

import "testing"

func TestSeverityAtLeast(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		s    Severity
		min  Severity
		want bool
	}{
		{"critical beats high", SeverityCritical, SeverityHigh, true},
		{"high meets high", SeverityHigh, SeverityHigh, true},
		{"medium below high", SeverityMedium, SeverityHigh, false},
		{"low below medium", SeverityLow, SeverityMedium, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.s.AtLeast(tt.min); got != tt.want {
				t.Errorf("%s.AtLeast(%s) = %v, want %v", tt.s, tt.min, got, tt.want)
			}
		})
	}
}

func TestNewEventIDUnique(t *testing.T) {
	t.Parallel()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewEventID()
		if seen[id] {
			t.Fatalf("duplicate event id %q", id)
		}
		seen[id] = true
	}
}

func TestEventApproxSize(t *testing.T) {
	t.Parallel()
	e := Event{
		Envelope: NewEnvelope("app1", "sess1", "", KindError, 1000),
		Payload:  &ErrorPayload{Message: "boom"},
	}
	if e.ApproxSize() == 0 {
		t.Fatal("expected non-zero approximate size")
	}
}
