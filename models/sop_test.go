package models

import (
	"errors"
	"testing"
)

func TestValidateSopTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    SopTicketStatus
		to      SopTicketStatus
		allowed bool
	}{
		{"open to reassigned", SopOpen, SopReassigned, true},
		{"open to rejected", SopOpen, SopRejected, true},
		{"open to ncr_completed", SopOpen, SopNcrCompleted, true},
		{"open to closed", SopOpen, SopClosed, true},
		{"reassigned to ncr_completed", SopReassigned, SopNcrCompleted, true},
		{"reassigned to rejected", SopReassigned, SopRejected, true},
		{"reassigned to reassigned", SopReassigned, SopReassigned, false},
		{"ncr_in_progress to ncr_completed", SopNcrInProgress, SopNcrCompleted, true},
		{"rejected to open", SopRejected, SopOpen, true},
		{"rejected to reassigned", SopRejected, SopReassigned, false},
		{"escalated to open", SopEscalated, SopOpen, true},
		{"ncr_completed is terminal", SopNcrCompleted, SopOpen, false},
		{"closed is terminal", SopClosed, SopReassigned, false},
		{"closed to closed", SopClosed, SopClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSopTransition(tt.from, tt.to)
			if tt.allowed && err != nil {
				t.Fatalf("expected transition %s -> %s to be allowed, got %v", tt.from, tt.to, err)
			}
			if !tt.allowed {
				if err == nil {
					t.Fatalf("expected transition %s -> %s to be rejected", tt.from, tt.to)
				}
				var ruleErr *BusinessRuleError
				if !errors.As(err, &ruleErr) {
					t.Fatalf("expected BusinessRuleError, got %T", err)
				}
			}
		})
	}
}

func TestSopTicketStatusTerminal(t *testing.T) {
	if !SopNcrCompleted.Terminal() {
		t.Error("ncr_completed should be terminal")
	}
	if !SopClosed.Terminal() {
		t.Error("closed should be terminal")
	}
	for _, s := range []SopTicketStatus{SopOpen, SopReassigned, SopNcrInProgress, SopRejected, SopEscalated} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
