package domain

import (
	"testing"
	"time"
)

func TestPreservedAssessmentRecord_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expiry string
		want   bool
	}{
		{name: "past expiry", expiry: "2026-02-01T00:00:00Z", want: true},
		{name: "future expiry", expiry: "2027-03-01T00:00:00Z", want: false},
		{name: "exactly now", expiry: "2026-03-01T12:00:00Z", want: false},
		{name: "malformed date kept", expiry: "next tuesday", want: false},
		{name: "empty date kept", expiry: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &PreservedAssessmentRecord{ExpiryDate: tt.expiry}
			if got := rec.Expired(now); got != tt.want {
				t.Errorf("Expired(%q) = %v, want %v", tt.expiry, got, tt.want)
			}
		})
	}
}
