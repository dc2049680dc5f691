package migrate

import (
	"strings"
	"testing"
)

func TestRun_EmptyDSN(t *testing.T) {
	err := Run("", "up")
	if err == nil {
		t.Fatal("Run should fail for an empty DSN")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("err = %v, want a DATABASE_URL hint", err)
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	// Direction is validated before any connection is attempted.
	err := Run("postgres://localhost:5432/maya", "sideways")
	if err == nil {
		t.Fatal("Run should reject an unknown direction")
	}
	if !strings.Contains(err.Error(), "direction") {
		t.Errorf("err = %v, want a direction error", err)
	}
}
