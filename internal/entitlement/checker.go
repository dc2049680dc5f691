// Package entitlement decides whether a user may start an assessment attempt.
// The decision logic lives in Rego so plan rules can change without a deploy.
package entitlement

import (
	"context"

	profiledomain "maya-assessment/backend/internal/profile/domain"
)

// Decision is the outcome of an entitlement check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Checker evaluates whether the profile may start an assessment of the given type.
type Checker interface {
	Check(ctx context.Context, profile *profiledomain.Profile, assessmentType string) (Decision, error)
}
