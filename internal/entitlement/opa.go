package entitlement

import (
	"context"
	"fmt"
	"log"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	profiledomain "maya-assessment/backend/internal/profile/domain"
)

// Default Rego policy: an attempt is allowed on the unlimited plan or while
// the user has assessment credits left.
const defaultRegoPolicy = `package maya.entitlement

default allowed = false
default reason = "no assessment credits remaining"

allowed if {
	input.profile.plan == "unlimited"
}

allowed if {
	input.profile.assessment_credits > 0
}

reason = "" if {
	allowed
}
`

// OPAChecker evaluates entitlement using OPA Rego. A non-empty policy
// override (loaded from ENTITLEMENT_POLICY_PATH at startup) replaces the
// default module.
type OPAChecker struct {
	policy string
}

// NewOPAChecker returns a Rego-backed checker. policyOverride may be empty.
func NewOPAChecker(policyOverride string) *OPAChecker {
	policy := policyOverride
	if policy == "" {
		policy = defaultRegoPolicy
	}
	return &OPAChecker{policy: policy}
}

// HealthCheck verifies that the in-process OPA Rego engine can compile and
// evaluate the active policy. Does not touch the database. Returns nil on success.
func (c *OPAChecker) HealthCheck(ctx context.Context) error {
	compiler, err := ast.CompileModules(map[string]string{"entitlement_0.rego": c.policy})
	if err != nil {
		return fmt.Errorf("compile entitlement policy: %w", err)
	}
	minimalInput := map[string]interface{}{
		"profile": map[string]interface{}{
			"user_id":            "",
			"plan":               "free",
			"assessment_credits": 0,
		},
		"assessment": map[string]interface{}{
			"type": "",
		},
	}
	q := rego.New(
		rego.Query("data.maya.entitlement.allowed"),
		rego.Compiler(compiler),
		rego.Input(minimalInput),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return fmt.Errorf("eval entitlement policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("entitlement query returned no result")
	}
	return nil
}

// Check evaluates the policy for the profile and assessment type. A missing
// profile is denied, not an error. Policy evaluation failures deny the
// attempt and are logged; entitlement never fails open.
func (c *OPAChecker) Check(ctx context.Context, profile *profiledomain.Profile, assessmentType string) (Decision, error) {
	if profile == nil {
		return Decision{Allowed: false, Reason: "no profile"}, nil
	}

	input := map[string]interface{}{
		"profile": map[string]interface{}{
			"user_id":            profile.UserID,
			"plan":               profile.Plan,
			"assessment_credits": profile.AssessmentCredits,
		},
		"assessment": map[string]interface{}{
			"type": assessmentType,
		},
	}

	compiler, err := ast.CompileModules(map[string]string{"entitlement_0.rego": c.policy})
	if err != nil {
		return Decision{}, fmt.Errorf("compile entitlement policy: %w", err)
	}

	decision := Decision{Allowed: false, Reason: "entitlement evaluation failed"}

	allowedQuery := rego.New(
		rego.Query("data.maya.entitlement.allowed"),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	allowedRS, err := allowedQuery.Eval(ctx)
	if err != nil {
		log.Printf("entitlement: eval allowed for user %s: %v", profile.UserID, err)
		return decision, nil
	}
	if len(allowedRS) > 0 && len(allowedRS[0].Expressions) > 0 {
		if v, ok := allowedRS[0].Expressions[0].Value.(bool); ok {
			decision.Allowed = v
			decision.Reason = ""
		}
	}

	if !decision.Allowed {
		reasonQuery := rego.New(
			rego.Query("data.maya.entitlement.reason"),
			rego.Compiler(compiler),
			rego.Input(input),
		)
		reasonRS, err := reasonQuery.Eval(ctx)
		if err == nil && len(reasonRS) > 0 && len(reasonRS[0].Expressions) > 0 {
			if v, ok := reasonRS[0].Expressions[0].Value.(string); ok && v != "" {
				decision.Reason = v
			}
		}
		if decision.Reason == "" {
			decision.Reason = "no assessment credits remaining"
		}
	}

	return decision, nil
}
