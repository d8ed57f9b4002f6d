package pattern

import (
	apperrors "github.com/eqsat/eqsat/pkg/errors"
	"github.com/eqsat/eqsat/pkg/model"
)

// ValidateRewrite checks that every RHS variable occurs in the LHS. This
// is the only semantic well-formedness rule the pattern grammar imposes
// (the preset loader additionally requires the root term to be fully
// concrete). Returns nil, or a PatternInvalid AppError naming the rule
// and the first offending variable.
func ValidateRewrite(r model.Rewrite) *apperrors.AppError {
	lhsVars := r.LHS.Variables(nil)
	rhsVars := r.RHS.Variables(nil)

	bound := make(map[string]bool, len(lhsVars))
	for _, v := range lhsVars {
		bound[v] = true
	}
	for _, v := range rhsVars {
		if !bound[v] {
			return apperrors.PatternInvalidErr(r.Name, "rhs variable "+v+" does not occur in lhs")
		}
	}
	return nil
}

// ValidateRewrites validates every rule in rules and returns the combined
// list of violation messages (empty if all are valid).
func ValidateRewrites(rules []model.Rewrite) []string {
	var violations []string
	for _, r := range rules {
		if err := ValidateRewrite(r); err != nil {
			violations = append(violations, err.Message)
		}
	}
	return violations
}
