package validations

import (
	"context"
	"fmt"

	domainRule "github.com/AzielCF/aegisx/domains/rule"
	pkgError "github.com/AzielCF/aegisx/pkg/error"
	"github.com/AzielCF/aegisx/pkg/timeutils"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func ruleTypeValues() []any {
	out := make([]any, len(domainRule.ValidTypes))
	for i, t := range domainRule.ValidTypes {
		out[i] = t
	}
	return out
}

func actionValues() []any {
	out := make([]any, len(domainRule.ValidActions))
	for i, a := range domainRule.ValidActions {
		out[i] = a
	}
	return out
}

func ValidateCreateRule(ctx context.Context, request domainRule.CreateRuleRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.SchoolID, validation.Required),
		validation.Field(&request.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&request.RuleType, validation.Required, validation.In(ruleTypeValues()...)),
		validation.Field(&request.Action, validation.Required, validation.In(actionValues()...)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	if err := validateConditions(request.Conditions); err != nil {
		return err
	}

	return nil
}

func ValidateUpdateRule(ctx context.Context, request domainRule.UpdateRuleRequest) error {
	if request.RuleType != nil && !contains(domainRule.ValidTypes, *request.RuleType) {
		return pkgError.ValidationError(fmt.Sprintf("rule_type: unknown value %q", *request.RuleType))
	}
	if request.Action != nil && !contains(domainRule.ValidActions, *request.Action) {
		return pkgError.ValidationError(fmt.Sprintf("action: unknown value %q", *request.Action))
	}
	if request.Name != nil && (*request.Name == "" || len(*request.Name) > 200) {
		return pkgError.ValidationError("name: the length must be between 1 and 200")
	}
	if request.Conditions != nil {
		if err := validateConditions(*request.Conditions); err != nil {
			return err
		}
	}
	return nil
}

// validateConditions rejects condition bags the engine would refuse to
// compile, so the data-quality warning path stays for legacy rows only.
func validateConditions(c domainRule.Conditions) error {
	if c.TimeWindow != nil {
		if _, err := timeutils.ParseMinuteOfDay(c.TimeWindow.Start); err != nil {
			return pkgError.ValidationError(fmt.Sprintf("conditions.time_window.start: %v", err))
		}
		if _, err := timeutils.ParseMinuteOfDay(c.TimeWindow.End); err != nil {
			return pkgError.ValidationError(fmt.Sprintf("conditions.time_window.end: %v", err))
		}
	}
	for _, d := range c.AllowedDays {
		if d < 0 || d > 6 {
			return pkgError.ValidationError(fmt.Sprintf("conditions.allowed_days: day %d out of range 0-6", d))
		}
	}
	if c.MaxEntriesPerDay != nil && *c.MaxEntriesPerDay < 0 {
		return pkgError.ValidationError("conditions.max_entries_per_day: must be non-negative")
	}
	if c.RoleConstraint != "" {
		switch c.RoleConstraint {
		case domainRule.RoleAllowAll, domainRule.RoleStaffOnly, domainRule.RoleStudentsOnly:
		default:
			return pkgError.ValidationError(fmt.Sprintf("conditions.role_constraint: unknown value %q", c.RoleConstraint))
		}
	}
	return nil
}

func contains[T comparable](values []T, v T) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
