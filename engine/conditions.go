package engine

import (
	"fmt"
	"time"

	domainDecision "github.com/AzielCF/aegisx/domains/decision"
	domainRule "github.com/AzielCF/aegisx/domains/rule"
	"github.com/AzielCF/aegisx/pkg/timeutils"
	"github.com/sirupsen/logrus"
)

// condition is one compiled dimension of a rule. A rule matches only when
// every declared dimension matches (logical AND); undeclared dimensions are
// wildcards and simply produce no condition here.
type condition interface {
	matches(at domainDecision.Attempt) bool
}

// timeWindowCond matches when the attempt's minute-of-day falls in
// [start, end). end < start means the window wraps past midnight and is
// treated as two intervals.
type timeWindowCond struct {
	start int
	end   int
}

func (c timeWindowCond) matches(at domainDecision.Attempt) bool {
	m := timeutils.MinuteOfDay(at.Timestamp)
	if c.start <= c.end {
		return m >= c.start && m < c.end
	}
	return m >= c.start || m < c.end
}

type weekdayCond struct {
	days map[time.Weekday]struct{}
}

func (c weekdayCond) matches(at domainDecision.Attempt) bool {
	_, ok := c.days[at.Timestamp.Weekday()]
	return ok
}

// locationCond matches when the attempt's location type is NOT blocked.
type locationCond struct {
	blocked map[string]struct{}
}

func (c locationCond) matches(at domainDecision.Attempt) bool {
	_, blocked := c.blocked[at.LocationType]
	return !blocked
}

type gradeCond struct {
	allowed map[string]struct{}
}

func (c gradeCond) matches(at domainDecision.Attempt) bool {
	_, ok := c.allowed[at.SubjectGrade]
	return ok
}

type classCond struct {
	allowed map[string]struct{}
}

func (c classCond) matches(at domainDecision.Attempt) bool {
	_, ok := c.allowed[at.SubjectClassID]
	return ok
}

type roleCond struct {
	constraint domainRule.RoleConstraint
}

func (c roleCond) matches(at domainDecision.Attempt) bool {
	switch c.constraint {
	case domainRule.RoleStaffOnly:
		return at.SubjectRole == domainDecision.RoleStaff
	case domainRule.RoleStudentsOnly:
		return at.SubjectRole == domainDecision.RoleStudent
	default: // allow_all
		return true
	}
}

// entryCapCond stops matching once the daily entry cap is reached, so the
// attempt falls through to lower-priority rules or the default deny.
type entryCapCond struct {
	max int
}

func (c entryCapCond) matches(at domainDecision.Attempt) bool {
	entries := at.EntriesSoFarToday
	if entries < 0 {
		entries = 0
	}
	return entries < c.max
}

// CompiledRule is an access rule with its condition bag compiled into typed
// per-dimension conditions. Compilation happens once per snapshot, not per
// attempt.
type CompiledRule struct {
	Rule  domainRule.AccessRule
	conds []condition
}

// Matches reports whether every declared condition of the rule is satisfied
// by the attempt. A rule with no conditions matches everything.
func (cr CompiledRule) Matches(at domainDecision.Attempt) bool {
	for _, c := range cr.conds {
		if !c.matches(at) {
			return false
		}
	}
	return true
}

// Compile turns the loose condition bag of a stored rule into typed
// conditions, validating each declared field.
func Compile(r domainRule.AccessRule) (CompiledRule, error) {
	cr := CompiledRule{Rule: r}
	c := r.Conditions

	if c.TimeWindow != nil {
		start, err := timeutils.ParseMinuteOfDay(c.TimeWindow.Start)
		if err != nil {
			return CompiledRule{}, fmt.Errorf("time window start: %w", err)
		}
		end, err := timeutils.ParseMinuteOfDay(c.TimeWindow.End)
		if err != nil {
			return CompiledRule{}, fmt.Errorf("time window end: %w", err)
		}
		cr.conds = append(cr.conds, timeWindowCond{start: start, end: end})
	}

	if len(c.AllowedDays) > 0 {
		days := make(map[time.Weekday]struct{}, len(c.AllowedDays))
		for _, d := range c.AllowedDays {
			if d < 0 || d > 6 {
				return CompiledRule{}, fmt.Errorf("allowed day out of range: %d", d)
			}
			days[time.Weekday(d)] = struct{}{}
		}
		cr.conds = append(cr.conds, weekdayCond{days: days})
	}

	if len(c.BlockedLocationTypes) > 0 {
		cr.conds = append(cr.conds, locationCond{blocked: toSet(c.BlockedLocationTypes)})
	}

	if len(c.AllowedGrades) > 0 {
		cr.conds = append(cr.conds, gradeCond{allowed: toSet(c.AllowedGrades)})
	}

	if len(c.AllowedClasses) > 0 {
		cr.conds = append(cr.conds, classCond{allowed: toSet(c.AllowedClasses)})
	}

	if c.RoleConstraint != "" {
		switch c.RoleConstraint {
		case domainRule.RoleAllowAll, domainRule.RoleStaffOnly, domainRule.RoleStudentsOnly:
			cr.conds = append(cr.conds, roleCond{constraint: c.RoleConstraint})
		default:
			return CompiledRule{}, fmt.Errorf("unknown role constraint: %q", c.RoleConstraint)
		}
	}

	if c.MaxEntriesPerDay != nil {
		if *c.MaxEntriesPerDay < 0 {
			return CompiledRule{}, fmt.Errorf("max entries per day must be non-negative: %d", *c.MaxEntriesPerDay)
		}
		cr.conds = append(cr.conds, entryCapCond{max: *c.MaxEntriesPerDay})
	}

	return cr, nil
}

// CompileSet compiles every rule in the snapshot. A rule that fails to
// compile is dropped (it never matches) and logged as a data-quality
// warning: one bad rule must never block access decisions.
func CompileSet(rules []domainRule.AccessRule) []CompiledRule {
	compiled := make([]CompiledRule, 0, len(rules))
	for _, r := range rules {
		cr, err := Compile(r)
		if err != nil {
			logrus.WithError(err).Warnf("[ENGINE] Skipping malformed rule %s (%s)", r.ID, r.Name)
			continue
		}
		compiled = append(compiled, cr)
	}
	return compiled
}

func toSet(vals []string) map[string]struct{} {
	set := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		set[v] = struct{}{}
	}
	return set
}
