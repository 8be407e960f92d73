package engine

import (
	"sort"

	domainDecision "github.com/AzielCF/aegisx/domains/decision"
	domainEmergency "github.com/AzielCF/aegisx/domains/emergency"
	domainRule "github.com/AzielCF/aegisx/domains/rule"
)

// Resolution is the outcome of one evaluation pass. ResolvedRuleID is nil
// when the emergency mode decided (or nothing matched and the default deny
// applied).
type Resolution struct {
	Action               domainRule.Action
	ResolvedRuleID       *string
	Mode                 domainEmergency.ModeType
	RequiresPin          bool
	SuppressAudibleAlert bool
	DefaultDeny          bool
}

// modeLayerTypes are rule types that belong to a specific emergency layer
// and only participate while that layer (or an emergency mode) is live.
var modeLayerTypes = map[domainRule.RuleType]struct{}{
	domainRule.TypeEmergency:  {},
	domainRule.TypeExamMode:   {},
	domainRule.TypeLockdown:   {},
	domainRule.TypeSilentMode: {},
}

// Resolve runs one deterministic evaluation pass:
//
//  1. lockdown forces deny, emergency_unlock and evacuation force allow,
//     both without consulting any rule.
//  2. Otherwise the eligible rules are matched against the attempt and the
//     highest-priority match wins, ties broken by ascending rule ID.
//  3. No match is a fail-closed deny.
func Resolve(mode domainEmergency.ModeType, rules []CompiledRule, at domainDecision.Attempt) Resolution {
	res := Resolution{Mode: mode}

	switch mode {
	case domainEmergency.ModeLockdown:
		res.Action = domainRule.ActionDeny
		return res
	case domainEmergency.ModeEmergencyUnlock, domainEmergency.ModeEvacuation:
		res.Action = domainRule.ActionAllow
		return res
	}

	var matched []CompiledRule
	for _, cr := range rules {
		if !cr.Rule.IsActive {
			continue
		}
		if !eligible(mode, cr.Rule) {
			continue
		}
		if cr.Matches(at) {
			matched = append(matched, cr)
		}
	}

	if len(matched) == 0 {
		res.Action = domainRule.ActionDeny
		res.DefaultDeny = true
		return res
	}

	// Highest priority first; equal priorities resolved by ascending ID so
	// the winner is deterministic across runs.
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Rule.Priority != matched[j].Rule.Priority {
			return matched[i].Rule.Priority > matched[j].Rule.Priority
		}
		return matched[i].Rule.ID < matched[j].Rule.ID
	})

	winner := matched[0].Rule
	id := winner.ID
	res.Action = winner.Action
	res.ResolvedRuleID = &id
	res.RequiresPin = winner.Action == domainRule.ActionRequirePin ||
		(winner.Conditions.RequirePin && Permits(winner.Action))
	res.SuppressAudibleAlert = mode == domainEmergency.ModeSilentMode
	return res
}

// eligible applies the additive mode layering: ordinary rules always
// participate; mode-layer rules participate only when the live mode matches
// their type, or when the rule is flagged as an emergency rule and a
// restrictive mode (silent_mode / exam_mode) is active.
func eligible(mode domainEmergency.ModeType, r domainRule.AccessRule) bool {
	if _, layered := modeLayerTypes[r.RuleType]; !layered {
		return true
	}
	switch mode {
	case domainEmergency.ModeSilentMode:
		return r.RuleType == domainRule.TypeSilentMode || r.IsEmergencyRule
	case domainEmergency.ModeExamMode:
		return r.RuleType == domainRule.TypeExamMode || r.IsEmergencyRule
	default:
		// Mode-layer rules stay dormant during normal operation.
		return false
	}
}

// Permits reports whether an action ultimately lets the subject through the
// door. require_pin only permits after the second factor succeeds.
func Permits(a domainRule.Action) bool {
	switch a {
	case domainRule.ActionAllow, domainRule.ActionAlert, domainRule.ActionSilentLog, domainRule.ActionNotifyAdmin:
		return true
	default:
		return false
	}
}
