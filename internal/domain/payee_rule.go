package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PayeeLimitationNoAdditionalPayees rejects every payee a rule is checked against
const PayeeLimitationNoAdditionalPayees = "NoAdditionalPayeesLimitation"

// PayeeRule is a policy constraint over payee attributes.
// A nil field means the clause does not restrict anything, while an empty
// list allows nothing. The list fields encode as JSON null and [] respectively.
type PayeeRule struct {
	PayeeLimitation  string           `json:"payeeLimitation,omitempty" yaml:"payeeLimitation,omitempty"`
	Destination      []string         `json:"destination" yaml:"destination,omitempty"`
	PayeeRateType    []RateType       `json:"payeeRateType" yaml:"payeeRateType,omitempty"`
	PayeeGroup       []string         `json:"payeeGroup" yaml:"payeeGroup,omitempty"`
	PayeeGroupPrefix []string         `json:"payeeGroupPrefix" yaml:"payeeGroupPrefix,omitempty"`
	PayeeApplyAfter  []string         `json:"payeeApplyAfter" yaml:"payeeApplyAfter,omitempty"`
	MaximumPayeeRate *decimal.Decimal `json:"maximumPayeeRate,omitempty" yaml:"maximumPayeeRate,omitempty"`
	MinimumPayeeRate *decimal.Decimal `json:"minimumPayeeRate,omitempty" yaml:"minimumPayeeRate,omitempty"`
}

// CheckPayeeRule reports whether payee satisfies every clause present on rule
func CheckPayeeRule(rule PayeeRule, payee Payee) bool {
	if rule.PayeeLimitation == PayeeLimitationNoAdditionalPayees {
		return false
	}

	if rule.Destination != nil && !containsString(rule.Destination, payee.Destination) {
		return false
	}

	if rule.PayeeRateType != nil && !containsRateType(rule.PayeeRateType, payee.RateType) {
		return false
	}

	if rule.PayeeGroup != nil && !sameGroups(rule.PayeeGroup, payee.Group) {
		return false
	}

	if rule.PayeeGroupPrefix != nil {
		for _, group := range payee.Group {
			if !hasAnyPrefix(group, rule.PayeeGroupPrefix) {
				return false
			}
		}
	}

	if rule.PayeeApplyAfter != nil {
		for _, group := range rule.PayeeApplyAfter {
			if !containsString(payee.ApplyAfter, group) {
				return false
			}
		}
	}

	// rate bounds are compared exactly, not at money scale
	if rule.MaximumPayeeRate != nil && payee.Rate.GreaterThan(*rule.MaximumPayeeRate) {
		return false
	}

	if rule.MinimumPayeeRate != nil && payee.Rate.LessThan(*rule.MinimumPayeeRate) {
		return false
	}

	return true
}

// MatchesAnyPayeeRule reports whether at least one rule accepts the payee.
// An empty rule set accepts everything.
func MatchesAnyPayeeRule(rules []PayeeRule, payee Payee) bool {
	if len(rules) == 0 {
		return true
	}

	for _, rule := range rules {
		if CheckPayeeRule(rule, payee) {
			return true
		}
	}

	return false
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func containsRateType(set []RateType, t RateType) bool {
	for _, v := range set {
		if v == t {
			return true
		}
	}
	return false
}

// sameGroups compares two group lists as sets of equal size
func sameGroups(want, got []string) bool {
	if len(want) != len(got) {
		return false
	}

	for _, g := range got {
		if !containsString(want, g) {
			return false
		}
	}

	for _, w := range want {
		if !containsString(got, w) {
			return false
		}
	}

	return true
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
