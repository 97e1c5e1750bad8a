package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RateType represents how a payee rate is interpreted
type RateType string

const (
	RateTypeFlat       RateType = "FlatAmount"
	RateTypePercentage RateType = "Percentage"
)

// ApplyType represents whether a payee adds to the total or is carved out of other payees
type ApplyType string

const (
	ApplyExclusively ApplyType = "ApplyExclusively"
	ApplyInclusively ApplyType = "ApplyInclusively"
)

// Reserved group prefixes. Only the operating authority's own fee payees may use them.
var reservedGroupPrefixes = []string{"authority", "payswarm"}

// Payee describes how a portion of a transaction amount is routed to a destination
type Payee struct {
	Destination   string           `json:"destination" yaml:"destination"`
	Currency      string           `json:"currency" yaml:"currency"`
	RateType      RateType         `json:"payeeRateType" yaml:"payeeRateType"`
	ApplyType     ApplyType        `json:"payeeApplyType" yaml:"payeeApplyType"`
	Rate          decimal.Decimal  `json:"payeeRate" yaml:"payeeRate"`
	Group         []string         `json:"payeeGroup" yaml:"payeeGroup"`
	ApplyGroup    []string         `json:"payeeApplyGroup,omitempty" yaml:"payeeApplyGroup,omitempty"`
	ExemptGroup   []string         `json:"payeeExemptGroup,omitempty" yaml:"payeeExemptGroup,omitempty"`
	ApplyAfter    []string         `json:"payeeApplyAfter,omitempty" yaml:"payeeApplyAfter,omitempty"`
	MinimumAmount *decimal.Decimal `json:"minimumAmount,omitempty" yaml:"minimumAmount,omitempty"`
	MaximumAmount *decimal.Decimal `json:"maximumAmount,omitempty" yaml:"maximumAmount,omitempty"`
	Comment       string           `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// Clone returns a deep copy of the payee
func (p Payee) Clone() Payee {
	c := p
	c.Group = cloneStrings(p.Group)
	c.ApplyGroup = cloneStrings(p.ApplyGroup)
	c.ExemptGroup = cloneStrings(p.ExemptGroup)
	c.ApplyAfter = cloneStrings(p.ApplyAfter)

	if p.MinimumAmount != nil {
		v := *p.MinimumAmount
		c.MinimumAmount = &v
	}

	if p.MaximumAmount != nil {
		v := *p.MaximumAmount
		c.MaximumAmount = &v
	}

	return c
}

// InGroup reports whether the payee declares membership of group
func (p *Payee) InGroup(group string) bool {
	for _, g := range p.Group {
		if g == group {
			return true
		}
	}
	return false
}

// Validate checks the payee's own attributes; field prefixes the error location
func (p *Payee) Validate(field string) error {
	if p.RateType != RateTypeFlat && p.RateType != RateTypePercentage {
		return NewError(KindInvalidPayee, field+".payeeRateType",
			fmt.Sprintf("payee rate type must be %s or %s", RateTypeFlat, RateTypePercentage))
	}

	if p.ApplyType != ApplyExclusively && p.ApplyType != ApplyInclusively {
		return NewError(KindInvalidPayee, field+".payeeApplyType",
			fmt.Sprintf("payee apply type must be %s or %s", ApplyExclusively, ApplyInclusively))
	}

	if p.Rate.IsNegative() {
		return NewError(KindInvalidPayee, field+".payeeRate", "payee rate must not be negative")
	}

	if len(p.Group) == 0 {
		return NewError(KindInvalidPayee, field+".payeeGroup", "payee must belong to at least one group")
	}

	if p.MinimumAmount != nil && p.MinimumAmount.IsNegative() {
		return NewError(KindInvalidPayee, field+".minimumAmount", "minimum amount must not be negative")
	}

	if p.MaximumAmount != nil && p.MaximumAmount.IsNegative() {
		return NewError(KindInvalidPayee, field+".maximumAmount", "maximum amount must not be negative")
	}

	if p.MinimumAmount != nil && p.MaximumAmount != nil && p.MinimumAmount.GreaterThan(*p.MaximumAmount) {
		return NewError(KindInvalidPayee, field+".minimumAmount", "minimum amount must not exceed maximum amount")
	}

	return nil
}

// CheckPayeeGroups rejects externally supplied payees that claim a reserved group
func CheckPayeeGroups(payees []Payee) error {
	for i := range payees {
		for _, group := range payees[i].Group {
			for _, prefix := range reservedGroupPrefixes {
				if strings.HasPrefix(group, prefix) {
					return NewError(KindInvalidPayeeGroup, fieldIndex("payees", i)+".payeeGroup",
						fmt.Sprintf("payee %q uses reserved group %q", payees[i].Destination, group))
				}
			}
		}
	}

	return nil
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func fieldIndex(name string, i int) string {
	return fmt.Sprintf("%s[%d]", name, i)
}
