package transfer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/payswarm-backend/internal/domain"
	"github.com/simaogato/payswarm-backend/internal/money"
)

// Result is the outcome of resolving a payee list
type Result struct {
	Transfers []domain.Transfer
	Amount    money.Money
}

// Engine resolves payee lists into transfers.
// It holds no per-call state and is safe for concurrent use.
type Engine struct {
	ctx    money.Context
	logger *zap.Logger
}

// NewEngine creates a new Engine computing in the given money context
func NewEngine(ctx money.Context, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{ctx: ctx, logger: logger}
}

var defaultEngine = NewEngine(money.Default, nil)

// CreateTransfers resolves payees with the default money context and writes the
// transfers and total onto tx. See Engine.CreateTransfers.
func CreateTransfers(tx *domain.Transaction, sourceID string, payees []domain.Payee) error {
	return defaultEngine.CreateTransfers(tx, sourceID, payees)
}

// CreateTransfers resolves payees against tx.Currency and, only if every payee
// resolves, sets tx.Transfers and tx.Amount. On error tx is left untouched.
func (e *Engine) CreateTransfers(tx *domain.Transaction, sourceID string, payees []domain.Payee) error {
	if tx == nil {
		return domain.NewError(domain.KindInvalidTransaction, "", "transaction is required")
	}

	result, err := e.Resolve(tx.Currency, sourceID, payees)
	if err != nil {
		return err
	}

	tx.Transfers = result.Transfers
	tx.Amount = result.Amount

	return nil
}

// Resolve computes the transfers for payees without touching any transaction.
// Logic:
//  1. Validate the transaction currency and every payee before any resolution work
//  2. Index payees by group and compute each payee's apply targets and dependencies
//  3. Resolve payees in passes until all are resolved or a pass makes no progress
//  4. Emit one transfer per payee, in input order, and the grand total
func (e *Engine) Resolve(currency, sourceID string, payees []domain.Payee) (*Result, error) {
	if currency == "" {
		return nil, domain.NewError(domain.KindInvalidTransaction, "currency", "transaction currency is required")
	}

	for i := range payees {
		field := fmt.Sprintf("payees[%d]", i)
		if payees[i].Currency != currency {
			return nil, domain.NewError(domain.KindInvalidTransaction, field+".currency",
				fmt.Sprintf("payee %q currency %q does not match transaction currency %q",
					payees[i].Destination, payees[i].Currency, currency))
		}

		if err := payees[i].Validate(field); err != nil {
			return nil, err
		}
	}

	r := newResolver(e.ctx, payees)
	passes, err := r.run()
	if err != nil {
		e.logger.Debug("payee resolution failed",
			zap.Int("payees", len(payees)),
			zap.Int("passes", passes),
			zap.Error(err),
		)
		return nil, err
	}

	total := e.ctx.Zero()
	transfers := make([]domain.Transfer, 0, len(r.nodes))
	for _, n := range r.nodes {
		total = total.Add(n.amount)
		transfers = append(transfers, domain.Transfer{
			Type:        domain.TransferType,
			Source:      sourceID,
			Destination: n.payee.Destination,
			Amount:      n.amount,
			Currency:    n.payee.Currency,
			Comment:     n.payee.Comment,
		})
	}

	e.logger.Debug("payees resolved",
		zap.Int("payees", len(payees)),
		zap.Int("passes", passes),
		zap.String("amount", total.String()),
	)

	return &Result{Transfers: transfers, Amount: total}, nil
}

// stall reasons recorded when a payee cannot resolve yet
const (
	stallNone = iota
	stallWaiting
	stallInsufficientBase
)

// node is the resolution workspace for one cloned payee.
// Payees refer to each other by index into resolver.nodes.
type node struct {
	payee   domain.Payee
	rate    money.Money
	minimum *money.Money
	maximum *money.Money

	flat  bool  // exclusive flat amount with no apply group: contributes its rate once
	apply []int // payees this payee's rate is computed against
	deps  []int // payees that must resolve first

	resolved bool
	amount   money.Money
	original money.Money
	after    map[string]money.Money // lowest amount after each group's payees took effect
	stall    int
}

type resolver struct {
	ctx        money.Context
	hundred    money.Money
	nodes      []*node
	groups     map[string][]int
	groupOrder []string
}

func newResolver(ctx money.Context, payees []domain.Payee) *resolver {
	r := &resolver{
		ctx:     ctx,
		hundred: ctx.FromDecimal(decimal.NewFromInt(100)),
		nodes:   make([]*node, len(payees)),
		groups:  make(map[string][]int),
	}

	for i := range payees {
		p := payees[i].Clone()
		n := &node{
			payee:  p,
			rate:   ctx.FromDecimal(p.Rate),
			amount: ctx.Zero(),
			after:  make(map[string]money.Money),
		}
		if p.MinimumAmount != nil {
			m := ctx.FromDecimal(*p.MinimumAmount)
			n.minimum = &m
		}
		if p.MaximumAmount != nil {
			m := ctx.FromDecimal(*p.MaximumAmount)
			n.maximum = &m
		}
		r.nodes[i] = n

		for _, g := range p.Group {
			members, ok := r.groups[g]
			if !ok {
				r.groupOrder = append(r.groupOrder, g)
			}
			if !containsIndex(members, i) {
				r.groups[g] = append(members, i)
			}
		}
	}

	for i := range r.nodes {
		r.computeDependencies(i)
	}

	return r
}

// expand turns group names into the deduplicated member indices, in first-seen order
func (r *resolver) expand(names []string) []int {
	var out []int
	for _, name := range names {
		for _, idx := range r.groups[name] {
			if !containsIndex(out, idx) {
				out = append(out, idx)
			}
		}
	}
	return out
}

func (r *resolver) computeDependencies(i int) {
	n := r.nodes[i]
	p := n.payee

	if p.RateType == domain.RateTypeFlat && p.ApplyType == domain.ApplyExclusively && len(p.ApplyGroup) == 0 {
		n.flat = true
	} else {
		names := p.ApplyGroup
		if len(names) == 0 {
			names = r.groupOrder
		}

		kept := make([]string, 0, len(names))
		for _, name := range names {
			if !containsString(p.ExemptGroup, name) {
				kept = append(kept, name)
			}
		}

		exempt := r.expand(p.ExemptGroup)
		for _, idx := range r.expand(kept) {
			if idx != i && !containsIndex(exempt, idx) {
				n.apply = append(n.apply, idx)
			}
		}
	}

	n.deps = append(n.deps, n.apply...)
	for _, idx := range r.expand(p.ApplyAfter) {
		if idx != i && !containsIndex(n.deps, idx) {
			n.deps = append(n.deps, idx)
		}
	}
}

// run resolves every node and returns the number of passes it took
func (r *resolver) run() (int, error) {
	remaining := len(r.nodes)
	passes := 0

	for remaining > 0 {
		passes++
		progress := false

		for i, n := range r.nodes {
			if n.resolved {
				continue
			}

			ok, err := r.resolve(i)
			if err != nil {
				return passes, err
			}
			if !ok {
				continue
			}

			n.resolved = true
			n.original = n.amount
			r.recordSnapshots(i)
			remaining--
			progress = true
		}

		if !progress {
			return passes, r.stalled()
		}
	}

	return passes, nil
}

func (r *resolver) resolve(i int) (bool, error) {
	n := r.nodes[i]
	n.stall = stallNone

	if n.payee.ApplyType == domain.ApplyExclusively && n.payee.RateType == domain.RateTypeFlat {
		if n.flat {
			n.amount = n.rate
		} else {
			n.amount = n.rate.MulInt(len(n.apply))
		}
		return true, nil
	}

	for _, d := range n.deps {
		if !r.nodes[d].resolved {
			n.stall = stallWaiting
			return false, nil
		}
	}

	switch {
	case n.payee.RateType == domain.RateTypeFlat:
		return r.resolveInclusiveFlat(i)
	case n.payee.ApplyType == domain.ApplyExclusively:
		return r.resolveExclusivePercentage(i)
	default:
		return r.resolveInclusivePercentage(i)
	}
}

// resolveInclusiveFlat carves the flat rate out of the apply payees pro rata
func (r *resolver) resolveInclusiveFlat(i int) (bool, error) {
	n := r.nodes[i]
	total := r.sum(n.apply)

	if n.rate.GreaterThan(total) {
		n.stall = stallInsufficientBase
		return false, nil
	}

	amount := r.ctx.Zero()
	switch {
	case len(n.apply) == 1:
		// a single target takes the whole rate, avoiding multiplier rounding
		t := r.nodes[n.apply[0]]
		next := t.amount.Sub(n.rate)
		if err := r.checkReduced(i, n.apply[0], next); err != nil {
			return false, err
		}
		t.amount = next
		amount = n.rate
	case !n.rate.IsZero():
		multiplier, err := n.rate.Div(total)
		if err != nil {
			return false, err
		}
		for _, idx := range n.apply {
			t := r.nodes[idx]
			share := t.amount.Mul(multiplier)
			next := t.amount.Sub(share)
			if err := r.checkReduced(i, idx, next); err != nil {
				return false, err
			}
			t.amount = next
			amount = amount.Add(share)
		}
	}

	n.amount = amount
	return true, nil
}

func (r *resolver) resolveExclusivePercentage(i int) (bool, error) {
	n := r.nodes[i]

	pct, err := n.rate.Div(r.hundred)
	if err != nil {
		return false, err
	}

	n.amount = r.clamp(n, r.sum(n.apply).Mul(pct))
	return true, nil
}

// resolveInclusivePercentage carves a percentage of each apply payee's base out of it.
// The base is the lowest amount the payee had after any group this payee applies after,
// or its amount when it resolved.
func (r *resolver) resolveInclusivePercentage(i int) (bool, error) {
	n := r.nodes[i]

	pct, err := n.rate.Div(r.hundred)
	if err != nil {
		return false, err
	}

	total := r.ctx.Zero()
	for _, idx := range n.apply {
		t := r.nodes[idx]
		portion := r.inclusiveBase(n, t).Mul(pct)
		next := t.amount.Sub(portion)
		if err := r.checkReduced(i, idx, next); err != nil {
			return false, err
		}
		t.amount = next
		total = total.Add(portion)
	}

	clamped := r.clamp(n, total)
	if !clamped.Equal(total) {
		if len(n.apply) == 0 {
			return false, domain.NewError(domain.KindInvalidPayee, r.field(i)+".minimumAmount",
				fmt.Sprintf("payee %q has no payees to take its minimum amount from", n.payee.Destination))
		}

		// hand the clamp difference back to the apply payees evenly; the last takes the remainder
		delta := total.Sub(clamped)
		share, err := delta.DivInt(len(n.apply))
		if err != nil {
			return false, err
		}

		given := r.ctx.Zero()
		for k, idx := range n.apply {
			portion := share
			if k == len(n.apply)-1 {
				portion = delta.Sub(given)
			}

			t := r.nodes[idx]
			next := t.amount.Add(portion)
			if next.IsNegative() {
				return false, domain.NewError(domain.KindInvalidPayee, r.field(i),
					fmt.Sprintf("payee %q minimum amount would make payee %q negative",
						n.payee.Destination, t.payee.Destination))
			}
			t.amount = next
			given = given.Add(portion)
		}
		total = clamped
	}

	n.amount = total
	return true, nil
}

func (r *resolver) inclusiveBase(n, t *node) money.Money {
	base := t.original
	found := false

	for _, g := range n.payee.ApplyAfter {
		snapshot, ok := t.after[g]
		if !ok {
			continue
		}
		if !found || snapshot.LessThan(base) {
			base = snapshot
			found = true
		}
	}

	return base
}

// recordSnapshots stores, per group of the resolved payee, what its apply payees were left with
func (r *resolver) recordSnapshots(i int) {
	n := r.nodes[i]

	for _, g := range n.payee.Group {
		for _, idx := range n.apply {
			t := r.nodes[idx]
			if existing, ok := t.after[g]; !ok || t.amount.LessThan(existing) {
				t.after[g] = t.amount
			}
		}
	}
}

func (r *resolver) checkReduced(by, target int, next money.Money) error {
	n := r.nodes[by]
	t := r.nodes[target]

	if next.IsNegative() {
		return domain.NewError(domain.KindInvalidPayee, r.field(by),
			fmt.Sprintf("payee %q would make payee %q negative", n.payee.Destination, t.payee.Destination))
	}

	if t.minimum != nil && next.LessThan(*t.minimum) {
		return domain.NewError(domain.KindInvalidPayee, r.field(by),
			fmt.Sprintf("payee %q would take payee %q below its minimum amount %s",
				n.payee.Destination, t.payee.Destination, t.minimum))
	}

	return nil
}

func (r *resolver) clamp(n *node, amount money.Money) money.Money {
	if n.minimum != nil && amount.LessThan(*n.minimum) {
		return *n.minimum
	}
	if n.maximum != nil && amount.GreaterThan(*n.maximum) {
		return *n.maximum
	}
	return amount
}

func (r *resolver) sum(indices []int) money.Money {
	total := r.ctx.Zero()
	for _, idx := range indices {
		total = total.Add(r.nodes[idx].amount)
	}
	return total
}

// stalled reports why no payee could make progress
func (r *resolver) stalled() error {
	var unresolved []string

	for i, n := range r.nodes {
		if n.resolved {
			continue
		}
		if n.stall == stallInsufficientBase {
			return domain.NewError(domain.KindInvalidPayee, r.field(i)+".payeeRate",
				fmt.Sprintf("payee %q rate %s exceeds the amount of the payees it applies to",
					n.payee.Destination, n.rate))
		}
		unresolved = append(unresolved, fmt.Sprintf("%q", n.payee.Destination))
	}

	return domain.NewError(domain.KindInvalidPayeeDependency, "payees",
		"payee dependencies cannot be resolved: "+strings.Join(unresolved, ", "))
}

func (r *resolver) field(i int) string {
	return fmt.Sprintf("payees[%d]", i)
}

func containsIndex(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
