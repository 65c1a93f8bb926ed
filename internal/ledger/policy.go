package ledger

import "sync"

// AnyState matches every from-state in a policy rule.
const AnyState = "*"

// PolicyRule declares whether one (process, from, to) transition may be reverted.
// From is empty for the creation entry.
type PolicyRule struct {
	Process    ProcessType
	From       string
	To         string
	Reversible bool
}

type policyKey struct {
	process  ProcessType
	from, to string
}

// Policy is the declared reversibility table. Pairs with no rule are irreversible.
type Policy struct {
	mu    sync.RWMutex
	rules map[policyKey]bool
}

func NewPolicy(rules ...PolicyRule) *Policy {
	p := &Policy{rules: make(map[policyKey]bool, len(rules))}
	for _, r := range rules {
		p.Set(r)
	}
	return p
}

func (p *Policy) Set(r PolicyRule) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rules[policyKey{process: r.Process, from: r.From, to: r.To}] = r.Reversible
}

// Reversible looks up the exact from-state first, then the wildcard.
func (p *Policy) Reversible(process ProcessType, from *string, to string) bool {
	f := ""
	if from != nil {
		f = *from
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.rules[policyKey{process: process, from: f, to: to}]; ok {
		return v
	}
	if v, ok := p.rules[policyKey{process: process, from: AnyState, to: to}]; ok {
		return v
	}
	return false
}

// DefaultPolicy is the fleet reversibility table.
func DefaultPolicy() *Policy {
	return NewPolicy(
		PolicyRule{Process: ProcessRelease, From: "", To: "INITIATED", Reversible: true},
		PolicyRule{Process: ProcessRelease, From: "INITIATED", To: "APPROVED", Reversible: true},
		PolicyRule{Process: ProcessRelease, From: "APPROVED", To: "EXECUTING", Reversible: false},
		PolicyRule{Process: ProcessRelease, From: "EXECUTING", To: "COMPLETED", Reversible: false},
		PolicyRule{Process: ProcessRelease, From: AnyState, To: "CANCELLED", Reversible: false},
		PolicyRule{Process: ProcessRelease, From: "APPROVED", To: "INITIATED", Reversible: false},

		PolicyRule{Process: ProcessRiderCar, From: "releasing", To: "on_rent", Reversible: true},

		PolicyRule{Process: ProcessAmendment, From: "", To: "Draft", Reversible: true},
		PolicyRule{Process: ProcessAmendment, From: "Draft", To: "Pending", Reversible: true},
		PolicyRule{Process: ProcessAmendment, From: "Pending", To: "Approved", Reversible: true},
		PolicyRule{Process: ProcessAmendment, From: "Pending", To: "Draft", Reversible: false},
		PolicyRule{Process: ProcessAmendment, From: "Approved", To: "Active", Reversible: false},
		PolicyRule{Process: ProcessAmendment, From: "Active", To: "Superseded", Reversible: false},

		PolicyRule{Process: ProcessTriage, From: "", To: "open", Reversible: true},
		PolicyRule{Process: ProcessTriage, From: "open", To: "resolved", Reversible: true},
	)
}
