package session

// DefaultMutationLimit caps the number of structure-altering operations
// (node expansion, network regeneration) per search session.
const DefaultMutationLimit = 15

// BudgetGate counts successful structural mutations against a fixed limit.
// Failed attempts never consume budget; only a settled, successful operation
// calls Consume. The gate resets when a new top-level search starts.
type BudgetGate struct {
	used  int
	limit int
}

// NewBudgetGate creates a gate with the given limit.
func NewBudgetGate(limit int) *BudgetGate {
	return &BudgetGate{limit: limit}
}

// Check returns a BudgetExceededError when the budget is spent. It must be
// consulted before any collaborator call is issued.
func (g *BudgetGate) Check() error {
	if g.used >= g.limit {
		return &BudgetExceededError{Limit: g.limit}
	}
	return nil
}

// Consume records one successful structural mutation.
func (g *BudgetGate) Consume() {
	g.used++
}

// Reset clears the counter.
func (g *BudgetGate) Reset() {
	g.used = 0
}

// Used returns how much budget has been consumed.
func (g *BudgetGate) Used() int { return g.used }

// Limit returns the configured ceiling.
func (g *BudgetGate) Limit() int { return g.limit }
