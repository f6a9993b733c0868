/*
Package split is the core expense-split computation engine.

PURPOSE:
  This package contains the pure, stateless functions that decide, for every
  bank transaction, how much each household member owes or is owed. It has no
  I/O, no persistence, and no knowledge of HTTP or the aggregator - callers
  build in-memory snapshots and consume the returned ledger entries.

KEY CONCEPTS IN THIS FILE (types.go):
  - Member: A household member with optional income and manual weight
  - Policy: The rule deciding each member's fraction (even/income/custom)
  - Transaction: An immutable snapshot of one bank transaction
  - Entry: One pairwise "payee owes payer amount X" ledger record

DESIGN PRINCIPLES:
  1. Purity: Every function is deterministic over its inputs; identical
     inputs always produce identical entries in identical order
  2. Immutability: Inputs are never mutated; results are fresh slices
  3. Conservation: Rounded member shares plus the payer residual always
     reconstruct the transaction amount exactly to the cent
  4. Type Safety: Strong typing for IDs prevents mixing member/category IDs

USAGE:
  entries, err := split.ComputeTransactionSplits(tx, "alice", members, policy)
  if err != nil {
      // ErrZeroWeightSum: the policy had nothing to normalize
  }

SEE ALSO:
  - rounding.go: Banker's rounding at cent precision
  - weights.go: Weight resolution and normalization
  - allocate.go: Expense/refund allocation and the dispatcher
*/
package split

// =============================================================================
// IDENTIFIERS
// =============================================================================

type MemberID string
type CategoryID string
type TransactionID string

// =============================================================================
// MEMBER - Household member snapshot
// =============================================================================

// Member is one household member as the engine sees them. The engine never
// mutates members; it only reads income and weight to resolve shares.
type Member struct {
	ID MemberID

	// MonthlyIncome is used by ModeIncomeWeighted. Zero means unknown and
	// contributes nothing to the weight sum.
	MonthlyIncome float64

	// Weight is a manual override used by the fallback resolution path.
	// Zero means unset and defaults to 1.
	Weight float64
}

// =============================================================================
// POLICY - Split rule (tagged variant)
// =============================================================================

// Mode selects how member weights are derived.
type Mode string

const (
	// ModeEven gives every member the same weight.
	ModeEven Mode = "even"

	// ModeIncomeWeighted derives weights from each member's monthly income.
	ModeIncomeWeighted Mode = "income_weighted"

	// ModeCustom uses the explicit weight mapping carried by the policy.
	ModeCustom Mode = "custom"
)

// Policy is the rule determining what fraction of a transaction each member
// owes. A policy may carry per-category overrides that fully replace it when
// the transaction's category matches; overrides are not searched recursively
// beyond one level.
type Policy struct {
	Mode Mode

	// Weights is the explicit mapping for ModeCustom. Members absent from
	// the mapping receive weight 0 and owe nothing.
	Weights map[MemberID]float64

	// OverridesByCategory replaces this policy wholesale when the
	// transaction's category matches a key exactly.
	OverridesByCategory map[CategoryID]Policy
}

// effective returns the policy to use for a transaction: the category
// override if one is registered for the transaction's category, otherwise
// the policy itself.
func (p Policy) effective(category CategoryID) Policy {
	if category == "" {
		return p
	}
	if override, ok := p.OverridesByCategory[category]; ok {
		return override
	}
	return p
}

// Rationale returns the human-readable explanation attached to entries
// produced under this policy.
func (p Policy) Rationale() string {
	switch p.Mode {
	case ModeEven:
		return "Even split"
	case ModeIncomeWeighted:
		return "Income-weighted split"
	case ModeCustom:
		return "Custom split"
	default:
		return "Split"
	}
}

// =============================================================================
// TRANSACTION - Immutable input snapshot
// =============================================================================

// Transaction is a snapshot of one bank transaction. Amount is signed:
// negative means money leaving the household (an expense), positive means
// money returning (a refund), zero is a no-op.
type Transaction struct {
	ID       TransactionID
	Amount   float64
	Category CategoryID

	// Exclusion flags. Any of these makes the transaction unsplittable,
	// which is a valid business state, not an error.
	Pending  bool // not yet settled by the aggregator
	Transfer bool // internal money movement, not a shared expense
	Personal bool // explicitly excluded from sharing
}

// =============================================================================
// ENTRY - Pairwise ledger record
// =============================================================================

// Entry is one "Payee owes Payer Amount" record produced by a single
// transaction's split.
//
// INVARIANTS:
//   - Payer != Payee always
//   - Amount > 0 always (zero-amount entries are suppressed, never emitted)
type Entry struct {
	Payer     MemberID // who is owed
	Payee     MemberID // who owes
	Amount    float64  // positive, cent-aligned
	Rationale string   // names the policy that produced the entry
}
