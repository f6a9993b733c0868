/*
allocate.go - Expense/refund allocation and the auto-detect dispatcher

PURPOSE:
  Produces the pairwise ledger entries for one transaction. The expense path
  handles money leaving the household (negative amounts); the refund path
  handles money coming back (positive amounts) with payer/payee reversed;
  the dispatcher picks the path by sign.

CONTROL FLOW (both paths):
  1. Exclusion checks: pending, transfer, personal, wrong sign -> empty
  2. Policy selection: category override replaces the top-level policy
  3. Weight resolution (weights.go)
  4. Per-member share = RoundToCent(total * weight)
  5. Residual (total - allocated shares) goes entirely to the payer, so
     members never see sub-cent amounts
  6. One entry per non-payer member with a strictly positive share

RESIDUAL:
  With N members rounded independently, the shares can miss the total by up
  to N/2 cents in either direction. The payer absorbs that slack; the payer
  is also the only member who never receives an entry, so the adjustment is
  invisible in the output except through conservation.

DETERMINISM:
  Entries are emitted in the caller-supplied member order. The persistence
  layer recomputes splits with delete-and-reinsert semantics after policy
  changes, so identical inputs must produce identical output, order included.
*/
package split

import "math"

// ComputeSplits allocates an expense (strictly negative amount) across the
// household. Pending, transfer, and personal transactions, and amounts >= 0,
// yield an empty result with no error.
func ComputeSplits(tx Transaction, payerID MemberID, members []Member, policy Policy) ([]Entry, error) {
	if tx.Pending || tx.Transfer || tx.Personal {
		return nil, nil
	}
	if tx.Amount >= 0 {
		return nil, nil
	}

	effective := policy.effective(tx.Category)
	total := math.Abs(tx.Amount)

	shares, err := allocateShares(total, payerID, members, effective)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(members))
	rationale := effective.Rationale()
	for _, m := range members {
		if m.ID == payerID {
			continue // the payer never owes themselves
		}
		owed := shares[m.ID]
		if owed > 0 {
			entries = append(entries, Entry{
				Payer:     payerID,
				Payee:     m.ID,
				Amount:    RoundToCent(owed),
				Rationale: rationale,
			})
		}
	}
	return entries, nil
}

// ComputeRefundSplits allocates a refund (strictly positive amount) across
// the household. Shares are computed exactly as for an expense, but entry
// direction reverses: each non-payer member returns their prior share, so
// they become the payer of the entry and the refunded member the payee.
func ComputeRefundSplits(tx Transaction, payerID MemberID, members []Member, policy Policy) ([]Entry, error) {
	if tx.Amount <= 0 {
		return nil, nil
	}
	if tx.Pending || tx.Transfer || tx.Personal {
		return nil, nil
	}

	effective := policy.effective(tx.Category)

	shares, err := allocateShares(tx.Amount, payerID, members, effective)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(members))
	rationale := "Refund: " + effective.Rationale()
	for _, m := range members {
		if m.ID == payerID {
			continue
		}
		refund := shares[m.ID]
		if refund > 0 {
			entries = append(entries, Entry{
				Payer:     m.ID,
				Payee:     payerID,
				Amount:    RoundToCent(refund),
				Rationale: rationale,
			})
		}
	}
	return entries, nil
}

// ComputeTransactionSplits is the entry point external collaborators call:
// it dispatches by transaction sign. Negative amounts are expenses, positive
// amounts refunds, zero a no-op.
func ComputeTransactionSplits(tx Transaction, payerID MemberID, members []Member, policy Policy) ([]Entry, error) {
	switch {
	case tx.Amount < 0:
		return ComputeSplits(tx, payerID, members, policy)
	case tx.Amount > 0:
		return ComputeRefundSplits(tx, payerID, members, policy)
	default:
		return nil, nil
	}
}

// allocateShares computes each member's cent-rounded share of total and
// assigns the rounding residual to the payer.
func allocateShares(total float64, payerID MemberID, members []Member, policy Policy) (map[MemberID]float64, error) {
	weights, err := resolveWeights(members, policy)
	if err != nil {
		return nil, err
	}

	shares := make(map[MemberID]float64, len(members))
	var allocated float64
	for _, m := range members {
		share := RoundToCent(total * weights[m.ID])
		shares[m.ID] = share
		allocated += share
	}

	if residual := total - allocated; math.Abs(residual) > residualTolerance {
		shares[payerID] += residual
	}
	return shares, nil
}
