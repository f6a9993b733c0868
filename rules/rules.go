/*
Package rules provides vendor-based transaction categorization.

PURPOSE:
  Bank feeds deliver raw vendor strings ("SQ *BLUE BOTTLE COFF",
  "AMZN Mktp US*2K4"). Rules map those strings onto household categories
  and personal flags so the split engine picks the right policy without
  anyone re-tagging every transaction by hand.

KEY CONCEPTS:
  Matching: rules match the vendor with SQL ILIKE semantics. '%' matches
  any run of characters, '_' matches exactly one, and the comparison is
  case-insensitive. "%coffee%" matches "Blue Bottle Coffee Oakland".

  Priority: rules are evaluated from highest priority to lowest and the
  first match wins. A narrow high-priority rule ("%blue bottle%") beats
  a broad catch-all ("%coffee%").

  Effects: a matching rule can set the transaction's category, mark it
  personal, or both. Personal transactions are skipped by the split
  engine entirely.

EXAMPLE:
  r := rules.Rule{
      MatchVendorILike: "%whole foods%",
      CategoryID:       "groceries",
      Priority:         10,
      Active:           true,
  }
  if effect := rules.Evaluate(ruleset, tx.Vendor); effect != nil {
      tx.Category = effect.CategoryID
  }

SEE ALSO:
  - household/types.go: the Transaction fields rules mutate
  - api/handlers.go: the bulk re-apply endpoint
*/
package rules

import (
	"regexp"
	"sort"
	"strings"

	"github.com/evenly/split-engine/split"
)

// =============================================================================
// RULE TYPE
// =============================================================================

// Rule maps vendor strings to a category and/or personal flag.
type Rule struct {
	ID               string
	HouseholdID      string
	MatchVendorILike string
	CategoryID       split.CategoryID
	MarkAsPersonal   *bool
	Priority         int
	Active           bool
}

// Matches reports whether the rule's pattern matches the vendor.
func (r Rule) Matches(vendor string) bool {
	return ilikeMatch(r.MatchVendorILike, vendor)
}

// =============================================================================
// ILIKE MATCHING
// =============================================================================

// ilikeMatch implements SQL ILIKE: '%' is any run, '_' is one character,
// everything else is literal, case-insensitively, anchored at both ends.
func ilikeMatch(pattern, value string) bool {
	var re strings.Builder
	re.WriteString("(?is)^")
	for _, ch := range pattern {
		switch ch {
		case '%':
			re.WriteString(".*")
		case '_':
			re.WriteString(".")
		default:
			re.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}
	re.WriteString("$")

	matched, err := regexp.MatchString(re.String(), value)
	if err != nil {
		return false
	}
	return matched
}

// =============================================================================
// EVALUATION
// =============================================================================

// Match returns the highest-priority active rule matching the vendor, or
// nil when nothing matches. Ties on priority break by rule ID so repeated
// evaluation is deterministic.
func Match(ruleset []Rule, vendor string) *Rule {
	ordered := make([]Rule, len(ruleset))
	copy(ordered, ruleset)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})

	for i := range ordered {
		if !ordered[i].Active {
			continue
		}
		if ordered[i].Matches(vendor) {
			r := ordered[i]
			return &r
		}
	}
	return nil
}

// Effect is what applying a ruleset to one vendor decided.
type Effect struct {
	RuleID     string
	CategoryID split.CategoryID
	Personal   *bool
}

// Evaluate runs the ruleset against a vendor and reports the effect of the
// winning rule, or nil when no rule matched.
func Evaluate(ruleset []Rule, vendor string) *Effect {
	r := Match(ruleset, vendor)
	if r == nil {
		return nil
	}
	return &Effect{RuleID: r.ID, CategoryID: r.CategoryID, Personal: r.MarkAsPersonal}
}
