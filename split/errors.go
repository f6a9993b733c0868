/*
errors.go - Error types for the split engine

PURPOSE:
  The engine has exactly one failure mode: weight normalization with nothing
  to normalize. Everything else that looks like "nothing to do" (pending,
  transfer, personal, wrong sign, zero shares) is a valid business state and
  yields an empty result, never an error.

USAGE:
  Callers can match the sentinel:

    if errors.Is(err, split.ErrZeroWeightSum) {
        // policy is misconfigured for this household
    }

  or unwrap the structured error for the offending mode:

    var zws *split.ZeroWeightSumError
    if errors.As(err, &zws) { ... }
*/
package split

import (
	"errors"
	"fmt"
)

// ErrZeroWeightSum is returned when weight normalization has nothing to
// normalize: income-weighted with no income data, or custom weights summing
// to zero. The engine never swallows this - it must reach the caller rather
// than silently dividing by zero or returning NaN weights.
var ErrZeroWeightSum = errors.New("cannot normalize weights: sum is zero")

// ZeroWeightSumError carries the policy mode that failed to normalize.
type ZeroWeightSumError struct {
	Mode Mode
}

func (e *ZeroWeightSumError) Error() string {
	return fmt.Sprintf("cannot normalize weights for %q policy: sum is zero", e.Mode)
}

func (e *ZeroWeightSumError) Unwrap() error {
	return ErrZeroWeightSum
}
