/*
rounding.go - Deterministic monetary rounding

PURPOSE:
  Converts real-valued weighted shares into currency-minor-unit-aligned
  values. Uses round-half-to-even (banker's rounding) at cent scale: plain
  round-half-up introduces a systematic upward bias across many transactions,
  and a household splits hundreds of them per month.

HALFWAY DETECTION:
  "Exactly halfway" cannot be tested with == on float64: 50.015*100 is
  5001.4999999999995, not 5001.5, because repeated multiplication/division
  by 100 drifts. The halfway check therefore uses a small tolerance sized
  well above that round-trip error and well below any meaningful sub-cent
  quantity.

  Rounding happens at cent scale only. Raw-value halfway cases like 1.5 are
  cent values (150 cents), not halfway points, so RoundToCent(1.5) == 1.5.

SEE ALSO:
  - allocate.go: Uses RoundToCent for shares and residual handling
*/
package split

import "math"

const (
	// halfwayEpsilon absorbs float64 round-trip error when detecting a
	// share that lands exactly between two cents. Scaling by 100 and back
	// perturbs values by ~1e-13 at typical magnitudes; 1e-9 is comfortably
	// above that and far below the 0.005 gap between cent midpoints.
	halfwayEpsilon = 1e-9

	// residualTolerance is the threshold below which a rounding residual is
	// treated as float noise rather than a real sub-cent remainder. A
	// genuine residual is at least half a cent; 0.001 sits well under that.
	residualTolerance = 0.001
)

// RoundToCent rounds value to two decimal places using round-half-to-even.
// Ordinary values round to the nearest cent; values exactly halfway between
// two cents round toward the even cent. Total over all real input.
func RoundToCent(value float64) float64 {
	scaled := value * 100
	rounded := math.Round(scaled)

	// math.Round rounds halfway cases away from zero; pull back to the
	// even cent when the scaled value sits on a midpoint.
	if math.Abs(math.Abs(scaled-rounded)-0.5) < halfwayEpsilon {
		if math.Mod(math.Abs(rounded), 2) == 1 {
			if rounded > scaled {
				rounded--
			} else {
				rounded++
			}
		}
	}

	return rounded / 100
}
