package scheduling

import "github.com/shopspring/decimal"

// ScenarioHeadcount applies a scenario's reduction policy to a per-shift
// headcount. This is the single place reduction math lives; it runs once per
// (job type, shift type, weekday/weekend) combination during generation.
//
// A reduction of 0 means the job type is included in the scenario but
// unaffected, so the original headcount passes through untouched (including
// zero). Any positive reduction rounds the remainder up and floors the
// result at one: a job type explicitly hit by the strike never drops below
// minimum safe staffing.
func ScenarioHeadcount(original, reductionPercent int) int {
	if original < 0 {
		original = 0
	}
	if reductionPercent <= 0 {
		return original
	}
	if reductionPercent >= 100 {
		return 1
	}

	remaining := decimal.NewFromInt(100 - int64(reductionPercent)).Div(decimal.NewFromInt(100))
	reduced := decimal.NewFromInt(int64(original)).Mul(remaining).Ceil().IntPart()
	if reduced < 1 {
		return 1
	}
	return int(reduced)
}
