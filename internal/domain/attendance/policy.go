package attendance

// DerivationPolicy carries the tenant's working-time rules used when an
// attendance day is recomputed.
type DerivationPolicy struct {
	// BreakThresholdHours is the span above which the unpaid break applies.
	BreakThresholdHours float64
	// BreakDeductionHours is the unpaid break subtracted from long days.
	BreakDeductionHours float64
	// StandardDailyHours is the threshold beyond which time counts as overtime.
	StandardDailyHours float64
}

// DefaultPolicy mirrors the configuration defaults: a one-hour unpaid break
// on spans over five hours and an eight-hour standard workday.
func DefaultPolicy() DerivationPolicy {
	return DerivationPolicy{
		BreakThresholdHours: 5.0,
		BreakDeductionHours: 1.0,
		StandardDailyHours:  8.0,
	}
}
