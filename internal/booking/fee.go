package booking

import "vizit/internal/model"

// Quote derives the total price from the per-session base fee and a unit
// count. The unit count is the selected-slot count everywhere: unlike the
// requested session count it is well-defined before the selection is full,
// and the two are equal once the selection is submittable.
func Quote(baseFee int64, unitCount int) model.FeeQuote {
	if unitCount < 0 {
		unitCount = 0
	}
	return model.FeeQuote{
		BaseFee:   baseFee,
		UnitCount: unitCount,
		TotalFee:  baseFee * int64(unitCount),
	}
}
