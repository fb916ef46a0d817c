package domain

// MilestoneStep is the point interval between gift-triggering thresholds.
const MilestoneStep = 100

// CrossedMilestone returns the highest multiple of MilestoneStep crossed
// when moving from oldTotal to newTotal, or 0 if none was crossed. Negative
// deltas never cross: a drop below a threshold does not un-cross it.
//
// Per-answer deltas are at most +5 so in practice a single update crosses
// at most one threshold, but bulk submissions can jump further, hence the
// floor-division form.
func CrossedMilestone(oldTotal, newTotal int) int {
	if newTotal <= oldTotal {
		return 0
	}
	if newTotal/MilestoneStep > oldTotal/MilestoneStep {
		return (newTotal / MilestoneStep) * MilestoneStep
	}
	return 0
}

// NextMilestone returns the first threshold strictly above total.
func NextMilestone(total int) int {
	return (total/MilestoneStep + 1) * MilestoneStep
}
