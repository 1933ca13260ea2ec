package usecase

// Decide reports whether a craving probability should trigger a
// notification. Strictly greater than: a probability exactly equal to the
// threshold does not trigger.
//
// The classification label (0.5 cutoff, stored on the analysis) and the
// notification trigger (0.7 cutoff) are separate policies configured
// independently. A window can be labeled positive without notifying.
func Decide(probability, threshold float64) bool {
	return probability > threshold
}
