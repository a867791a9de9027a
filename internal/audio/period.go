package audio

// TargetPeriod picks the engine period for a stream. An explicit period
// is used verbatim without clamping. Otherwise the smallest advertised
// period is chosen, unless it is no better than the default, in which
// case ok is false and nothing needs to change.
func TargetPeriod(explicit uint32, rng PeriodRange) (period uint32, ok bool) {
	if explicit != 0 {
		return explicit, true
	}
	if rng.Min >= rng.Default {
		return 0, false
	}
	return rng.Min, true
}
