package rules

// BadQuality is the segmentation classification that counts against the
// record quality threshold.
const BadQuality = "bad"

// badQualityLimit is the fraction of bad recordings an examination may carry
// and still qualify for automatic acceptance.
const badQualityLimit = 0.1

// AcceptableQuality reports whether the recording set is good enough for
// automatic acceptance: strictly fewer than 10% classified bad.
//
// An empty set fails closed: zero considered records means the submission is
// incomplete, not that its quality was verified.
func AcceptableQuality(qualities []string) bool {
	if len(qualities) == 0 {
		return false
	}
	bad := 0
	for _, q := range qualities {
		if q == BadQuality {
			bad++
		}
	}
	return float64(bad)/float64(len(qualities)) < badQualityLimit
}
