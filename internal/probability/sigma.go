package probability

// sigmaTable is the fixed lookup table of per-lead-day standard deviation
// (degrees F) used when a forecast carries no explicit sigma.
var sigmaTable = map[int]float64{
	0: 1.5,
	1: 2.5,
	2: 3.5,
	3: 4.0,
	4: 4.5,
	5: 5.0,
	6: 5.5,
	7: 6.0,
}

const defaultSigma = 7.0

// Sigma returns the base standard deviation for a forecast leadDays out.
// Lead days beyond the table fall back to defaultSigma.
func Sigma(leadDays int) float64 {
	if leadDays < 0 {
		leadDays = 0
	}
	if s, ok := sigmaTable[leadDays]; ok {
		return s
	}
	return defaultSigma
}
