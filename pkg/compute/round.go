package compute

import "strconv"

// round rounds v to the given number of decimal places. The exact binary
// value of v is rounded, so 45.15 (stored as 45.149999...) becomes 45.1 and
// only true ties such as 0.25 resolve to the even neighbour.
func round(v float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}
