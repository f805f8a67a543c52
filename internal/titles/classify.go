package titles

import "math"

// NoSize is the height assigned to tokens without a usable font size. It is
// below every valid threshold.
const NoSize = 0.0

// Transition is the classifier's verdict for one token.
type Transition int

const (
	Neutral Transition = iota // below -> below
	Rise                      // below -> above
	Sustain                   // above -> above
	Fall                      // above -> below
)

func (t Transition) String() string {
	switch t {
	case Rise:
		return "rise"
	case Sustain:
		return "sustain"
	case Fall:
		return "fall"
	}
	return "neutral"
}

// NormalizeHeight maps missing, non-positive and non-finite heights to NoSize.
func NormalizeHeight(h float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) || h <= 0 {
		return NoSize
	}
	return h
}

// Classify compares the previous and current font heights against the title
// threshold. A height equal to the threshold counts as above.
func Classify(prev, cur, threshold float64) Transition {
	wasAbove := NormalizeHeight(prev) >= threshold
	isAbove := NormalizeHeight(cur) >= threshold
	switch {
	case isAbove && !wasAbove:
		return Rise
	case isAbove && wasAbove:
		return Sustain
	case wasAbove:
		return Fall
	}
	return Neutral
}
