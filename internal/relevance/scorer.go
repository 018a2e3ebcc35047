package relevance

import (
	"regexp"
	"strings"
)

// Scorer rates a candidate excerpt's likelihood of being substantive
// answer material, in [0,1]. The default implementation leans on policy
// language markers; it is deliberately replaceable since those markers are
// domain-specific.
type Scorer interface {
	Score(excerpt string) float64
}

// PolicyScorer prefers long excerpts that read like official policy text
// over incidental mentions.
type PolicyScorer struct{}

var percentPattern = regexp.MustCompile(`\d+\s?%`)

// Marker bonuses: policy-language words signal statements of rules,
// percentages and "withdrawal" signal refund-schedule material.
var policyMarkers = map[string]float64{
	"policy":     0.15,
	"university": 0.10,
	"procedure":  0.10,
	"withdrawal": 0.10,
}

const (
	lengthScoreCeiling = 3000
	percentBonus       = 0.15
)

func (PolicyScorer) Score(excerpt string) float64 {
	if excerpt == "" {
		return 0
	}

	score := float64(len(excerpt)) / lengthScoreCeiling
	if score > 0.5 {
		score = 0.5
	}

	lower := strings.ToLower(excerpt)
	for marker, bonus := range policyMarkers {
		if strings.Contains(lower, marker) {
			score += bonus
		}
	}
	if percentPattern.MatchString(excerpt) {
		score += percentBonus
	}

	if score > 1 {
		score = 1
	}
	return score
}
