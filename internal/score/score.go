// Package score holds the deterministic demand-index math applied on top of
// the model's raw demand scores when the final report is assembled.
package score

import "sort"

// SeverityWeight returns the weight for a pain severity.
func SeverityWeight(severity string) float64 {
	switch severity {
	case "minor":
		return 0.3
	case "significant":
		return 0.6
	case "critical":
		return 1.0
	default:
		return 0.3
	}
}

// FrequencyModifier returns the scaling factor for how often a problem occurs.
func FrequencyModifier(frequency string) float64 {
	switch frequency {
	case "daily":
		return 1.0
	case "weekly":
		return 0.8
	case "monthly":
		return 0.5
	case "rare":
		return 0.2
	default:
		return 0.5
	}
}

// PayBonus returns the additive bonus for expressed willingness to pay.
// Stated intent is the strongest demand evidence an interview can carry.
func PayBonus(willingness string) float64 {
	switch willingness {
	case "stated":
		return 0.1
	case "implied":
		return 0.05
	default:
		return 0.0
	}
}

// Composite folds severity, frequency and willingness-to-pay into the model's
// raw demand score. The raw score dominates; the evidence weights adjust it.
func Composite(raw float64, severity, frequency, willingness string) float64 {
	evidence := SeverityWeight(severity) * FrequencyModifier(frequency)
	return clamp(raw*0.7 + evidence*0.3 + PayBonus(willingness))
}

// Index aggregates composite scores into a single demand index for the
// interview: the strongest signal carries half the weight, the mean the rest,
// so one sharp pain is not diluted by a long tail of weak ones.
func Index(composites []float64) float64 {
	if len(composites) == 0 {
		return 0.0
	}
	max, sum := 0.0, 0.0
	for _, c := range composites {
		if c > max {
			max = c
		}
		sum += c
	}
	mean := sum / float64(len(composites))
	return clamp(0.5*max + 0.5*mean)
}

// Rank returns the indices of scores in descending score order. Ties keep
// their original relative order.
func Rank(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	return idx
}

func clamp(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}
