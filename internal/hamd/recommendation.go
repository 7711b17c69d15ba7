package hamd

import "fmt"

// RecommendationStatus is the week-3 treatment decision.
type RecommendationStatus string

const (
	RecommendationPending     RecommendationStatus = "pending"
	RecommendationRemission   RecommendationStatus = "remission"
	RecommendationIneffective RecommendationStatus = "ineffective"
	RecommendationEffective   RecommendationStatus = "effective"
)

// Scores holds the totals of one assessment.
type Scores struct {
	HAMD17 *int
	HAMD21 *int
}

func (s Scores) empty() bool {
	return !positive(s.HAMD17) && !positive(s.HAMD21)
}

// Scale prefers HAM-D17 and falls back to HAM-D21.
func (s Scores) Scale() (string, *int) {
	if positive(s.HAMD17) {
		return "HAMD17", s.HAMD17
	}
	if positive(s.HAMD21) {
		return "HAMD21", s.HAMD21
	}
	return "HAMD17", nil
}

// Recommendation is the protocol advice derived from the week-3 rating.
type Recommendation struct {
	Status      RecommendationStatus `json:"status"`
	Message     string               `json:"message"`
	Detail      string               `json:"detail"`
	Scale       string               `json:"scale"`
	Baseline    *int                 `json:"baseline,omitempty"`
	Current     *int                 `json:"current,omitempty"`
	Improvement *float64             `json:"improvement_rate,omitempty"`
}

// Recommend evaluates the week-3 scores against baseline.
func Recommend(baseline, week3 *Scores) Recommendation {
	if week3 == nil || week3.empty() {
		return Recommendation{
			Status:  RecommendationPending,
			Message: "week 3 HAM-D rating not entered",
			Detail:  "the recommended protocol is shown once the rating is recorded",
			Scale:   "-",
		}
	}
	scale, current := week3.Scale()
	var baselineScore *int
	if baseline != nil {
		_, baselineScore = baseline.Scale()
	}

	if (positive(week3.HAMD17) && *week3.HAMD17 <= RemissionHAMD17) || (positive(week3.HAMD21) && *week3.HAMD21 <= RemissionHAMD21) {
		return Recommendation{
			Status:   RecommendationRemission,
			Message:  "remission: move to taper protocol",
			Detail:   "week 4 three sessions, week 5 two sessions, week 6 one session",
			Scale:    scale,
			Baseline: baselineScore,
			Current:  current,
		}
	}

	rate := ImprovementRate(baselineScore, current)
	if rate.Known && rate.Value < IneffectiveRateThreshold {
		value := rate.Value
		return Recommendation{
			Status:      RecommendationIneffective,
			Message:     "ineffective: consider stopping (continuation allowed)",
			Detail:      fmt.Sprintf("%s improvement %d%% (below 20%%)", scale, int(rate.Value*100)),
			Scale:       scale,
			Baseline:    baselineScore,
			Current:     current,
			Improvement: &value,
		}
	}

	rec := Recommendation{
		Status:   RecommendationEffective,
		Message:  "effective: continue treatment (30 sessions total)",
		Detail:   fmt.Sprintf("%s improvement not determined", scale),
		Scale:    scale,
		Baseline: baselineScore,
		Current:  current,
	}
	if rate.Known {
		value := rate.Value
		rec.Improvement = &value
		rec.Detail = fmt.Sprintf("%s improvement %d%% (20%% or more)", scale, int(rate.Value*100))
	}
	return rec
}

func positive(v *int) bool {
	return v != nil && *v > 0
}
