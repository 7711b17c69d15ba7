// Package hamd classifies Hamilton Depression Rating Scale totals.
package hamd

const (
	// ResponseRateThreshold is the improvement fraction counted as a response.
	ResponseRateThreshold = 0.50
	// RemissionHAMD17 is the HAM-D17 total at or below which a patient is in remission.
	RemissionHAMD17 = 7
	// RemissionHAMD21 is the HAM-D21 total at or below which a patient is in remission.
	RemissionHAMD21 = 9
	// IneffectiveRateThreshold is the week-3 improvement below which stopping is considered.
	IneffectiveRateThreshold = 0.20
)

// Severity is a HAM-D17 severity band.
type Severity string

const (
	SeverityNormal     Severity = "normal"
	SeverityMild       Severity = "mild"
	SeverityModerate   Severity = "moderate"
	SeveritySevere     Severity = "severe"
	SeverityVerySevere Severity = "very_severe"
)

type band struct {
	high     int
	severity Severity
}

var hamd17Bands = []band{
	{7, SeverityNormal},
	{13, SeverityMild},
	{18, SeverityModerate},
	{22, SeveritySevere},
}

// ClassifySeverity returns the HAM-D17 severity band; ok is false when score is nil.
func ClassifySeverity(score *int) (Severity, bool) {
	if score == nil {
		return "", false
	}
	for _, b := range hamd17Bands {
		if *score <= b.high {
			return b.severity, true
		}
	}
	return SeverityVerySevere, true
}

// Rate is an improvement rate that may be undetermined.
type Rate struct {
	Value float64 `json:"value"`
	Known bool    `json:"known"`
}

// ImprovementRate computes (baseline-current)/baseline. The rate is unknown when
// either score is missing or the baseline is zero.
func ImprovementRate(baseline, current *int) Rate {
	if baseline == nil || current == nil || *baseline == 0 {
		return Rate{}
	}
	return Rate{Value: float64(*baseline-*current) / float64(*baseline), Known: true}
}

// Percent returns the rate as a percentage rounded to one decimal.
func (r Rate) Percent() float64 {
	v := r.Value * 1000
	if v < 0 {
		return float64(int64(v-0.5)) / 10
	}
	return float64(int64(v+0.5)) / 10
}

// ResponseStatus is the uniform response classification.
type ResponseStatus string

const (
	StatusNotEvaluated ResponseStatus = "not_evaluated"
	StatusRemission    ResponseStatus = "remission"
	StatusResponse     ResponseStatus = "response"
	StatusNoResponse   ResponseStatus = "no_response"
)

// ClassifyResponse applies remission first, then the response threshold.
func ClassifyResponse(score17 *int, improvement Rate) ResponseStatus {
	if score17 == nil {
		return StatusNotEvaluated
	}
	if *score17 <= RemissionHAMD17 {
		return StatusRemission
	}
	if improvement.Known && improvement.Value >= ResponseRateThreshold {
		return StatusResponse
	}
	return StatusNoResponse
}
