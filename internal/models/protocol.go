package models

// Protocol describes the session count and evaluation points of a treatment protocol.
type Protocol struct {
	Code                    ProtocolType `json:"code"`
	DisplayName             string       `json:"display_name"`
	TotalSessions           int          `json:"total_sessions"`
	RequiredEvaluationWeeks []int        `json:"required_evaluation_weeks"`
	AllowEarlyTaper         bool         `json:"allow_early_taper"`
}

var protocols = map[ProtocolType]Protocol{
	ProtocolInsurance: {
		Code:                    ProtocolInsurance,
		DisplayName:             "Insurance protocol",
		TotalSessions:           30,
		RequiredEvaluationWeeks: []int{0, 3, 4, 6},
		AllowEarlyTaper:         true,
	},
	ProtocolPMS: {
		Code:                    ProtocolPMS,
		DisplayName:             "Post-marketing surveillance protocol",
		TotalSessions:           30,
		RequiredEvaluationWeeks: []int{0, 3, 4, 6},
		AllowEarlyTaper:         true,
	},
}

// LookupProtocol returns the protocol registered for code.
func LookupProtocol(code ProtocolType) (Protocol, bool) {
	p, ok := protocols[code]
	return p, ok
}

// ProtocolFor returns the protocol of code, falling back to the insurance protocol.
func ProtocolFor(code ProtocolType) Protocol {
	if p, ok := protocols[code]; ok {
		return p
	}
	return protocols[ProtocolInsurance]
}
