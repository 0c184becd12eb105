package service

import "github.com/noah-isme/campus-events-api/internal/models"

// EligibilityResult is the outcome of evaluating a user against an event's
// eligibility sets. Reason is empty when Eligible is true.
type EligibilityResult struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// EvaluateEligibility checks the user against every restricted axis of the
// event. Axes combine conjunctively; an empty set leaves its axis
// unrestricted. A user missing an attribute fails any axis that restricts it.
func EvaluateEligibility(event *models.Event, user *models.User) EligibilityResult {
	if len(event.EligibleLevels) > 0 {
		if user.StudyLevel == nil || !containsString(event.EligibleLevels, string(*user.StudyLevel)) {
			return EligibilityResult{Reason: "study level does not match requirements"}
		}
	}
	if len(event.EligiblePrograms) > 0 {
		if user.StudyProgram == nil || !containsString(event.EligiblePrograms, string(*user.StudyProgram)) {
			return EligibilityResult{Reason: "study program does not match requirements"}
		}
	}
	return EligibilityResult{Eligible: true}
}

func containsString(set []string, value string) bool {
	for _, candidate := range set {
		if candidate == value {
			return true
		}
	}
	return false
}
