package service

import (
	"math"

	"github.com/hiretrack/interview-service/internal/domain"
)

// ApplyFeedback inserts or replaces the interviewer's feedback entry on the
// interview and recomputes the overall rating and decision. An interviewer
// who already submitted has their entry replaced in place, keeping its
// position in the list. Aggregates are always recomputed from the full
// feedback set, never incrementally, and stay unset until every assigned
// interviewer has submitted.
func ApplyFeedback(iv domain.Interview, entry domain.FeedbackEntry) domain.Interview {
	feedback := make([]domain.FeedbackEntry, len(iv.Feedback))
	copy(feedback, iv.Feedback)

	replaced := false
	for i := range feedback {
		if feedback[i].InterviewerID == entry.InterviewerID {
			feedback[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		feedback = append(feedback, entry)
	}

	iv.Feedback = feedback
	iv.OverallRating = nil
	iv.Decision = nil

	if len(iv.Feedback) != len(iv.Interviewers) || len(iv.Feedback) == 0 {
		return iv
	}

	var sum float64
	var strongHire, hire, noHire, strongNoHire int
	for _, fb := range iv.Feedback {
		sum += fb.Rating
		switch fb.Recommendation {
		case domain.RecStrongHire:
			strongHire++
		case domain.RecHire:
			hire++
		case domain.RecNoHire:
			noHire++
		case domain.RecStrongNoHire:
			strongNoHire++
		}
	}

	rating := math.Round(sum/float64(len(iv.Feedback))*10) / 10
	iv.OverallRating = &rating
	iv.Decision = decide(strongHire, hire, noHire, strongNoHire)

	return iv
}

// decide applies the voting rule over recommendation counts. A single
// strong_no_hire forces fail before the pass branch is considered; no_hire
// votes only fail the panel when they outnumber hire plus strong_hire.
func decide(strongHire, hire, noHire, strongNoHire int) *domain.Decision {
	var d domain.Decision
	switch {
	case strongNoHire > 0 || noHire > hire+strongHire:
		d = domain.DecisionFail
	case strongHire > 0 || hire >= strongHire:
		d = domain.DecisionPass
	default:
		return nil
	}
	return &d
}
