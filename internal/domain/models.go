package domain

import "time"

// Status is the lifecycle state of an interview.
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusRescheduled Status = "rescheduled"
	StatusConfirmed   Status = "confirmed"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusRescheduled, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status accepts no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// BlocksCalendar reports whether an interview in this status occupies its
// interviewers' time for conflict and availability purposes.
func (s Status) BlocksCalendar() bool {
	return s == StatusScheduled || s == StatusConfirmed || s == StatusInProgress
}

// Role of an interviewer within a single interview.
type Role string

const (
	RolePrimary   Role = "primary"
	RoleSecondary Role = "secondary"
	RoleObserver  Role = "observer"
)

func (r Role) Valid() bool {
	switch r {
	case RolePrimary, RoleSecondary, RoleObserver:
		return true
	}
	return false
}

// Recommendation is a single interviewer's hiring vote.
type Recommendation string

const (
	RecStrongHire   Recommendation = "strong_hire"
	RecHire         Recommendation = "hire"
	RecNoHire       Recommendation = "no_hire"
	RecStrongNoHire Recommendation = "strong_no_hire"
)

func (r Recommendation) Valid() bool {
	switch r {
	case RecStrongHire, RecHire, RecNoHire, RecStrongNoHire:
		return true
	}
	return false
}

// Decision is the aggregate outcome once every interviewer has submitted.
type Decision string

const (
	DecisionPass Decision = "pass"
	DecisionFail Decision = "fail"
)

// TimeSpan is a start instant plus a positive duration.
type TimeSpan struct {
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
}

// End returns the exclusive end instant of the span.
func (s TimeSpan) End() time.Time {
	return s.Start.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// Overlaps reports whether two spans intersect. Endpoints are open:
// a span ending exactly when another starts does not overlap it.
func (s TimeSpan) Overlaps(o TimeSpan) bool {
	return s.Start.Before(o.End()) && o.Start.Before(s.End())
}

// InterviewerAssignment links an interviewer to an interview.
type InterviewerAssignment struct {
	InterviewerID string `json:"interviewer_id"`
	Role          Role   `json:"role"`
	Confirmed     bool   `json:"confirmed"`
}

// QuestionScore is a single per-question feedback item.
type QuestionScore struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float64 `json:"score"`
	Notes    string  `json:"notes,omitempty"`
}

// FeedbackEntry is one interviewer's submitted evaluation. An interview
// holds at most one entry per interviewer; resubmission replaces in place.
type FeedbackEntry struct {
	InterviewerID  string          `json:"interviewer_id"`
	Rating         float64         `json:"rating"`
	Recommendation Recommendation  `json:"recommendation"`
	Strengths      string          `json:"strengths"`
	Weaknesses     string          `json:"weaknesses"`
	Comments       string          `json:"comments"`
	PerQuestion    []QuestionScore `json:"per_question"`
	SubmittedAt    time.Time       `json:"submitted_at"`
}

// Interview is the scheduling aggregate.
type Interview struct {
	InterviewID   string                  `json:"interview_id"`
	OrgID         string                  `json:"org_id"`
	CandidateID   string                  `json:"candidate_id"`
	JobID         string                  `json:"job_id"`
	Title         string                  `json:"title"`
	Location      string                  `json:"location"`
	Span          TimeSpan                `json:"span"`
	Interviewers  []InterviewerAssignment `json:"interviewers"`
	Status        Status                  `json:"status"`
	CancelReason  string                  `json:"cancel_reason,omitempty"`
	Feedback      []FeedbackEntry         `json:"feedback"`
	OverallRating *float64                `json:"overall_rating,omitempty"`
	Decision      *Decision               `json:"decision,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// HasInterviewer reports whether the interviewer is assigned to the interview.
func (i Interview) HasInterviewer(id string) bool {
	for _, a := range i.Interviewers {
		if a.InterviewerID == id {
			return true
		}
	}
	return false
}

// InterviewerIDs returns assigned interviewer ids in assignment order.
func (i Interview) InterviewerIDs() []string {
	ids := make([]string, 0, len(i.Interviewers))
	for _, a := range i.Interviewers {
		ids = append(ids, a.InterviewerID)
	}
	return ids
}

// AvailabilitySlot is a computed candidate slot, never persisted.
type AvailabilitySlot struct {
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	FreeInterviewers []string  `json:"free_interviewers"`
}

// BusySpan is one occupied block on an interviewer's calendar.
type BusySpan struct {
	Span  TimeSpan `json:"span"`
	Title string   `json:"title"`
}

// Availability is the full result of an availability query.
type Availability struct {
	Slots []AvailabilitySlot    `json:"slots"`
	Busy  map[string][]BusySpan `json:"busy"`
}
