package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hiretrack/interview-service/internal/domain"
)

// ConflictCheck runs inside the storage transaction against the interviews
// already booked for the affected interviewers. A nil check means no
// re-validation is needed for the write.
type ConflictCheck func(existing []domain.Interview) error

// ApplyFeedbackFunc mutates a freshly loaded, row-locked interview inside
// the storage transaction.
type ApplyFeedbackFunc func(iv domain.Interview) (domain.Interview, error)

// Repository defines required storage methods to satisfy business flows.
type Repository interface {
	GetInterview(ctx context.Context, orgID, interviewID string) (domain.Interview, error)
	CreateInterview(ctx context.Context, iv domain.Interview, check ConflictCheck) (domain.Interview, error)
	UpdateInterview(ctx context.Context, iv domain.Interview, check ConflictCheck) (domain.Interview, error)
	SubmitFeedback(ctx context.Context, orgID, interviewID string, apply ApplyFeedbackFunc) (domain.Interview, error)
	ListInterviewsForInterviewers(ctx context.Context, orgID string, interviewerIDs []string, from, to time.Time) ([]domain.Interview, error)
	FindActiveUsers(ctx context.Context, orgID string, userIDs []string) ([]string, error)
	CandidateExists(ctx context.Context, orgID, candidateID string) (bool, error)
	JobExists(ctx context.Context, orgID, jobID string) (bool, error)
}

// Notifier is told when a cancellation owes the participants a notification.
// Delivery is entirely the implementation's concern.
type Notifier interface {
	InterviewCancelled(ctx context.Context, iv domain.Interview, reason string)
}

// Service orchestrates the interview lifecycle.
type Service struct {
	repo     Repository
	notifier Notifier
	window   WorkingWindow
}

// New returns a configured service. A zero window falls back to 09:00-18:00.
func New(repo Repository, notifier Notifier, window WorkingWindow) *Service {
	if window == (WorkingWindow{}) {
		window = DefaultWorkingWindow
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{repo: repo, notifier: notifier, window: window}
}

type nopNotifier struct{}

func (nopNotifier) InterviewCancelled(context.Context, domain.Interview, string) {}

// CreateInterviewInput carries payload for interview creation.
type CreateInterviewInput struct {
	OrgID           string
	CandidateID     string
	JobID           string
	Title           string
	Location        string
	StartsAt        time.Time
	DurationMinutes int
	Interviewers    []domain.InterviewerAssignment
}

// UpdateInterviewInput enumerates every mutable interview attribute; nil
// fields are left untouched.
type UpdateInterviewInput struct {
	OrgID       string
	InterviewID string

	Title           *string
	Location        *string
	StartsAt        *time.Time
	DurationMinutes *int
	Status          *domain.Status
	Interviewers    []domain.InterviewerAssignment
}

// SubmitFeedbackInput carries a single interviewer's evaluation.
type SubmitFeedbackInput struct {
	OrgID          string
	InterviewID    string
	InterviewerID  string
	Rating         float64
	Recommendation domain.Recommendation
	Strengths      string
	Weaknesses     string
	Comments       string
	PerQuestion    []domain.QuestionScore
}

func (s *Service) GetInterview(ctx context.Context, orgID, interviewID string) (domain.Interview, error) {
	return s.repo.GetInterview(ctx, orgID, interviewID)
}

func (s *Service) CreateInterview(ctx context.Context, input CreateInterviewInput) (domain.Interview, error) {
	if input.DurationMinutes <= 0 {
		return domain.Interview{}, domain.NewInvalidDurationError()
	}
	if err := validateAssignments(input.Interviewers); err != nil {
		return domain.Interview{}, err
	}

	if err := s.checkReferences(ctx, input.OrgID, input.CandidateID, input.JobID); err != nil {
		return domain.Interview{}, err
	}

	ids := assignmentIDs(input.Interviewers)
	if err := s.checkInterviewersActive(ctx, input.OrgID, ids); err != nil {
		return domain.Interview{}, err
	}

	iv := domain.Interview{
		InterviewID:  uuid.NewString(),
		OrgID:        input.OrgID,
		CandidateID:  input.CandidateID,
		JobID:        input.JobID,
		Title:        input.Title,
		Location:     input.Location,
		Span:         domain.TimeSpan{Start: input.StartsAt, DurationMinutes: input.DurationMinutes},
		Interviewers: input.Interviewers,
		Status:       domain.StatusScheduled,
	}

	return s.repo.CreateInterview(ctx, iv, s.conflictCheck(iv.Span, ids, ""))
}

func (s *Service) UpdateInterview(ctx context.Context, input UpdateInterviewInput) (domain.Interview, error) {
	iv, err := s.repo.GetInterview(ctx, input.OrgID, input.InterviewID)
	if err != nil {
		return domain.Interview{}, err
	}
	if iv.Status.Terminal() {
		return domain.Interview{}, domain.NewTerminalStateError(iv.Status)
	}

	spanChanged := false
	if input.StartsAt != nil && !input.StartsAt.Equal(iv.Span.Start) {
		iv.Span.Start = *input.StartsAt
		spanChanged = true
	}
	if input.DurationMinutes != nil && *input.DurationMinutes != iv.Span.DurationMinutes {
		if *input.DurationMinutes <= 0 {
			return domain.Interview{}, domain.NewInvalidDurationError()
		}
		iv.Span.DurationMinutes = *input.DurationMinutes
		spanChanged = true
	}

	interviewersChanged := false
	if input.Interviewers != nil {
		if err := validateAssignments(input.Interviewers); err != nil {
			return domain.Interview{}, err
		}
		interviewersChanged = !sameIDSet(assignmentIDs(iv.Interviewers), assignmentIDs(input.Interviewers))
		iv.Interviewers = input.Interviewers
	}

	if input.Title != nil {
		iv.Title = *input.Title
	}
	if input.Location != nil {
		iv.Location = *input.Location
	}

	if input.Status != nil {
		if !input.Status.Valid() {
			return domain.Interview{}, domain.NewValidationError("unknown interview status")
		}
		if *input.Status == domain.StatusCancelled {
			return domain.Interview{}, domain.NewValidationError("use the cancel operation to cancel an interview")
		}
		iv.Status = *input.Status
	}

	// A time change always supersedes a requested status transition.
	if spanChanged {
		iv.Status = domain.StatusRescheduled
	}

	var check ConflictCheck
	if spanChanged || interviewersChanged {
		ids := assignmentIDs(iv.Interviewers)
		if err := s.checkInterviewersActive(ctx, input.OrgID, ids); err != nil {
			return domain.Interview{}, err
		}
		check = s.conflictCheck(iv.Span, ids, iv.InterviewID)
	}

	return s.repo.UpdateInterview(ctx, iv, check)
}

func (s *Service) CancelInterview(ctx context.Context, orgID, interviewID, reason string, notify bool) (domain.Interview, error) {
	if reason == "" {
		return domain.Interview{}, domain.NewValidationError("cancellation reason is required")
	}

	iv, err := s.repo.GetInterview(ctx, orgID, interviewID)
	if err != nil {
		return domain.Interview{}, err
	}
	if iv.Status.Terminal() {
		return domain.Interview{}, domain.NewTerminalStateError(iv.Status)
	}

	iv.Status = domain.StatusCancelled
	iv.CancelReason = reason

	updated, err := s.repo.UpdateInterview(ctx, iv, nil)
	if err != nil {
		return domain.Interview{}, err
	}

	if notify {
		s.notifier.InterviewCancelled(ctx, updated, reason)
	}

	return updated, nil
}

func (s *Service) SubmitFeedback(ctx context.Context, input SubmitFeedbackInput) (domain.Interview, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return domain.Interview{}, domain.NewValidationError("rating must be between 1 and 5")
	}
	if !input.Recommendation.Valid() {
		return domain.Interview{}, domain.NewValidationError("unknown recommendation")
	}

	entry := domain.FeedbackEntry{
		InterviewerID:  input.InterviewerID,
		Rating:         input.Rating,
		Recommendation: input.Recommendation,
		Strengths:      input.Strengths,
		Weaknesses:     input.Weaknesses,
		Comments:       input.Comments,
		PerQuestion:    input.PerQuestion,
		SubmittedAt:    time.Now().UTC(),
	}

	return s.repo.SubmitFeedback(ctx, input.OrgID, input.InterviewID, func(iv domain.Interview) (domain.Interview, error) {
		if !iv.HasInterviewer(entry.InterviewerID) {
			return domain.Interview{}, domain.NewNotAssignedError()
		}
		if iv.Status != domain.StatusCompleted {
			return domain.Interview{}, domain.NewWrongStatusError(iv.Status)
		}
		return ApplyFeedback(iv, entry), nil
	})
}

func (s *Service) PlanAvailability(ctx context.Context, orgID string, interviewerIDs []string, day time.Time, durationMinutes int) (domain.Availability, error) {
	if durationMinutes <= 0 {
		return domain.Availability{}, domain.NewInvalidDurationError()
	}
	if len(interviewerIDs) == 0 {
		return domain.Availability{}, domain.NewValidationError("at least one interviewer is required")
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	existing, err := s.repo.ListInterviewsForInterviewers(ctx, orgID, interviewerIDs, dayStart, dayEnd)
	if err != nil {
		return domain.Availability{}, err
	}

	return PlanAvailability(existing, interviewerIDs, day, durationMinutes, s.window), nil
}

// conflictCheck builds the closure the storage layer runs inside its
// transaction, after locking the interviewer rows, so the check and the
// write commit atomically.
func (s *Service) conflictCheck(span domain.TimeSpan, interviewerIDs []string, excludeID string) ConflictCheck {
	return func(existing []domain.Interview) error {
		conflicts := FindConflicts(existing, span, interviewerIDs, excludeID)
		if len(conflicts) == 0 {
			return nil
		}
		ids := make([]string, 0, len(conflicts))
		for _, c := range conflicts {
			ids = append(ids, c.InterviewID)
		}
		return domain.NewSchedulingConflictError(ids)
	}
}

func (s *Service) checkReferences(ctx context.Context, orgID, candidateID, jobID string) error {
	ok, err := s.repo.CandidateExists(ctx, orgID, candidateID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewNotFoundError("candidate not found", nil)
	}

	ok, err = s.repo.JobExists(ctx, orgID, jobID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewNotFoundError("job not found", nil)
	}

	return nil
}

func (s *Service) checkInterviewersActive(ctx context.Context, orgID string, ids []string) error {
	active, err := s.repo.FindActiveUsers(ctx, orgID, ids)
	if err != nil {
		return err
	}

	found := make(map[string]struct{}, len(active))
	for _, id := range active {
		found[id] = struct{}{}
	}

	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return domain.NewInvalidInterviewersError(missing)
	}

	return nil
}

func validateAssignments(assignments []domain.InterviewerAssignment) error {
	if len(assignments) == 0 {
		return domain.NewValidationError("at least one interviewer assignment is required")
	}

	seen := make(map[string]struct{}, len(assignments))
	for _, a := range assignments {
		if a.InterviewerID == "" {
			return domain.NewValidationError("interviewer_id is required on every assignment")
		}
		if !a.Role.Valid() {
			return domain.NewValidationError("unknown interviewer role")
		}
		if _, dup := seen[a.InterviewerID]; dup {
			return domain.NewValidationError("duplicate interviewer in assignment list")
		}
		seen[a.InterviewerID] = struct{}{}
	}

	return nil
}

func assignmentIDs(assignments []domain.InterviewerAssignment) []string {
	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.InterviewerID)
	}
	return ids
}

func sameIDSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}
