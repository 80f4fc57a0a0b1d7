package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/hiretrack/interview-service/internal/domain"
)

func TestCreateInterviewChecksConflictsInsideStore(t *testing.T) {
	ctx := context.Background()
	other := booked("other", span(10, 15, 30), domain.StatusScheduled, "b")

	var checked ConflictCheck
	repo := stubRepository{
		candidateExistsFn: func(context.Context, string, string) (bool, error) { return true, nil },
		jobExistsFn:       func(context.Context, string, string) (bool, error) { return true, nil },
		findActiveUsersFn: func(_ context.Context, _ string, ids []string) ([]string, error) { return ids, nil },
		createInterviewFn: func(_ context.Context, iv domain.Interview, check ConflictCheck) (domain.Interview, error) {
			checked = check
			if err := check([]domain.Interview{other}); err != nil {
				return domain.Interview{}, err
			}
			return iv, nil
		},
	}

	svc := New(repo, nil, WorkingWindow{})
	_, err := svc.CreateInterview(ctx, CreateInterviewInput{
		OrgID:           "org",
		CandidateID:     "cand",
		JobID:           "job",
		StartsAt:        at(10, 0),
		DurationMinutes: 30,
		Interviewers: []domain.InterviewerAssignment{
			{InterviewerID: "a", Role: domain.RolePrimary},
			{InterviewerID: "b", Role: domain.RoleSecondary},
		},
	})

	var appErr *domain.AppError
	if !errors.As(err, &appErr) || appErr.Code != domain.ErrCodeSchedulingConflict {
		t.Fatalf("expected scheduling conflict, got %v", err)
	}
	if !reflect.DeepEqual(appErr.Conflicts, []string{"other"}) {
		t.Fatalf("conflict error must name the culprits, got %v", appErr.Conflicts)
	}
	if checked == nil {
		t.Fatalf("create must pass a conflict check to the store")
	}
	if err := checked(nil); err != nil {
		t.Fatalf("check over empty calendar should pass, got %v", err)
	}
}

func TestCreateInterviewNewInterviewShape(t *testing.T) {
	ctx := context.Background()
	repo := stubRepository{
		candidateExistsFn: func(context.Context, string, string) (bool, error) { return true, nil },
		jobExistsFn:       func(context.Context, string, string) (bool, error) { return true, nil },
		findActiveUsersFn: func(_ context.Context, _ string, ids []string) ([]string, error) { return ids, nil },
		createInterviewFn: func(_ context.Context, iv domain.Interview, _ ConflictCheck) (domain.Interview, error) {
			return iv, nil
		},
	}

	svc := New(repo, nil, WorkingWindow{})
	iv, err := svc.CreateInterview(ctx, CreateInterviewInput{
		OrgID:           "org",
		CandidateID:     "cand",
		JobID:           "job",
		Title:           "Tech screen",
		StartsAt:        at(10, 0),
		DurationMinutes: 45,
		Interviewers:    []domain.InterviewerAssignment{{InterviewerID: "a", Role: domain.RolePrimary}},
	})
	if err != nil {
		t.Fatalf("CreateInterview returned error: %v", err)
	}
	if iv.InterviewID == "" {
		t.Fatalf("expected generated interview id")
	}
	if iv.Status != domain.StatusScheduled {
		t.Fatalf("new interviews start scheduled, got %s", iv.Status)
	}
	if iv.Span.DurationMinutes != 45 || !iv.Span.Start.Equal(at(10, 0)) {
		t.Fatalf("unexpected span: %+v", iv.Span)
	}
}

func TestCreateInterviewRejectsInactiveInterviewers(t *testing.T) {
	ctx := context.Background()
	repo := stubRepository{
		candidateExistsFn: func(context.Context, string, string) (bool, error) { return true, nil },
		jobExistsFn:       func(context.Context, string, string) (bool, error) { return true, nil },
		findActiveUsersFn: func(context.Context, string, []string) ([]string, error) { return []string{"a"}, nil },
		createInterviewFn: func(context.Context, domain.Interview, ConflictCheck) (domain.Interview, error) {
			t.Fatalf("store must not be reached with invalid interviewers")
			return domain.Interview{}, nil
		},
	}

	svc := New(repo, nil, WorkingWindow{})
	_, err := svc.CreateInterview(ctx, CreateInterviewInput{
		OrgID: "org", CandidateID: "cand", JobID: "job",
		StartsAt: at(10, 0), DurationMinutes: 30,
		Interviewers: []domain.InterviewerAssignment{
			{InterviewerID: "a", Role: domain.RolePrimary},
			{InterviewerID: "ghost", Role: domain.RoleObserver},
		},
	})

	var appErr *domain.AppError
	if !errors.As(err, &appErr) || appErr.Code != domain.ErrCodeInvalidInterviewers {
		t.Fatalf("expected InvalidInterviewers, got %v", err)
	}
}

func TestCreateInterviewMissingCandidate(t *testing.T) {
	ctx := context.Background()
	repo := stubRepository{
		candidateExistsFn: func(context.Context, string, string) (bool, error) { return false, nil },
	}

	svc := New(repo, nil, WorkingWindow{})
	_, err := svc.CreateInterview(ctx, CreateInterviewInput{
		OrgID: "org", CandidateID: "cand", JobID: "job",
		StartsAt: at(10, 0), DurationMinutes: 30,
		Interviewers: []domain.InterviewerAssignment{{InterviewerID: "a", Role: domain.RolePrimary}},
	})

	var appErr *domain.AppError
	if !errors.As(err, &appErr) || appErr.Code != domain.ErrCodeNotFound {
		t.Fatalf("expected NotFound for missing candidate, got %v", err)
	}
}

func TestCreateInterviewInvalidDuration(t *testing.T) {
	svc := New(stubRepository{}, nil, WorkingWindow{})
	_, err := svc.CreateInterview(context.Background(), CreateInterviewInput{DurationMinutes: 0})

	var appErr *domain.AppError
	if !errors.As(err, &appErr) || appErr.Code != domain.ErrCodeInvalidDuration {
		t.Fatalf("expected InvalidDuration, got %v", err)
	}
}

func TestUpdateLocationOnlySkipsConflictCheck(t *testing.T) {
	ctx := context.Background()
	current := booked("iv-1", span(10, 0, 60), domain.StatusConfirmed, "a")
	location := "Room 4"

	repo := stubRepository{
		getInterviewFn: func(context.Context, string, string) (domain.Interview, error) { return current, nil },
		findActiveUsersFn: func(context.Context, string, []string) ([]string, error) {
			t.Fatalf("location-only update must not re-validate interviewers")
			return nil, nil
		},
		updateInterviewFn: func(_ context.Context, iv domain.Interview, check ConflictCheck) (domain.Interview, error) {
			if check != nil {
				t.Fatalf("location-only update must not carry a conflict check")
			}
			return iv, nil
		},
	}

	svc := New(repo, nil, WorkingWindow{})
	iv, err := svc.UpdateInterview(ctx, UpdateInterviewInput{OrgID: "org", InterviewID: "iv-1", Location: &location})
	if err != nil {
		t.Fatalf("UpdateInterview returned error: %v", err)
	}
	if iv.Status != domain.StatusConfirmed {
		t.Fatalf("status must not change on a location update, got %s", iv.Status)
	}
	if iv.Location != location {
		t.Fatalf("location not applied: %+v", iv)
	}
}

func TestUpdateSpanChangeForcesRescheduled(t *testing.T) {
	ctx := context.Background()
	current := booked("iv-1", span(10, 0, 60), domain.StatusConfirmed, "a")
	newStart := at(14, 0)
	requested := domain.StatusConfirmed

	repo := stubRepository{
		getInterviewFn:    func(context.Context, string, string) (domain.Interview, error) { return current, nil },
		findActiveUsersFn: func(_ context.Context, _ string, ids []string) ([]string, error) { return ids, nil },
		updateInterviewFn: func(_ context.Context, iv domain.Interview, check ConflictCheck) (domain.Interview, error) {
			if check == nil {
				t.Fatalf("span change must carry a conflict check")
			}
			return iv, nil
		},
	}

	svc := New(repo, nil, WorkingWindow{})
	iv, err := svc.UpdateInterview(ctx, UpdateInterviewInput{
		OrgID:       "org",
		InterviewID: "iv-1",
		StartsAt:    &newStart,
		Status:      &requested,
	})
	if err != nil {
		t.Fatalf("UpdateInterview returned error: %v", err)
	}
	if iv.Status != domain.StatusRescheduled {
		t.Fatalf("time change must force rescheduled over requested status, got %s", iv.Status)
	}
}

func TestUpdateSelfExcludedFromConflictCheck(t *testing.T) {
	ctx := context.Background()
	current := booked("iv-1", span(10, 0, 60), domain.StatusScheduled, "a")
	newStart := at(10, 30)

	repo := stubRepository{
		getInterviewFn:    func(context.Context, string, string) (domain.Interview, error) { return current, nil },
		findActiveUsersFn: func(_ context.Context, _ string, ids []string) ([]string, error) { return ids, nil },
		updateInterviewFn: func(_ context.Context, iv domain.Interview, check ConflictCheck) (domain.Interview, error) {
			// The old booking of the interview under edit must not block its own move.
			self := booked("iv-1", span(10, 0, 60), domain.StatusScheduled, "a")
			if err := check([]domain.Interview{self}); err != nil {
				return domain.Interview{}, err
			}
			return iv, nil
		},
	}

	svc := New(repo, nil, WorkingWindow{})
	if _, err := svc.UpdateInterview(ctx, UpdateInterviewInput{OrgID: "org", InterviewID: "iv-1", StartsAt: &newStart}); err != nil {
		t.Fatalf("self-exclusion failed: %v", err)
	}
}

func TestUpdateTerminalInterviewRejected(t *testing.T) {
	for _, status := range []domain.Status{domain.StatusCompleted, domain.StatusCancelled} {
		current := booked("iv-1", span(10, 0, 60), status, "a")
		repo := stubRepository{
			getInterviewFn: func(context.Context, string, string) (domain.Interview, error) { return current, nil },
		}

		svc := New(repo, nil, WorkingWindow{})
		title := "new title"
		_, err := svc.UpdateInterview(context.Background(), UpdateInterviewInput{OrgID: "org", InterviewID: "iv-1", Title: &title})

		var appErr *domain.AppError
		if !errors.As(err, &appErr) || appErr.Code != domain.ErrCodeTerminalState {
			t.Fatalf("status %s: expected TerminalState, got %v", status, err)
		}
	}
}

func TestCancelInterview(t *testing.T) {
	ctx := context.Background()
	current := booked("iv-1", span(10, 0, 60), domain.StatusScheduled, "a")

	var saved domain.Interview
	repo := stubRepository{
		getInterviewFn: func(context.Context, string, string) (domain.Interview, error) { return current, nil },
		updateInterviewFn: func(_ context.Context, iv domain.Interview, check ConflictCheck) (domain.Interview, error) {
			if check != nil {
				t.Fatalf("cancellation must not run a conflict check")
			}
			saved = iv
			return iv, nil
		},
	}
	notifier := &recordingNotifier{}

	svc := New(repo, notifier, WorkingWindow{})
	iv, err := svc.CancelInterview(ctx, "org", "iv-1", "candidate withdrew", true)
	if err != nil {
		t.Fatalf("CancelInterview returned error: %v", err)
	}
	if iv.Status != domain.StatusCancelled || saved.CancelReason != "candidate withdrew" {
		t.Fatalf("cancellation not applied: %+v", saved)
	}
	if notifier.calls != 1 {
		t.Fatalf("expected one notification, got %d", notifier.calls)
	}
}

func TestCancelWithoutNotifyFlag(t *testing.T) {
	current := booked("iv-1", span(10, 0, 60), domain.StatusScheduled, "a")
	repo := stubRepository{
		getInterviewFn: func(context.Context, string, string) (domain.Interview, error) { return current, nil },
		updateInterviewFn: func(_ context.Context, iv domain.Interview, _ ConflictCheck) (domain.Interview, error) {
			return iv, nil
		},
	}
	notifier := &recordingNotifier{}

	svc := New(repo, notifier, WorkingWindow{})
	if _, err := svc.CancelInterview(context.Background(), "org", "iv-1", "reason", false); err != nil {
		t.Fatalf("CancelInterview returned error: %v", err)
	}
	if notifier.calls != 0 {
		t.Fatalf("notification sent despite notify=false")
	}
}

func TestCancelEmptyReasonFailsBeforeLoad(t *testing.T) {
	repo := stubRepository{
		getInterviewFn: func(context.Context, string, string) (domain.Interview, error) {
			t.Fatalf("empty reason must fail before any storage access")
			return domain.Interview{}, nil
		},
	}

	svc := New(repo, nil, WorkingWindow{})
	_, err := svc.CancelInterview(context.Background(), "org", "iv-1", "", true)

	var appErr *domain.AppError
	if !errors.As(err, &appErr) || appErr.Code != domain.ErrCodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCancelCompletedInterview(t *testing.T) {
	current := booked("iv-1", span(10, 0, 60), domain.StatusCompleted, "a")
	repo := stubRepository{
		getInterviewFn: func(context.Context, string, string) (domain.Interview, error) { return current, nil },
	}

	svc := New(repo, nil, WorkingWindow{})
	_, err := svc.CancelInterview(context.Background(), "org", "iv-1", "too late", false)

	var appErr *domain.AppError
	if !errors.As(err, &appErr) || appErr.Code != domain.ErrCodeTerminalState {
		t.Fatalf("expected TerminalState, got %v", err)
	}
}

func TestSubmitFeedbackGates(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		loaded   domain.Interview
		wantCode domain.ErrorCode
	}{
		{"not assigned", booked("iv-1", span(10, 0, 60), domain.StatusCompleted, "someone-else"), domain.ErrCodeNotAssigned},
		{"wrong status", booked("iv-1", span(10, 0, 60), domain.StatusScheduled, "u1"), domain.ErrCodeWrongStatus},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := stubRepository{
				submitFeedbackFn: func(_ context.Context, _, _ string, apply ApplyFeedbackFunc) (domain.Interview, error) {
					return apply(tc.loaded)
				},
			}

			svc := New(repo, nil, WorkingWindow{})
			_, err := svc.SubmitFeedback(ctx, SubmitFeedbackInput{
				OrgID: "org", InterviewID: "iv-1", InterviewerID: "u1",
				Rating: 4, Recommendation: domain.RecHire,
			})

			var appErr *domain.AppError
			if !errors.As(err, &appErr) || appErr.Code != tc.wantCode {
				t.Fatalf("expected %s, got %v", tc.wantCode, err)
			}
		})
	}
}

func TestSubmitFeedbackAppliesAggregation(t *testing.T) {
	ctx := context.Background()
	loaded := completedInterview("u1")

	repo := stubRepository{
		submitFeedbackFn: func(_ context.Context, _, _ string, apply ApplyFeedbackFunc) (domain.Interview, error) {
			return apply(loaded)
		},
	}

	svc := New(repo, nil, WorkingWindow{})
	iv, err := svc.SubmitFeedback(ctx, SubmitFeedbackInput{
		OrgID: "org", InterviewID: "iv-1", InterviewerID: "u1",
		Rating: 4, Recommendation: domain.RecHire,
		Strengths: "clear communicator",
	})
	if err != nil {
		t.Fatalf("SubmitFeedback returned error: %v", err)
	}
	if len(iv.Feedback) != 1 || iv.Feedback[0].Strengths != "clear communicator" {
		t.Fatalf("feedback not recorded: %+v", iv.Feedback)
	}
	if iv.OverallRating == nil || *iv.OverallRating != 4.0 || iv.Decision == nil || *iv.Decision != domain.DecisionPass {
		t.Fatalf("single-interviewer panel should aggregate immediately: %+v", iv)
	}
	if iv.Feedback[0].SubmittedAt.IsZero() {
		t.Fatalf("submission time not stamped")
	}
}

func TestSubmitFeedbackValidatesPayload(t *testing.T) {
	svc := New(stubRepository{}, nil, WorkingWindow{})

	if _, err := svc.SubmitFeedback(context.Background(), SubmitFeedbackInput{Rating: 0, Recommendation: domain.RecHire}); err == nil {
		t.Fatalf("expected error for out-of-range rating")
	}
	if _, err := svc.SubmitFeedback(context.Background(), SubmitFeedbackInput{Rating: 3, Recommendation: "maybe"}); err == nil {
		t.Fatalf("expected error for unknown recommendation")
	}
}

func TestPlanAvailabilityValidatesDuration(t *testing.T) {
	repo := stubRepository{
		listInterviewsFn: func(context.Context, string, []string, time.Time, time.Time) ([]domain.Interview, error) {
			t.Fatalf("invalid duration must not hit storage")
			return nil, nil
		},
	}

	svc := New(repo, nil, WorkingWindow{})
	_, err := svc.PlanAvailability(context.Background(), "org", []string{"a"}, at(0, 0), 0)

	var appErr *domain.AppError
	if !errors.As(err, &appErr) || appErr.Code != domain.ErrCodeInvalidDuration {
		t.Fatalf("expected InvalidDuration, got %v", err)
	}
}

func TestPlanAvailabilityQueriesWholeDay(t *testing.T) {
	ctx := context.Background()
	var gotFrom, gotTo time.Time

	repo := stubRepository{
		listInterviewsFn: func(_ context.Context, _ string, _ []string, from, to time.Time) ([]domain.Interview, error) {
			gotFrom, gotTo = from, to
			return []domain.Interview{booked("x", span(9, 0, 60), domain.StatusScheduled, "a")}, nil
		},
	}

	svc := New(repo, nil, WorkingWindow{})
	result, err := svc.PlanAvailability(ctx, "org", []string{"a", "b"}, at(11, 45), 30)
	if err != nil {
		t.Fatalf("PlanAvailability returned error: %v", err)
	}

	if !gotFrom.Equal(at(0, 0)) || !gotTo.Equal(at(0, 0).Add(24*time.Hour)) {
		t.Fatalf("expected whole-day window, got %v - %v", gotFrom, gotTo)
	}
	if !reflect.DeepEqual(result.Slots[0].FreeInterviewers, []string{"b"}) {
		t.Fatalf("busy data not threaded through: %v", result.Slots[0])
	}
}

type recordingNotifier struct {
	calls int
}

func (n *recordingNotifier) InterviewCancelled(context.Context, domain.Interview, string) {
	n.calls++
}

type stubRepository struct {
	getInterviewFn    func(ctx context.Context, orgID, interviewID string) (domain.Interview, error)
	createInterviewFn func(ctx context.Context, iv domain.Interview, check ConflictCheck) (domain.Interview, error)
	updateInterviewFn func(ctx context.Context, iv domain.Interview, check ConflictCheck) (domain.Interview, error)
	submitFeedbackFn  func(ctx context.Context, orgID, interviewID string, apply ApplyFeedbackFunc) (domain.Interview, error)
	listInterviewsFn  func(ctx context.Context, orgID string, interviewerIDs []string, from, to time.Time) ([]domain.Interview, error)
	findActiveUsersFn func(ctx context.Context, orgID string, userIDs []string) ([]string, error)
	candidateExistsFn func(ctx context.Context, orgID, candidateID string) (bool, error)
	jobExistsFn       func(ctx context.Context, orgID, jobID string) (bool, error)
}

func (s stubRepository) GetInterview(ctx context.Context, orgID, interviewID string) (domain.Interview, error) {
	if s.getInterviewFn == nil {
		return domain.Interview{}, errors.New("unexpected GetInterview")
	}
	return s.getInterviewFn(ctx, orgID, interviewID)
}

func (s stubRepository) CreateInterview(ctx context.Context, iv domain.Interview, check ConflictCheck) (domain.Interview, error) {
	if s.createInterviewFn == nil {
		return domain.Interview{}, errors.New("unexpected CreateInterview")
	}
	return s.createInterviewFn(ctx, iv, check)
}

func (s stubRepository) UpdateInterview(ctx context.Context, iv domain.Interview, check ConflictCheck) (domain.Interview, error) {
	if s.updateInterviewFn == nil {
		return domain.Interview{}, errors.New("unexpected UpdateInterview")
	}
	return s.updateInterviewFn(ctx, iv, check)
}

func (s stubRepository) SubmitFeedback(ctx context.Context, orgID, interviewID string, apply ApplyFeedbackFunc) (domain.Interview, error) {
	if s.submitFeedbackFn == nil {
		return domain.Interview{}, errors.New("unexpected SubmitFeedback")
	}
	return s.submitFeedbackFn(ctx, orgID, interviewID, apply)
}

func (s stubRepository) ListInterviewsForInterviewers(ctx context.Context, orgID string, interviewerIDs []string, from, to time.Time) ([]domain.Interview, error) {
	if s.listInterviewsFn == nil {
		return nil, errors.New("unexpected ListInterviewsForInterviewers")
	}
	return s.listInterviewsFn(ctx, orgID, interviewerIDs, from, to)
}

func (s stubRepository) FindActiveUsers(ctx context.Context, orgID string, userIDs []string) ([]string, error) {
	if s.findActiveUsersFn == nil {
		return nil, errors.New("unexpected FindActiveUsers")
	}
	return s.findActiveUsersFn(ctx, orgID, userIDs)
}

func (s stubRepository) CandidateExists(ctx context.Context, orgID, candidateID string) (bool, error) {
	if s.candidateExistsFn == nil {
		return false, errors.New("unexpected CandidateExists")
	}
	return s.candidateExistsFn(ctx, orgID, candidateID)
}

func (s stubRepository) JobExists(ctx context.Context, orgID, jobID string) (bool, error) {
	if s.jobExistsFn == nil {
		return false, errors.New("unexpected JobExists")
	}
	return s.jobExistsFn(ctx, orgID, jobID)
}
