package service

import (
	"sort"
	"time"

	"github.com/hiretrack/interview-service/internal/domain"
)

// Slots are generated on a fixed half-hour cadence from the window start.
const slotStepMinutes = 30

// WorkingWindow bounds availability planning within a day, expressed as
// minutes from midnight in the queried day's location.
type WorkingWindow struct {
	StartMinutes int
	EndMinutes   int
}

// DefaultWorkingWindow is 09:00-18:00.
var DefaultWorkingWindow = WorkingWindow{StartMinutes: 9 * 60, EndMinutes: 18 * 60}

// FindConflicts returns every interview in existing that occupies time
// overlapping span for at least one of the given interviewers. Only statuses
// that block the calendar are considered; excludeID skips an interview being
// re-checked against itself during update.
func FindConflicts(existing []domain.Interview, span domain.TimeSpan, interviewerIDs []string, excludeID string) []domain.Interview {
	requested := make(map[string]struct{}, len(interviewerIDs))
	for _, id := range interviewerIDs {
		requested[id] = struct{}{}
	}

	var conflicts []domain.Interview
	for _, iv := range existing {
		if iv.InterviewID == excludeID {
			continue
		}
		if !iv.Status.BlocksCalendar() {
			continue
		}
		if !iv.Span.Overlaps(span) {
			continue
		}
		for _, a := range iv.Interviewers {
			if _, ok := requested[a.InterviewerID]; ok {
				conflicts = append(conflicts, iv)
				break
			}
		}
	}

	return conflicts
}

// PlanAvailability enumerates candidate slots of the requested duration
// within the working window of day, reporting per slot which of the given
// interviewers are free. Slots that would run past the window end are
// dropped, and a slot is emitted only when at least one interviewer is free.
// The busy map always carries an entry (possibly empty) for every requested
// interviewer, sorted by span start.
func PlanAvailability(existing []domain.Interview, interviewerIDs []string, day time.Time, durationMinutes int, window WorkingWindow) domain.Availability {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	windowStart := midnight.Add(time.Duration(window.StartMinutes) * time.Minute)
	windowEnd := midnight.Add(time.Duration(window.EndMinutes) * time.Minute)

	busy := make(map[string][]domain.BusySpan, len(interviewerIDs))
	for _, id := range interviewerIDs {
		busy[id] = []domain.BusySpan{}
	}

	for _, iv := range existing {
		if !iv.Status.BlocksCalendar() {
			continue
		}
		for _, a := range iv.Interviewers {
			if spans, ok := busy[a.InterviewerID]; ok {
				busy[a.InterviewerID] = append(spans, domain.BusySpan{Span: iv.Span, Title: iv.Title})
			}
		}
	}

	for id := range busy {
		spans := busy[id]
		sort.SliceStable(spans, func(i, j int) bool {
			return spans[i].Span.Start.Before(spans[j].Span.Start)
		})
	}

	var slots []domain.AvailabilitySlot
	for start := windowStart; ; start = start.Add(slotStepMinutes * time.Minute) {
		candidate := domain.TimeSpan{Start: start, DurationMinutes: durationMinutes}
		if candidate.End().After(windowEnd) {
			break
		}

		var free []string
		for _, id := range interviewerIDs {
			occupied := false
			for _, b := range busy[id] {
				if b.Span.Overlaps(candidate) {
					occupied = true
					break
				}
			}
			if !occupied {
				free = append(free, id)
			}
		}

		if len(free) > 0 {
			slots = append(slots, domain.AvailabilitySlot{
				Start:            start,
				End:              candidate.End(),
				FreeInterviewers: free,
			})
		}
	}

	return domain.Availability{Slots: slots, Busy: busy}
}
