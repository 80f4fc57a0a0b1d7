package notify

import (
	"context"
	"log/slog"

	"github.com/hiretrack/interview-service/internal/domain"
)

// LogNotifier records owed cancellation notifications in the service log.
// Real delivery (email/SMS) lives behind the same interface in deployments
// that need it.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) InterviewCancelled(ctx context.Context, iv domain.Interview, reason string) {
	n.logger.InfoContext(ctx, "interview cancelled, participants owed notification",
		slog.String("interview_id", iv.InterviewID),
		slog.String("org_id", iv.OrgID),
		slog.String("candidate_id", iv.CandidateID),
		slog.Int("interviewers", len(iv.Interviewers)),
		slog.String("reason", reason),
	)
}
