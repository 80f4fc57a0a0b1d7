package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hiretrack/interview-service/internal/domain"
	"github.com/hiretrack/interview-service/internal/service"
)

// Store implements the service.Repository interface using PostgreSQL.
type pgxPool interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// querier is the read surface shared by the pool and an open transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool pgxPool
}

func New(pool pgxPool) *Store {
	return &Store{pool: pool}
}

const selectInterview = `SELECT interview_id, org_id, candidate_id, job_id, title, location, starts_at, duration_minutes,
	status, cancel_reason, overall_rating, decision, created_at, updated_at
	FROM interviews`

func (s *Store) GetInterview(ctx context.Context, orgID, interviewID string) (domain.Interview, error) {
	return getInterview(ctx, s.pool, orgID, interviewID, "")
}

func (s *Store) CreateInterview(ctx context.Context, iv domain.Interview, check service.ConflictCheck) (domain.Interview, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Interview{}, err
	}
	defer rollbackTx(ctx, tx)

	ids := iv.InterviewerIDs()
	if err := lockUsers(ctx, tx, iv.OrgID, ids); err != nil {
		return domain.Interview{}, err
	}

	if check != nil {
		existing, err := listInterviews(ctx, tx, iv.OrgID, ids, iv.Span.Start, iv.Span.End())
		if err != nil {
			return domain.Interview{}, err
		}
		if err := check(existing); err != nil {
			return domain.Interview{}, err
		}
	}

	insertInterview := `INSERT INTO interviews(interview_id, org_id, candidate_id, job_id, title, location, starts_at, duration_minutes, status, cancel_reason)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = tx.Exec(ctx, insertInterview,
		iv.InterviewID, iv.OrgID, iv.CandidateID, iv.JobID, iv.Title, iv.Location,
		iv.Span.Start, iv.Span.DurationMinutes, string(iv.Status), iv.CancelReason)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Interview{}, domain.NewValidationError("interview already exists")
		}
		return domain.Interview{}, err
	}

	if err := insertAssignments(ctx, tx, iv.InterviewID, iv.Interviewers); err != nil {
		return domain.Interview{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Interview{}, err
	}

	return s.GetInterview(ctx, iv.OrgID, iv.InterviewID)
}

func (s *Store) UpdateInterview(ctx context.Context, iv domain.Interview, check service.ConflictCheck) (domain.Interview, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Interview{}, err
	}
	defer rollbackTx(ctx, tx)

	var status string
	row := tx.QueryRow(ctx, `SELECT status FROM interviews WHERE interview_id=$1 AND org_id=$2 AND deleted=false FOR UPDATE`, iv.InterviewID, iv.OrgID)
	if scanErr := row.Scan(&status); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return domain.Interview{}, domain.NewNotFoundError("interview not found", scanErr)
		}
		return domain.Interview{}, scanErr
	}

	// The service gates on status before this transaction; re-check under the
	// row lock so a concurrently committed cancel or completion is not
	// overwritten.
	if current := domain.Status(status); current.Terminal() {
		return domain.Interview{}, domain.NewTerminalStateError(current)
	}

	if check != nil {
		ids := iv.InterviewerIDs()
		if err := lockUsers(ctx, tx, iv.OrgID, ids); err != nil {
			return domain.Interview{}, err
		}
		existing, err := listInterviews(ctx, tx, iv.OrgID, ids, iv.Span.Start, iv.Span.End())
		if err != nil {
			return domain.Interview{}, err
		}
		if err := check(existing); err != nil {
			return domain.Interview{}, err
		}
	}

	updateInterview := `UPDATE interviews
		SET title=$3, location=$4, starts_at=$5, duration_minutes=$6, status=$7, cancel_reason=$8, updated_at=NOW()
		WHERE interview_id=$1 AND org_id=$2`
	_, err = tx.Exec(ctx, updateInterview,
		iv.InterviewID, iv.OrgID, iv.Title, iv.Location,
		iv.Span.Start, iv.Span.DurationMinutes, string(iv.Status), iv.CancelReason)
	if err != nil {
		return domain.Interview{}, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM interview_interviewers WHERE interview_id=$1`, iv.InterviewID); err != nil {
		return domain.Interview{}, err
	}
	if err := insertAssignments(ctx, tx, iv.InterviewID, iv.Interviewers); err != nil {
		return domain.Interview{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Interview{}, err
	}

	return s.GetInterview(ctx, iv.OrgID, iv.InterviewID)
}

func (s *Store) SubmitFeedback(ctx context.Context, orgID, interviewID string, apply service.ApplyFeedbackFunc) (domain.Interview, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Interview{}, err
	}
	defer rollbackTx(ctx, tx)

	iv, err := getInterview(ctx, tx, orgID, interviewID, " FOR UPDATE")
	if err != nil {
		return domain.Interview{}, err
	}

	updated, err := apply(iv)
	if err != nil {
		return domain.Interview{}, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM interview_feedback WHERE interview_id=$1`, interviewID); err != nil {
		return domain.Interview{}, err
	}

	insertFeedback := `INSERT INTO interview_feedback(interview_id, interviewer_id, rating, recommendation, strengths, weaknesses, comments, per_question, submitted_at, position)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for pos, fb := range updated.Feedback {
		perQuestion, err := json.Marshal(fb.PerQuestion)
		if err != nil {
			return domain.Interview{}, fmt.Errorf("marshal per_question: %w", err)
		}
		_, err = tx.Exec(ctx, insertFeedback,
			interviewID, fb.InterviewerID, fb.Rating, string(fb.Recommendation),
			fb.Strengths, fb.Weaknesses, fb.Comments, perQuestion, fb.SubmittedAt, pos)
		if err != nil {
			return domain.Interview{}, err
		}
	}

	var decision *string
	if updated.Decision != nil {
		d := string(*updated.Decision)
		decision = &d
	}
	_, err = tx.Exec(ctx, `UPDATE interviews SET overall_rating=$2, decision=$3, updated_at=NOW() WHERE interview_id=$1`,
		interviewID, updated.OverallRating, decision)
	if err != nil {
		return domain.Interview{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Interview{}, err
	}

	return s.GetInterview(ctx, orgID, interviewID)
}

func (s *Store) ListInterviewsForInterviewers(ctx context.Context, orgID string, interviewerIDs []string, from, to time.Time) ([]domain.Interview, error) {
	return listInterviews(ctx, s.pool, orgID, interviewerIDs, from, to)
}

func (s *Store) FindActiveUsers(ctx context.Context, orgID string, userIDs []string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_id FROM users WHERE org_id=$1 AND user_id = ANY($2) AND is_active=true`, orgID, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) CandidateExists(ctx context.Context, orgID, candidateID string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM candidates WHERE candidate_id=$1 AND org_id=$2 AND deleted=false`, candidateID, orgID)
}

func (s *Store) JobExists(ctx context.Context, orgID, jobID string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM jobs WHERE job_id=$1 AND org_id=$2 AND deleted=false`, jobID, orgID)
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Helper functions

func getInterview(ctx context.Context, q querier, orgID, interviewID, locking string) (domain.Interview, error) {
	row := q.QueryRow(ctx, selectInterview+` WHERE interview_id=$1 AND org_id=$2 AND deleted=false`+locking, interviewID, orgID)
	iv, err := scanInterviewRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Interview{}, domain.NewNotFoundError("interview not found", err)
		}
		return domain.Interview{}, err
	}

	iv.Interviewers, err = listAssignments(ctx, q, interviewID)
	if err != nil {
		return domain.Interview{}, err
	}

	iv.Feedback, err = listFeedback(ctx, q, interviewID)
	if err != nil {
		return domain.Interview{}, err
	}

	return iv, nil
}

func listInterviews(ctx context.Context, q querier, orgID string, interviewerIDs []string, from, to time.Time) ([]domain.Interview, error) {
	rows, err := q.Query(ctx, `SELECT DISTINCT i.interview_id, i.starts_at
		FROM interviews i
		JOIN interview_interviewers a ON a.interview_id = i.interview_id
		WHERE i.org_id=$1 AND a.interviewer_id = ANY($2) AND i.deleted=false
		  AND i.starts_at < $4
		  AND i.starts_at + make_interval(mins => i.duration_minutes) > $3
		ORDER BY i.starts_at, i.interview_id`, orgID, interviewerIDs, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		var startsAt time.Time
		if err := rows.Scan(&id, &startsAt); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	interviews := make([]domain.Interview, 0, len(ids))
	for _, id := range ids {
		iv, err := getInterview(ctx, q, orgID, id, "")
		if err != nil {
			return nil, err
		}
		interviews = append(interviews, iv)
	}

	return interviews, nil
}

// lockUsers serializes concurrent schedule writes that touch the same
// interviewer: the conflict check and the insert commit as one unit.
func lockUsers(ctx context.Context, tx pgx.Tx, orgID string, userIDs []string) error {
	rows, err := tx.Query(ctx, `SELECT user_id FROM users WHERE org_id=$1 AND user_id = ANY($2) ORDER BY user_id FOR UPDATE`, orgID, userIDs)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
	}
	return rows.Err()
}

func insertAssignments(ctx context.Context, tx pgx.Tx, interviewID string, assignments []domain.InterviewerAssignment) error {
	insert := `INSERT INTO interview_interviewers(interview_id, interviewer_id, role, confirmed, position)
		VALUES($1, $2, $3, $4, $5)`
	for pos, a := range assignments {
		if _, err := tx.Exec(ctx, insert, interviewID, a.InterviewerID, string(a.Role), a.Confirmed, pos); err != nil {
			if isUniqueViolation(err) {
				return domain.NewValidationError("duplicate interviewer in assignment list")
			}
			return err
		}
	}
	return nil
}

func listAssignments(ctx context.Context, q querier, interviewID string) ([]domain.InterviewerAssignment, error) {
	rows, err := q.Query(ctx, `SELECT interviewer_id, role, confirmed FROM interview_interviewers WHERE interview_id=$1 ORDER BY position`, interviewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []domain.InterviewerAssignment
	for rows.Next() {
		var a domain.InterviewerAssignment
		var role string
		if err := rows.Scan(&a.InterviewerID, &role, &a.Confirmed); err != nil {
			return nil, err
		}
		a.Role = domain.Role(role)
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func listFeedback(ctx context.Context, q querier, interviewID string) ([]domain.FeedbackEntry, error) {
	rows, err := q.Query(ctx, `SELECT interviewer_id, rating, recommendation, strengths, weaknesses, comments, per_question, submitted_at
		FROM interview_feedback WHERE interview_id=$1 ORDER BY position`, interviewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feedback []domain.FeedbackEntry
	for rows.Next() {
		var fb domain.FeedbackEntry
		var recommendation string
		var perQuestion []byte
		if err := rows.Scan(&fb.InterviewerID, &fb.Rating, &recommendation, &fb.Strengths, &fb.Weaknesses, &fb.Comments, &perQuestion, &fb.SubmittedAt); err != nil {
			return nil, err
		}
		fb.Recommendation = domain.Recommendation(recommendation)
		if len(perQuestion) > 0 {
			if err := json.Unmarshal(perQuestion, &fb.PerQuestion); err != nil {
				return nil, fmt.Errorf("unmarshal per_question: %w", err)
			}
		}
		feedback = append(feedback, fb)
	}
	return feedback, rows.Err()
}

func scanInterviewRow(row pgx.Row) (domain.Interview, error) {
	var iv domain.Interview
	var status string
	var rating sql.NullFloat64
	var decision sql.NullString
	err := row.Scan(&iv.InterviewID, &iv.OrgID, &iv.CandidateID, &iv.JobID, &iv.Title, &iv.Location,
		&iv.Span.Start, &iv.Span.DurationMinutes, &status, &iv.CancelReason, &rating, &decision,
		&iv.CreatedAt, &iv.UpdatedAt)
	if err != nil {
		return domain.Interview{}, err
	}
	iv.Status = domain.Status(status)
	if rating.Valid {
		iv.OverallRating = &rating.Float64
	}
	if decision.Valid {
		d := domain.Decision(decision.String)
		iv.Decision = &d
	}
	return iv, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func rollbackTx(ctx context.Context, tx pgx.Tx) {
	if tx == nil {
		return
	}
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		_ = err // rollback is best-effort; nothing else to do here
	}
}
