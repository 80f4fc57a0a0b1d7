package transport

import (
	"errors"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hiretrack/interview-service/internal/domain"
	"github.com/hiretrack/interview-service/internal/service"
)

// NewServer wires routes and returns a configured gin.Engine.
func NewServer(svc *service.Service) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())

	h := handler{svc: svc}

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, gin.H{"status": "ok"})
	})

	interviews := engine.Group("/interviews")
	{
		interviews.POST("/create", h.createInterview)
		interviews.POST("/update", h.updateInterview)
		interviews.POST("/cancel", h.cancelInterview)
		interviews.POST("/feedback", h.submitFeedback)
		interviews.GET("/get", h.getInterview)
	}

	engine.GET("/availability", h.planAvailability)

	return engine
}

type handler struct {
	svc *service.Service
}

type assignmentPayload struct {
	InterviewerID string `json:"interviewer_id" binding:"required"`
	Role          string `json:"role"`
	Confirmed     bool   `json:"confirmed"`
}

type createInterviewRequest struct {
	OrgID           string              `json:"org_id" binding:"required"`
	CandidateID     string              `json:"candidate_id" binding:"required"`
	JobID           string              `json:"job_id" binding:"required"`
	Title           string              `json:"title"`
	Location        string              `json:"location"`
	StartsAt        time.Time           `json:"starts_at" binding:"required"`
	DurationMinutes int                 `json:"duration_minutes" binding:"required"`
	Interviewers    []assignmentPayload `json:"interviewers" binding:"required"`
}

type updateInterviewRequest struct {
	OrgID           string              `json:"org_id" binding:"required"`
	InterviewID     string              `json:"interview_id" binding:"required"`
	Title           *string             `json:"title"`
	Location        *string             `json:"location"`
	StartsAt        *time.Time          `json:"starts_at"`
	DurationMinutes *int                `json:"duration_minutes"`
	Status          *string             `json:"status"`
	Interviewers    []assignmentPayload `json:"interviewers"`
}

type cancelInterviewRequest struct {
	OrgID       string `json:"org_id" binding:"required"`
	InterviewID string `json:"interview_id" binding:"required"`
	Reason      string `json:"reason"`
	Notify      bool   `json:"notify"`
}

type submitFeedbackRequest struct {
	OrgID          string                 `json:"org_id" binding:"required"`
	InterviewID    string                 `json:"interview_id" binding:"required"`
	InterviewerID  string                 `json:"interviewer_id" binding:"required"`
	Rating         float64                `json:"rating" binding:"required"`
	Recommendation string                 `json:"recommendation" binding:"required"`
	Strengths      string                 `json:"strengths"`
	Weaknesses     string                 `json:"weaknesses"`
	Comments       string                 `json:"comments"`
	PerQuestion    []domain.QuestionScore `json:"per_question"`
}

func (h handler) createInterview(c *gin.Context) {
	var req createInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	iv, err := h.svc.CreateInterview(c.Request.Context(), service.CreateInterviewInput{
		OrgID:           req.OrgID,
		CandidateID:     req.CandidateID,
		JobID:           req.JobID,
		Title:           req.Title,
		Location:        req.Location,
		StartsAt:        req.StartsAt,
		DurationMinutes: req.DurationMinutes,
		Interviewers:    toAssignments(req.Interviewers),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(nethttp.StatusCreated, gin.H{"interview": iv})
}

func (h handler) updateInterview(c *gin.Context) {
	var req updateInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	input := service.UpdateInterviewInput{
		OrgID:           req.OrgID,
		InterviewID:     req.InterviewID,
		Title:           req.Title,
		Location:        req.Location,
		StartsAt:        req.StartsAt,
		DurationMinutes: req.DurationMinutes,
	}
	if req.Status != nil {
		status := domain.Status(*req.Status)
		input.Status = &status
	}
	if req.Interviewers != nil {
		input.Interviewers = toAssignments(req.Interviewers)
	}

	iv, err := h.svc.UpdateInterview(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(nethttp.StatusOK, gin.H{"interview": iv})
}

func (h handler) cancelInterview(c *gin.Context) {
	var req cancelInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	iv, err := h.svc.CancelInterview(c.Request.Context(), req.OrgID, req.InterviewID, req.Reason, req.Notify)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(nethttp.StatusOK, gin.H{"interview": iv})
}

func (h handler) submitFeedback(c *gin.Context) {
	var req submitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	iv, err := h.svc.SubmitFeedback(c.Request.Context(), service.SubmitFeedbackInput{
		OrgID:          req.OrgID,
		InterviewID:    req.InterviewID,
		InterviewerID:  req.InterviewerID,
		Rating:         req.Rating,
		Recommendation: domain.Recommendation(req.Recommendation),
		Strengths:      req.Strengths,
		Weaknesses:     req.Weaknesses,
		Comments:       req.Comments,
		PerQuestion:    req.PerQuestion,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(nethttp.StatusOK, gin.H{"interview": iv})
}

func (h handler) getInterview(c *gin.Context) {
	orgID := c.Query("org_id")
	interviewID := c.Query("interview_id")
	if orgID == "" || interviewID == "" {
		respondValidationError(c, errors.New("org_id and interview_id are required"))
		return
	}

	iv, err := h.svc.GetInterview(c.Request.Context(), orgID, interviewID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(nethttp.StatusOK, iv)
}

func (h handler) planAvailability(c *gin.Context) {
	orgID := c.Query("org_id")
	if orgID == "" {
		respondValidationError(c, errors.New("org_id is required"))
		return
	}

	var interviewerIDs []string
	for _, id := range strings.Split(c.Query("interviewer_ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			interviewerIDs = append(interviewerIDs, id)
		}
	}
	if len(interviewerIDs) == 0 {
		respondValidationError(c, errors.New("interviewer_ids is required"))
		return
	}

	day, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		respondValidationError(c, errors.New("date must be formatted as YYYY-MM-DD"))
		return
	}

	duration, err := strconv.Atoi(c.Query("duration_minutes"))
	if err != nil {
		respondValidationError(c, errors.New("duration_minutes must be an integer"))
		return
	}

	availability, err := h.svc.PlanAvailability(c.Request.Context(), orgID, interviewerIDs, day, duration)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(nethttp.StatusOK, availability)
}

func toAssignments(payload []assignmentPayload) []domain.InterviewerAssignment {
	assignments := make([]domain.InterviewerAssignment, 0, len(payload))
	for _, p := range payload {
		role := domain.Role(p.Role)
		if p.Role == "" {
			role = domain.RolePrimary
		}
		assignments = append(assignments, domain.InterviewerAssignment{
			InterviewerID: p.InterviewerID,
			Role:          role,
			Confirmed:     p.Confirmed,
		})
	}
	return assignments
}

func respondValidationError(c *gin.Context, err error) {
	writeError(c, nethttp.StatusBadRequest, domain.ErrCodeValidation, err.Error(), nil)
}

func respondError(c *gin.Context, err error) {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		writeError(c, appErr.Status, appErr.Code, appErr.Message, appErr.Conflicts)
		return
	}
	writeError(c, nethttp.StatusInternalServerError, domain.ErrCodeInternal, "internal error", nil)
}

func writeError(c *gin.Context, status int, code domain.ErrorCode, message string, conflicts []string) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if len(conflicts) > 0 {
		body["conflicts"] = conflicts
	}
	c.JSON(status, gin.H{"error": body})
}
