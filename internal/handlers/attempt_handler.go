package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/classquiz/attempt-service/internal/models"
	"github.com/classquiz/attempt-service/internal/repositories"
	"github.com/classquiz/attempt-service/internal/services"
	"github.com/classquiz/attempt-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewAttemptHandler(attemptService services.AttemptService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
	}
}

// StartAttempt creates a new attempt or resumes the student's active one.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	studentID, ok := RequireStudentID(c)
	if !ok {
		return
	}

	var req services.StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Starting attempt", "quiz_id", req.QuizID)

	response, err := h.attemptService.Start(c.Request.Context(), &req, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// GetAttempt returns one attempt with its quiz snapshot.
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	studentID, ok := RequireStudentID(c)
	if !ok {
		return
	}
	attemptID := ParseStringIDParam(c, "id")
	if attemptID == "" {
		return
	}

	response, err := h.attemptService.GetByID(c.Request.Context(), attemptID, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ListAttempts returns the caller's attempts, newest first.
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	studentID, ok := RequireStudentID(c)
	if !ok {
		return
	}

	filters := repositories.AttemptFilters{
		Status:    models.AttemptStatus(c.Query("status")),
		SortBy:    c.DefaultQuery("sort_by", "started_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}
	if quizID := c.Query("quiz_id"); quizID != "" {
		filters.QuizID = &quizID
	}
	filters.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	filters.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	attempts, total, err := h.attemptService.List(c.Request.Context(), filters, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attempts": attempts,
		"total":    total,
	})
}

// SaveAnswers merges an answers payload into the attempt and returns the new
// attempt version.
func (h *AttemptHandler) SaveAnswers(c *gin.Context) {
	studentID, ok := RequireStudentID(c)
	if !ok {
		return
	}
	attemptID := ParseStringIDParam(c, "id")
	if attemptID == "" {
		return
	}

	var req services.SaveAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	response, err := h.attemptService.SaveAnswers(c.Request.Context(), attemptID, &req, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// FinishAttempt freezes the attempt and returns its score data. Repeated
// calls return the stored result.
func (h *AttemptHandler) FinishAttempt(c *gin.Context) {
	studentID, ok := RequireStudentID(c)
	if !ok {
		return
	}
	attemptID := ParseStringIDParam(c, "id")
	if attemptID == "" {
		return
	}

	h.LogRequest(c, "Finishing attempt", "attempt_id", attemptID)

	response, err := h.attemptService.Finish(c.Request.Context(), attemptID, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetTimeRemaining returns the server-computed remaining seconds.
func (h *AttemptHandler) GetTimeRemaining(c *gin.Context) {
	studentID, ok := RequireStudentID(c)
	if !ok {
		return
	}
	attemptID := ParseStringIDParam(c, "id")
	if attemptID == "" {
		return
	}

	remaining, err := h.attemptService.TimeRemaining(c.Request.Context(), attemptID, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"time_remaining": remaining})
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"action": permissionError.Action,
				"reason": permissionError.Reason,
			},
		})
		return
	}

	switch {
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: err.Error(),
		})
	case services.IsValidation(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: err.Error(),
		})
	case services.IsConflict(err):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: err.Error(),
		})
	default:
		h.LogError(c, err, "Unhandled service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
