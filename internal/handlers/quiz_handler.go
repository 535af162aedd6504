package handlers

import (
	"net/http"
	"strconv"

	"github.com/classquiz/attempt-service/internal/models"
	"github.com/classquiz/attempt-service/internal/repositories"
	"github.com/classquiz/attempt-service/internal/services"
	"github.com/classquiz/attempt-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type QuizHandler struct {
	BaseHandler
	quizService services.QuizService
}

func NewQuizHandler(quizService services.QuizService, logger utils.Logger) *QuizHandler {
	return &QuizHandler{
		BaseHandler: NewBaseHandler(logger),
		quizService: quizService,
	}
}

// ListQuizzes returns the quiz snapshots available to play.
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	filters := repositories.QuizFilters{
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}
	if quizType := c.Query("type"); quizType != "" {
		t := models.QuizType(quizType)
		filters.Type = &t
	}
	if createdBy := c.Query("created_by"); createdBy != "" {
		filters.CreatedBy = &createdBy
	}
	filters.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	filters.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	quizzes, total, err := h.quizService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quizzes": quizzes,
		"total":   total,
	})
}

// GetQuizStats returns aggregated attempt outcomes for one quiz.
func (h *QuizHandler) GetQuizStats(c *gin.Context) {
	quizID := ParseStringIDParam(c, "id")
	if quizID == "" {
		return
	}

	h.LogRequest(c, "Fetching quiz stats", "quiz_id", quizID)

	stats, err := h.quizService.GetStats(c.Request.Context(), quizID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
