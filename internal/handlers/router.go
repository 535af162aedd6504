package handlers

import (
	"github.com/classquiz/attempt-service/internal/services"
	"github.com/classquiz/attempt-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	attemptHandler *AttemptHandler
	quizHandler    *QuizHandler
}

func NewHandlerManager(attemptService services.AttemptService, quizService services.QuizService, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		attemptHandler: NewAttemptHandler(attemptService, logger),
		quizHandler:    NewQuizHandler(quizService, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")
	{
		attempts := v1.Group("/attempts")
		{
			attempts.POST("", hm.attemptHandler.StartAttempt)
			attempts.GET("", hm.attemptHandler.ListAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.PUT("/:id/answers", hm.attemptHandler.SaveAnswers)
			attempts.POST("/:id/finish", hm.attemptHandler.FinishAttempt)
			attempts.GET("/:id/time", hm.attemptHandler.GetTimeRemaining)
		}

		quizzes := v1.Group("/quizzes")
		{
			quizzes.GET("", hm.quizHandler.ListQuizzes)
			quizzes.GET("/:id/stats", hm.quizHandler.GetQuizStats)
		}
	}
}
