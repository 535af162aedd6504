package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/classquiz/attempt-service/internal/cache"
	"github.com/classquiz/attempt-service/internal/events"
	"github.com/classquiz/attempt-service/internal/models"
	"github.com/classquiz/attempt-service/internal/repositories"
	"github.com/classquiz/attempt-service/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	cache     cache.AttemptCache
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAttemptService(
	repo repositories.Repository,
	attemptCache cache.AttemptCache,
	publisher events.EventPublisher,
	logger *slog.Logger,
	v *validator.Validator,
) AttemptService {
	return &attemptService{
		repo:      repo,
		cache:     attemptCache,
		publisher: publisher,
		logger:    logger,
		validator: v,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, studentID string) (*AttemptResponse, error) {
	s.logger.Info("Starting attempt",
		"quiz_id", req.QuizID,
		"student_id", studentID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	quiz, err := s.repo.Quiz().GetByIDWithDetails(ctx, req.QuizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	// An in-progress attempt is resumed, never duplicated. The cache makes
	// the common resume path cheap; the database stays authoritative.
	if existing := s.findActiveAttempt(ctx, studentID, req.QuizID); existing != nil {
		if existing.Expired(quiz, time.Now()) {
			if err := s.HandleTimeout(ctx, existing.ID); err != nil {
				s.logger.Error("Failed to expire stale attempt", "attempt_id", existing.ID, "error", err)
			}
		} else {
			s.logger.Info("Resuming existing attempt", "attempt_id", existing.ID)
			s.publishEvent(ctx, events.EventAttemptStarted, &events.AttemptStartedEvent{
				AttemptID: existing.ID,
				QuizID:    quiz.ID,
				QuizType:  quiz.Type,
				StudentID: studentID,
				StartedAt: existing.StartedAt,
				Resumed:   true,
			})
			return s.buildAttemptResponse(existing, quiz), nil
		}
	}

	emptyAnswers, _ := json.Marshal(models.AnswersPayload{})
	attempt := &models.Attempt{
		ID:             uuid.NewString(),
		QuizID:         req.QuizID,
		ScheduleID:     req.ScheduleID,
		StudentID:      studentID,
		Status:         models.AttemptStatusInProgress,
		StartedAt:      time.Now(),
		AttemptVersion: 1,
		Answers:        emptyAnswers,
	}

	if err := s.repo.Attempt().Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	s.cacheAttemptState(ctx, attempt, quiz)

	s.logger.Info("Attempt started",
		"attempt_id", attempt.ID,
		"quiz_id", req.QuizID,
		"student_id", studentID)

	s.publishEvent(ctx, events.EventAttemptStarted, &events.AttemptStartedEvent{
		AttemptID: attempt.ID,
		QuizID:    quiz.ID,
		QuizType:  quiz.Type,
		StudentID: studentID,
		StartedAt: attempt.StartedAt,
	})

	attempt.Quiz = *quiz
	return s.buildAttemptResponse(attempt, quiz), nil
}

func (s *attemptService) GetByID(ctx context.Context, id string, studentID string) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByIDWithQuiz(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.StudentID != studentID {
		return nil, NewPermissionError(studentID, id, "read", "not owned by student")
	}

	return s.buildAttemptResponse(attempt, &attempt.Quiz), nil
}

func (s *attemptService) List(ctx context.Context, filters repositories.AttemptFilters, studentID string) ([]*models.Attempt, int64, error) {
	// Students only ever see their own attempts.
	filters.StudentID = &studentID

	attempts, total, err := s.repo.Attempt().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, total, nil
}

// ===== ANSWER PERSISTENCE =====

// SaveAnswers merges a partial or full payload into the stored snapshot and
// returns the new attempt version. The client never sends a version;
// whatever this returns is the authority.
func (s *attemptService) SaveAnswers(ctx context.Context, attemptID string, req *SaveAnswersRequest, studentID string) (*SaveAnswersResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	attempt, err := s.repo.Attempt().GetByIDWithQuiz(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.StudentID != studentID {
		return nil, NewPermissionError(studentID, attemptID, "save_answers", "not owned by student")
	}
	if attempt.Status != models.AttemptStatusInProgress {
		return nil, ErrAttemptNotActive
	}
	if attempt.Expired(&attempt.Quiz, time.Now()) {
		if err := s.HandleTimeout(ctx, attemptID); err != nil {
			s.logger.Error("Failed to handle timeout", "attempt_id", attemptID, "error", err)
		}
		return nil, ErrAttemptTimeExpired
	}

	// Payload keys must be a subset of the quiz's item/entry ids.
	validIDs := attempt.Quiz.ItemIDs()
	for key := range req.Answers {
		if _, ok := validIDs[key]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAnswerKey, key)
		}
	}

	stored := make(models.AnswersPayload)
	if len(attempt.Answers) > 0 {
		if err := json.Unmarshal(attempt.Answers, &stored); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedAnswersPayload, err)
		}
	}
	stored.Merge(req.Answers)

	merged, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal answers: %w", err)
	}

	version, err := s.repo.Attempt().SaveAnswers(ctx, attemptID, merged)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotActive
		}
		return nil, fmt.Errorf("failed to save answers: %w", err)
	}

	s.logger.Info("Answers saved",
		"attempt_id", attemptID,
		"attempt_version", version,
		"answer_count", len(req.Answers))

	s.publishEvent(ctx, events.EventAttemptAnswersSaved, &events.AttemptAnswersSavedEvent{
		AttemptID:      attemptID,
		StudentID:      studentID,
		AttemptVersion: version,
		AnswerCount:    len(req.Answers),
	})

	return &SaveAnswersResponse{AttemptVersion: version}, nil
}

// ===== FINALIZATION =====

// Finish freezes the attempt and scores it. Finishing an already-finished
// attempt returns the stored result instead of an error so a retried
// finalize call stays harmless.
func (s *attemptService) Finish(ctx context.Context, attemptID string, studentID string) (*FinishAttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByIDWithQuiz(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.StudentID != studentID {
		return nil, NewPermissionError(studentID, attemptID, "finish", "not owned by student")
	}

	if attempt.Status != models.AttemptStatusInProgress {
		return s.buildFinishResponse(attempt), nil
	}

	reason := models.AttemptEndReasonSubmitted
	if attempt.Expired(&attempt.Quiz, time.Now()) {
		reason = models.AttemptEndReasonTimeout
	}

	if err := s.finalize(ctx, attempt, reason); err != nil {
		return nil, err
	}

	return s.buildFinishResponse(attempt), nil
}

// HandleTimeout expires one attempt. Idempotent: an attempt already out of
// in_progress is left alone.
func (s *attemptService) HandleTimeout(ctx context.Context, attemptID string) error {
	attempt, err := s.repo.Attempt().GetByIDWithQuiz(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.Status != models.AttemptStatusInProgress {
		return nil // Already handled
	}

	s.logger.Info("Handling attempt timeout", "attempt_id", attemptID)
	return s.finalize(ctx, attempt, models.AttemptEndReasonTimeout)
}

// SweepExpired times out every in-progress attempt past its deadline,
// returning how many were expired. Run periodically from the server loop.
func (s *attemptService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.repo.Attempt().GetExpiredAttempts(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired attempts: %w", err)
	}

	count := 0
	for _, attempt := range expired {
		if err := s.HandleTimeout(ctx, attempt.ID); err != nil {
			s.logger.Error("Failed to expire attempt", "attempt_id", attempt.ID, "error", err)
			continue
		}
		count++
	}
	return count, nil
}

// ===== TIME MANAGEMENT =====

// TimeRemaining reports the seconds left until the attempt's deadline. The
// cache stores the fixed deadline instant, never a remaining count, so every
// read counts down from the clock regardless of where it is served from.
func (s *attemptService) TimeRemaining(ctx context.Context, attemptID string, studentID string) (int, error) {
	if owner, deadline, err := s.cache.GetAttemptDeadline(ctx, attemptID); err == nil {
		if owner != studentID {
			return 0, NewPermissionError(studentID, attemptID, "get_time_remaining", "not owned by student")
		}
		return remainingUntil(deadline), nil
	}

	attempt, err := s.repo.Attempt().GetByIDWithQuiz(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return 0, ErrAttemptNotFound
		}
		return 0, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.StudentID != studentID {
		return 0, NewPermissionError(studentID, attemptID, "get_time_remaining", "not owned by student")
	}
	if attempt.Status != models.AttemptStatusInProgress {
		return 0, ErrAttemptNotActive
	}

	deadline := attempt.Deadline(&attempt.Quiz)
	if deadline == nil {
		return 0, nil // Untimed
	}

	if err := s.cache.SetAttemptDeadline(ctx, attemptID, attempt.StudentID, *deadline); err != nil {
		s.logger.Warn("Failed to cache attempt deadline", "attempt_id", attemptID, "error", err)
	}
	return remainingUntil(*deadline), nil
}

func remainingUntil(deadline time.Time) int {
	remaining := int(time.Until(deadline).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ===== HELPERS =====

// finalize moves an in-progress attempt to its terminal status, scores it
// and publishes the lifecycle event.
func (s *attemptService) finalize(ctx context.Context, attempt *models.Attempt, reason models.AttemptEndReason) error {
	score, maxScore, err := ScoreAttempt(attempt, &attempt.Quiz)
	if err != nil {
		return fmt.Errorf("failed to score attempt: %w", err)
	}

	now := time.Now()
	if reason == models.AttemptEndReasonTimeout {
		attempt.Status = models.AttemptStatusTimedOut
	} else {
		attempt.Status = models.AttemptStatusFinished
	}
	attempt.FinishedAt = &now
	attempt.EndReason = &reason
	attempt.Score = &score
	attempt.MaxScore = &maxScore

	if err := s.repo.Attempt().Update(ctx, attempt); err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}

	_ = s.cache.InvalidateAttempt(ctx, attempt.ID)
	_ = s.cache.ClearActiveAttempt(ctx, attempt.StudentID, attempt.QuizID)

	s.logger.Info("Attempt finalized",
		"attempt_id", attempt.ID,
		"end_reason", reason,
		"score", score,
		"max_score", maxScore)

	eventType := events.EventAttemptFinished
	if reason == models.AttemptEndReasonTimeout {
		eventType = events.EventAttemptTimedOut
	}
	s.publishEvent(ctx, eventType, &events.AttemptFinishedEvent{
		AttemptID: attempt.ID,
		QuizID:    attempt.QuizID,
		StudentID: attempt.StudentID,
		Score:     score,
		MaxScore:  maxScore,
		EndReason: reason,
	})
	return nil
}

func (s *attemptService) findActiveAttempt(ctx context.Context, studentID, quizID string) *models.Attempt {
	if attemptID, err := s.cache.GetActiveAttempt(ctx, studentID, quizID); err == nil {
		if attempt, err := s.repo.Attempt().GetByID(ctx, attemptID); err == nil &&
			attempt.Status == models.AttemptStatusInProgress {
			return attempt
		}
	}
	attempt, err := s.repo.Attempt().GetActiveAttempt(ctx, studentID, quizID)
	if err != nil {
		return nil
	}
	return attempt
}

func (s *attemptService) cacheAttemptState(ctx context.Context, attempt *models.Attempt, quiz *models.Quiz) {
	ttl := 24 * time.Hour
	if deadline := attempt.Deadline(quiz); deadline != nil {
		ttl = time.Until(*deadline)
		if err := s.cache.SetAttemptDeadline(ctx, attempt.ID, attempt.StudentID, *deadline); err != nil {
			s.logger.Warn("Failed to cache attempt deadline", "attempt_id", attempt.ID, "error", err)
		}
	}
	if ttl > 0 {
		if err := s.cache.SetActiveAttempt(ctx, attempt.StudentID, attempt.QuizID, attempt.ID, ttl); err != nil {
			s.logger.Warn("Failed to cache active attempt", "attempt_id", attempt.ID, "error", err)
		}
	}
}

func (s *attemptService) buildAttemptResponse(attempt *models.Attempt, quiz *models.Quiz) *AttemptResponse {
	response := &AttemptResponse{Attempt: attempt}

	now := time.Now()
	response.CanSave = attempt.Status == models.AttemptStatusInProgress && !attempt.Expired(quiz, now)

	if deadline := attempt.Deadline(quiz); deadline != nil && attempt.Status == models.AttemptStatusInProgress {
		remaining := int(deadline.Sub(now).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		response.TimeRemaining = &remaining
	}
	return response
}

func (s *attemptService) buildFinishResponse(attempt *models.Attempt) *FinishAttemptResponse {
	response := &FinishAttemptResponse{
		QuizName:         attempt.Quiz.Name,
		AnswersAvailable: attemptHasAnswers(attempt),
	}
	if attempt.Score != nil {
		response.Score = *attempt.Score
	}
	if attempt.MaxScore != nil {
		response.MaxScore = *attempt.MaxScore
	}
	if attempt.ScheduleID != nil {
		response.ScheduleID = *attempt.ScheduleID
	}
	if attempt.EndReason != nil {
		response.EndReason = string(*attempt.EndReason)
	}
	if attempt.FinishedAt != nil {
		finished := attempt.FinishedAt.Format(time.RFC3339)
		response.FinishedAt = &finished
	}
	return response
}

// attemptHasAnswers reports whether the stored payload holds at least one
// answer. Start seeds every attempt with a marshaled empty map, so the raw
// byte length alone says nothing.
func attemptHasAnswers(attempt *models.Attempt) bool {
	if len(attempt.Answers) == 0 {
		return false
	}
	stored := make(models.AnswersPayload)
	if err := json.Unmarshal(attempt.Answers, &stored); err != nil {
		return false
	}
	return len(stored) > 0
}

func (s *attemptService) publishEvent(ctx context.Context, eventType events.EventType, data interface{}) {
	event := &events.AttemptEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    "attempt-service",
		Version:   "1.0",
		Data:      data,
	}
	if err := s.publisher.PublishAttemptEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish attempt event",
			"event_type", eventType,
			"error", err)
	}
}
