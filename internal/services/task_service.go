// internal/services/task_service.go
package services

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"taskeval/internal/apperrors"
	"taskeval/internal/evaluation"
	"taskeval/internal/models"
	"taskeval/internal/repositories"
)

const (
	titleMinLen       = 3
	titleMaxLen       = 200
	descriptionMinLen = 10
	descriptionMaxLen = 5000

	// attached files are code submissions; anything bigger than this is
	// not going into a prompt anyway
	maxFileContextBytes = 1 << 20
)

// TaskService is the task lifecycle controller: draft on create,
// evaluated after a successful model call, unlocked after payment.
type TaskService interface {
	Create(ctx context.Context, userID int64, req *models.CreateTaskRequest) (*models.Task, error)
	GetByID(ctx context.Context, userID int64, id string) (*models.Task, error)
	List(ctx context.Context, userID int64) ([]models.Task, error)
	Delete(ctx context.Context, userID int64, id string) error
	Evaluate(ctx context.Context, userID int64, id string) (*models.Task, error)
}

type taskService struct {
	repo       repositories.TaskRepository
	evaluator  evaluation.Evaluator
	fileClient *http.Client
}

// NewTaskService creates a new instance of TaskService.
func NewTaskService(repo repositories.TaskRepository, evaluator evaluation.Evaluator) TaskService {
	return &taskService{
		repo:       repo,
		evaluator:  evaluator,
		fileClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *taskService) Create(ctx context.Context, userID int64, req *models.CreateTaskRequest) (*models.Task, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	now := time.Now()
	task := &models.Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.FileURL != "" {
		fileURL := req.FileURL
		task.FileURL = &fileURL
	}

	if err := s.repo.Store(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func validateCreate(req *models.CreateTaskRequest) error {
	titleLen := utf8.RuneCountInString(req.Title)
	if titleLen < titleMinLen || titleLen > titleMaxLen {
		return apperrors.Validation("title must be between 3 and 200 characters")
	}
	descLen := utf8.RuneCountInString(req.Description)
	if descLen < descriptionMinLen || descLen > descriptionMaxLen {
		return apperrors.Validation("description must be between 10 and 5000 characters")
	}
	if req.FileURL != "" {
		u, err := url.ParseRequestURI(req.FileURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return apperrors.Validation("file_url must be a valid http(s) URL")
		}
	}
	return nil
}

func (s *taskService) GetByID(ctx context.Context, userID int64, id string) (*models.Task, error) {
	task, err := s.repo.FindByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, apperrors.NotFound("task not found")
	}
	return task, nil
}

func (s *taskService) List(ctx context.Context, userID int64) ([]models.Task, error) {
	return s.repo.FindAllByUser(ctx, userID)
}

func (s *taskService) Delete(ctx context.Context, userID int64, id string) error {
	deleted, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.NotFound("task not found")
	}
	return nil
}

// Evaluate scores a draft task. The write is conditional on ai_score
// still being NULL, so concurrent evaluations are serialized by the store:
// the loser observes zero affected rows and gets the same conflict as a
// caller hitting an already-evaluated task.
func (s *taskService) Evaluate(ctx context.Context, userID int64, id string) (*models.Task, error) {
	task, err := s.repo.FindByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, apperrors.NotFound("task not found")
	}
	if task.Evaluated() {
		return nil, apperrors.Conflict("task already evaluated")
	}

	input := evaluation.Input{
		Title:       task.Title,
		Description: task.Description,
	}
	if task.FileURL != nil {
		// best effort: a broken file link degrades to description-only
		// context instead of failing the evaluation
		content, err := s.fetchFileContent(ctx, *task.FileURL)
		if err != nil {
			log.Printf("[task][evaluate][warn] fetch file content id=%s: %v", id, err)
		} else {
			input.FileContent = content
		}
	}

	result, err := s.evaluator.Evaluate(ctx, input)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.SetEvaluation(ctx, id, userID, result.Score, result.Strengths, result.Improvements)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, apperrors.Conflict("task already evaluated")
	}

	return s.GetByID(ctx, userID, id)
}

func (s *taskService) fetchFileContent(ctx context.Context, fileURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.fileClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apperrors.External("file fetch returned non-OK status", nil)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxFileContextBytes))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
