package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskeval/internal/apperrors"
	"taskeval/internal/evaluation"
	"taskeval/internal/models"
)

// in-memory TaskRepository used across the service tests
type fakeTaskRepo struct {
	tasks        map[string]*models.Task
	evalConflict bool // force the conditional update to report a lost race
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[string]*models.Task{}}
}

func (r *fakeTaskRepo) Store(_ context.Context, task *models.Task) error {
	cp := *task
	r.tasks[task.ID] = &cp
	return nil
}

func (r *fakeTaskRepo) FindByID(_ context.Context, id string, userID int64) (*models.Task, error) {
	t, ok := r.tasks[id]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTaskRepo) FindAllByUser(_ context.Context, userID int64) ([]models.Task, error) {
	var out []models.Task
	for _, t := range r.tasks {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) SetEvaluation(_ context.Context, id string, userID int64, score int, strengths, improvements []string) (bool, error) {
	if r.evalConflict {
		return false, nil
	}
	t, ok := r.tasks[id]
	if !ok || t.UserID != userID || t.AIScore != nil {
		return false, nil
	}
	t.AIScore = &score
	t.Strengths = strengths
	t.Improvements = improvements
	t.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeTaskRepo) MarkPaid(_ context.Context, id string, userID int64) error {
	if t, ok := r.tasks[id]; ok && t.UserID == userID {
		t.IsPaid = true
	}
	return nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, id string, userID int64) (bool, error) {
	if t, ok := r.tasks[id]; ok && t.UserID == userID {
		delete(r.tasks, id)
		return true, nil
	}
	return false, nil
}

type fakeEvaluator struct {
	result *evaluation.Result
	err    error
	calls  int
	inputs []evaluation.Input
}

func (e *fakeEvaluator) Evaluate(_ context.Context, input evaluation.Input) (*evaluation.Result, error) {
	e.calls++
	e.inputs = append(e.inputs, input)
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func goodResult() *evaluation.Result {
	return &evaluation.Result{
		Score:        8,
		Strengths:    []string{"clear problem statement", "edge cases covered"},
		Improvements: []string{"add benchmarks", "extract helper"},
	}
}

func createReq() *models.CreateTaskRequest {
	return &models.CreateTaskRequest{
		Title:       "Binary Search",
		Description: "Implemented binary search with edge case handling for empty arrays.",
	}
}

func TestCreateTask(t *testing.T) {
	repo := newFakeTaskRepo()
	svc := NewTaskService(repo, &fakeEvaluator{result: goodResult()})

	task, err := svc.Create(context.Background(), 1, createReq())
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.EqualValues(t, 1, task.UserID)
	assert.Nil(t, task.AIScore)
	assert.Nil(t, task.Strengths)
	assert.False(t, task.IsPaid)

	stored, err := svc.GetByID(context.Background(), 1, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Title, stored.Title)
	assert.Nil(t, stored.AIScore)
}

func TestCreateTaskValidation(t *testing.T) {
	repo := newFakeTaskRepo()
	svc := NewTaskService(repo, &fakeEvaluator{})

	cases := []struct {
		name string
		req  models.CreateTaskRequest
	}{
		{"title too short", models.CreateTaskRequest{Title: "ab", Description: strings.Repeat("d", 20)}},
		{"title too long", models.CreateTaskRequest{Title: strings.Repeat("t", 201), Description: strings.Repeat("d", 20)}},
		{"description too short", models.CreateTaskRequest{Title: "Valid title", Description: "short"}},
		{"description too long", models.CreateTaskRequest{Title: "Valid title", Description: strings.Repeat("d", 5001)}},
		{"bad file url", models.CreateTaskRequest{Title: "Valid title", Description: strings.Repeat("d", 20), FileURL: "not-a-url"}},
		{"ftp file url", models.CreateTaskRequest{Title: "Valid title", Description: strings.Repeat("d", 20), FileURL: "ftp://host/file"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), 1, &tc.req)
			require.Error(t, err)
			assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
		})
	}
	assert.Empty(t, repo.tasks)
}

func TestCreateTaskBoundaryLengths(t *testing.T) {
	svc := NewTaskService(newFakeTaskRepo(), &fakeEvaluator{})

	_, err := svc.Create(context.Background(), 1, &models.CreateTaskRequest{
		Title:       "abc",
		Description: strings.Repeat("d", 10),
	})
	assert.NoError(t, err)

	_, err = svc.Create(context.Background(), 1, &models.CreateTaskRequest{
		Title:       strings.Repeat("t", 200),
		Description: strings.Repeat("d", 5000),
	})
	assert.NoError(t, err)
}

func TestEvaluateSetsAllFieldsTogether(t *testing.T) {
	repo := newFakeTaskRepo()
	eval := &fakeEvaluator{result: goodResult()}
	svc := NewTaskService(repo, eval)

	task, err := svc.Create(context.Background(), 1, createReq())
	require.NoError(t, err)

	evaluated, err := svc.Evaluate(context.Background(), 1, task.ID)
	require.NoError(t, err)

	require.NotNil(t, evaluated.AIScore)
	assert.Equal(t, 8, *evaluated.AIScore)
	assert.Len(t, evaluated.Strengths, 2)
	assert.Len(t, evaluated.Improvements, 2)
	assert.Equal(t, 1, eval.calls)
}

func TestEvaluateAlreadyEvaluated(t *testing.T) {
	repo := newFakeTaskRepo()
	eval := &fakeEvaluator{result: goodResult()}
	svc := NewTaskService(repo, eval)

	task, err := svc.Create(context.Background(), 1, createReq())
	require.NoError(t, err)
	_, err = svc.Evaluate(context.Background(), 1, task.ID)
	require.NoError(t, err)

	before := *repo.tasks[task.ID]
	_, err = svc.Evaluate(context.Background(), 1, task.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	assert.Equal(t, before, *repo.tasks[task.ID]) // record untouched
	assert.Equal(t, 1, eval.calls)                // evaluator not re-invoked
}

func TestEvaluateNotOwned(t *testing.T) {
	repo := newFakeTaskRepo()
	svc := NewTaskService(repo, &fakeEvaluator{result: goodResult()})

	task, err := svc.Create(context.Background(), 1, createReq())
	require.NoError(t, err)

	_, err = svc.Evaluate(context.Background(), 2, task.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestEvaluateFailureLeavesDraft(t *testing.T) {
	repo := newFakeTaskRepo()
	evalErr := apperrors.Evaluation("evaluation failed after 3 attempts", fmt.Errorf("upstream down"))
	svc := NewTaskService(repo, &fakeEvaluator{err: evalErr})

	task, err := svc.Create(context.Background(), 1, createReq())
	require.NoError(t, err)

	_, err = svc.Evaluate(context.Background(), 1, task.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindEvaluation, apperrors.KindOf(err))

	stored := repo.tasks[task.ID]
	assert.Nil(t, stored.AIScore)
	assert.Nil(t, stored.Strengths)
	assert.Nil(t, stored.Improvements)
}

func TestEvaluateLostRaceIsConflict(t *testing.T) {
	repo := newFakeTaskRepo()
	svc := NewTaskService(repo, &fakeEvaluator{result: goodResult()})

	task, err := svc.Create(context.Background(), 1, createReq())
	require.NoError(t, err)

	repo.evalConflict = true
	_, err = svc.Evaluate(context.Background(), 1, task.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestEvaluateIncludesFetchedFileContent(t *testing.T) {
	fileSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "func main() {}")
	}))
	defer fileSrv.Close()

	repo := newFakeTaskRepo()
	eval := &fakeEvaluator{result: goodResult()}
	svc := NewTaskService(repo, eval)

	req := createReq()
	req.FileURL = fileSrv.URL + "/solution.go"
	task, err := svc.Create(context.Background(), 1, req)
	require.NoError(t, err)

	_, err = svc.Evaluate(context.Background(), 1, task.ID)
	require.NoError(t, err)

	require.Len(t, eval.inputs, 1)
	assert.Equal(t, "func main() {}", eval.inputs[0].FileContent)
}

func TestEvaluateFileFetchFailureIsNonFatal(t *testing.T) {
	fileSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	fileSrv.Close() // connection refused from here on

	repo := newFakeTaskRepo()
	eval := &fakeEvaluator{result: goodResult()}
	svc := NewTaskService(repo, eval)

	req := createReq()
	req.FileURL = fileSrv.URL + "/solution.go"
	task, err := svc.Create(context.Background(), 1, req)
	require.NoError(t, err)

	evaluated, err := svc.Evaluate(context.Background(), 1, task.ID)
	require.NoError(t, err)
	require.NotNil(t, evaluated.AIScore)

	require.Len(t, eval.inputs, 1)
	assert.Empty(t, eval.inputs[0].FileContent) // degraded to description-only
}

func TestDeleteTask(t *testing.T) {
	repo := newFakeTaskRepo()
	svc := NewTaskService(repo, &fakeEvaluator{})

	task, err := svc.Create(context.Background(), 1, createReq())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), 1, task.ID))

	err = svc.Delete(context.Background(), 1, task.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestDeleteNotOwned(t *testing.T) {
	repo := newFakeTaskRepo()
	svc := NewTaskService(repo, &fakeEvaluator{})

	task, err := svc.Create(context.Background(), 1, createReq())
	require.NoError(t, err)

	err = svc.Delete(context.Background(), 2, task.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	assert.Len(t, repo.tasks, 1)
}
