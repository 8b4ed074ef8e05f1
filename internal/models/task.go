// internal/models/task.go
package models

import "time"

// Task represents a user-submitted coding task and its AI evaluation.
// Score, strengths and improvements are written together in a single
// update; a task either has all three or none of them.
type Task struct {
	ID           string    `json:"id"`
	UserID       int64     `json:"user_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	FileURL      *string   `json:"file_url,omitempty"`
	AIScore      *int      `json:"ai_score"`
	Strengths    []string  `json:"strengths"`
	Improvements []string  `json:"improvements"`
	IsPaid       bool      `json:"is_paid"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Evaluated reports whether the task has been scored.
func (t *Task) Evaluated() bool { return t.AIScore != nil }

// CreateTaskRequest is the payload for POST /tasks.
type CreateTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	FileURL     string `json:"file_url"`
}

// TaskView is the response shape for a task. For an evaluated but unpaid
// task only the first strength and improvement are exposed; the store
// always holds the full lists.
type TaskView struct {
	ID           string    `json:"id"`
	UserID       int64     `json:"user_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	FileURL      *string   `json:"file_url,omitempty"`
	AIScore      *int      `json:"ai_score"`
	Strengths    []string  `json:"strengths"`
	Improvements []string  `json:"improvements"`
	IsPaid       bool      `json:"is_paid"`
	Locked       bool      `json:"locked"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PresentTask applies the teaser rule at the presentation boundary.
func PresentTask(t *Task) *TaskView {
	v := &TaskView{
		ID:           t.ID,
		UserID:       t.UserID,
		Title:        t.Title,
		Description:  t.Description,
		FileURL:      t.FileURL,
		AIScore:      t.AIScore,
		Strengths:    t.Strengths,
		Improvements: t.Improvements,
		IsPaid:       t.IsPaid,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
	if t.Evaluated() && !t.IsPaid {
		v.Locked = true
		if len(t.Strengths) > 0 {
			v.Strengths = t.Strengths[:1]
		}
		if len(t.Improvements) > 0 {
			v.Improvements = t.Improvements[:1]
		}
	}
	return v
}

// PresentTasks shapes a list of tasks for list endpoints.
func PresentTasks(tasks []Task) []*TaskView {
	views := make([]*TaskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, PresentTask(&tasks[i]))
	}
	return views
}
