// Package dto はtasksフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/oapi-codegen/runtime/types"

	"task_backend/internal/feature/tasks/domain/entity"
	"task_backend/internal/feature/tasks/usecase"
)

// Nullable remembers whether a key was present in the body, so that an
// explicit null can be told apart from an absent key.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// UnmarshalJSON implements json.Unmarshaler. It only runs for keys present in the body.
func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(b, []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// TaskFields are the fields a client may send. user_id and id are not among them.
type TaskFields struct {
	Title       Nullable[string]     `json:"title"`
	Description Nullable[string]     `json:"description"`
	Status      Nullable[string]     `json:"status"`
	DueDate     Nullable[types.Date] `json:"due_date"`
}

// TaskReq is the body of POST /tasks and PATCH/PUT /tasks/:id.
type TaskReq struct {
	Task *TaskFields `json:"task" binding:"required"`
}

// Changes converts the request into usecase input.
func (f *TaskFields) Changes() usecase.Changes {
	ch := usecase.Changes{
		Title:          f.Title.Value,
		TitleSet:       f.Title.Set,
		Description:    f.Description.Value,
		DescriptionSet: f.Description.Set,
		Status:         f.Status.Value,
		StatusSet:      f.Status.Set,
		DueDateSet:     f.DueDate.Set,
	}
	if f.DueDate.Value != nil {
		t := f.DueDate.Value.Time
		ch.DueDate = &t
	}
	return ch
}

// TaskRes is the JSON view of a task.
type TaskRes struct {
	ID          uint        `json:"id"`
	UserID      uint        `json:"user_id"`
	Title       string      `json:"title"`
	Description *string     `json:"description"`
	Status      string      `json:"status"`
	DueDate     *types.Date `json:"due_date"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TaskListRes is the body of GET /tasks.
type TaskListRes struct {
	Tasks []TaskRes `json:"tasks"`
}

// NewTaskRes converts an entity into its JSON view.
func NewTaskRes(t *entity.Task) TaskRes {
	res := TaskRes{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.DueDate != nil {
		res.DueDate = &types.Date{Time: t.DueDate.UTC()}
	}
	return res
}

// NewTaskListRes converts a slice of entities. It never renders null.
func NewTaskListRes(tasks []entity.Task) TaskListRes {
	out := TaskListRes{Tasks: make([]TaskRes, 0, len(tasks))}
	for i := range tasks {
		out.Tasks = append(out.Tasks, NewTaskRes(&tasks[i]))
	}
	return out
}
