package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"task_backend/internal/feature/tasks/domain/entity"
	"task_backend/internal/shared/validation"
)

// TaskRepository はタスクの永続化層を抽象化します。
// すべてのメソッドは所有者IDを必須で受け取り、他人のタスクには触れません。
type TaskRepository interface {
	// List は所有者のタスクをID順で返します。
	List(ctx context.Context, ownerID uint, filter entity.ListFilter) ([]entity.Task, error)

	// Find は所有者のタスクを1件返します。存在しない場合はErrTaskNotFoundを返します。
	Find(ctx context.Context, ownerID, id uint) (*entity.Task, error)

	// Create はtaskの所有者をownerIDにして保存します。
	Create(ctx context.Context, ownerID uint, task *entity.Task) error

	// Update は所有者のタスクを読み込み、applyを適用して保存します。
	// applyがエラーを返した場合は何も保存しません。
	Update(ctx context.Context, ownerID, id uint, apply func(*entity.Task) error) (*entity.Task, error)

	// Delete は所有者のタスクを削除します。存在しない場合はErrTaskNotFoundを返します。
	Delete(ctx context.Context, ownerID, id uint) error
}

// Changes holds the client-supplied fields of a create or update.
// A field is untouched when its value is nil and its Set flag is false.
// Set with a nil value is an explicit null: the field is cleared, and a
// cleared required field then fails validation.
type Changes struct {
	Title    *string
	TitleSet bool

	Description    *string
	DescriptionSet bool

	Status    *string
	StatusSet bool

	DueDate    *time.Time
	DueDateSet bool
}

func sent[T any](set bool, v *T) bool {
	return set || v != nil
}

// taskRules are checked against the resulting task, not the input.
type taskRules struct {
	Title  string `label:"Title" validate:"required,max=255"`
	Status string `label:"Status" validate:"oneof=pending in_progress completed"`
}

// taskUsecase はタスク操作のビジネスロジックを実装します。
type taskUsecase struct {
	tasks    TaskRepository
	validate *validation.Validator
}

// NewTaskUsecase はtaskUsecaseの新しいインスタンスを生成します。
func NewTaskUsecase(tasks TaskRepository) *taskUsecase {
	return &taskUsecase{tasks: tasks, validate: validation.New()}
}

// List は所有者のタスク一覧を返します。
func (u *taskUsecase) List(ctx context.Context, ownerID uint, filter entity.ListFilter) ([]entity.Task, error) {
	if ownerID == 0 {
		return []entity.Task{}, nil
	}
	tasks, err := u.tasks.List(ctx, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Get は所有者のタスクを1件返します。
func (u *taskUsecase) Get(ctx context.Context, ownerID, id uint) (*entity.Task, error) {
	if ownerID == 0 || id == 0 {
		return nil, ErrTaskNotFound
	}
	return u.tasks.Find(ctx, ownerID, id)
}

// Create は所有者のタスクを作成します。ステータス未指定の場合はpendingになります。
// 入力エラーは*validation.Errorで返します。
func (u *taskUsecase) Create(ctx context.Context, ownerID uint, in Changes) (*entity.Task, error) {
	if ownerID == 0 {
		return nil, ErrTaskNotFound
	}

	task := &entity.Task{Status: entity.StatusPending}
	if err := u.apply(task, in); err != nil {
		return nil, err
	}
	if err := u.tasks.Create(ctx, ownerID, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// Update は送られたフィールドだけを変更します。所有者は変わりません。
func (u *taskUsecase) Update(ctx context.Context, ownerID, id uint, in Changes) (*entity.Task, error) {
	if ownerID == 0 || id == 0 {
		return nil, ErrTaskNotFound
	}
	return u.tasks.Update(ctx, ownerID, id, func(t *entity.Task) error {
		return u.apply(t, in)
	})
}

// Delete は所有者のタスクを削除します。
func (u *taskUsecase) Delete(ctx context.Context, ownerID, id uint) error {
	if ownerID == 0 || id == 0 {
		return ErrTaskNotFound
	}
	return u.tasks.Delete(ctx, ownerID, id)
}

// apply はChangesをtaskに反映してから検証します。
func (u *taskUsecase) apply(task *entity.Task, in Changes) error {
	if sent(in.TitleSet, in.Title) {
		task.Title = ""
		if in.Title != nil {
			task.Title = strings.TrimSpace(*in.Title)
		}
	}
	if sent(in.DescriptionSet, in.Description) {
		task.Description = nil
		if in.Description != nil {
			d := *in.Description
			task.Description = &d
		}
	}
	if sent(in.StatusSet, in.Status) {
		task.Status = ""
		if in.Status != nil {
			task.Status = entity.Status(*in.Status)
		}
	}
	if sent(in.DueDateSet, in.DueDate) {
		task.DueDate = nil
		if in.DueDate != nil {
			d := truncateToDate(*in.DueDate)
			task.DueDate = &d
		}
	}

	err := u.validate.Struct(taskRules{Title: task.Title, Status: string(task.Status)})
	if err == nil {
		return nil
	}
	var verr *validation.Error
	if errors.As(err, &verr) {
		return verr
	}
	return fmt.Errorf("failed to validate task: %w", err)
}

// truncateToDate drops the clock part, keeping the calendar date as UTC midnight.
func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
