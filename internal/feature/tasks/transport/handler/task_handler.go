// Package handler はtasksフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
	"github.com/oapi-codegen/runtime/types"

	"task_backend/internal/feature/tasks/domain/entity"
	"task_backend/internal/feature/tasks/transport/http/dto"
	"task_backend/internal/feature/tasks/usecase"
	"task_backend/internal/platform/http/apierror"
	jwtmw "task_backend/internal/platform/jwt"
	"task_backend/internal/shared/validation"
)

const resourceName = "Task"

// TaskUsecase はタスク操作のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type TaskUsecase interface {
	List(ctx context.Context, ownerID uint, filter entity.ListFilter) ([]entity.Task, error)
	Get(ctx context.Context, ownerID, id uint) (*entity.Task, error)
	Create(ctx context.Context, ownerID uint, in usecase.Changes) (*entity.Task, error)
	Update(ctx context.Context, ownerID, id uint, in usecase.Changes) (*entity.Task, error)
	Delete(ctx context.Context, ownerID, id uint) error
}

// TaskHandler はタスクのHTTPリクエストを処理します。
// 所有者は常に認証ゲートが設定した主体から取り、リクエストからは受け取りません。
type TaskHandler struct {
	uc TaskUsecase
}

// NewTaskHandler は指定されたusecaseでTaskHandlerの新しいインスタンスを生成します。
func NewTaskHandler(uc TaskUsecase) *TaskHandler {
	return &TaskHandler{uc: uc}
}

// List は所有者のタスク一覧を返します。
//
// エンドポイント例:
// GET /tasks?status=pending&due_before=2026-05-01&due_after=2026-04-01
func (h *TaskHandler) List(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}

	filter, err := parseFilter(c)
	if err != nil {
		slog.Warn("invalid task filter", "error", err, "query", c.Request.URL.RawQuery)
		apierror.BadRequest(c)
		return
	}

	tasks, err := h.uc.List(c.Request.Context(), ownerID, filter)
	if err != nil {
		apierror.Internal(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTaskListRes(tasks))
}

// Get は所有者のタスクを1件返します。
func (h *TaskHandler) Get(c *gin.Context) {
	ownerID, id, ok := h.ownerAndID(c)
	if !ok {
		return
	}

	task, err := h.uc.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTaskRes(task))
}

// Create はタスクを作成し201を返します。
func (h *TaskHandler) Create(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}

	var req dto.TaskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("task request rejected", "error", err, "remote_addr", c.ClientIP())
		apierror.BadRequest(c)
		return
	}

	task, err := h.uc.Create(c.Request.Context(), ownerID, req.Task.Changes())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewTaskRes(task))
}

// Update は送られたフィールドだけを更新します。PATCHとPUTの両方で使います。
func (h *TaskHandler) Update(c *gin.Context) {
	ownerID, id, ok := h.ownerAndID(c)
	if !ok {
		return
	}

	var req dto.TaskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("task request rejected", "error", err, "remote_addr", c.ClientIP())
		apierror.BadRequest(c)
		return
	}

	task, err := h.uc.Update(c.Request.Context(), ownerID, id, req.Task.Changes())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTaskRes(task))
}

// Delete はタスクを削除し、本文なしの204を返します。
func (h *TaskHandler) Delete(c *gin.Context) {
	ownerID, id, ok := h.ownerAndID(c)
	if !ok {
		return
	}

	if err := h.uc.Delete(c.Request.Context(), ownerID, id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// owner は認証ゲートが設定した主体のIDを返します。
func (h *TaskHandler) owner(c *gin.Context) (uint, bool) {
	ownerID, ok := jwtmw.CurrentUserID(c)
	if !ok {
		apierror.Unauthorized(c)
		return 0, false
	}
	return ownerID, true
}

// ownerAndID は主体のIDとパスの:idを返します。
// 数値でないidは400、0以下のidは存在しないものとして404にします。
func (h *TaskHandler) ownerAndID(c *gin.Context) (uint, uint, bool) {
	ownerID, ok := h.owner(c)
	if !ok {
		return 0, 0, false
	}

	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", c.Param("id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		slog.Warn("invalid task id", "error", err, "id", c.Param("id"))
		apierror.BadRequest(c)
		return 0, 0, false
	}
	if id <= 0 {
		apierror.NotFound(c, resourceName)
		return 0, 0, false
	}
	return ownerID, uint(id), true
}

// fail はユースケースのエラーをレスポンスに変換します。
func (h *TaskHandler) fail(c *gin.Context, err error) {
	var verr *validation.Error
	switch {
	case errors.Is(err, usecase.ErrTaskNotFound):
		apierror.NotFound(c, resourceName)
	case errors.Is(err, usecase.ErrOwnerNotFound):
		// 認証後に本人が削除された。ゲートと同じ応答にする
		apierror.Unauthorized(c)
	case errors.As(err, &verr):
		apierror.Validation(c, verr.Messages)
	default:
		apierror.Internal(c, err)
	}
}

// parseFilter はstatus、due_before、due_afterクエリを読み取ります。
// 未知のstatusや日付として読めない値はエラーです。
func parseFilter(c *gin.Context) (entity.ListFilter, error) {
	var (
		filter entity.ListFilter
		query  = c.Request.URL.Query()
	)

	var status *string
	if err := runtime.BindQueryParameter("form", true, false, "status", query, &status); err != nil {
		return filter, err
	}
	if status != nil {
		s, ok := entity.ParseStatus(*status)
		if !ok {
			return filter, errors.New("unknown status " + *status)
		}
		filter.Status = &s
	}

	var before, after *types.Date
	if err := runtime.BindQueryParameter("form", true, false, "due_before", query, &before); err != nil {
		return filter, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "due_after", query, &after); err != nil {
		return filter, err
	}
	filter.DueBefore = dateOf(before)
	filter.DueAfter = dateOf(after)
	return filter, nil
}

func dateOf(d *types.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time.UTC()
	return &t
}
