package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task_backend/internal/feature/tasks/domain/entity"
	"task_backend/internal/feature/tasks/usecase"
	jwtmw "task_backend/internal/platform/jwt"
	"task_backend/internal/shared/validation"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// mockTaskUsecase is a mock implementation of the TaskUsecase interface.
type mockTaskUsecase struct {
	ListFunc   func(ctx context.Context, ownerID uint, filter entity.ListFilter) ([]entity.Task, error)
	GetFunc    func(ctx context.Context, ownerID, id uint) (*entity.Task, error)
	CreateFunc func(ctx context.Context, ownerID uint, in usecase.Changes) (*entity.Task, error)
	UpdateFunc func(ctx context.Context, ownerID, id uint, in usecase.Changes) (*entity.Task, error)
	DeleteFunc func(ctx context.Context, ownerID, id uint) error
}

func (m *mockTaskUsecase) List(ctx context.Context, ownerID uint, filter entity.ListFilter) ([]entity.Task, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, ownerID, filter)
	}
	return nil, nil
}

func (m *mockTaskUsecase) Get(ctx context.Context, ownerID, id uint) (*entity.Task, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, ownerID, id)
	}
	return nil, usecase.ErrTaskNotFound
}

func (m *mockTaskUsecase) Create(ctx context.Context, ownerID uint, in usecase.Changes) (*entity.Task, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, ownerID, in)
	}
	return nil, errors.New("create not expected")
}

func (m *mockTaskUsecase) Update(ctx context.Context, ownerID, id uint, in usecase.Changes) (*entity.Task, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, ownerID, id, in)
	}
	return nil, usecase.ErrTaskNotFound
}

func (m *mockTaskUsecase) Delete(ctx context.Context, ownerID, id uint) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, ownerID, id)
	}
	return usecase.ErrTaskNotFound
}

const notFoundBody = `{"errors":[{"status":"404","title":"Not Found","detail":"Couldn't find Task"}]}`
const badRequestBody = `{"errors":[{"status":"400","title":"Bad Request","detail":"Malformed request"}]}`

var stamp = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// newRouter は主体をownerIDに固定したルーターを作ります。
func newRouter(uc TaskUsecase, ownerID uint) *gin.Engine {
	h := NewTaskHandler(uc)
	r := gin.New()
	g := r.Group("/tasks", func(c *gin.Context) {
		if ownerID != 0 {
			c.Set(jwtmw.ContextUserID, ownerID)
		}
		c.Next()
	})
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTaskHandler_List(t *testing.T) {
	t.Run("renders envelope for owner", func(t *testing.T) {
		var gotOwner uint
		uc := &mockTaskUsecase{ListFunc: func(_ context.Context, ownerID uint, _ entity.ListFilter) ([]entity.Task, error) {
			gotOwner = ownerID
			return []entity.Task{{ID: 1, UserID: ownerID, Title: "a", Status: entity.StatusPending, CreatedAt: stamp, UpdatedAt: stamp}}, nil
		}}

		w := do(newRouter(uc, 5), http.MethodGet, "/tasks", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, uint(5), gotOwner)
		assert.JSONEq(t, `{"tasks":[{"id":1,"user_id":5,"title":"a","description":null,"status":"pending",`+
			`"due_date":null,"created_at":"2026-03-01T09:00:00Z","updated_at":"2026-03-01T09:00:00Z"}]}`, w.Body.String())
	})

	t.Run("empty list", func(t *testing.T) {
		w := do(newRouter(&mockTaskUsecase{}, 5), http.MethodGet, "/tasks", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"tasks":[]}`, w.Body.String())
	})

	t.Run("filters are parsed", func(t *testing.T) {
		var got entity.ListFilter
		uc := &mockTaskUsecase{ListFunc: func(_ context.Context, _ uint, f entity.ListFilter) ([]entity.Task, error) {
			got = f
			return nil, nil
		}}

		w := do(newRouter(uc, 5), http.MethodGet, "/tasks?status=in_progress&due_before=2026-05-01&due_after=2026-04-01", "")

		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, got.Status)
		assert.Equal(t, entity.StatusInProgress, *got.Status)
		require.NotNil(t, got.DueBefore)
		assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), *got.DueBefore)
		require.NotNil(t, got.DueAfter)
		assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), *got.DueAfter)
	})

	for _, q := range []string{"status=archived", "due_before=soon", "due_after=2026-13-01"} {
		t.Run("bad filter "+q, func(t *testing.T) {
			w := do(newRouter(&mockTaskUsecase{}, 5), http.MethodGet, "/tasks?"+q, "")

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, badRequestBody, w.Body.String())
		})
	}

	t.Run("internal error", func(t *testing.T) {
		uc := &mockTaskUsecase{ListFunc: func(context.Context, uint, entity.ListFilter) ([]entity.Task, error) {
			return nil, errors.New("db down")
		}}

		w := do(newRouter(uc, 5), http.MethodGet, "/tasks", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "db down")
	})

	t.Run("no principal", func(t *testing.T) {
		w := do(newRouter(&mockTaskUsecase{}, 0), http.MethodGet, "/tasks", "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestTaskHandler_Get(t *testing.T) {
	uc := &mockTaskUsecase{GetFunc: func(_ context.Context, ownerID, id uint) (*entity.Task, error) {
		if ownerID == 5 && id == 3 {
			return &entity.Task{ID: 3, UserID: 5, Title: "mine", Status: entity.StatusPending}, nil
		}
		return nil, usecase.ErrTaskNotFound
	}}
	r := newRouter(uc, 5)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"own task", "/tasks/3", http.StatusOK, ""},
		{"foreign or missing task", "/tasks/4", http.StatusNotFound, notFoundBody},
		{"zero id", "/tasks/0", http.StatusNotFound, notFoundBody},
		{"negative id", "/tasks/-1", http.StatusNotFound, notFoundBody},
		{"non numeric id", "/tasks/abc", http.StatusBadRequest, badRequestBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodGet, tt.path, "")

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestTaskHandler_Create(t *testing.T) {
	t.Run("owner comes from principal", func(t *testing.T) {
		var gotOwner uint
		var gotIn usecase.Changes
		uc := &mockTaskUsecase{CreateFunc: func(_ context.Context, ownerID uint, in usecase.Changes) (*entity.Task, error) {
			gotOwner, gotIn = ownerID, in
			return &entity.Task{ID: 9, UserID: ownerID, Title: *in.Title, Status: entity.StatusPending}, nil
		}}

		w := do(newRouter(uc, 5), http.MethodPost, "/tasks",
			`{"task":{"title":"New","user_id":999,"due_date":"2026-06-01"}}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, uint(5), gotOwner)
		assert.True(t, gotIn.DueDateSet)
		assert.Contains(t, w.Body.String(), `"user_id":5`)
		assert.Contains(t, w.Body.String(), `"id":9`)
	})

	t.Run("validation error", func(t *testing.T) {
		uc := &mockTaskUsecase{CreateFunc: func(context.Context, uint, usecase.Changes) (*entity.Task, error) {
			return nil, validation.NewError("Title can't be blank")
		}}

		w := do(newRouter(uc, 5), http.MethodPost, "/tasks", `{"task":{"title":""}}`)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.JSONEq(t, `{"errors":[{"status":"422","title":"Invalid params","detail":"Title can't be blank"}]}`, w.Body.String())
	})

	t.Run("owner deleted meanwhile", func(t *testing.T) {
		uc := &mockTaskUsecase{CreateFunc: func(context.Context, uint, usecase.Changes) (*entity.Task, error) {
			return nil, fmt.Errorf("failed to create task: %w", usecase.ErrOwnerNotFound)
		}}

		w := do(newRouter(uc, 5), http.MethodPost, "/tasks", `{"task":{"title":"late"}}`)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"errors":[{"status":"401","title":"Unauthorized","detail":"Invalid or missing authentication token"}]}`, w.Body.String())
	})

	for _, body := range []string{`{"title":"no root"}`, `not json`, `{"task":{"due_date":"someday"}}`} {
		t.Run("bad body "+body, func(t *testing.T) {
			w := do(newRouter(&mockTaskUsecase{}, 5), http.MethodPost, "/tasks", body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, badRequestBody, w.Body.String())
		})
	}
}

func TestTaskHandler_Update(t *testing.T) {
	for _, method := range []string{http.MethodPatch, http.MethodPut} {
		t.Run(method, func(t *testing.T) {
			uc := &mockTaskUsecase{UpdateFunc: func(_ context.Context, ownerID, id uint, in usecase.Changes) (*entity.Task, error) {
				if ownerID != 5 || id != 3 {
					return nil, usecase.ErrTaskNotFound
				}
				assert.Nil(t, in.Status)
				return &entity.Task{ID: 3, UserID: 5, Title: *in.Title, Status: entity.StatusPending}, nil
			}}
			r := newRouter(uc, 5)

			w := do(r, method, "/tasks/3", `{"task":{"title":"Updated Title"}}`)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), `"title":"Updated Title"`)

			w = do(r, method, "/tasks/4", `{"task":{"title":"Updated Title"}}`)
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.JSONEq(t, notFoundBody, w.Body.String())
		})
	}

	t.Run("null and absent keys are passed apart", func(t *testing.T) {
		var gotIn usecase.Changes
		uc := &mockTaskUsecase{UpdateFunc: func(_ context.Context, _, _ uint, in usecase.Changes) (*entity.Task, error) {
			gotIn = in
			return &entity.Task{ID: 3, UserID: 5, Title: "kept", Status: entity.StatusPending}, nil
		}}

		w := do(newRouter(uc, 5), http.MethodPatch, "/tasks/3", `{"task":{"description":null,"title":null}}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, gotIn.DescriptionSet)
		assert.Nil(t, gotIn.Description)
		assert.True(t, gotIn.TitleSet)
		assert.Nil(t, gotIn.Title)
		assert.False(t, gotIn.StatusSet)
		assert.False(t, gotIn.DueDateSet)
	})

	t.Run("null title is rejected", func(t *testing.T) {
		uc := &mockTaskUsecase{UpdateFunc: func(_ context.Context, _, _ uint, in usecase.Changes) (*entity.Task, error) {
			if in.TitleSet && in.Title == nil {
				return nil, validation.NewError("Title can't be blank")
			}
			return nil, errors.New("unexpected input")
		}}

		w := do(newRouter(uc, 5), http.MethodPatch, "/tasks/3", `{"task":{"title":null}}`)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.JSONEq(t, `{"errors":[{"status":"422","title":"Invalid params","detail":"Title can't be blank"}]}`, w.Body.String())
	})

	t.Run("validation error", func(t *testing.T) {
		uc := &mockTaskUsecase{UpdateFunc: func(context.Context, uint, uint, usecase.Changes) (*entity.Task, error) {
			return nil, validation.NewError("Status is not included in the list")
		}}

		w := do(newRouter(uc, 5), http.MethodPatch, "/tasks/3", `{"task":{"status":"done"}}`)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestTaskHandler_Delete(t *testing.T) {
	uc := &mockTaskUsecase{DeleteFunc: func(_ context.Context, ownerID, id uint) error {
		if ownerID == 5 && id == 3 {
			return nil
		}
		return usecase.ErrTaskNotFound
	}}
	r := newRouter(uc, 5)

	w := do(r, http.MethodDelete, "/tasks/3", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = do(r, http.MethodDelete, "/tasks/4", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, notFoundBody, w.Body.String())
}
