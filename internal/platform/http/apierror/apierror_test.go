package apierror

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func TestNew(t *testing.T) {
	t.Parallel()

	got := New(http.StatusUnprocessableEntity, "Invalid params", "Title can't be blank", "Status is not included in the list")

	assert.Equal(t, Response{Errors: []Error{
		{Status: "422", Title: "Invalid params", Detail: "Title can't be blank"},
		{Status: "422", Title: "Invalid params", Detail: "Status is not included in the list"},
	}}, got)
}

// TestConstructors は各ヘルパーが期待するステータスとエンベロープを返すことを検証します。
func TestConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		call       func(c *gin.Context)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "unauthorized",
			call:       Unauthorized,
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"errors":[{"status":"401","title":"Unauthorized","detail":"Invalid or missing authentication token"}]}`,
		},
		{
			name:       "invalid login",
			call:       InvalidLogin,
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"errors":[{"status":"401","title":"Unauthorized","detail":"Invalid email or password."}]}`,
		},
		{
			name:       "not found",
			call:       func(c *gin.Context) { NotFound(c, "Task") },
			wantStatus: http.StatusNotFound,
			wantBody:   `{"errors":[{"status":"404","title":"Not Found","detail":"Couldn't find Task"}]}`,
		},
		{
			name:       "bad request",
			call:       BadRequest,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"errors":[{"status":"400","title":"Bad Request","detail":"Malformed request"}]}`,
		},
		{
			name:       "internal hides cause",
			call:       func(c *gin.Context) { Internal(c, errors.New("pq: connection refused")) },
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"errors":[{"status":"500","title":"Internal Server Error","detail":"Internal server error"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			tt.call(c)

			assert.True(t, c.IsAborted())
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestTooManyRequests_RetryAfter(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	TooManyRequests(c, 90*time.Second)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "90", w.Header().Get("Retry-After"))
}

// TestRecovery はpanicが500エンベロープに変換されプロセスが継続することを検証します。
func TestRecovery(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"errors":[{"status":"500","title":"Internal Server Error","detail":"Internal server error"}]}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "boom")
}
