// Package apierror renders every failure through one JSON envelope:
//
//	{"errors":[{"status":"404","title":"Not Found","detail":"Couldn't find Task"}]}
//
// Handlers decide which constructor applies; the cause itself is only ever logged.
package apierror

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"task_backend/internal/platform/http/middleware"
)

// Details shown to clients. Keep them generic.
const (
	DetailUnauthorized    = "Invalid or missing authentication token"
	DetailInvalidLogin    = "Invalid email or password."
	DetailBadRequest      = "Malformed request"
	DetailTooManyRequests = "Too many login attempts"
	DetailInternal        = "Internal server error"
)

// Error is one entry of the envelope.
type Error struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Response is the envelope.
type Response struct {
	Errors []Error `json:"errors"`
}

// New builds an envelope with one entry per detail, all sharing status and title.
func New(status int, title string, details ...string) Response {
	out := Response{Errors: make([]Error, 0, len(details))}
	for _, d := range details {
		out.Errors = append(out.Errors, Error{
			Status: strconv.Itoa(status),
			Title:  title,
			Detail: d,
		})
	}
	return out
}

// Abort writes the envelope and stops the handler chain.
func Abort(c *gin.Context, status int, title string, details ...string) {
	c.AbortWithStatusJSON(status, New(status, title, details...))
}

// Unauthorized is the single rejection used by the authentication gate.
func Unauthorized(c *gin.Context) {
	Abort(c, http.StatusUnauthorized, "Unauthorized", DetailUnauthorized)
}

// InvalidLogin is the single rejection used by login.
func InvalidLogin(c *gin.Context) {
	Abort(c, http.StatusUnauthorized, "Unauthorized", DetailInvalidLogin)
}

// NotFound answers for absent and foreign records alike.
func NotFound(c *gin.Context, resource string) {
	Abort(c, http.StatusNotFound, "Not Found", "Couldn't find "+resource)
}

// Validation renders one entry per failed field rule.
func Validation(c *gin.Context, messages []string) {
	Abort(c, http.StatusUnprocessableEntity, "Invalid params", messages...)
}

func BadRequest(c *gin.Context) {
	Abort(c, http.StatusBadRequest, "Bad Request", DetailBadRequest)
}

// TooManyRequests sets Retry-After in whole seconds.
func TooManyRequests(c *gin.Context, retryAfter time.Duration) {
	if retryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))
	}
	Abort(c, http.StatusTooManyRequests, "Too Many Requests", DetailTooManyRequests)
}

// Internal logs err and renders a 500 without any of its text.
func Internal(c *gin.Context, err error) {
	slog.Error("internal error",
		"error", err,
		"method", c.Request.Method,
		"path", c.FullPath(),
		"request_id", c.GetString(middleware.ContextRequestID),
	)
	Abort(c, http.StatusInternalServerError, "Internal Server Error", DetailInternal)
}

// Recovery turns panics into the 500 envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		slog.Error("panic recovered",
			"panic", recovered,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"request_id", c.GetString(middleware.ContextRequestID),
		)
		Abort(c, http.StatusInternalServerError, "Internal Server Error", DetailInternal)
	})
}
