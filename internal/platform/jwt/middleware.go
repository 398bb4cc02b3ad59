package jwtmw

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	"task_backend/internal/feature/auth/domain/entity"
	"task_backend/internal/feature/auth/usecase"
	"task_backend/internal/platform/http/apierror"
	"task_backend/internal/platform/http/middleware"
)

// Keys under which the acting principal is stored on gin.Context.
const (
	ContextUserID = "userID"
	ContextUser   = "currentUser"
)

const bearerPrefix = "Bearer "

// TokenVerifier decodes a bearer token into a user id.
type TokenVerifier interface {
	Verify(token string) (uint, error)
}

// IdentityResolver loads the user a token refers to.
// It must return usecase.ErrUserNotFound when the user no longer exists.
type IdentityResolver interface {
	FindByID(ctx context.Context, id uint) (*entity.User, error)
}

// AuthRequired returns a Gin middleware that admits only requests carrying a valid
// bearer token for a user that still exists.
//
// Missing header, wrong scheme, bad signature, expiry and deleted user all produce the
// same 401 body; the distinguishing reason is only logged. Nothing is cached, so every
// request costs one user lookup.
func AuthRequired(tokens TokenVerifier, users IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Authorizationヘッダーからトークンを取り出す
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			reject(c, "missing_credentials", nil)
			return
		}

		// 2. 署名と有効期限を検証する
		userID, err := tokens.Verify(raw)
		if err != nil {
			reason := "malformed_token"
			if errors.Is(err, ErrExpiredToken) {
				reason = "expired_token"
			}
			reject(c, reason, err)
			return
		}

		// 3. ユーザーが現存するか確認する
		user, err := users.FindByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, usecase.ErrUserNotFound) {
				reject(c, "unknown_subject", err)
				return
			}
			apierror.Internal(c, err)
			return
		}

		// 4. 以降のハンドラーに主体を渡す
		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, user)
		c.Next()
	}
}

// CurrentUserID returns the id bound by AuthRequired.
func CurrentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// CurrentUser returns the user bound by AuthRequired.
func CurrentUser(c *gin.Context) (*entity.User, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*entity.User)
	return u, ok && u != nil
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(bearerPrefix):])
	if tok == "" || strings.ContainsAny(tok, " \t") {
		return "", false
	}
	return tok, true
}

func reject(c *gin.Context, reason string, err error) {
	slog.Warn("authentication rejected",
		"reason", reason,
		"error", err,
		"path", c.Request.URL.Path,
		"remote_addr", c.ClientIP(),
		"request_id", c.GetString(middleware.ContextRequestID),
	)
	apierror.Unauthorized(c)
}
