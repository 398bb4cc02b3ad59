// Package handler はauthフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"task_backend/internal/feature/auth/transport/http/dto"
	"task_backend/internal/feature/auth/usecase"
	"task_backend/internal/platform/http/apierror"
	jwtmw "task_backend/internal/platform/jwt"
	"task_backend/internal/shared/validation"
)

// AuthUsecase は認証操作のユースケースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（usecase）ではなくコンシューマー（handler）が定義します。
type AuthUsecase interface {
	// Register は新規ユーザーを登録し、トークンを返します。
	Register(ctx context.Context, email, password string) (*usecase.AuthResult, error)
	// Login はユーザーを認証し、成功時にトークンを返します。
	Login(ctx context.Context, email, password string) (*usecase.AuthResult, error)
	// DeleteAccount はユーザーと所有データを削除します。
	DeleteAccount(ctx context.Context, id uint) error
}

// AuthHandler は認証操作のHTTPリクエストを処理します。
type AuthHandler struct {
	auth AuthUsecase
}

// NewAuthHandler はAuthHandlerの新しいインスタンスを生成します。
func NewAuthHandler(auth AuthUsecase) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register はユーザー登録APIエンドポイントを処理します。
// - ボディが不正、またはuserキーがない場合は400
// - 入力エラー（メール重複を含む）は422
// - 成功時はユーザーとトークンを201で返却
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.CredentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("register request rejected", "error", err, "remote_addr", c.ClientIP())
		apierror.BadRequest(c)
		return
	}

	res, err := h.auth.Register(c.Request.Context(), req.User.Email, req.User.Password)
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			apierror.Validation(c, verr.Messages)
			return
		}
		apierror.Internal(c, err)
		return
	}

	slog.Info("user registered", "user_id", res.User.ID, "remote_addr", c.ClientIP())
	c.JSON(http.StatusCreated, dto.RegisterRes{
		User:  dto.NewUserRes(res.User),
		Token: res.Token,
	})
}

// Login はユーザーログインAPIエンドポイントを処理します。
// - 認証失敗時は401（メール不明とパスワード不一致を区別しない）
// - 試行回数超過時は429
// - 成功時はユーザーとトークンを200で返却
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.CredentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("login request rejected", "error", err, "remote_addr", c.ClientIP())
		apierror.BadRequest(c)
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.User.Email, req.User.Password)
	if err != nil {
		var throttled *usecase.ThrottledError
		switch {
		case errors.Is(err, usecase.ErrInvalidCredentials):
			// ユーザー列挙攻撃を防止するため、実際のエラーを公開しない
			slog.Warn("login failed", "error", err, "remote_addr", c.ClientIP())
			apierror.InvalidLogin(c)
		case errors.As(err, &throttled):
			slog.Warn("login throttled", "retry_after", throttled.RetryAfter, "remote_addr", c.ClientIP())
			apierror.TooManyRequests(c, throttled.RetryAfter)
		default:
			apierror.Internal(c, err)
		}
		return
	}

	slog.Info("user login successful", "user_id", res.User.ID, "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, dto.LoginRes{
		User:  dto.LoginUserRes{ID: res.User.ID, Email: res.User.Email},
		Token: res.Token,
	})
}

// Me は認証済みユーザー自身の情報を返します。
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := jwtmw.CurrentUser(c)
	if !ok {
		apierror.Unauthorized(c)
		return
	}
	c.JSON(http.StatusOK, dto.MeRes{User: dto.NewUserRes(user)})
}

// DeleteMe は認証済みユーザーとそのタスクをすべて削除し、204を返します。
func (h *AuthHandler) DeleteMe(c *gin.Context) {
	userID, ok := jwtmw.CurrentUserID(c)
	if !ok {
		apierror.Unauthorized(c)
		return
	}

	if err := h.auth.DeleteAccount(c.Request.Context(), userID); err != nil {
		if errors.Is(err, usecase.ErrUserNotFound) {
			// 同時に削除された場合。トークンはもう無効なので401と同じ扱いにする
			apierror.Unauthorized(c)
			return
		}
		apierror.Internal(c, err)
		return
	}

	slog.Info("account deleted", "user_id", userID, "remote_addr", c.ClientIP())
	c.Status(http.StatusNoContent)
}
