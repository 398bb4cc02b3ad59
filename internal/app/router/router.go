package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	authhandler "task_backend/internal/feature/auth/transport/handler"
	taskhandler "task_backend/internal/feature/tasks/transport/handler"
	"task_backend/internal/platform/http/apierror"
	"task_backend/internal/platform/http/handler"
	"task_backend/internal/platform/http/middleware"
)

// NewRouter はすべてのルートを登録したエンジンを返します。
// authRequiredは認証ゲート、readinessはnilでもよく、allowOriginsが空ならCORSヘッダーは付けません。
func NewRouter(authHandler *authhandler.AuthHandler, tasks *taskhandler.TaskHandler,
	authRequired gin.HandlerFunc, readiness gin.HandlerFunc, allowOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), apierror.Recovery())

	if len(allowOrigins) > 0 {
		cfg := cors.DefaultConfig()
		cfg.AllowOrigins = allowOrigins
		cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", middleware.HeaderRequestID)
		cfg.ExposeHeaders = []string{middleware.HeaderRequestID, "Retry-After"}
		r.Use(cors.New(cfg))
	}

	// 認証不要
	// 導通確認用
	r.GET("/healthz", handler.Health)
	r.HEAD("/healthz", handler.Health)
	if readiness != nil {
		r.GET("/readyz", readiness)
	}

	v1 := r.Group("/api/v1")
	// 新規ユーザー登録
	v1.POST("/auth/register", authHandler.Register)
	// ログイン（トークン発行）
	v1.POST("/auth/login", authHandler.Login)

	// 認証必須のルート
	// → リクエストヘッダーに Bearer トークンが必要になる
	auth := v1.Group("/")
	auth.Use(authRequired)
	{
		auth.GET("/me", authHandler.Me)
		auth.DELETE("/me", authHandler.DeleteMe)

		auth.GET("/tasks", tasks.List)
		auth.POST("/tasks", tasks.Create)
		auth.GET("/tasks/:id", tasks.Get)
		auth.PATCH("/tasks/:id", tasks.Update)
		auth.PUT("/tasks/:id", tasks.Update)
		auth.DELETE("/tasks/:id", tasks.Delete)
	}

	r.NoRoute(func(c *gin.Context) {
		apierror.Abort(c, http.StatusNotFound, "Not Found", "Route not found")
	})

	return r
}
