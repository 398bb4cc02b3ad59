// Package middleware はリクエスト単位の横断的処理（リクエストID、アクセスログ）を提供します。
package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderRequestID はリクエストIDを運ぶヘッダー名です。
	HeaderRequestID = "X-Request-ID"
	// ContextRequestID はgin.Context上のリクエストIDのキーです。
	ContextRequestID = "request_id"

	maxRequestIDLen = 128
)

// RequestID はクライアント指定のX-Request-IDを引き継ぎ、なければUUIDを発行します。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		c.Set(ContextRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// Logger はリクエストごとに1行の構造化アクセスログを出力します。
// 5xxはError、4xxはWarn、それ以外はInfoで記録します。
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"remote_addr", c.ClientIP(),
			"request_id", c.GetString(ContextRequestID),
		}

		switch {
		case status >= 500:
			slog.Error("request", attrs...)
		case status >= 400:
			slog.Warn("request", attrs...)
		default:
			slog.Info("request", attrs...)
		}
	}
}
