package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

const (
	// HeaderRequestID はリクエストIDを返すレスポンスヘッダー
	HeaderRequestID = "X-Request-Id"

	// requestIDKey は gin.Context にリクエストIDを保存するキー
	requestIDKey = "request_id"
)

// Trace はリクエストごとに受信とレスポンスの記録をINFOレベルで出力する
func Trace(logger hclog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Set(requestIDKey, requestID)
		c.Header(HeaderRequestID, requestID)

		logger.Info("リクエストを受信しました",
			"method", method,
			"path", path,
			"request_id", requestID,
		)

		c.Next()

		logger.Info("レスポンスを返しました",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"request_id", requestID,
		)
	}
}

// Recovery はハンドラ内のパニックを捕捉して 500 に変換する
// 一つのリクエストの失敗でプロセスが終了することはない
func Recovery(logger hclog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.Error("リクエストの処理中にパニックが発生しました",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"request_id", c.GetString(requestIDKey),
			"error", recovered,
		)
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}
