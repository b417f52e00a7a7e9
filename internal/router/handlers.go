package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck はヘルスチェックエンドポイントの実装
func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Hello は挨拶を返すエンドポイントの実装
func Hello(c *gin.Context) {
	c.String(http.StatusOK, "Hello, World!")
}

// Bad は常に失敗するエンドポイントの実装
// エラーステータスのレスポンスがログに残ることを確認するために使う
func Bad(c *gin.Context) {
	c.String(http.StatusNotFound, "BOOM")
}
