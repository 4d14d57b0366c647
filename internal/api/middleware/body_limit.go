package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CreaMakers/CSUSTPlanet-sub001/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// maxBytes: 允许的最大请求体字节数（如 5<<20 = 5MB）
//
// 声明了 Content-Length 且超限的请求直接拒绝；
// 其余请求包装为 MaxBytesReader，由处理器在读取时识别超限错误。
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			response.PayloadTooLarge(c, 10005, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
