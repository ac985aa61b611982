// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"bytes"
	"time"

	"originality-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader 是请求 ID 使用的请求头与响应头。
const RequestIDHeader = "X-Request-ID"

// 错误响应最多记录的字节数
const maxLoggedResponse = 1024

// bodyLogWriter 用于捕获响应体的前 maxLoggedResponse 字节
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 将响应写入 gin.ResponseWriter，同时截取开头部分到内部的 buffer
func (w bodyLogWriter) Write(b []byte) (int, error) {
	if remain := maxLoggedResponse - w.body.Len(); remain > 0 {
		if len(b) < remain {
			remain = len(b)
		}
		w.body.Write(b[:remain])
	}
	return w.ResponseWriter.Write(b)
}

// RequestLogger 是一个 Gin 中间件，记录每个请求的摘要日志。
// 上传的文档内容不会写入日志，只记录大小；响应体只在出错时记录。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestID", requestID)
		c.Header(RequestIDHeader, requestID)

		blw := &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		statusCode := c.Writer.Status()
		fields := []interface{}{
			"requestID", requestID,
			"statusCode", statusCode,
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"requestBytes", c.Request.ContentLength,
			"responseBytes", c.Writer.Size(),
		}
		if statusCode >= 400 {
			fields = append(fields, "responseBody", blw.body.String())
			log.Warnw("HTTP Request Log", fields...)
			return
		}
		log.Infow("HTTP Request Log", fields...)
	}
}
