package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"moff.io/walletauth/pkg/errors"
	"moff.io/walletauth/pkg/log"
	"moff.io/walletauth/pkg/log/meta"
)

// responseBodyWriter records the handler response body for the request log.
type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r responseBodyWriter) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

type httpInfo struct {
	RequestID     string            `json:"request_id"`
	Headers       map[string]string `json:"headers"`
	Method        string            `json:"method"`
	RequestAPI    string            `json:"request_api,omitempty"`
	RemoteAddr    string            `json:"remote_addr,omitempty"`
	Status        int               `json:"status"`
	Message       string            `json:"message,omitempty"`
	ExecutionTime string            `json:"execution_time,omitempty"`
}

func (in *httpInfo) String() string {
	b, _ := json.Marshal(in)
	return string(b)
}

// RecoveredHTTPLog gin请求日志拦截器，拦截请求与响应，打印日志并恢复panic
func RecoveredHTTPLog() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		rctx := meta.Begin(ctx.Request.Context())
		meta.SetRequestID(rctx, ctx.GetHeader("x-request-id"))
		ctx.Request = ctx.Request.WithContext(rctx)
		ctx.Header("request-id", meta.RequestID(rctx))

		w := &responseBodyWriter{body: &bytes.Buffer{}, ResponseWriter: ctx.Writer}
		ctx.Writer = w

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				log.Error(errors.ErrorfAndReport("%v", r))
			}
			logHTTP(ctx, w, start)
		}()
		ctx.Next()
	}
}

const defaultRequestTimeout = time.Second * 60

// TimeoutHTTP HTTP超时拦截器
func TimeoutHTTP(timeout ...time.Duration) gin.HandlerFunc {
	d := defaultRequestTimeout
	if len(timeout) != 0 && timeout[0] > 0 {
		d = timeout[0]
	}
	return func(ctx *gin.Context) {
		timeoutCtx, cancelFunc := context.WithTimeout(ctx.Request.Context(), d)
		defer cancelFunc()
		ctx.Request = ctx.Request.WithContext(timeoutCtx)
		ctx.Next()
	}
}

func logHTTP(ctx *gin.Context, w *responseBodyWriter, start time.Time) {
	// 如果没有写入响应则写入内部错误
	if !ctx.Writer.Written() {
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Server internal error"})
	}
	info := &httpInfo{
		RequestID:     meta.RequestID(ctx.Request.Context()),
		Headers:       requestHeaderFilter(ctx.Request.Header),
		Method:        ctx.Request.Method,
		RequestAPI:    ctx.Request.RequestURI,
		RemoteAddr:    ctx.ClientIP(),
		Status:        w.Status(),
		ExecutionTime: fmt.Sprintf("%vms", time.Since(start).Milliseconds()),
	}
	if info.Status >= http.StatusBadRequest {
		info.Message = decodeMessage(w.body.Bytes())
	}
	switch {
	case info.Status < http.StatusBadRequest:
		log.Info(info)
	case info.Status >= http.StatusInternalServerError:
		log.Error(info)
	default:
		log.Warn(info)
	}
}

func decodeMessage(respBody []byte) string {
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return ""
	}
	return resp.Message
}

var excludedHeaders = map[string]bool{
	"authorization": true,
	"cookie":        true,
	"apikey":        true,
}

func requestHeaderFilter(headers map[string][]string) map[string]string {
	filtered := make(map[string]string)
	for k, v := range headers {
		k = strings.ToLower(k)
		if excludedHeaders[k] {
			continue
		}
		filtered[k] = strings.Join(v, ";")
	}
	return filtered
}
