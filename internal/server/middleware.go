package server

import (
	"fmt"
	"net"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/philippkemmeter/mvcfun/internal/controller"
	"github.com/philippkemmeter/mvcfun/internal/logging"
	"github.com/philippkemmeter/mvcfun/internal/response"
)

// Logging logs every handled request.
func Logging(logger logging.Logger) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx *controller.Context) {
			start := time.Now()

			next.ServeMVC(ctx)

			logger.Info("request handled",
				logging.String("method", ctx.Request.Method()),
				logging.String("path", ctx.Request.Path()),
				logging.Int("status", int(ctx.Response.StatusCode())),
				logging.Any("duration_ms", time.Since(start).Milliseconds()),
				logging.String("request_id", ctx.RequestID),
				logging.String("client_ip", clientIP(ctx)),
			)
		})
	}
}

// Recovery turns a panic into a logged 500. When part of the response has
// already gone out nothing more is written.
func Recovery(logger logging.Logger) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx *controller.Context) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				logger.Error("panic recovered",
					logging.Any("error", rec),
					logging.String("stack", string(debug.Stack())),
					logging.String("request_id", ctx.RequestID),
				)
				if ctx.Response.Written() {
					return
				}
				cause := fmt.Errorf("panic: %v", rec)
				if err := ctx.Manager().WriteInternalServerError(ctx.Response, cause, ""); err != nil {
					logger.Error("write failed", logging.String("request_id", ctx.RequestID), logging.Err(err))
				}
			}()

			next.ServeMVC(ctx)
		})
	}
}

// RequestID echoes the request id in the X-Request-ID response header. A
// valid UUID sent by the client replaces the generated id.
func RequestID() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx *controller.Context) {
			if id, err := uuid.Parse(ctx.Request.Header("x-request-id")); err == nil {
				ctx.RequestID = id.String()
			}
			ctx.Response.Header().Set("X-Request-ID", ctx.RequestID)

			next.ServeMVC(ctx)
		})
	}
}

// MetricsMiddleware records request metrics.
func MetricsMiddleware(metrics *Metrics) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx *controller.Context) {
			start := time.Now()

			next.ServeMVC(ctx)

			metrics.RecordRequest(int(ctx.Response.StatusCode()), time.Since(start))
		})
	}
}

// RateLimit answers 429 once a client exceeds the limiter's budget.
func RateLimit(limiter *RateLimiter) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx *controller.Context) {
			if !limiter.Allow(clientIP(ctx)) {
				if err := ctx.Manager().WriteError(ctx.Response, response.StatusTooManyRequests, "Rate limit exceeded", ""); err != nil {
					logging.OrNop(ctx.Logger).Error("write failed", logging.String("request_id", ctx.RequestID), logging.Err(err))
				}
				return
			}

			next.ServeMVC(ctx)
		})
	}
}

func clientIP(ctx *controller.Context) string {
	host, _, err := net.SplitHostPort(ctx.RemoteAddr)
	if err != nil {
		return ctx.RemoteAddr
	}
	return host
}
