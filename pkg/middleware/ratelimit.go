package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewLimiter 创建令牌桶限流器；qps <= 0 时返回 nil 表示不限流
func NewLimiter(qps float64, burst int) *rate.Limiter {
	if qps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = int(math.Ceil(qps))
	}
	return rate.NewLimiter(rate.Limit(qps), burst)
}

// GinRateLimitMiddleware Gin 限流中间件，limiter 为 nil 时直接放行
func GinRateLimitMiddleware(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Burst()))
		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too Many Requests",
			})
			return
		}

		c.Next()
	}
}

// GRPCRateLimitInterceptor gRPC 限流拦截器，limiter 为 nil 时直接放行。
// methods 非空时只限流这些完整方法名，其余方法不受影响
func GRPCRateLimitInterceptor(limiter *rate.Limiter, methods ...string) grpc.UnaryServerInterceptor {
	throttled := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		throttled[m] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if limiter == nil {
			return handler(ctx, req)
		}
		if _, ok := throttled[info.FullMethod]; len(throttled) > 0 && !ok {
			return handler(ctx, req)
		}
		if !limiter.Allow() {
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}
