package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/shortrate/pkg/metrics"
	"github.com/wyfcoding/shortrate/pkg/middleware"
)

// RouterOptions 路由构建选项
type RouterOptions struct {
	// Metrics 为 nil 时不挂载指标中间件与抓取接口
	Metrics     *metrics.Metrics
	MetricsPath string
	CORS        bool
}

// NewRouter 构建带通用中间件的 gin 引擎
func NewRouter(h *ShortRateHandler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(middleware.GinLoggingMiddleware(), middleware.GinRecoveryMiddleware())
	if opts.CORS {
		r.Use(middleware.GinCORSMiddleware())
	}
	if opts.Metrics != nil {
		r.Use(middleware.GinMetricsMiddleware(opts.Metrics))
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(opts.Metrics.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	h.RegisterRoutes(r)
	return r
}
