package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/shortrate/internal/shortrate/application"
	"github.com/wyfcoding/shortrate/internal/shortrate/domain"
	"github.com/wyfcoding/shortrate/pkg/logger"
	"github.com/wyfcoding/shortrate/pkg/middleware"
	"golang.org/x/time/rate"
)

// ScenarioRequest 场景生成请求体；legacy 路由的 model 来自路径。
// seed 可以是数字或字符串，63 位种子在 JavaScript 中只能用字符串无损回传
type ScenarioRequest struct {
	Model string      `json:"model"`
	Dt    float64     `json:"dt"`
	A     float64     `json:"a"`
	B     float64     `json:"b"`
	Sigma float64     `json:"sigma"`
	R0    float64     `json:"r0"`
	T     float64     `json:"t"`
	N     int         `json:"n"`
	Seed  json.Number `json:"seed,omitempty"`
}

func (r ScenarioRequest) toCommand() (application.GenerateScenarioCommand, error) {
	var seed *int64
	if r.Seed != "" {
		v, err := strconv.ParseInt(r.Seed.String(), 10, 64)
		if err != nil {
			return application.GenerateScenarioCommand{}, fmt.Errorf("%w: seed must be a 64-bit integer, got %q", domain.ErrInvalidScenario, r.Seed)
		}
		seed = &v
	}
	return application.GenerateScenarioCommand{
		Model: r.Model,
		Dt:    r.Dt,
		A:     r.A,
		B:     r.B,
		Sigma: r.Sigma,
		R0:    r.R0,
		T:     r.T,
		N:     r.N,
		Seed:  seed,
	}, nil
}

// ShortRateHandler 短期利率 HTTP 处理器
type ShortRateHandler struct {
	scenarios *application.ScenarioService
	rates     *application.RateHistoryQueryService
	limiter   *rate.Limiter
}

// NewShortRateHandler rates 为 nil 时历史利率接口返回 503；limiter 为 nil 表示不限流
func NewShortRateHandler(scenarios *application.ScenarioService, rates *application.RateHistoryQueryService, limiter *rate.Limiter) *ShortRateHandler {
	return &ShortRateHandler{scenarios: scenarios, rates: rates, limiter: limiter}
}

// RegisterRoutes 注册路由
func (h *ShortRateHandler) RegisterRoutes(r gin.IRouter) {
	throttled := middleware.GinRateLimitMiddleware(h.limiter)

	legacy := r.Group("/model", throttled)
	{
		legacy.POST("/vasicek/scen", h.legacyScenario(domain.ModelVasicek))
		legacy.POST("/cir/scen", h.legacyScenario(domain.ModelCIR))
	}
	r.GET("/int_rate/:year", h.GetRatesByYear)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/scenarios", throttled, h.GenerateScenario)
		v1.POST("/scenarios/export", throttled, h.ExportScenario)
		v1.GET("/rates/:year", h.GetRatesByYear)
	}
}

// legacyScenario answers with the bare n×(m+1) array the existing web
// client reads; the Feller advisory travels in a Warning header.
func (h *ShortRateHandler) legacyScenario(kind domain.ModelKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ScenarioRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.Model = string(kind)

		dto, ok := h.generate(c, req)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, dto.Paths)
	}
}

// GenerateScenario 返回完整结果（路径、种子、时点、提示）
func (h *ShortRateHandler) GenerateScenario(c *gin.Context) {
	var req ScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dto, ok := h.generate(c, req)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto)
}

// ExportScenario writes one path per CSV row, no header and no index column.
func (h *ShortRateHandler) ExportScenario(c *gin.Context) {
	var req ScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dto, ok := h.generate(c, req)
	if !ok {
		return
	}

	filename := fmt.Sprintf("%s_scen_%s.csv", dto.Model, time.Now().Format("20060102150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("X-Scenario-Seed", strconv.FormatInt(dto.Seed, 10))
	c.Status(http.StatusOK)
	c.Writer.Header().Set("Content-Type", "text/csv; charset=utf-8")

	if err := application.WritePathsCSV(c.Writer, dto.Paths); err != nil {
		logger.Error(c.Request.Context(), "failed to write csv", "error", err)
	}
}

// GetRatesByYear 查询某年的历史利率
func (h *ShortRateHandler) GetRatesByYear(c *gin.Context) {
	if h.rates == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rate history is not configured"})
		return
	}

	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year must be an integer"})
		return
	}

	rates, err := h.rates.GetRatesByYear(c.Request.Context(), year)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rates)
}

func (h *ShortRateHandler) generate(c *gin.Context, req ScenarioRequest) (*application.ScenarioDTO, bool) {
	cmd, err := req.toCommand()
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	dto, err := h.scenarios.Generate(c.Request.Context(), cmd)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	for _, adv := range dto.Advisories {
		c.Writer.Header().Add("Warning", fmt.Sprintf("199 shortrate %q", adv.Message))
	}
	return dto, true
}

func writeError(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request failed", "error", err)
		c.JSON(status, gin.H{"error": "internal error", "code": code})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidParameters):
		return http.StatusBadRequest, "INVALID_PARAMETERS"
	case errors.Is(err, domain.ErrInvalidScenario):
		return http.StatusBadRequest, "INVALID_SCENARIO"
	case errors.Is(err, domain.ErrUnknownModel):
		return http.StatusBadRequest, "UNKNOWN_MODEL"
	case errors.Is(err, application.ErrScenarioTooLarge):
		return http.StatusBadRequest, "SCENARIO_TOO_LARGE"
	case errors.Is(err, domain.ErrInvalidYear):
		return http.StatusBadRequest, "INVALID_YEAR"
	case errors.Is(err, domain.ErrNumericalOverflow):
		return http.StatusUnprocessableEntity, "NUMERICAL_OVERFLOW"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}
