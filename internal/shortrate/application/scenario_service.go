// Package application 短期利率服务的应用层：场景生成与历史利率查询
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/shortrate/internal/shortrate/domain"
	"github.com/wyfcoding/shortrate/pkg/logger"
	"github.com/wyfcoding/shortrate/pkg/metrics"
)

// ErrScenarioTooLarge 请求的路径数、步数或网格规模超过服务上限
var ErrScenarioTooLarge = errors.New("scenario too large")

// Limits 单次请求的规模上限，0 表示不限制。
// MaxCells bounds (steps+1)·n, the size of one path grid; a request
// holds roughly three grids of that size at once.
type Limits struct {
	MaxPaths int
	MaxSteps int
	MaxCells int
}

// ScenarioService 处理路径生成命令
type ScenarioService struct {
	generator *domain.PathGenerator
	publisher domain.EventPublisher
	metrics   *metrics.Metrics
	limits    Limits
}

// NewScenarioService 构造函数；publisher 与 m 可为 nil
func NewScenarioService(generator *domain.PathGenerator, publisher domain.EventPublisher, m *metrics.Metrics, limits Limits) *ScenarioService {
	return &ScenarioService{
		generator: generator,
		publisher: publisher,
		metrics:   m,
		limits:    limits,
	}
}

// Generate runs one scenario. Validation failures are returned wrapped in
// domain.ErrInvalidParameters, domain.ErrInvalidScenario, domain.ErrUnknownModel
// or ErrScenarioTooLarge; a Feller violation is reported in the DTO.
func (s *ScenarioService) Generate(ctx context.Context, cmd GenerateScenarioCommand) (*ScenarioDTO, error) {
	start := time.Now()

	model, scenario, err := s.prepare(cmd)
	if err != nil {
		outcome := "invalid"
		if errors.Is(err, ErrScenarioTooLarge) {
			outcome = "rejected"
		}
		s.record(cmd.Model, outcome, 0, 0, false)
		logger.Warn(ctx, "scenario rejected", "model", cmd.Model, "error", err)
		return nil, err
	}

	res, err := s.generator.Generate(model, scenario)
	if err != nil {
		s.record(string(model.Kind()), "error", 0, 0, false)
		logger.Warn(ctx, "scenario generation failed", "model", model.Kind(), "error", err)
		return nil, err
	}

	dto := toScenarioDTO(res, cmd.Seed != nil)
	elapsed := time.Since(start)
	s.record(dto.Model, "ok", dto.NumPaths, elapsed, dto.FellerViolated())

	if dto.FellerViolated() {
		logger.Warn(ctx, "feller condition violated",
			"a", cmd.A, "b", cmd.B, "sigma", cmd.Sigma)
	}
	logger.Info(ctx, "scenario generated",
		"model", dto.Model,
		"paths", dto.NumPaths,
		"steps", dto.Steps,
		"seed", dto.Seed,
		"duration", elapsed,
	)

	s.publish(ctx, model.Parameters(), cmd, dto)
	return dto, nil
}

func (s *ScenarioService) prepare(cmd GenerateScenarioCommand) (domain.ShortRateModel, domain.Scenario, error) {
	kind, err := domain.ParseModelKind(cmd.Model)
	if err != nil {
		return nil, domain.Scenario{}, err
	}
	params, err := domain.NewModelParameters(cmd.Dt, cmd.A, cmd.B, cmd.Sigma)
	if err != nil {
		return nil, domain.Scenario{}, err
	}
	model, err := domain.NewModel(kind, params)
	if err != nil {
		return nil, domain.Scenario{}, err
	}

	scenario := domain.Scenario{R0: cmd.R0, N: cmd.N, T: cmd.T, Seed: cmd.Seed}
	steps, err := scenario.Steps(params.Dt())
	if err != nil {
		return nil, domain.Scenario{}, err
	}
	if s.limits.MaxPaths > 0 && scenario.N > s.limits.MaxPaths {
		return nil, domain.Scenario{}, fmt.Errorf("%w: n=%d exceeds max_paths=%d", ErrScenarioTooLarge, scenario.N, s.limits.MaxPaths)
	}
	if s.limits.MaxSteps > 0 && steps > s.limits.MaxSteps {
		return nil, domain.Scenario{}, fmt.Errorf("%w: t/dt=%d steps exceeds max_steps=%d", ErrScenarioTooLarge, steps, s.limits.MaxSteps)
	}
	// steps+1 > MaxCells/n 等价于 (steps+1)·n > MaxCells，且不会溢出
	if s.limits.MaxCells > 0 && steps+1 > s.limits.MaxCells/scenario.N {
		return nil, domain.Scenario{}, fmt.Errorf("%w: (steps+1)*n=%d*%d exceeds max_cells=%d",
			ErrScenarioTooLarge, steps+1, scenario.N, s.limits.MaxCells)
	}
	return model, scenario, nil
}

func (s *ScenarioService) record(model, outcome string, paths int, d time.Duration, feller bool) {
	if s.metrics == nil {
		return
	}
	label := "unknown"
	if kind, err := domain.ParseModelKind(model); err == nil {
		label = string(kind)
	}
	s.metrics.RecordScenario(label, outcome, paths, d, feller)
}

// publish 发布场景生成事件；失败只记录日志
func (s *ScenarioService) publish(ctx context.Context, params domain.ModelParameters, cmd GenerateScenarioCommand, dto *ScenarioDTO) {
	if s.publisher == nil {
		return
	}
	event := domain.ScenarioGeneratedEvent{
		Model:      dto.Model,
		Dt:         params.Dt(),
		A:          params.A(),
		B:          params.B(),
		Sigma:      params.Sigma(),
		R0:         cmd.R0,
		Horizon:    dto.Horizon,
		Steps:      dto.Steps,
		Paths:      dto.NumPaths,
		Seed:       dto.Seed,
		Seeded:     dto.Seeded,
		Advisories: dto.Advisories,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, domain.ScenarioGeneratedEventType, dto.Model, event); err != nil {
		logger.Error(ctx, "failed to publish scenario event", "model", dto.Model, "seed", dto.Seed, "error", err)
	}
}
