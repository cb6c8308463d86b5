// Package grpc 短期利率服务的 gRPC 接口，消息体使用 google.protobuf.Struct
package grpc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/wyfcoding/shortrate/internal/shortrate/application"
	"github.com/wyfcoding/shortrate/internal/shortrate/domain"
	"github.com/wyfcoding/shortrate/pkg/logger"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// maxExactInteger is the largest integer a protobuf number holds exactly.
const maxExactInteger = 1 << 53

// ShortRateHandler gRPC 处理器
type ShortRateHandler struct {
	scenarios *application.ScenarioService
	rates     *application.RateHistoryQueryService
}

// NewShortRateHandler rates 为 nil 时 GetRatesByYear 返回 Unavailable
func NewShortRateHandler(scenarios *application.ScenarioService, rates *application.RateHistoryQueryService) *ShortRateHandler {
	return &ShortRateHandler{scenarios: scenarios, rates: rates}
}

// GeneratePaths 生成路径，seed 以字符串返回以保留 64 位精度
func (h *ShortRateHandler) GeneratePaths(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	cmd, err := decodeCommand(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	dto, err := h.scenarios.Generate(ctx, cmd)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return encodeScenario(dto), nil
}

// GetRatesByYear 查询某年的历史利率
func (h *ShortRateHandler) GetRatesByYear(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if h.rates == nil {
		return nil, status.Error(codes.Unavailable, "rate history is not configured")
	}

	year, err := integerField(req, "year")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	rates, err := h.rates.GetRatesByYear(ctx, int(year))
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	rows := make([]*structpb.Value, len(rates))
	for i, r := range rates {
		rows[i] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"BASE_DATE": structpb.NewStringValue(r.BaseDate),
			"MATURITY":  structpb.NewStringValue(r.Maturity),
			"VALUE":     structpb.NewNumberValue(r.Value),
		}})
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"bond_type": structpb.NewStringValue(h.rates.BondType()),
		"year":      structpb.NewNumberValue(float64(year)),
		"rates":     structpb.NewListValue(&structpb.ListValue{Values: rows}),
	}}, nil
}

func decodeCommand(req *structpb.Struct) (application.GenerateScenarioCommand, error) {
	var cmd application.GenerateScenarioCommand
	if req == nil {
		return cmd, errors.New("empty request")
	}

	model, ok := req.GetFields()["model"]
	if !ok {
		return cmd, errors.New("model is required")
	}
	if _, isString := model.GetKind().(*structpb.Value_StringValue); !isString {
		return cmd, errors.New("model must be a string")
	}
	cmd.Model = model.GetStringValue()

	for name, dst := range map[string]*float64{
		"dt": &cmd.Dt, "a": &cmd.A, "b": &cmd.B, "sigma": &cmd.Sigma, "r0": &cmd.R0, "t": &cmd.T,
	} {
		v, err := numberField(req, name)
		if err != nil {
			return cmd, err
		}
		*dst = v
	}

	n, err := integerField(req, "n")
	if err != nil {
		return cmd, err
	}
	cmd.N = int(n)

	seed, err := seedField(req)
	if err != nil {
		return cmd, err
	}
	cmd.Seed = seed
	return cmd, nil
}

// numberField 缺省字段按 0 处理，由领域层校验
func numberField(req *structpb.Struct, name string) (float64, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, nil
	}
	if _, isNumber := v.GetKind().(*structpb.Value_NumberValue); !isNumber {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return v.GetNumberValue(), nil
}

func integerField(req *structpb.Struct, name string) (int64, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, fmt.Errorf("%s is required", name)
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		f := kind.NumberValue
		if f != math.Trunc(f) || math.Abs(f) > maxExactInteger {
			return 0, fmt.Errorf("%s must be an integer, got %v", name, f)
		}
		return int64(f), nil
	case *structpb.Value_StringValue:
		i, err := strconv.ParseInt(kind.StringValue, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer: %w", name, err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%s must be an integer", name)
	}
}

func seedField(req *structpb.Struct) (*int64, error) {
	v, ok := req.GetFields()["seed"]
	if !ok {
		return nil, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	seed, err := integerField(req, "seed")
	if err != nil {
		return nil, err
	}
	return &seed, nil
}

func encodeScenario(dto *application.ScenarioDTO) *structpb.Struct {
	paths := make([]*structpb.Value, len(dto.Paths))
	for j, path := range dto.Paths {
		paths[j] = numberList(path)
	}

	advisories := make([]*structpb.Value, len(dto.Advisories))
	for i, a := range dto.Advisories {
		advisories[i] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"code":    structpb.NewStringValue(string(a.Code)),
			"message": structpb.NewStringValue(a.Message),
		}})
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"model":      structpb.NewStringValue(dto.Model),
		"seed":       structpb.NewStringValue(strconv.FormatInt(dto.Seed, 10)),
		"seeded":     structpb.NewBoolValue(dto.Seeded),
		"steps":      structpb.NewNumberValue(float64(dto.Steps)),
		"num_paths":  structpb.NewNumberValue(float64(dto.NumPaths)),
		"horizon":    structpb.NewNumberValue(dto.Horizon),
		"times":      numberList(dto.Times),
		"paths":      structpb.NewListValue(&structpb.ListValue{Values: paths}),
		"advisories": structpb.NewListValue(&structpb.ListValue{Values: advisories}),
	}}
}

func numberList(values []float64) *structpb.Value {
	list := make([]*structpb.Value, len(values))
	for i, v := range values {
		list[i] = structpb.NewNumberValue(v)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: list})
}

func toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidParameters),
		errors.Is(err, domain.ErrInvalidScenario),
		errors.Is(err, domain.ErrUnknownModel),
		errors.Is(err, domain.ErrInvalidYear),
		errors.Is(err, domain.ErrNumericalOverflow):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, application.ErrScenarioTooLarge):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
