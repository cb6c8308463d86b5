package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/wyfcoding/shortrate/internal/shortrate/application"
	"github.com/wyfcoding/shortrate/internal/shortrate/domain"
	grpcserver "github.com/wyfcoding/shortrate/internal/shortrate/interfaces/grpc"
	"github.com/wyfcoding/shortrate/pkg/grpcclient"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// generateRemote 通过 gRPC 调用运行中的服务生成路径
func generateRemote(ctx context.Context, opts generateOptions, command application.GenerateScenarioCommand, dialOpts ...grpc.DialOption) (*application.ScenarioDTO, error) {
	conn, err := grpcclient.NewClient(grpcclient.ClientConfig{
		Target:         opts.remote,
		RequestTimeout: opts.timeout,
		MaxRetries:     2,
		RetryDelay:     200,
	}, dialOpts...)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	fields := map[string]any{
		"model": command.Model,
		"dt":    command.Dt,
		"a":     command.A,
		"b":     command.B,
		"sigma": command.Sigma,
		"r0":    command.R0,
		"t":     command.T,
		"n":     command.N,
	}
	if command.Seed != nil {
		fields["seed"] = strconv.FormatInt(*command.Seed, 10)
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}

	resp, err := grpcserver.NewClient(conn).GeneratePaths(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeScenario(resp)
}

func decodeScenario(resp *structpb.Struct) (*application.ScenarioDTO, error) {
	f := resp.GetFields()
	seed, err := strconv.ParseInt(f["seed"].GetStringValue(), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed seed in response: %w", err)
	}

	dto := &application.ScenarioDTO{
		Model:    f["model"].GetStringValue(),
		Seed:     seed,
		Seeded:   f["seeded"].GetBoolValue(),
		Steps:    int(f["steps"].GetNumberValue()),
		NumPaths: int(f["num_paths"].GetNumberValue()),
		Horizon:  f["horizon"].GetNumberValue(),
		Times:    numbers(f["times"]),
	}
	for _, p := range f["paths"].GetListValue().GetValues() {
		dto.Paths = append(dto.Paths, numbers(p))
	}
	for _, a := range f["advisories"].GetListValue().GetValues() {
		af := a.GetStructValue().GetFields()
		dto.Advisories = append(dto.Advisories, domain.Advisory{
			Code:    domain.AdvisoryCode(af["code"].GetStringValue()),
			Message: af["message"].GetStringValue(),
		})
	}
	return dto, nil
}

func numbers(v *structpb.Value) []float64 {
	values := v.GetListValue().GetValues()
	out := make([]float64, len(values))
	for i, x := range values {
		out[i] = x.GetNumberValue()
	}
	return out
}
