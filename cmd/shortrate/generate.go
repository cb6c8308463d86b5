package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wyfcoding/shortrate/internal/shortrate/application"
	"github.com/wyfcoding/shortrate/internal/shortrate/domain"
	"github.com/wyfcoding/shortrate/pkg/logger"
)

type generateOptions struct {
	model   string
	dt      float64
	a       float64
	b       float64
	sigma   float64
	r0      float64
	t       float64
	n       int
	seed    int64
	format  string
	workers int
	remote  string
	timeout int
}

func newGenerateCmd() *cobra.Command {
	opts := generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate short-rate paths and write them to stdout",
		Example: `  shortrate generate --model cir --dt 0.0833333333 --a 0.1 --b 0.05 --sigma 0.01 --r0 0.03 --t 100 --n 20 --seed 42
  shortrate generate --model vasicek --dt 0.01 --a 0.5 --b 0.04 --sigma 0.02 --r0 0.03 --t 1 --n 5 --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.model, "model", string(domain.ModelVasicek), "short-rate model: vasicek or cir")
	f.Float64Var(&opts.dt, "dt", 1.0/12, "time step in years")
	f.Float64Var(&opts.a, "a", 0, "mean-reversion speed")
	f.Float64Var(&opts.b, "b", 0, "long-run mean level")
	f.Float64Var(&opts.sigma, "sigma", 0, "volatility")
	f.Float64Var(&opts.r0, "r0", 0, "initial short rate")
	f.Float64Var(&opts.t, "t", 1, "horizon in years")
	f.IntVar(&opts.n, "n", 1, "number of paths")
	f.Int64Var(&opts.seed, "seed", 0, "random seed; omit for a fresh seed")
	f.StringVar(&opts.format, "format", "csv", "output format: csv or json")
	f.IntVar(&opts.workers, "workers", 0, "goroutines used to evolve paths, 0 means GOMAXPROCS")
	f.StringVar(&opts.remote, "remote", "", "gRPC address of a running server; empty runs the engine in-process")
	f.IntVar(&opts.timeout, "timeout", 60, "remote request timeout in seconds")
	return cmd
}

func runGenerate(cmd *cobra.Command, opts generateOptions) error {
	if opts.format != "csv" && opts.format != "json" {
		return fmt.Errorf("unsupported format %q, want csv or json", opts.format)
	}
	if err := logger.Init(logger.Config{Level: "error", Format: "text", Output: "stderr"}); err != nil {
		return err
	}

	var seed *int64
	if cmd.Flags().Changed("seed") {
		seed = &opts.seed
	}

	command := application.GenerateScenarioCommand{
		Model: opts.model,
		Dt:    opts.dt,
		A:     opts.a,
		B:     opts.b,
		Sigma: opts.sigma,
		R0:    opts.r0,
		T:     opts.t,
		N:     opts.n,
		Seed:  seed,
	}

	var (
		dto *application.ScenarioDTO
		err error
	)
	if opts.remote != "" {
		dto, err = generateRemote(cmd.Context(), opts, command)
	} else {
		svc := application.NewScenarioService(domain.NewPathGenerator(opts.workers), nil, nil, application.Limits{})
		dto, err = svc.Generate(cmd.Context(), command)
	}
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	for _, adv := range dto.Advisories {
		fmt.Fprintf(stderr, "warning: %s\n", adv.Message)
	}
	fmt.Fprintf(stderr, "seed: %d steps: %d horizon: %g\n", dto.Seed, dto.Steps, dto.Horizon)

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		return json.NewEncoder(out).Encode(dto.Paths)
	}
	return application.WritePathsCSV(out, dto.Paths)
}
