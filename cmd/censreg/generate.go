package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/censreg/datasets"
	"github.com/YuminosukeSato/censreg/linear"
)

func newGenerateCmd() *cobra.Command {
	var (
		output     string
		likelihood string
		cfg        = datasets.DefaultLinearConfig()
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic truncated or censored batch file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := linear.ParseLikelihood(likelihood)
			if err != nil {
				return err
			}
			cfg.Censored = mode == linear.Censored
			data, err := datasets.MakeLinear(cfg)
			if err != nil {
				return err
			}
			if err := datasets.Save(data, output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d x %d x %d %s batch to %s\n",
				cfg.Batch, cfg.Obs, cfg.Features, mode, output)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&output, "output", "", "output JSON batch file")
	flags.StringVar(&likelihood, "likelihood", string(linear.Truncated), "truncated or censored")
	flags.IntVar(&cfg.Batch, "batch", cfg.Batch, "number of independent problems")
	flags.IntVar(&cfg.Obs, "obs", cfg.Obs, "observations per problem")
	flags.IntVar(&cfg.Features, "features", cfg.Features, "covariates per observation")
	flags.Float64Var(&cfg.Sigma, "sigma", cfg.Sigma, "noise standard deviation")
	flags.Float64Var(&cfg.Lower, "lower", cfg.Lower, "lower bound")
	flags.Float64Var(&cfg.Upper, "upper", cfg.Upper, "upper bound")
	flags.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
