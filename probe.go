package main

import (
	"fmt"
	"strconv"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/wildstyl3r/octfield/internal/config"
	"github.com/wildstyl3r/octfield/internal/model"
)

func newProbeCmd(opts *options) *cobra.Command {
	var modelName string
	cmd := &cobra.Command{
		Use:   "probe X Y Z",
		Short: "Print the value of the sample nearest to a point given in input units",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var coords [3]float64
			for i, arg := range args {
				v, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return errors.Wrapf(err, "coordinate %d", i+1)
				}
				coords[i] = v
			}

			logger, err := newLogger(opts.verbose)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			cfg, meta, err := config.LoadConfig(opts.input)
			if err != nil {
				return err
			}
			parameters, err := unifiedModel(&cfg, &meta, modelName, *opts)
			if err != nil {
				return err
			}
			m := model.NewModel(modelName, parameters, logger)
			if err := m.Build(cmd.Context()); err != nil {
				return err
			}

			match, err := m.Probe(r3.Vector{X: coords[0], Y: coords[1], Z: coords[2]})
			if err != nil {
				return err
			}
			units := parameters.OutputUnits()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "value    %g %s\n",
				config.SI(match.Value, parameters.ValueUnits(), units, false), config.UnitLabel(parameters.ValueUnits(), units))
			fmt.Fprintf(out, "distance %g %s\n",
				config.SI(match.Distance, config.LengthUnit, units, false), config.UnitLabel(config.LengthUnit, units))
			fmt.Fprintf(out, "found    %t\n", match.Found)
			return nil
		},
	}
	cmd.Flags().StringVarP(&modelName, "model", "m", "", "model name in the config")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}
