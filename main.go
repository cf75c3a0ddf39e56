package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/facette/natsort"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wildstyl3r/octfield/internal/config"
	"github.com/wildstyl3r/octfield/internal/model"
)

type options struct {
	input   string
	threads int
	verbose bool
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "octfield",
		Short:        "Nearest sample lookup in scattered 3D field maps",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.input, "input", "i", "octfield", "model configuration in toml format")
	cmd.PersistentFlags().IntVarP(&opts.threads, "threads", "t", 1, "probe workers per model")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output")

	dataFlags := model.NewDataFlags(cmd.Flags())
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		logger, err := newLogger(opts.verbose)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		return runModels(cmd.Context(), opts, dataFlags, logger)
	}

	cmd.AddCommand(newProbeCmd(&opts))
	return cmd
}

// unifiedModel resolves the parameters of one model and applies the runtime options.
func unifiedModel(cfg *config.Config, meta *toml.MetaData, name string, opts options) (config.ModelParameters, error) {
	parameters, ok := cfg.Models[name]
	if !ok {
		return parameters, errors.Errorf("model %s not found in config", name)
	}
	if err := parameters.CheckAndUnify(name, cfg, meta); err != nil {
		return parameters, err
	}
	parameters.SetThreads(opts.threads)
	parameters.SetVerbosity(opts.verbose)
	return parameters, nil
}

func runModels(ctx context.Context, opts options, dataFlags model.DataFlags, logger *zap.Logger) error {
	startTime := time.Now()
	logger.Info("starting", zap.String("time", startTime.UTC().Format(time.UnixDate)))

	cfg, meta, err := config.LoadConfig(opts.input)
	if err != nil {
		return err
	}
	dataFlags.SetOutputPath(cfg.OutputDir)

	names := make([]string, 0, len(cfg.Models))
	for name := range cfg.Models {
		names = append(names, name)
	}
	natsort.Sort(names)

	var failed error
	for _, name := range names {
		if err := runModel(ctx, &cfg, &meta, name, opts, dataFlags, logger); err != nil {
			logger.Error("model failed", zap.String("model", name), zap.Error(err))
			failed = multierr.Append(failed, err)
			if ctx.Err() != nil {
				break
			}
		}
	}
	logger.Info("done", zap.Duration("elapsed", time.Since(startTime)))
	return failed
}

func runModel(
	ctx context.Context,
	cfg *config.Config,
	meta *toml.MetaData,
	name string,
	opts options,
	dataFlags model.DataFlags,
	logger *zap.Logger,
) error {
	parameters, err := unifiedModel(cfg, meta, name, opts)
	if err != nil {
		return err
	}
	m := model.NewModel(name, parameters, logger)
	if err := m.Build(ctx); err != nil {
		return err
	}
	if err := m.Run(ctx); err != nil {
		return err
	}
	return model.NewDataExtractor(m).Save(name, dataFlags)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
