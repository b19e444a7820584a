// Command brace builds, inspects and evaluates BRACE dual-head
// arbitration networks.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/samuelfneumann/brace/config"
)

var (
	// Global flags
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "brace",
	Short: "BRACE dual-head arbitration network",
	Long: `brace builds and evaluates the BRACE dual-head actor-critic
network: a shared ReLU backbone feeding a sigmoid arbitration head (γ)
and a linear state value head (V).

Configuration is read from --config, then BRACE_* environment variables,
then flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath, cmd.Flags())
		if err != nil {
			return err
		}

		logger, err = newLogger(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	def := config.Default()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Configuration file (yaml, json or toml)")
	flags.Int("obs-dim", def.ObsDim, "Number of features in an observation")
	flags.Int("hidden", def.Hidden, "Number of units in each backbone layer")
	flags.String("device", def.Device, "Compute device")
	flags.String("init", def.Init, "Weight initializer (FanInUniform, "+
		"GlorotU, GlorotN, HeU, HeN, Zeroes, Ones, Constant, Uniform, Gaussian)")
	flags.Float64("gain", def.Gain, "Gain of Glorot and He initializers")
	flags.Uint64("seed", def.Seed, "Seed of the FanInUniform initializer")
	flags.Float64("value", def.Value, "Value of the Constant initializer")
	flags.Float64("low", def.Low, "Lower bound of the Uniform initializer")
	flags.Float64("high", def.High, "Upper bound of the Uniform initializer")
	flags.Float64("mean", def.Mean, "Mean of the Gaussian initializer")
	flags.Float64("std-dev", def.StdDev, "Standard deviation of the Gaussian initializer")
	flags.String("log-level", def.LogLevel, "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(initCmd, forwardCmd, inspectCmd)
}

// newLogger returns a production zap logger writing to stderr at level
func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(lvl)
	zapConfig.Encoding = "console"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapConfig.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
