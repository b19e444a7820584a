package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/samuelfneumann/brace/batch"
	"github.com/samuelfneumann/brace/network"
	"github.com/samuelfneumann/brace/snapshot"
)

var (
	outPath         string
	obsPath         string
	forwardSnapshot string
	inspectSnapshot string
)

// initCmd writes a snapshot of a freshly initialized network
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a snapshot of a newly initialized network",
	RunE: func(cmd *cobra.Command, args []string) error {
		net, err := newNetwork()
		if err != nil {
			return err
		}

		if err := snapshot.Save(outPath, net); err != nil {
			return err
		}
		logger.Info("saved network snapshot",
			zap.String("path", outPath),
			zap.Stringer("network", net))
		return nil
	},
}

// forwardCmd evaluates a network on a batch of observations
var forwardCmd = &cobra.Command{
	Use:   "forward",
	Short: "Compute γ and V for a batch of observations",
	Long: `forward reads a JSON array of observations from --obs ("-" for
stdin) and prints the arbitration weight γ and state value V of each
observation as JSON. The network is loaded from --snapshot, or built from
the configuration if no snapshot is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		net, err := loadNetwork(forwardSnapshot)
		if err != nil {
			return err
		}

		obs, err := readObservations(obsPath)
		if err != nil {
			return err
		}
		size, features := obs.Dims()
		logger.Debug("read observations",
			zap.Int("batch", size),
			zap.Int("features", features))

		gamma, value, err := net.Forward(obs.Tensor())
		if err != nil {
			return err
		}

		result, err := batch.NewResult(gamma, value)
		if err != nil {
			return err
		}
		return result.WriteJSON(cmd.OutOrStdout())
	},
}

// inspectCmd describes the network stored in a snapshot
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the architecture and parameter shapes of a snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		if inspectSnapshot == "" {
			return fmt.Errorf("inspect: --snapshot is required")
		}
		net, err := loadNetwork(inspectSnapshot)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, net)
		for _, node := range net.Learnables() {
			fmt.Fprintf(out, "%-12v %v\n", node.Name(), node.Shape())
		}
		return nil
	},
}

func init() {
	initCmd.Flags().StringVarP(&outPath, "out", "o", "brace.gob",
		"Snapshot file to write")

	forwardCmd.Flags().StringVar(&obsPath, "obs", "-",
		"JSON file of observations")
	forwardCmd.Flags().StringVar(&forwardSnapshot, "snapshot", "",
		"Network snapshot to evaluate")

	inspectCmd.Flags().StringVar(&inspectSnapshot, "snapshot", "",
		"Network snapshot to inspect")
}

// newNetwork builds a network from the configuration
func newNetwork() (*network.DualHeadMLP, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	netConfig, err := cfg.Network()
	if err != nil {
		return nil, err
	}
	return netConfig.Create()
}

// loadNetwork loads the network from the snapshot at path, or builds
// one from the configuration if path is empty
func loadNetwork(path string) (*network.DualHeadMLP, error) {
	if path == "" {
		logger.Warn("no snapshot given, using a newly initialized network")
		return newNetwork()
	}

	net := &network.DualHeadMLP{}
	if err := snapshot.Load(path, net); err != nil {
		return nil, err
	}

	if cfg.ObsDim > 0 && cfg.ObsDim != net.Features() {
		logger.Warn("configured observation dimension differs from snapshot",
			zap.Int("configured", cfg.ObsDim),
			zap.Int("snapshot", net.Features()))
	}
	logger.Debug("loaded network snapshot",
		zap.String("path", path),
		zap.Stringer("network", net))
	return net, nil
}

// readObservations reads a JSON batch of observations from path, or
// from stdin if path is "-"
func readObservations(path string) (*batch.Batch, error) {
	if path == "-" {
		return batch.ReadJSON(os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return batch.ReadJSON(f)
}
