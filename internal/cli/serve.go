package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/taskprobe/taskprobe/internal/config"
	"github.com/taskprobe/taskprobe/internal/simulator"
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to listen on (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 0, "Number of task executors (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

var (
	serveHost    string
	servePort    int
	serveWorkers int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local stand-in task service",
	Long: `Run a local task service that accepts POST /task submissions, executes
them with a worker pool, and prints worker log lines to stdout in the
format verify understands.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Override config from flags
	if serveHost != "" {
		cfg.Simulator.Host = serveHost
	}
	if servePort > 0 {
		cfg.Simulator.Port = servePort
	}
	if serveWorkers > 0 {
		cfg.Simulator.Workers = serveWorkers
	}

	sim, err := simulator.NewWithConfig(cfg)
	if err != nil {
		return err
	}

	return sim.Serve(context.Background())
}
