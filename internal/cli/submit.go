package cli

import (
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskprobe/taskprobe/internal/config"
	"github.com/taskprobe/taskprobe/internal/submit"
)

func init() {
	submitCmd.Flags().IntVar(&submitCount, "count", 0, "Number of requests to send (overrides config)")
	submitCmd.Flags().StringVar(&submitTarget, "target", "", "host:port of the task service (overrides config)")
	rootCmd.AddCommand(submitCmd)
}

var (
	submitCount  int
	submitTarget string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Flood the task service with randomized submissions",
	Long: `Send randomized task submissions to the service, one blocking POST at a
time, printing each response. The run aborts on the first transport error.`,
	RunE: runSubmit,
}

func runSubmit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	target := cfg.Target.Addr()
	if submitTarget != "" {
		target = submitTarget
	}
	count := cfg.Submit.Count
	if submitCount > 0 {
		count = submitCount
	}

	// Unseeded on purpose: load runs are not meant to be reproducible.
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	s := submit.New(target, rng, os.Stdout)
	return s.Run(cmd.Context(), count)
}
