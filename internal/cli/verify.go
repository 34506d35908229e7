package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskprobe/taskprobe/internal/verify"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify [LOGFILE]",
	Short: "Check worker logs for exactly-once task execution",
	Long: `Read worker log lines and confirm no task_id appears more than once.

Reads standard input by default:

  docker compose logs workers | taskprobe verify`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	var in io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	report, err := verify.Check(in)
	if err != nil {
		return err
	}

	fmt.Printf("scanned %d lines, %d task lines, %d unique task ids\n",
		report.LinesScanned, report.TaskLines, report.UniqueIDs)
	for _, d := range report.Duplicates {
		fmt.Printf("DUPLICATE %s: %d occurrences at lines %v\n", d.TaskID, d.Count, d.Lines)
	}

	return report.Err()
}
