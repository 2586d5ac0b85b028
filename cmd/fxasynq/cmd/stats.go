package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/mintaka-io/fxasynq/config"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-queue task counts from the broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		opt, err := settings.ResultConnOpt()
		if err != nil {
			return err
		}
		inspector := asynq.NewInspector(opt)
		defer inspector.Close()

		queues, err := inspector.Queues()
		if err != nil {
			return fmt.Errorf("failed to list queues: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "QUEUE\tSIZE\tACTIVE\tPENDING\tRETRY\tFAILED\tCOMPLETED")
		for _, q := range queues {
			info, err := inspector.GetQueueInfo(q)
			if err != nil {
				return fmt.Errorf("failed to inspect queue %q: %w", q, err)
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
				info.Queue, info.Size, info.Active, info.Pending, info.Retry, info.Failed, info.Completed)
		}
		return w.Flush()
	},
}
