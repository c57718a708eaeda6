package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewDLQCmd создаёт группу команд для работы с dead-letter очередью.
func NewDLQCmd(brokerFn BrokerFunc, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect and requeue dead-lettered tasks",
	}

	cmd.AddCommand(
		newDLQListCmd(brokerFn, outputFn),
		newDLQRequeueCmd(brokerFn, outputFn),
	)

	return cmd
}

func newDLQListCmd(brokerFn BrokerFunc, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dead-lettered tasks without removing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			broker, err := brokerFn(cmd)
			if err != nil {
				return err
			}
			defer broker.Close()

			letters, err := broker.DeadLetters(cmd.Context(), limit)
			if err != nil {
				return err
			}

			rows := make([][]string, len(letters))
			for i, l := range letters {
				rows[i] = []string{l.TaskID, strconv.Itoa(l.Attempt), l.FailedAt}
			}

			out.Print([]string{"TASK_ID", "ATTEMPT", "FAILED_AT"}, rows, letters)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of messages to show")

	return cmd
}

func newDLQRequeueCmd(brokerFn BrokerFunc, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "requeue",
		Short: "Move dead-lettered tasks back to the work queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			broker, err := brokerFn(cmd)
			if err != nil {
				return err
			}
			defer broker.Close()

			moved, err := broker.RequeueDeadLetters(cmd.Context(), limit)
			if err != nil {
				if moved > 0 {
					out.Success("Requeued %d task(s) before failure", moved)
				}
				return err
			}

			out.Success("Requeued %d task(s)", moved)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of messages to move (0 = all)")

	return cmd
}
