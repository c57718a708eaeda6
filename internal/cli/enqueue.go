package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// BrokerFunc лениво создаёт Broker после разбора флагов.
type BrokerFunc func(cmd *cobra.Command) (Broker, error)

type enqueuedTask struct {
	TaskID  string `json:"task_id"`
	ReadyAt string `json:"ready_at,omitempty"`
}

// NewEnqueueCmd создаёт команду публикации task в очередь.
func NewEnqueueCmd(brokerFn BrokerFunc, outputFn func() *Output) *cobra.Command {
	var delay time.Duration
	var at string

	cmd := &cobra.Command{
		Use:   "enqueue TASK_ID [TASK_ID...]",
		Short: "Publish tasks to the work queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			readyAt, err := resolveReadyAt(delay, at)
			if err != nil {
				return err
			}

			broker, err := brokerFn(cmd)
			if err != nil {
				return err
			}
			defer broker.Close()

			tasks := make([]enqueuedTask, 0, len(args))
			rows := make([][]string, 0, len(args))
			for _, id := range args {
				if err := broker.Enqueue(cmd.Context(), id, readyAt); err != nil {
					return fmt.Errorf("enqueue %s: %w", id, err)
				}

				t := enqueuedTask{TaskID: id}
				ready := "now"
				if !readyAt.IsZero() {
					t.ReadyAt = readyAt.UTC().Format(time.RFC3339)
					ready = t.ReadyAt
				}
				tasks = append(tasks, t)
				rows = append(rows, []string{id, ready})
			}

			out.Success("Enqueued %d task(s)", len(tasks))
			out.Print([]string{"TASK_ID", "READY_AT"}, rows, tasks)
			return nil
		},
	}

	cmd.Flags().DurationVar(&delay, "delay", 0, "Activate the task after this delay (e.g. 30s, 5m)")
	cmd.Flags().StringVar(&at, "at", "", "Activate the task at this time (RFC 3339)")
	cmd.MarkFlagsMutuallyExclusive("delay", "at")

	return cmd
}

func resolveReadyAt(delay time.Duration, at string) (time.Time, error) {
	switch {
	case at != "":
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --at value %q: %w", at, err)
		}
		return t, nil
	case delay < 0:
		return time.Time{}, fmt.Errorf("invalid --delay value %s: must not be negative", delay)
	case delay > 0:
		return time.Now().Add(delay), nil
	default:
		return time.Time{}, nil
	}
}
