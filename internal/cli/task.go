package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/shaiso/Remedy/internal/domain"
)

// TaskReader читает task из task store. Реализация: *taskstore.Client.
type TaskReader interface {
	GetTask(ctx context.Context, id string) (*domain.Task, error)
}

// NewTaskCmd создаёт группу команд для чтения task из task store.
func NewTaskCmd(storeFn func() TaskReader, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Inspect tasks in the task store",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show TASK_ID",
		Short: "Show task details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			task, err := storeFn().GetTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "TITLE", "STATUS", "TYPE", "LAST_ERROR"},
				[][]string{{task.ID, task.Title, string(task.Status), task.Type, task.LastError}},
				task,
			)
			return nil
		},
	})

	return cmd
}
