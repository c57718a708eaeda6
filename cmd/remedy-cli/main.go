// Remedy CLI — утилита оператора очереди задач.
//
// Использование:
//
//	remedy-cli [--rabbitmq-url URL] [--queue NAME] [--json] <command> [flags]
//
// Команды:
//
//	enqueue   Публикация task в рабочую очередь
//	dlq       Просмотр и возврат task из DLQ
//	task      Чтение task из task store
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Remedy/internal/cli"
	"github.com/shaiso/Remedy/internal/config"
	"github.com/shaiso/Remedy/internal/mq"
	"github.com/shaiso/Remedy/internal/taskstore"
	"github.com/shaiso/Remedy/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var rabbitURL, queue, delayExchange string
	var apiURL, agentID, apiKey string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "remedy-cli",
		Short:         "Remedy CLI — task queue operator tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rabbitURL, "rabbitmq-url", envOr("RABBITMQ_URL", config.DefaultRabbitURL), "RabbitMQ URL")
	flags.StringVar(&queue, "queue", envOr("RABBITMQ_TASKS_QUEUE", config.DefaultQueue), "Work queue name")
	flags.StringVar(&delayExchange, "delay-exchange", envOr("RABBITMQ_DELAY_EXCHANGE", config.DefaultDelayExchange), "Delayed message exchange")
	flags.StringVar(&apiURL, "api-url", os.Getenv("DEVART_API_BASE_URL"), "Task store URL")
	flags.StringVar(&agentID, "agent-id", os.Getenv("DEVART_AGENT_ID"), "Agent identifier")
	flags.StringVar(&apiKey, "api-key", os.Getenv("DEVART_API_KEY"), "Task store API key")
	flags.BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	// Логи библиотек — только предупреждения, в stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: telemetry.ParseLevel(envOr("LOG_LEVEL", "WARN")),
	}))

	brokerFn := func(cmd *cobra.Command) (cli.Broker, error) {
		t := mq.Topology{Queue: queue, DelayExchange: delayExchange}
		return cli.DialBroker(cmd.Context(), rabbitURL, t, logger)
	}
	storeFn := func() cli.TaskReader {
		return taskstore.NewClient(taskstore.Config{
			BaseURL: apiURL,
			AgentID: agentID,
			APIKey:  apiKey,
		})
	}
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewEnqueueCmd(brokerFn, outputFn),
		cli.NewDLQCmd(brokerFn, outputFn),
		cli.NewTaskCmd(storeFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
