package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/revware/pr-sentinel/internal/config"
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect and replay dead-lettered review tasks",
}

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks in the dead-letter queue",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		cfg, client, err := dlqClient()
		if err != nil {
			return err
		}
		defer client.Close()

		entries, err := client.XRange(ctx, cfg.Redis.DLQStream, "-", "+").Result()
		if err != nil {
			return fmt.Errorf("failed to read dead-letter stream: %w", err)
		}

		if len(entries) == 0 {
			successColor.Println("Dead-letter queue is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "MESSAGE ID\tREPOSITORY\tPR\tATTEMPTS\tDEAD-LETTERED\tLAST ERROR")
		for _, entry := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				entry.ID,
				fieldOr(entry.Values, "repo_full_name", "?"),
				fieldOr(entry.Values, "pr_number", "?"),
				fieldOr(entry.Values, "attempt", "?"),
				fieldOr(entry.Values, "dead_lettered_at", "?"),
				truncateError(fieldOr(entry.Values, "error", "")),
			)
		}
		return w.Flush()
	},
}

var dlqRequeueCmd = &cobra.Command{
	Use:   "requeue [message-id]",
	Short: "Move a dead-lettered task back onto the work stream",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()
		messageID := args[0]

		cfg, client, err := dlqClient()
		if err != nil {
			return err
		}
		defer client.Close()

		entries, err := client.XRange(ctx, cfg.Redis.DLQStream, messageID, messageID).Result()
		if err != nil {
			return fmt.Errorf("failed to read dead-letter stream: %w", err)
		}
		if len(entries) == 0 {
			return fmt.Errorf("message %s not found in %s", messageID, cfg.Redis.DLQStream)
		}

		values := entries[0].Values
		// The replayed task starts its attempt budget over; the retry
		// history stays behind in the dead-letter entry.
		values["attempt"] = "1"
		delete(values, "error")
		delete(values, "dead_lettered_at")
		values["requeued_at"] = time.Now().UTC().Format(time.RFC3339Nano)

		if err := client.XAdd(ctx, &redis.XAddArgs{
			Stream: cfg.Redis.Stream,
			Values: values,
		}).Err(); err != nil {
			return fmt.Errorf("failed to requeue task: %w", err)
		}

		if err := client.XDel(ctx, cfg.Redis.DLQStream, messageID).Err(); err != nil {
			warnColor.Printf("task requeued but could not be removed from the dead-letter stream: %v\n", err)
			return nil
		}

		successColor.Printf("Task %s requeued onto %s.\n", messageID, cfg.Redis.Stream)
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra command registration
	dlqCmd.AddCommand(dlqListCmd)
	dlqCmd.AddCommand(dlqRequeueCmd)
	rootCmd.AddCommand(dlqCmd)
}

func dlqClient() (*config.Config, *redis.Client, error) {
	cfg, err := config.LoadCLIConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return cfg, redis.NewClient(opts), nil
}

func fieldOr(values map[string]any, key, fallback string) string {
	if v, ok := values[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func truncateError(msg string) string {
	if len(msg) > 60 {
		return msg[:57] + "..."
	}
	return msg
}
