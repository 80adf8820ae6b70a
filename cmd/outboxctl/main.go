package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pg-backend/config"
	"pg-backend/services"
)

type connectFunc func(ctx context.Context) (*services.Stack, error)

func main() {
	root := newRootCmd(connect, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(open connectFunc, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "outboxctl",
		Short:         "Inspect and repair tenant side-effect tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var (
		status   string
		tenantID uint
		reason   string
	)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List outbox tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := open(cmd.Context())
			if err != nil {
				return err
			}
			tasks, err := stack.Outbox.List(cmd.Context(), services.OutboxFilter{
				Status:   strings.ToUpper(strings.TrimSpace(status)),
				TenantID: tenantID,
			})
			if err != nil {
				return err
			}
			return printJSON(stdout, tasks)
		},
	}
	listCmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, FAILED, DEAD, ...)")
	listCmd.Flags().UintVar(&tenantID, "tenant", 0, "Filter by tenant id")

	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Run every task that is due now",
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := open(cmd.Context())
			if err != nil {
				return err
			}
			n, err := stack.Outbox.ProcessDue(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "processed %d task(s)\n", n)
			return nil
		},
	}

	retryCmd := &cobra.Command{
		Use:   "retry <task-id>",
		Short: "Reset a failed, dead or abandoned task and run it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			stack, err := open(cmd.Context())
			if err != nil {
				return err
			}
			task, err := stack.Outbox.Retry(cmd.Context(), id)
			if err != nil {
				return err
			}
			if runErr := stack.Outbox.Execute(cmd.Context(), task); runErr != nil {
				fmt.Fprintf(stderr, "task %d failed again: %v\n", id, runErr)
			}
			return printJSON(stdout, task)
		},
	}

	abandonCmd := &cobra.Command{
		Use:   "abandon <task-id>",
		Short: "Give up on a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			stack, err := open(cmd.Context())
			if err != nil {
				return err
			}
			task, err := stack.Outbox.Abandon(cmd.Context(), id, reason)
			if err != nil {
				return err
			}
			return printJSON(stdout, task)
		},
	}
	abandonCmd.Flags().StringVar(&reason, "reason", "", "Why the task is abandoned")

	root.AddCommand(listCmd, processCmd, retryCmd, abandonCmd)
	return root
}

func connect(ctx context.Context) (*services.Stack, error) {
	cfg := config.Load()
	cfg.SeedDemoData = false
	logger := config.InitLogger("outboxctl")
	if err := config.ConnectDatabase(cfg); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	lockClient := config.ConnectRedis(ctx, cfg.RedisAddr)
	return services.NewStack(config.DB, cfg, lockClient, logger), nil
}

func parseID(raw string) (uint, error) {
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return uint(n), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
