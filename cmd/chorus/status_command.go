package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"chorus/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, status)
				}

				out := cmd.OutOrStdout()
				running := "stopped"
				color := ansiRed
				if status.Running {
					running = "running"
					color = ansiGreen
				}
				if stdoutIsTerminal() {
					running = color + running + ansiReset
				}
				fmt.Fprintf(out, "Daemon: %s\n", running)
				fmt.Fprintf(out, "Queue database: %s\n", status.QueueDBPath)

				headers := []string{"State", "Jobs"}
				rows := [][]string{
					{"pending", strconv.Itoa(status.Queue.Pending)},
					{"processing", strconv.Itoa(status.Queue.Processing)},
					{"completed", strconv.Itoa(status.Queue.Completed)},
					{"partial_success", strconv.Itoa(status.Queue.Partial)},
					{"failed", strconv.Itoa(status.Queue.Failed)},
					{"cancelled", strconv.Itoa(status.Queue.Cancelled)},
					{"total", strconv.Itoa(status.Queue.Total)},
				}
				fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}
