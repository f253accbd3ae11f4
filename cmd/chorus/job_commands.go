package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"chorus/internal/api"
	"chorus/internal/ipc"
	"chorus/internal/queue"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Manage narration jobs",
	}

	jobCmd.AddCommand(newJobListCommand(ctx))
	jobCmd.AddCommand(newJobShowCommand(ctx))
	jobCmd.AddCommand(newJobCreateCommand(ctx))
	jobCmd.AddCommand(newJobProcessCommand(ctx))
	jobCmd.AddCommand(newJobCancelCommand(ctx))
	jobCmd.AddCommand(newJobDeleteCommand(ctx))

	return jobCmd
}

func newJobListCommand(ctx *commandContext) *cobra.Command {
	var (
		status     string
		contentID  string
		limit      int
		offset     int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs in the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				list, err := client.ListJobs(cmd.Context(), api.ListJobsRequest{
					Status:    status,
					ContentID: contentID,
					Limit:     limit,
					Offset:    offset,
				})
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, list)
				}

				headers := []string{"ID", "Status", "Languages", "Done", "Created"}
				rows := make([][]string, 0, len(list.Jobs))
				for _, job := range list.Jobs {
					rows = append(rows, []string{
						strconv.FormatInt(job.ID, 10),
						job.Status,
						strings.Join(job.Languages, ","),
						fmt.Sprintf("%d/%d", len(job.CompletedLanguages), len(job.Languages)),
						job.CreatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, []columnAlignment{
					alignRight, alignLeft, alignLeft, alignRight, alignLeft,
				}))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by job status")
	cmd.Flags().StringVar(&contentID, "content-id", "", "Filter by linked content record")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum jobs to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "Jobs to skip before listing")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newJobShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a single job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				job, err := client.GetJob(cmd.Context(), id)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, job)
				}
				printJobDetail(cmd, job)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of text")
	return cmd
}

func newJobCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		textFlag    string
		fileFlag    string
		languages   []string
		contentID   string
		voiceID     string
		personality string
		speed       float64
		draft       bool
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a narration job",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := textFlag
			if fileFlag != "" {
				if text != "" {
					return fmt.Errorf("use either --text or --file, not both")
				}
				data, err := os.ReadFile(fileFlag)
				if err != nil {
					return fmt.Errorf("read source text: %w", err)
				}
				text = string(data)
			}

			return ctx.withClient(func(client *ipc.Client) error {
				job, err := client.CreateJob(cmd.Context(), api.CreateJobRequest{
					SourceText: text,
					Languages:  languages,
					Config: queue.VoiceConfig{
						VoiceID:     voiceID,
						Personality: personality,
						Speed:       speed,
					},
					ContentRecordID: contentID,
					IsDraft:         draft,
				})
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, job)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created job %d (%s) for languages %s\n",
					job.ID, job.Status, strings.Join(job.Languages, ", "))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&textFlag, "text", "", "Source text to narrate")
	cmd.Flags().StringVar(&fileFlag, "file", "", "Read source text from a file")
	cmd.Flags().StringSliceVarP(&languages, "languages", "l", nil, "Target languages (comma separated)")
	cmd.Flags().StringVar(&contentID, "content-id", "", "Content record to attach generated audio to")
	cmd.Flags().StringVar(&voiceID, "voice-id", "", "Voice override for English narration")
	cmd.Flags().StringVar(&personality, "personality", "", "Narration personality hint")
	cmd.Flags().Float64Var(&speed, "speed", 0, "Speech speed multiplier")
	cmd.Flags().BoolVar(&draft, "draft", false, "Create the job without queueing it")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of text")
	return cmd
}

func newJobProcessCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "process <job-id>",
		Short: "Process a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				job, err := client.ProcessJob(cmd.Context(), id)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, job)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %d finished with status %s (%d/%d languages)\n",
					job.ID, job.Status, len(job.CompletedLanguages), len(job.Languages))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of text")
	return cmd
}

func newJobCancelCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a pending or processing job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				job, err := client.CancelJob(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %d cancelled\n", job.ID)
				return nil
			})
		},
	}
	return cmd
}

func newJobDeleteCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Delete a job and its uploaded audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.DeleteJob(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %d deleted\n", id)
				return nil
			})
		},
	}
	return cmd
}

func parseJobID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", raw)
	}
	return id, nil
}

func printJobDetail(cmd *cobra.Command, job *api.JobView) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job %d\n", job.ID)
	fmt.Fprintf(out, "  Status:    %s\n", job.Status)
	fmt.Fprintf(out, "  Languages: %s\n", strings.Join(job.Languages, ", "))
	if len(job.CompletedLanguages) > 0 {
		fmt.Fprintf(out, "  Completed: %s\n", strings.Join(job.CompletedLanguages, ", "))
	}
	if job.CurrentLanguage != "" {
		fmt.Fprintf(out, "  Current:   %s\n", job.CurrentLanguage)
	}
	if job.ContentID != "" {
		fmt.Fprintf(out, "  Content:   %s\n", job.ContentID)
	}
	fmt.Fprintf(out, "  Created:   %s\n", job.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if job.CompletedAt != nil {
		fmt.Fprintf(out, "  Finished:  %s\n", job.CompletedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if len(job.AudioURLs) > 0 {
		fmt.Fprintln(out, "  Audio:")
		for _, lang := range job.Languages {
			if url, ok := job.AudioURLs[lang]; ok {
				fmt.Fprintf(out, "    %s: %s\n", lang, url)
			}
		}
	}
	if len(job.Errors) > 0 {
		fmt.Fprintln(out, "  Errors:")
		for _, lang := range job.Languages {
			if msg, ok := job.Errors[lang]; ok {
				fmt.Fprintf(out, "    %s: %s\n", lang, msg)
			}
		}
	}
}
