package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"reelsmith/internal/config"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/queue"
)

func newQueueCommand(cmdCtx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the task queue",
	}
	queueCmd.AddCommand(newQueueAddCommand(cmdCtx))
	queueCmd.AddCommand(newQueueListCommand(cmdCtx))
	queueCmd.AddCommand(newQueueApproveCommand(cmdCtx))
	queueCmd.AddCommand(newQueueRetryCommand(cmdCtx))
	queueCmd.AddCommand(newQueueClearCommand(cmdCtx))
	queueCmd.AddCommand(newQueueHealthCommand(cmdCtx))
	return queueCmd
}

func newQueueAddCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		languages []string
		sourceURL string
		text      string
		textFile  string
		jobID     string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Enqueue a job, one task per target language",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withStore(func(cfg *config.Config, store *queue.Store) error {
				script := strings.TrimSpace(text)
				if textFile != "" {
					data, err := os.ReadFile(textFile)
					if err != nil {
						return fmt.Errorf("read script file: %w", err)
					}
					script = strings.TrimSpace(string(data))
				}
				if script == "" && strings.TrimSpace(sourceURL) == "" {
					return fmt.Errorf("either --text/--file or --url is required")
				}
				if len(languages) == 0 {
					languages = []string{"en"}
				}
				if jobID == "" {
					jobID = uuid.NewString()[:8]
				}

				jobType := queue.JobText
				if strings.TrimSpace(sourceURL) != "" {
					jobType = queue.JobRewrite
				}

				for i, language := range languages {
					translated := i > 0
					task := queue.NewTask(jobID, language, jobType, pipeline.PlanStages(cfg, jobType, translated))
					task.SourceURL = strings.TrimSpace(sourceURL)
					task.OriginalText = script
					if err := store.Insert(cmd.Context(), task); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "queued task %d (%s)\n", task.ID, task.TaskKey)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&languages, "language", "l", nil, "Target language (repeatable; first is the source language)")
	cmd.Flags().StringVar(&sourceURL, "url", "", "Source URL to download and rewrite")
	cmd.Flags().StringVar(&text, "text", "", "Script text")
	cmd.Flags().StringVar(&textFile, "file", "", "Script text file")
	cmd.Flags().StringVar(&jobID, "job-id", "", "Job identifier (generated when omitted)")
	return cmd
}

func newQueueListCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withStore(func(cfg *config.Config, store *queue.Store) error {
				tasks, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"ID", "Task", "Type", "Status", "Images", "Clips", "Updated"})
				for _, task := range tasks {
					t.AppendRow(table.Row{
						task.ID,
						task.TaskKey,
						string(task.JobType),
						task.SummaryStatus(),
						fmt.Sprintf("%d/%d", task.ImagesDone, task.ImagesTotal),
						fmt.Sprintf("%d/%d", task.VideosDone, task.VideosTotal),
						task.UpdatedAt.Format("2006-01-02 15:04:05"),
					})
				}
				t.Render()
				return nil
			})
		},
	}
}

func newQueueApproveCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <task-id>",
		Short: "Approve a task waiting at a review gate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return cmdCtx.withStore(func(cfg *config.Config, store *queue.Store) error {
				task, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				task.IsReviewed = true
				for _, stageID := range task.Stages {
					if task.StageStatus(stageID) == queue.StatusReviewRequired {
						task.SetStage(stageID, queue.StatusSuccess, "")
					}
				}
				if err := store.Update(cmd.Context(), task); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "approved task %d (%s)\n", task.ID, task.TaskKey)
				return nil
			})
		},
	}
}

func newQueueRetryCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <task-id>",
		Short: "Return a task's errored stages to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return cmdCtx.withStore(func(cfg *config.Config, store *queue.Store) error {
				task, err := store.RetryErrored(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "task %d (%s) queued for retry\n", task.ID, task.TaskKey)
				return nil
			})
		},
	}
}

func newQueueClearCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove completed tasks from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withStore(func(cfg *config.Config, store *queue.Store) error {
				removed, err := store.ClearCompleted(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d completed tasks\n", removed)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show aggregate queue counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withStore(func(cfg *config.Config, store *queue.Store) error {
				summary, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"Total", "Pending", "Processing", "Review", "Failed", "Completed"})
				t.AppendRow(table.Row{
					summary.Total, summary.Pending, summary.Processing,
					summary.Review, summary.Failed, summary.Completed,
				})
				t.Render()
				return nil
			})
		},
	}
}

func parseTaskID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return id, nil
}
