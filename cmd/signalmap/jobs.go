package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ozayn/signalmap/internal/db"
	"github.com/ozayn/signalmap/internal/jobs"
	"github.com/ozayn/signalmap/internal/observability"
)

var (
	jobsLimit    int
	jobsPlatform string
	jobsHandle   string
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and manage archaeology jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent jobs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, database *db.DB) error {
			list, err := database.ListJobs(ctx, jobsPlatform, jobsHandle, jobsLimit)
			if err != nil {
				return err
			}
			observability.NewPrinter(os.Stdout).PrintJobList(list)
			return nil
		})
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a job's status and merged results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid job ID: %s", args[0])
		}
		return withDB(cmd.Context(), func(ctx context.Context, database *db.DB) error {
			job, err := database.GetJob(ctx, jobID)
			if err != nil {
				return err
			}
			if job == nil {
				return fmt.Errorf("job not found: %s", jobID)
			}
			snaps, err := database.ListJobSnapshots(ctx, jobID)
			if err != nil {
				return err
			}
			cacheRows, err := database.ListCacheEntries(ctx, job.Platform, job.CanonicalURL)
			if err != nil {
				return err
			}
			observability.NewPrinter(os.Stdout).PrintJob(job, jobs.MergeResults(snaps, cacheRows))
			return nil
		})
	},
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Request cancellation of a queued or running job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid job ID: %s", args[0])
		}
		return withDB(cmd.Context(), func(ctx context.Context, database *db.DB) error {
			canceled, err := database.CancelJob(ctx, jobID)
			if err != nil {
				return err
			}
			if !canceled {
				return fmt.Errorf("job %s is not cancelable", jobID)
			}
			fmt.Printf("Job %s canceled.\n", jobID)
			return nil
		})
	},
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a job and its snapshot rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid job ID: %s", args[0])
		}
		return withDB(cmd.Context(), func(ctx context.Context, database *db.DB) error {
			if err := database.DeleteJob(ctx, jobID); err != nil {
				return err
			}
			fmt.Printf("Job %s deleted.\n", jobID)
			return nil
		})
	},
}

func init() {
	jobsListCmd.Flags().IntVar(&jobsLimit, "limit", 50, "Maximum jobs to list")
	jobsListCmd.Flags().StringVar(&jobsPlatform, "platform", "", "Filter by platform")
	jobsListCmd.Flags().StringVar(&jobsHandle, "handle", "", "Filter by handle")
	jobsCmd.AddCommand(jobsListCmd, jobsShowCmd, jobsCancelCmd, jobsDeleteCmd)
	rootCmd.AddCommand(jobsCmd)
}

// withDB runs fn against the configured database.
func withDB(ctx context.Context, fn func(context.Context, *db.DB) error) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer database.Close()
	return fn(ctx, database)
}
