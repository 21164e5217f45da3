package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

var (
	jobsLimit int
	jobsJSON  bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "Show ingestion jobs",
	Long: `Lists recent ingestion jobs, newest first.
With a job ID, shows that job in detail.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "maximum number of jobs (0 = all)")
	jobsCmd.Flags().BoolVar(&jobsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}
	ctx := cmd.Context()

	if len(args) == 1 {
		job, err := ingestService.Status(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get job: %w", err)
		}
		if jobsJSON {
			return printJSON(cmd, job)
		}
		printJobDetail(cmd, job)
		return nil
	}

	limit := jobsLimit
	if limit <= 0 {
		limit = -1
	}
	jobs, err := ingestService.Jobs(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}
	if jobsJSON {
		return printJSON(cmd, jobs)
	}
	if len(jobs) == 0 {
		cmd.Println("No ingestion jobs recorded.")
		return nil
	}

	cmd.Println(titleStyle.Render("Ingestion jobs"))
	cmd.Println()
	for i := range jobs {
		j := jobs[i]
		cmd.Printf("  %s  %s  %s\n",
			mutedStyle.Render(j.EnqueuedAt.Format("2006-01-02 15:04:05")),
			statusStyle(string(j.Status)).Render(fmt.Sprintf("%-9s", j.Status)),
			truncate(j.Path, 60))
	}
	cmd.Println()
	cmd.Printf("Total: %d jobs\n", len(jobs))
	return nil
}

func printJobDetail(cmd *cobra.Command, job *domain.IngestJob) {
	cmd.Println(titleStyle.Render("Job " + job.ID))
	cmd.Println()
	cmd.Printf("  Path:     %s\n", job.Path)
	cmd.Printf("  Status:   %s\n", statusStyle(string(job.Status)).Render(string(job.Status)))
	if job.DocID != "" {
		cmd.Printf("  Document: %s\n", job.DocID)
	}
	cmd.Printf("  Chunks:   %d\n", job.Chunks)
	cmd.Printf("  Queued:   %s\n", job.EnqueuedAt.Format("2006-01-02 15:04:05"))
	if !job.StartedAt.IsZero() {
		cmd.Printf("  Started:  %s\n", job.StartedAt.Format("2006-01-02 15:04:05"))
	}
	if !job.EndedAt.IsZero() {
		cmd.Printf("  Ended:    %s\n", job.EndedAt.Format("2006-01-02 15:04:05"))
	}
	if job.Error != "" {
		cmd.Printf("  Error:    %s\n", errorStyle.Render(job.Error))
	}
}

// printJSON writes v as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
