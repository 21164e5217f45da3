package cli

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsearch/internal/connectors/filesystem"
	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
)

var ingestWait bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <path...>",
	Short: "Index files or directories",
	Long: `Queues files for extraction, chunking, embedding and indexing.
Directories are walked recursively; hidden entries and unsupported types are skipped.
Files whose path and modification time are already indexed are skipped.

The command returns once every queued file has been processed. With --wait,
each outcome is printed as it completes and a failure makes the command fail.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWait, "wait", "w", false, "print each outcome and fail if any file fails")
	rootCmd.AddCommand(ingestCmd)
}

// jobCollector submits to the ingest service and remembers the job IDs.
type jobCollector struct {
	svc driving.IngestService
	mu  sync.Mutex
	ids []string
}

func (c *jobCollector) Submit(ctx context.Context, path string) (string, error) {
	id, err := c.svc.Submit(ctx, path)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.ids = append(c.ids, id)
	c.mu.Unlock()
	return id, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}
	ctx := cmd.Context()

	if err := ingestService.Start(ctx); err != nil {
		return fmt.Errorf("start ingest workers: %w", err)
	}

	printed := make(map[string]bool)
	var printMu sync.Mutex
	report := func(job domain.IngestJob) {
		printMu.Lock()
		defer printMu.Unlock()
		if printed[job.ID] {
			return
		}
		printed[job.ID] = true
		if ingestWait {
			printJobLine(cmd, job)
		}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case job := <-ingestService.Results():
				report(job)
			case <-done:
				return
			}
		}
	}()

	collector := &jobCollector{svc: ingestService}
	submitErr := submitPaths(ctx, cmd, collector, args)

	ingestService.Stop()
	close(done)
	wg.Wait()

	summary, err := summariseJobs(ctx, collector.ids, report)
	if err != nil {
		return err
	}
	if submitErr != nil {
		return submitErr
	}

	cmd.Println(mutedStyle.Render(fmt.Sprintf("%d queued: %d indexed, %d skipped, %d failed",
		len(collector.ids), summary.succeeded, summary.skipped, summary.failed)))
	if ingestWait && summary.failed > 0 {
		return fmt.Errorf("%d of %d files failed", summary.failed, len(collector.ids))
	}
	return nil
}

// submitPaths queues files directly and walks directories.
func submitPaths(ctx context.Context, cmd *cobra.Command, c *jobCollector, paths []string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		if info.IsDir() {
			n, err := filesystem.New(path, c, supportsType).Scan(ctx, path)
			if err != nil {
				return fmt.Errorf("scan %s: %w", path, err)
			}
			if !ingestWait {
				cmd.Printf("Queued %d files from %s\n", n, path)
			}
			continue
		}
		id, err := c.Submit(ctx, path)
		if err != nil {
			return fmt.Errorf("queue %s: %w", path, err)
		}
		if !ingestWait {
			cmd.Printf("Queued %s (job %s)\n", path, id)
		}
	}
	return nil
}

type jobSummary struct {
	succeeded, skipped, failed int
}

// summariseJobs reads the final state of every job from the ledger.
// Results dropped from the channel are reported here.
func summariseJobs(ctx context.Context, ids []string, report func(domain.IngestJob)) (jobSummary, error) {
	var s jobSummary
	for _, id := range ids {
		job, err := ingestService.Status(ctx, id)
		if err != nil {
			return s, fmt.Errorf("job %s: %w", id, err)
		}
		report(*job)
		switch job.Status {
		case domain.JobSucceeded:
			s.succeeded++
		case domain.JobSkipped:
			s.skipped++
		case domain.JobFailed:
			s.failed++
		}
	}
	return s, nil
}

func printJobLine(cmd *cobra.Command, job domain.IngestJob) {
	status := statusStyle(string(job.Status)).Render(fmt.Sprintf("%-9s", job.Status))
	line := fmt.Sprintf("%s %s", status, job.Path)
	switch job.Status {
	case domain.JobSucceeded:
		line += mutedStyle.Render(fmt.Sprintf(" (%d chunks)", job.Chunks))
	case domain.JobFailed:
		line += errorStyle.Render(": " + job.Error)
	}
	cmd.Println(line)
}
