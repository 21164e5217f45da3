package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsearch/internal/connectors/filesystem"
)

var watchNoScan bool

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Index a directory and keep it indexed",
	Long: `Submits every supported file under the directory, then watches it and
indexes files as they are created or modified. Runs until interrupted.
Deleted files stay in the index.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchNoScan, "no-scan", false, "skip the initial scan of existing files")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ingestService.Start(ctx); err != nil {
		return fmt.Errorf("start ingest workers: %w", err)
	}
	defer ingestService.Stop()

	opts := []filesystem.Option{filesystem.WithInitialScan(!watchNoScan)}
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			opts = append(opts, filesystem.WithDebounce(settings.Ingest.WatchDebounce))
		}
	}
	watcher := filesystem.New(args[0], ingestService, supportsType, opts...)
	defer watcher.Close()

	go printResults(ctx, cmd)

	cmd.Println(titleStyle.Render("Watching "+args[0]) + mutedStyle.Render(" (Ctrl+C to stop)"))
	return watcher.Run(ctx)
}

// printResults prints job outcomes until ctx is done.
func printResults(ctx context.Context, cmd *cobra.Command) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-ingestService.Results():
			printJobLine(cmd, job)
		}
	}
}
