package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var ingestNoProgress bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Index the documents in a directory",
	Long: `Walks the directory, parses every supported file (pdf, txt, json, docx,
csv), splits the text into overlapping chunks and writes them to the
vector index. Re-ingesting a file replaces its previous chunks.

Files that cannot be parsed are skipped and listed at the end.
Without an argument the configured data directory is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestNoProgress, "no-progress", false, "disable the progress bar")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	root := config().Ingest.DataDir
	if len(args) > 0 {
		root = args[0]
	}

	ctx := commandContext(cmd)
	progress := newIngestProgress(cmd.ErrOrStderr(), !ingestNoProgress && stderrIsTerminal())

	cmd.Printf("Ingesting %s...\n", root)
	report, err := ingestService.Ingest(ctx, root, progress)
	if report != nil {
		printIngestReport(cmd, report)
	}
	if err != nil {
		if report != nil && report.Chunks > 0 {
			// Keep what was written before the failure.
			if serr := persist(ctx); serr != nil {
				cmd.PrintErrf("Warning: saving index: %v\n", serr)
			}
		}
		return fmt.Errorf("ingest failed: %w", err)
	}

	if err := persist(ctx); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	return nil
}

func printIngestReport(cmd *cobra.Command, report *domain.IngestReport) {
	cmd.Printf("Indexed %d chunks from %d documents in %d files (%s)\n",
		report.Chunks, report.Documents, report.Files, report.Duration.Round(time.Millisecond))

	if !report.HasFailures() {
		return
	}
	cmd.Printf("\nSkipped %d files:\n", len(report.Failures))
	for _, f := range report.Failures {
		cmd.Printf("  %s: %v\n", f.Path, f.Err)
	}
}
