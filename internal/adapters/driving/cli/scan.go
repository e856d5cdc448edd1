package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var scanCmd = &cobra.Command{
	Use:   "scan [directory]",
	Short: "List the supported files in a directory",
	Long: `Lists the files ingest would pick up, grouped by format, with their
sizes. Nothing is parsed or indexed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	root := config().Ingest.DataDir
	if len(args) > 0 {
		root = args[0]
	}

	files, err := ingestService.Scan(commandContext(cmd), root)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if len(files) == 0 {
		cmd.Printf("No supported files found in %s\n", root)
		return nil
	}

	byFormat := make(map[domain.Format][]domain.FileInfo)
	var total int64
	for _, f := range files {
		byFormat[f.Format] = append(byFormat[f.Format], f)
		total += f.Size
	}

	for _, format := range domain.AllFormats() {
		group := byFormat[format]
		if len(group) == 0 {
			continue
		}
		cmd.Printf("[%s] %d files\n", format, len(group))
		for _, f := range group {
			cmd.Printf("  %-50s %10s\n", f.Path, formatFileSize(f.Size))
		}
		cmd.Println()
	}
	cmd.Printf("Total: %d files, %s\n", len(files), formatFileSize(total))
	return nil
}

// formatFileSize renders a byte count with a binary unit and one decimal.
func formatFileSize(size int64) string {
	if size <= 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	value := float64(size)
	i := 0
	for value >= 1024 && i < len(units)-1 {
		value /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %s", value, units[i])
}
