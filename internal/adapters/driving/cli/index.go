package cli

import (
	"bufio"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var resetYes bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index and configuration statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List indexed sources",
	Args:  cobra.NoArgs,
	RunE:  runSources,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [source]",
	Short: "Remove one source from the index",
	Long: `Removes every indexed passage of the source. The source is the file
path as shown by 'docqa sources'.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove everything from the index",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

var backupCmd = &cobra.Command{
	Use:   "backup [directory]",
	Short: "Copy the index to a timestamped backup",
	Long: `Copies the vector store directory to <directory>/backup_<timestamp>.
Without an argument the backup is written next to the vector store.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBackup,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "do not ask for confirmation")
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(backupCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if adminService == nil {
		return errors.New("admin service not configured")
	}

	stats, err := adminService.Stats(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	cmd.Println("Statistics")
	cmd.Println("==========")
	cmd.Println()
	cmd.Println("[Models]")
	cmd.Printf("  Chat model: %s\n", stats.ChatModel)
	cmd.Printf("  Embedding model: %s\n", stats.EmbeddingModel)
	cmd.Println()
	cmd.Println("[Index]")
	cmd.Printf("  Vector store: %s\n", stats.VectorStore)
	cmd.Printf("  Chunk size: %d (overlap %d)\n", stats.ChunkSize, stats.ChunkOverlap)
	cmd.Printf("  Retrieval: %s, k=%d\n", stats.Strategy, stats.RetrievalK)
	cmd.Printf("  Total entries: %d\n", stats.TotalEntries)
	cmd.Printf("  Sources: %d\n", len(stats.Sources))
	cmd.Printf("  Approximate tokens: %d\n", stats.ApproxTokens)
	cmd.Println()
	cmd.Println("[Memory]")
	cmd.Printf("  Turns: %d of %d\n", stats.MemoryTurns, stats.MemoryWindow)
	return nil
}

func runSources(cmd *cobra.Command, _ []string) error {
	if adminService == nil {
		return errors.New("admin service not configured")
	}

	sources, err := adminService.Sources(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}
	if len(sources) == 0 {
		cmd.Println("No documents indexed. Run 'docqa ingest' first.")
		return nil
	}

	for _, s := range sources {
		cmd.Printf("  %s\n", s.SourceID)
		cmd.Printf("    Format: %s, Chunks: %d\n", s.Format, s.Chunks)
	}
	cmd.Println()
	cmd.Printf("Total: %d sources\n", len(sources))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	if adminService == nil {
		return errors.New("admin service not configured")
	}

	ctx := commandContext(cmd)
	source := args[0]
	if err := adminService.DeleteSource(ctx, source); err != nil {
		return fmt.Errorf("failed to delete %s: %w", source, err)
	}
	if err := persist(ctx); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}

	cmd.Printf("Deleted %s from the index.\n", source)
	return nil
}

func runReset(cmd *cobra.Command, _ []string) error {
	if adminService == nil {
		return errors.New("admin service not configured")
	}

	if !resetYes {
		cmd.Print("This removes every indexed document. Continue? [y/N]: ")
		answer := strings.ToLower(readLine(bufio.NewReader(cmd.InOrStdin())))
		if answer != "y" && answer != "yes" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	ctx := commandContext(cmd)
	if err := adminService.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset index: %w", err)
	}
	if err := persist(ctx); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}

	cmd.Println("Index reset.")
	return nil
}

func runBackup(cmd *cobra.Command, args []string) error {
	if adminService == nil {
		return errors.New("admin service not configured")
	}

	dir := filepath.Dir(filepath.Clean(config().VectorStore.PersistDirectory))
	if len(args) > 0 {
		dir = args[0]
	}

	path, err := adminService.Backup(commandContext(cmd), dir)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	cmd.Printf("Backup written to %s\n", path)
	return nil
}
