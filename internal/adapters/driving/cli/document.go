package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Inspect indexed documents",
	Long:  `List indexed documents, show their chunks, or print a short summary.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Long: `Lists documents in the order they were first indexed.
The limit counts chunk records, as the listing groups the first N records by document.`,
	Args: cobra.NoArgs,
	RunE: runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show a document's chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentSummaryCmd = &cobra.Command{
	Use:   "summary [doc-id]",
	Short: "Print a short summary of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentSummary,
}

var (
	documentLimit int
	documentJSON  bool
)

func init() {
	documentListCmd.Flags().IntVarP(&documentLimit, "limit", "n", 100, "maximum number of records to group (0 = all)")
	documentCmd.PersistentFlags().BoolVar(&documentJSON, "json", false, "output as JSON")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentSummaryCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errNotConfigured("document")
	}

	docs, err := documentService.List(cmd.Context(), documentLimit)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if documentJSON {
		return printJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	cmd.Println(titleStyle.Render("Documents:"))
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", subtitleStyle.Render(docs[i].DocID))
		cmd.Printf("    Title:    %s\n", docs[i].Title)
		cmd.Printf("    Type:     %s\n", docs[i].FileType)
		cmd.Printf("    Source:   %s\n", docs[i].SourcePath)
		cmd.Printf("    Modified: %s\n", docs[i].ModifiedAt.Format("2006-01-02 15:04:05"))
		cmd.Printf("    Chunks:   %d\n", docs[i].Chunks)
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errNotConfigured("document")
	}

	records, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	if documentJSON {
		return printJSON(cmd, records)
	}

	meta := records[0].Metadata
	cmd.Println(titleStyle.Render("Document: " + args[0]))
	cmd.Println()
	cmd.Printf("  Title:    %s\n", meta.Title)
	cmd.Printf("  Type:     %s\n", meta.FileType)
	cmd.Printf("  Source:   %s\n", meta.SourcePath)
	cmd.Printf("  Size:     %d bytes\n", meta.SizeBytes)
	cmd.Printf("  Created:  %s\n", meta.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Modified: %s\n", meta.ModifiedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Chunks:   %d\n", len(records))

	for i := range records {
		cmd.Println()
		cmd.Println(mutedStyle.Render(fmt.Sprintf("--- chunk %d ---", records[i].Chunk.ChunkIndex)))
		cmd.Println(records[i].Chunk.Text)
	}
	return nil
}

func runDocumentSummary(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errNotConfigured("document")
	}

	digest, err := documentService.Summarize(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to summarise document: %w", err)
	}
	if documentJSON {
		return printJSON(cmd, digest)
	}

	cmd.Println(titleStyle.Render(digest.Title))
	cmd.Println()
	cmd.Println(digest.Summary)
	return nil
}
