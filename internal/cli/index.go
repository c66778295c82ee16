package cli

import (
	"os"

	"github.com/spf13/cobra"

	"resume-rag/internal/helper"
	"resume-rag/internal/parser"
)

func init() {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index a resume document into a collection (no-op if it already holds records)",
		RunE:  runIndex,
	}
	cmd.Flags().String("file", "", "Document to index (required)")
	cmd.Flags().String("collection", "", "Collection name (required)")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("collection")
	RootCmd.AddCommand(cmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	collection, _ := cmd.Flags().GetString("collection")
	ctx := cmd.Context()

	text, err := parser.LoadText(file)
	if err != nil {
		return err
	}
	chunks, err := parser.Chunk(text, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return err
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store)

	sess, err := openSession(ctx, store, collection)
	if err != nil {
		return err
	}
	defer sess.Close()
	if err := sess.IndexChunks(ctx, chunks); err != nil {
		return err
	}
	count, err := sess.Count(ctx)
	if err != nil {
		return err
	}
	helper.PrettyPrint(os.Stdout, map[string]any{"collection": collection, "chunks": len(chunks), "records": count})
	return nil
}
