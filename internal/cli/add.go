package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"resume-rag/internal/helper"
	"resume-rag/internal/parser"
)

func init() {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append text or a document to an existing collection",
		RunE:  runAdd,
	}
	cmd.Flags().String("collection", "", "Collection name (required)")
	cmd.Flags().String("file", "", "Document to add")
	cmd.Flags().String("text", "", "Text to add")
	cmd.MarkFlagRequired("collection")
	cmd.MarkFlagsMutuallyExclusive("file", "text")
	RootCmd.AddCommand(cmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	collection, _ := cmd.Flags().GetString("collection")
	file, _ := cmd.Flags().GetString("file")
	text, _ := cmd.Flags().GetString("text")
	ctx := cmd.Context()

	if file != "" {
		var err error
		if text, err = parser.LoadText(file); err != nil {
			return err
		}
	}
	if text == "" {
		return errors.New("one of --file or --text is required")
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

	if err := requireExisting(ctx, store, collection); err != nil {
		return err
	}
	sess, err := openSession(ctx, store, collection)
	if err != nil {
		return err
	}
	defer sess.Close()
	n, err := sess.AddChunks(ctx, chunks)
	if err != nil {
		return err
	}
	helper.PrettyPrint(os.Stdout, map[string]any{"collection": collection, "added": n})
	return nil
}
