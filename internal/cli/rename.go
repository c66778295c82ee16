package cli

import (
	"os"

	"github.com/spf13/cobra"

	"resume-rag/internal/helper"
	"resume-rag/internal/vectorstore"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Rename a collection, keeping the source intact if the copy fails",
		RunE:  runRename,
	}
	cmd.Flags().String("from", "", "Current collection name (required)")
	cmd.Flags().String("to", "", "New collection name (required)")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	RootCmd.AddCommand(cmd)
}

func runRename(cmd *cobra.Command, args []string) error {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	ctx := cmd.Context()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store)

	if err := requireExisting(ctx, store, from); err != nil {
		return err
	}
	col, err := store.Open(ctx, from)
	if err != nil {
		return err
	}
	renamed, err := vectorstore.Rename(ctx, store, col, to)
	if err != nil {
		return err
	}
	count, err := renamed.Count(ctx)
	if err != nil {
		return err
	}
	helper.PrettyPrint(os.Stdout, map[string]any{"collection": renamed.Name(), "records": count})
	return nil
}
