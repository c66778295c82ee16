package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"resume-rag/internal/chromemdb"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an encrypted, compressed backup of chromem collections",
		RunE:  runExport,
	}
	cmd.Flags().String("out", "", "Backup file (default <chromem path>/collections.chromem)")
	cmd.Flags().StringSlice("collection", nil, "Collections to export (default all)")
	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")
	collections, _ := cmd.Flags().GetStringSlice("collection")

	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore(store)

	m, ok := store.(*chromemdb.VectorDBManager)
	if !ok {
		return fmt.Errorf("export needs the chromem vector store, configured %q", cfg.VectorStore.Type)
	}
	if err := m.Export(out, collections...); err != nil {
		return err
	}
	log.Info().Str("file", out).Strs("collections", collections).Msg("Exported collections")
	return nil
}
