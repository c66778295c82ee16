package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"resume-rag/internal/rag"
	"resume-rag/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (default from config)")
	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Server.Addr
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store)

	srv, err := server.New(server.Options{
		Store: store,
		NewSession: func(ctx context.Context, collection, providerName, apiKey string) (*rag.Session, error) {
			return rag.CreateSession(ctx, store, collection, providerName, apiKey, cfg.Providers.Options(), cfg.RAG.SessionOptions())
		},
		DefaultProvider: providerName(),
		APIKey:          cfg.Providers.APIKey,
		ChunkSize:       cfg.RAG.ChunkSize,
		ChunkOverlap:    cfg.RAG.ChunkOverlap,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		MaxUploadBytes:  cfg.Server.MaxUploadMB << 20,
		UploadDir:       cfg.Server.UploadDir,
		RequestTimeout:  cfg.Server.RequestTimeout,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx, addr)
}
