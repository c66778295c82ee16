// Package cli implements the resume-rag commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"resume-rag/internal/config"
	"resume-rag/internal/rag"
	"resume-rag/internal/vectorstore"
)

var (
	configPath   string
	providerFlag string
	apiKeyFlag   string

	cfg *config.Config
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:           "resume-rag",
	Short:         "Chat with a resume through retrieval-augmented generation",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		setupLogging(cfg.Log)
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file path")
	RootCmd.PersistentFlags().StringVarP(&providerFlag, "provider", "p", "", "Provider: google, openai or groq (default from config)")
	RootCmd.PersistentFlags().StringVar(&apiKeyFlag, "api-key", "", "Provider API key (default from environment)")
}

func setupLogging(lc config.LogConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(lc.Level))
	if err != nil || lc.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if lc.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()
	}
}

func openStore(ctx context.Context) (vectorstore.Store, error) {
	return cfg.VectorStore.OpenStore(ctx)
}

func providerName() string {
	if providerFlag != "" {
		return strings.ToLower(providerFlag)
	}
	return cfg.Providers.Default
}

func openSession(ctx context.Context, store vectorstore.Store, collection string) (*rag.Session, error) {
	name := providerName()
	key := apiKeyFlag
	if key == "" {
		key = cfg.Providers.APIKey(name)
	}
	return rag.CreateSession(ctx, store, collection, name, key, cfg.Providers.Options(), cfg.RAG.SessionOptions())
}

func closeStore(s vectorstore.Store) {
	if err := s.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close vector store")
	}
}

func requireExisting(ctx context.Context, s vectorstore.Store, name string) error {
	ok, err := s.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("collection %q does not exist", name)
	}
	return nil
}
