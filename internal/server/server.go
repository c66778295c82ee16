// Package server exposes chatbot building and chat over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"resume-rag/internal/models"
	"resume-rag/internal/rag"
	"resume-rag/internal/vectorstore"
)

// SessionFactory opens a session on collection backed by the named provider.
type SessionFactory func(ctx context.Context, collection, providerName, apiKey string) (*rag.Session, error)

type Options struct {
	Store      vectorstore.Store
	NewSession SessionFactory
	// DefaultProvider is used when a request names none.
	DefaultProvider string
	// APIKey supplies the credential when a request carries none.
	APIKey func(providerName string) string

	ChunkSize      int
	ChunkOverlap   int
	AllowedOrigins []string
	MaxUploadBytes int64
	UploadDir      string
	RequestTimeout time.Duration
}

type Server struct {
	opts     Options
	registry *Registry
	engine   *gin.Engine
}

func New(opts Options) (*Server, error) {
	if opts.Store == nil || opts.NewSession == nil {
		return nil, fmt.Errorf("%w: server needs a store and a session factory", models.ErrConfiguration)
	}
	if opts.DefaultProvider == "" {
		opts.DefaultProvider = "google"
	}
	if opts.APIKey == nil {
		opts.APIKey = func(string) string { return "" }
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}

	s := &Server{opts: opts, registry: NewRegistry()}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Registry() *Registry { return s.registry }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = s.opts.MaxUploadBytes
	r.Use(gin.Recovery(), requestIDMiddleware(), loggerMiddleware(), corsMiddleware(s.opts.AllowedOrigins))

	r.GET("/health", s.health)

	api := r.Group("/api")
	api.Use(timeoutMiddleware(s.opts.RequestTimeout))
	api.POST("/build-bot", s.buildBot)
	api.POST("/collections/finalize", s.finalizeCollection)
	api.POST("/add-to-bot", s.addToBot)
	api.POST("/chat", s.chat)
	api.POST("/chat/reset", s.resetChat)
	api.GET("/chat/memory/:collection", s.chatMemory)
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("Shutting down server")
	err := srv.Shutdown(shutdownCtx)
	s.registry.Close()
	return err
}

// session returns the registered session for collection, creating one when
// none exists or the request switched provider.
func (s *Server) session(ctx context.Context, collection, providerName, apiKey string) (*rag.Session, error) {
	providerName = strings.ToLower(strings.TrimSpace(providerName))
	if providerName == "" {
		providerName = s.opts.DefaultProvider
	}
	if apiKey == "" {
		apiKey = s.opts.APIKey(providerName)
	}
	return s.registry.GetOrCreate(collection, providerName, func() (*rag.Session, error) {
		return s.opts.NewSession(ctx, collection, providerName, apiKey)
	})
}

func (s *Server) requireCollection(ctx context.Context, name string) error {
	if _, ok := s.registry.Lookup(name); ok {
		return nil
	}
	ok, err := s.opts.Store.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrStorage, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrCollectionNotFound, name)
	}
	return nil
}
