package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"resume-rag/internal/chromemdb"
	"resume-rag/internal/db"
	"resume-rag/internal/models"
	"resume-rag/internal/provider"
	"resume-rag/internal/rag"
	"resume-rag/internal/vectorstore"
)

const DefaultPath = "./configs/config.yaml"

const (
	StoreChromem  = "chromem"
	StoreMemory   = "memory"
	StorePgvector = "pgvector"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	RAG         RAGConfig         `yaml:"rag"`
	Providers   ProvidersConfig   `yaml:"providers"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxUploadMB    int64         `yaml:"max_upload_mb"`
	UploadDir      string        `yaml:"upload_dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type RAGConfig struct {
	ChunkSize        int `yaml:"chunk_size"`
	ChunkOverlap     int `yaml:"chunk_overlap"`
	BatchSize        int `yaml:"batch_size"`
	TopK             int `yaml:"top_k"`
	MemorySize       int `yaml:"memory_size"`
	EmbedConcurrency int `yaml:"embed_concurrency"`
}

type ProvidersConfig struct {
	Default string `yaml:"default"`

	GoogleAPIKey string `yaml:"google_api_key"`
	OpenAIAPIKey string `yaml:"openai_api_key"`
	GroqAPIKey   string `yaml:"groq_api_key"`

	GoogleModel          string `yaml:"google_model"`
	GoogleEmbeddingModel string `yaml:"google_embedding_model"`
	OpenAIModel          string `yaml:"openai_model"`
	OpenAIEmbeddingModel string `yaml:"openai_embedding_model"`
	OpenAIBaseURL        string `yaml:"openai_base_url"`
	GroqModel            string `yaml:"groq_model"`
	GroqBaseURL          string `yaml:"groq_base_url"`

	Guard GuardConfig `yaml:"guard"`
}

type GuardConfig struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	MaxFailures       int           `yaml:"max_failures"`
	OpenTimeout       time.Duration `yaml:"open_timeout"`
	HalfOpenMax       uint32        `yaml:"half_open_max"`
	ResetWindow       time.Duration `yaml:"reset_window"`
}

type VectorStoreConfig struct {
	Type     string         `yaml:"type"`
	Chromem  ChromemConfig  `yaml:"chromem"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type ChromemConfig struct {
	Path          string `yaml:"path"`
	Compress      bool   `yaml:"compress"`
	EncryptionKey string `yaml:"encryption_key"`
}

type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Driver   string `yaml:"driver"`
	Debug    bool   `yaml:"debug"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":5001",
			AllowedOrigins: []string{"*"},
			RequestTimeout: 2 * time.Minute,
			MaxUploadMB:    10,
			UploadDir:      os.TempDir(),
		},
		Log: LogConfig{Level: "info", Pretty: true},
		RAG: RAGConfig{
			ChunkSize:        models.DefaultChunkSize,
			ChunkOverlap:     models.DefaultChunkOverlap,
			BatchSize:        models.DefaultBatchSize,
			TopK:             models.DefaultTopK,
			MemorySize:       models.DefaultMemorySize,
			EmbedConcurrency: 1,
		},
		Providers: ProvidersConfig{
			Default: provider.Google,
			Guard: GuardConfig{
				RequestsPerMinute: 60,
				MaxFailures:       5,
				OpenTimeout:       30 * time.Second,
				HalfOpenMax:       1,
			},
		},
		VectorStore: VectorStoreConfig{
			Type:     StoreChromem,
			Chromem:  ChromemConfig{Path: "./data"},
			Postgres: PostgresConfig{Driver: "pgdriver"},
		},
	}
}

// LoadConfig reads path over the defaults, then applies .env and environment
// overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("%w: reading %s: %w", models.ErrConfiguration, path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %w", models.ErrConfiguration, path, err)
		}
	}

	// .env is optional; real environment variables win over it
	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Providers.GoogleAPIKey, "GOOGLE_API_KEY")
	setString(&c.Providers.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.Providers.GroqAPIKey, "GROQ_API_KEY")
	setString(&c.Providers.Default, "RAG_PROVIDER")
	setString(&c.Server.Addr, "RAG_ADDR")
	setString(&c.Log.Level, "RAG_LOG_LEVEL")
	setString(&c.VectorStore.Type, "RAG_VECTOR_STORE")
	setString(&c.VectorStore.Chromem.Path, "RAG_CHROMEM_PATH")
	setString(&c.VectorStore.Chromem.EncryptionKey, "RAG_CHROMEM_ENCRYPTION_KEY")
	setString(&c.VectorStore.Postgres.DSN, "RAG_POSTGRES_DSN")
	setString(&c.VectorStore.Postgres.Password, "RAG_POSTGRES_PASSWORD")

	if v, ok := os.LookupEnv("PORT"); ok && v != "" {
		c.Server.Addr = ":" + v
	}
	if err := setInt(&c.RAG.TopK, "RAG_TOP_K"); err != nil {
		return err
	}
	return setInt(&c.RAG.EmbedConcurrency, "RAG_EMBED_CONCURRENCY")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s must be an integer: %w", models.ErrConfiguration, key, err)
	}
	*dst = n
	return nil
}

func (c *Config) Validate() error {
	switch c.VectorStore.Type {
	case StoreChromem, StoreMemory:
	case StorePgvector:
		if c.VectorStore.Postgres.DSN == "" {
			return fmt.Errorf("%w: vector_store.postgres.dsn is required for pgvector", models.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown vector store %q", models.ErrConfiguration, c.VectorStore.Type)
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("%w: rag.chunk_overlap must be smaller than rag.chunk_size", models.ErrConfiguration)
	}
	return nil
}

// APIKey returns the configured credential for a provider name.
func (p ProvidersConfig) APIKey(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case provider.Google:
		return p.GoogleAPIKey
	case provider.OpenAI:
		return p.OpenAIAPIKey
	case provider.Groq:
		return p.GroqAPIKey
	}
	return ""
}

func (p ProvidersConfig) Options() provider.Options {
	return provider.Options{
		GoogleModel:          p.GoogleModel,
		GoogleEmbeddingModel: p.GoogleEmbeddingModel,
		OpenAIModel:          p.OpenAIModel,
		OpenAIEmbeddingModel: p.OpenAIEmbeddingModel,
		OpenAIBaseURL:        p.OpenAIBaseURL,
		GroqModel:            p.GroqModel,
		GroqBaseURL:          p.GroqBaseURL,
		FallbackAPIKey:       p.OpenAIAPIKey,
		Guard: provider.GuardOptions{
			Enabled:           p.Guard.Enabled,
			RequestsPerMinute: p.Guard.RequestsPerMinute,
			MaxFailures:       p.Guard.MaxFailures,
			OpenTimeout:       p.Guard.OpenTimeout,
			HalfOpenMax:       p.Guard.HalfOpenMax,
			ResetWindow:       p.Guard.ResetWindow,
		},
	}
}

func (r RAGConfig) SessionOptions() rag.Options {
	return rag.Options{
		BatchSize:        r.BatchSize,
		EmbedConcurrency: r.EmbedConcurrency,
		TopK:             r.TopK,
		MemorySize:       r.MemorySize,
	}
}

func (c ChromemConfig) Options() chromemdb.Options {
	return chromemdb.Options{Path: c.Path, Compress: c.Compress, EncryptionKey: c.EncryptionKey}
}

func (p PostgresConfig) DBConfig() db.Config {
	return db.Config{DSN: p.DSN, Password: p.Password, Driver: p.Driver, Debug: p.Debug}
}

// OpenStore builds the configured vector store backend.
func (v VectorStoreConfig) OpenStore(ctx context.Context) (vectorstore.Store, error) {
	switch v.Type {
	case StoreMemory:
		return vectorstore.NewMemoryStore(), nil
	case StorePgvector:
		s, err := db.NewStore(ctx, v.Postgres.DBConfig())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrStorage, err)
		}
		return s, nil
	case StoreChromem, "":
		m, err := chromemdb.NewVectorDBManager(v.Chromem.Options())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrStorage, err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: unknown vector store %q", models.ErrConfiguration, v.Type)
}
