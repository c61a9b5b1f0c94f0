package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// DataDir holds the acquired corpus: site_text/ and pdfs/ subdirectories.
	DataDir string `envconfig:"DATA_DIR" default:"data"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"teller-artifacts"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// OpenAIAPIKey is the shared credential. EmbeddingAPIKey and
	// GenerationAPIKey override it per concern; setting only the embedding
	// key serves retrieval with generation degraded to a fixed notice.
	OpenAIAPIKey     string `envconfig:"OPENAI_API_KEY"`
	EmbeddingAPIKey  string `envconfig:"EMBEDDING_API_KEY"`
	GenerationAPIKey string `envconfig:"GENERATION_API_KEY"`

	// EmbeddingModel is the identity recorded in the index at build time and
	// checked against it at serve time. A mismatch is a configuration error.
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-ada-002"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	GenerationModel     string `envconfig:"GENERATION_MODEL" default:"gpt-4o-mini"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("TELLER", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// EmbeddingKey returns the credential used for embedding requests, falling
// back to the shared key. Empty means embedding is unconfigured.
func (c *Config) EmbeddingKey() string {
	if c.EmbeddingAPIKey != "" {
		return c.EmbeddingAPIKey
	}
	return c.OpenAIAPIKey
}

// GenerationKey returns the credential used for answer generation, falling
// back to the shared key. Empty means generation is unconfigured.
func (c *Config) GenerationKey() string {
	if c.GenerationAPIKey != "" {
		return c.GenerationAPIKey
	}
	return c.OpenAIAPIKey
}
