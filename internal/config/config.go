// Package config builds the service configuration once at startup. Nothing
// below cmd/ reads the environment; every component receives its settings
// through its constructor.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Extractor and store backend names.
const (
	ExtractorDocumentAI = "documentai"
	ExtractorTextLayer  = "textlayer"

	StoreMemory    = "memory"
	StoreRedis     = "redis"
	StoreFirestore = "firestore"
	StoreGCS       = "gcs"
)

// Config holds all configuration for the service.
type Config struct {
	LogLevel   string           `yaml:"log_level"`
	Port       string           `yaml:"port"`
	GCP        GCPConfig        `yaml:"gcp"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Store      StoreConfig      `yaml:"store"`
	ChatLog    ChatLogConfig    `yaml:"chat_log"`
	Server     ServerConfig     `yaml:"server"`
	Workflow   WorkflowConfig   `yaml:"workflow"`
}

// GCPConfig holds project-wide Google Cloud settings.
type GCPConfig struct {
	ProjectID      string `yaml:"project_id"`
	VertexAIRegion string `yaml:"vertex_ai_region"`
	GeminiModel    string `yaml:"gemini_model"`
}

// ExtractionConfig holds chunking and extraction settings.
type ExtractionConfig struct {
	Extractor         string        `yaml:"extractor"`
	DocAILocation     string        `yaml:"docai_location"`
	DocAIProcessorID  string        `yaml:"docai_processor_id"`
	MaxChunkSizeBytes int64         `yaml:"max_chunk_size_bytes"`
	MaxConcurrency    int           `yaml:"max_concurrency"`
	Timeout           time.Duration `yaml:"timeout"`
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Backend             string        `yaml:"backend"`
	TTL                 time.Duration `yaml:"ttl"`
	SweepInterval       time.Duration `yaml:"sweep_interval"`
	RedisAddr           string        `yaml:"redis_addr"`
	RedisPassword       string        `yaml:"redis_password"`
	RedisDB             int           `yaml:"redis_db"`
	FirestoreDatabase   string        `yaml:"firestore_database"`
	FirestoreCollection string        `yaml:"firestore_collection"`
	Bucket              string        `yaml:"bucket"`
}

// ChatLogConfig holds the SQLite chat log location.
type ChatLogConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP route layer limits.
type ServerConfig struct {
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// WorkflowConfig names an optional Cloud Workflow started after each ingestion.
type WorkflowConfig struct {
	ID       string `yaml:"id"`
	Location string `yaml:"location"`
}

// Load builds the configuration. Values come from, in order of precedence:
// the process environment, a .env file in the working directory, the YAML
// file at path (or $DOCQA_CONFIG when path is empty), and finally defaults.
func Load(path string) (*Config, error) {
	// A missing .env is normal in deployed environments.
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("DOCQA_CONFIG")
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Extraction.Extractor {
	case ExtractorDocumentAI:
		if c.GCP.ProjectID == "" || c.Extraction.DocAIProcessorID == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID and DOCAI_PROCESSOR_ID must be set for the %s extractor", ExtractorDocumentAI)
		}
	case ExtractorTextLayer:
	default:
		return fmt.Errorf("unknown extractor %q", c.Extraction.Extractor)
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR must be set for the %s store", StoreRedis)
		}
	case StoreFirestore:
		if c.GCP.ProjectID == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID must be set for the %s store", StoreFirestore)
		}
	case StoreGCS:
		if c.Store.Bucket == "" {
			return fmt.Errorf("DOCUMENT_BUCKET must be set for the %s store", StoreGCS)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Extraction.MaxChunkSizeBytes <= 0 {
		return fmt.Errorf("MAX_CHUNK_SIZE_BYTES must be positive, got %d", c.Extraction.MaxChunkSizeBytes)
	}
	if c.Extraction.MaxConcurrency <= 0 {
		return fmt.Errorf("MAX_CONCURRENCY must be positive, got %d", c.Extraction.MaxConcurrency)
	}
	if c.Store.TTL <= 0 {
		return fmt.Errorf("DOCUMENT_TTL must be positive, got %s", c.Store.TTL)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.Server.MaxUploadBytes)
	}
	return nil
}

// GetEnv reads an environment variable or returns fallback when it is unset.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func applyEnv(cfg *Config) error {
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.Port, "PORT")

	setString(&cfg.GCP.ProjectID, "GOOGLE_CLOUD_PROJECT_ID")
	setString(&cfg.GCP.VertexAIRegion, "VERTEX_AI_REGION")
	setString(&cfg.GCP.GeminiModel, "GEMINI_MODEL")

	setString(&cfg.Extraction.Extractor, "EXTRACTOR")
	setString(&cfg.Extraction.DocAILocation, "DOCAI_LOCATION")
	setString(&cfg.Extraction.DocAIProcessorID, "DOCAI_PROCESSOR_ID")

	setString(&cfg.Store.Backend, "STORE_BACKEND")
	setString(&cfg.Store.RedisAddr, "REDIS_ADDR")
	setString(&cfg.Store.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.Store.FirestoreDatabase, "FIRESTORE_DATABASE")
	setString(&cfg.Store.FirestoreCollection, "FIRESTORE_COLLECTION")
	setString(&cfg.Store.Bucket, "DOCUMENT_BUCKET")

	setString(&cfg.ChatLog.Path, "CHATLOG_PATH")

	setString(&cfg.Workflow.ID, "WORKFLOW_ID")
	setString(&cfg.Workflow.Location, "WORKFLOW_LOCATION")

	if err := setInt64(&cfg.Extraction.MaxChunkSizeBytes, "MAX_CHUNK_SIZE_BYTES"); err != nil {
		return err
	}
	if err := setInt(&cfg.Extraction.MaxConcurrency, "MAX_CONCURRENCY"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Extraction.Timeout, "EXTRACT_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Store.TTL, "DOCUMENT_TTL"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Store.SweepInterval, "SWEEP_INTERVAL"); err != nil {
		return err
	}
	if err := setInt(&cfg.Store.RedisDB, "REDIS_DB"); err != nil {
		return err
	}
	return setInt64(&cfg.Server.MaxUploadBytes, "MAX_UPLOAD_BYTES")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
