package config

import (
	"log/slog"
	"strings"
	"time"
)

// Default values for every optional setting.
const (
	DefaultPort                = "8080"
	DefaultLogLevel            = "info"
	DefaultVertexAIRegion      = "us-central1"
	DefaultGeminiModel         = "gemini-1.5-flash"
	DefaultDocAILocation       = "us"
	DefaultMaxChunkSizeBytes   = 15 * 1024 * 1024
	DefaultMaxConcurrency      = 4
	DefaultExtractTimeout      = 120 * time.Second
	DefaultDocumentTTL         = 24 * time.Hour
	DefaultSweepInterval       = 10 * time.Minute
	DefaultFirestoreDatabase   = "(default)"
	DefaultFirestoreCollection = "documents"
	DefaultChatLogPath         = "chat_logs.db"
	DefaultMaxUploadBytes      = 50 * 1024 * 1024
	DefaultWorkflowLocation    = "us-central1"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.GCP.VertexAIRegion == "" {
		cfg.GCP.VertexAIRegion = DefaultVertexAIRegion
	}
	if cfg.GCP.GeminiModel == "" {
		cfg.GCP.GeminiModel = DefaultGeminiModel
	}
	if cfg.Extraction.Extractor == "" {
		cfg.Extraction.Extractor = ExtractorDocumentAI
	}
	if cfg.Extraction.DocAILocation == "" {
		cfg.Extraction.DocAILocation = DefaultDocAILocation
	}
	if cfg.Extraction.MaxChunkSizeBytes == 0 {
		cfg.Extraction.MaxChunkSizeBytes = DefaultMaxChunkSizeBytes
	}
	if cfg.Extraction.MaxConcurrency == 0 {
		cfg.Extraction.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.Extraction.Timeout == 0 {
		cfg.Extraction.Timeout = DefaultExtractTimeout
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = StoreMemory
	}
	if cfg.Store.TTL == 0 {
		cfg.Store.TTL = DefaultDocumentTTL
	}
	if cfg.Store.SweepInterval == 0 {
		cfg.Store.SweepInterval = DefaultSweepInterval
	}
	if cfg.Store.FirestoreDatabase == "" {
		cfg.Store.FirestoreDatabase = DefaultFirestoreDatabase
	}
	if cfg.Store.FirestoreCollection == "" {
		cfg.Store.FirestoreCollection = DefaultFirestoreCollection
	}
	if cfg.ChatLog.Path == "" {
		cfg.ChatLog.Path = DefaultChatLogPath
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Workflow.Location == "" {
		cfg.Workflow.Location = DefaultWorkflowLocation
	}
}

// SlogLevel maps LogLevel onto a slog level; unknown names mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
