package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int              `json:"port"`
	LogConfig   logger.LogConfig `json:"log_config"`
	Database    DatabaseConfig   `json:"database"`
	AI          AIConfig         `json:"ai"`
	Dedup       DedupConfig      `json:"dedup"`
	Retrieval   RetrievalConfig  `json:"retrieval"`
	CORSOrigins []string         `json:"cors_origins"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type AIConfig struct {
	Provider      string                 `json:"provider"`
	EmbedProvider string                 `json:"embed_provider"`
	Model         string                 `json:"model"`
	EmbedModel    string                 `json:"embed_model"`
	Timeout       int                    `json:"timeout"`
	MaxInputChars int                    `json:"max_input_chars"`
	Data          map[string]interface{} `json:"data"`
}

type DedupConfig struct {
	BatchLimit          int     `json:"batch_limit"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	CronSpec            string  `json:"cron_spec"`
	EmbedCacheSize      int     `json:"embed_cache_size"`
	EmbedCacheTTLMin    int     `json:"embed_cache_ttl_minutes"`
}

type RetrievalConfig struct {
	MaxResults           int     `json:"max_results"`
	MinRelevanceScore    float64 `json:"min_relevance_score"`
	ReservedTokens       int     `json:"reserved_tokens"`
	DefaultContextWindow int     `json:"default_context_window"`
	// ContextWindows maps a model identifier to its token budget. Lookup
	// falls back to the identifier with any ":variant" suffix stripped.
	ContextWindows map[string]int `json:"context_windows"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && (cfg.Database.Host == "" || cfg.Database.DBName == "") {
		return nil, fmt.Errorf("database.dsn or database.host/db_name is required")
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.EmbedProvider == "" {
		cfg.AI.EmbedProvider = cfg.AI.Provider
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 30
	}
	if cfg.AI.MaxInputChars == 0 {
		cfg.AI.MaxInputChars = 60000
	}
	if cfg.Dedup.BatchLimit == 0 {
		cfg.Dedup.BatchLimit = 20
	}
	if cfg.Dedup.SimilarityThreshold == 0 {
		cfg.Dedup.SimilarityThreshold = 0.1
	}
	if cfg.Dedup.CronSpec == "" {
		cfg.Dedup.CronSpec = "*/5 * * * *"
	}
	if cfg.Dedup.EmbedCacheSize == 0 {
		cfg.Dedup.EmbedCacheSize = 10000
	}
	if cfg.Dedup.EmbedCacheTTLMin == 0 {
		cfg.Dedup.EmbedCacheTTLMin = 120
	}
	if cfg.Retrieval.MaxResults == 0 {
		cfg.Retrieval.MaxResults = 10
	}
	if cfg.Retrieval.MinRelevanceScore == 0 {
		cfg.Retrieval.MinRelevanceScore = 0.3
	}
	if cfg.Retrieval.ReservedTokens == 0 {
		cfg.Retrieval.ReservedTokens = 1000
	}
	if cfg.Retrieval.DefaultContextWindow == 0 {
		cfg.Retrieval.DefaultContextWindow = 4096
	}
	if cfg.Retrieval.ContextWindows == nil {
		cfg.Retrieval.ContextWindows = map[string]int{
			"gemma3":   8192,
			"qwen3":    32768,
			"llama3.2": 8192,
		}
	}
	return &cfg, nil
}
