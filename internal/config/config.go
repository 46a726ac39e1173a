package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for CineQuery
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Database DatabaseConfig `mapstructure:"database"`
	Qdrant   QdrantConfig   `mapstructure:"qdrant"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Router   RouterConfig   `mapstructure:"router"`
	Merge    MergeConfig    `mapstructure:"merge"`
	History  HistoryConfig  `mapstructure:"history"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// AdminConfig holds admin authentication configuration
type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// DatabaseConfig holds the SQLite catalog/session store configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// QdrantConfig holds the semantic retrieval store configuration
type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
	Collection string `mapstructure:"collection"`
	TopK       int    `mapstructure:"top_k"`
}

// LLMConfig holds the text-generation collaborator configuration
type LLMConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

// RouterConfig holds orchestration configuration
type RouterConfig struct {
	AdapterTimeoutMS    int     `mapstructure:"adapter_timeout_ms"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
}

// MergeConfig holds result merge configuration
type MergeConfig struct {
	// DedupTitles enables cross-source title matching: when a normalized
	// title appears in both result sets, the two records are combined into
	// one composite item instead of listed twice.
	DedupTitles bool `mapstructure:"dedup_titles"`
}

// HistoryConfig holds conversation state configuration
type HistoryConfig struct {
	Window int `mapstructure:"window"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file if specified
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("CINEQUERY")
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("admin.api_key", "")

	v.SetDefault("database.path", "./data/cinequery.db")

	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.api_key", "")
	v.SetDefault("qdrant.use_tls", false)
	v.SetDefault("qdrant.collection", "movie_summaries")
	v.SetDefault("qdrant.top_k", 5)

	v.SetDefault("llm.base_url", "http://localhost:11434/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "qwen2.5:7b")
	v.SetDefault("llm.embedding_model", "nomic-embed-text")

	v.SetDefault("router.adapter_timeout_ms", 15000)
	v.SetDefault("router.confidence_threshold", 0.5)

	v.SetDefault("merge.dedup_titles", true)

	v.SetDefault("history.window", 5)
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// AdapterTimeout returns the per-adapter timeout as a duration
func (c *Config) AdapterTimeout() time.Duration {
	return time.Duration(c.Router.AdapterTimeoutMS) * time.Millisecond
}
