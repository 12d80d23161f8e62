package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	VectorIndex VectorIndexConfig
	Chunking    ChunkingConfig
	Embedding   EmbeddingConfig
	LLM         LLMConfig
	Confidence  ConfidenceConfig
	Redis       RedisConfig
	History     HistoryConfig
	Logging     LoggingConfig
	Collection  string
}

type ServerConfig struct {
	Host               string
	Port               int
	ReadTimeout        int
	WriteTimeout       int
	BodyLimit          int
	RateLimitPerMinute int
}

type VectorIndexConfig struct {
	// Backend is "milvus" or "memory".
	Backend    string
	Host       string
	Port       int
	TimeoutSec int
}

type ChunkingConfig struct {
	Size    int
	Overlap int
}

type EmbeddingConfig struct {
	Model      string
	APIKey     string
	Dimension  int
	TimeoutSec int
}

type LLMConfig struct {
	Model       string
	APIKey      string
	Temperature float32
	TopP        float32
	MaxTokens   int
	TimeoutSec  int
}

type ConfidenceConfig struct {
	ConfidenceThreshold        float64
	UncertainDistanceThreshold float64
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

type HistoryConfig struct {
	Path string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/support-agent")

	viper.SetEnvPrefix("SUPPORT_AGENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindLegacyEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// bindLegacyEnv keeps the short environment names used by existing
// deployments working alongside the prefixed ones.
func bindLegacyEnv() {
	viper.BindEnv("chunking.size", "CHUNK_SIZE")
	viper.BindEnv("chunking.overlap", "CHUNK_OVERLAP")
	viper.BindEnv("embedding.model", "EMBEDDING_MODEL")
	viper.BindEnv("embedding.apikey", "OPENAI_API_KEY")
	viper.BindEnv("llm.apikey", "OPENAI_API_KEY")
	viper.BindEnv("confidence.confidencethreshold", "CONFIDENCE_THRESHOLD")
	viper.BindEnv("confidence.uncertaindistancethreshold", "UNCERTAIN_DISTANCE_THRESHOLD")
	viper.BindEnv("vectorindex.host", "VECTOR_INDEX_HOST")
	viper.BindEnv("vectorindex.port", "VECTOR_INDEX_PORT")
	viper.BindEnv("collection", "COLLECTION_NAME")
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)
	viper.SetDefault("server.rateLimitPerMinute", 120)

	viper.SetDefault("vectorindex.backend", "milvus")
	viper.SetDefault("vectorindex.host", "localhost")
	viper.SetDefault("vectorindex.port", 19530)
	viper.SetDefault("vectorindex.timeoutSec", 15)

	viper.SetDefault("chunking.size", 1000)
	viper.SetDefault("chunking.overlap", 200)

	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.dimension", 1536)
	viper.SetDefault("embedding.timeoutSec", 30)

	viper.SetDefault("llm.model", "gpt-4.1")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.topP", 0.95)
	viper.SetDefault("llm.maxTokens", 500)
	viper.SetDefault("llm.timeoutSec", 60)

	viper.SetDefault("confidence.confidenceThreshold", 0.5)
	viper.SetDefault("confidence.uncertainDistanceThreshold", 0.8)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttlSec", 3600)

	viper.SetDefault("history.path", "./data/interactions.db")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
