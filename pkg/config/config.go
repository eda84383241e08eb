package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Milvus    MilvusConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	LLM       LLMConfig
	Pipeline  PipelineConfig
	Retrieval RetrievalConfig
	Ingestion IngestionConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type MilvusConfig struct {
	Endpoint       string
	APIKey         string
	CollectionName string
	VectorDim      int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type LLMConfig struct {
	Model          string
	APIKey         string
	Temperature    float32
	MaxTokens      int
	EmbeddingModel string
	EmbeddingDim   int
}

// PipelineConfig holds the resolution policy knobs. Loaded once at startup
// and handed to the orchestrator as plain values so the escalation policy
// and confidence assessor stay pure.
type PipelineConfig struct {
	EscalationThreshold     float64
	NoContextCeiling        float64
	AlwaysComplexCategories []string
	ClassifyTimeoutSec      int
	RetrieveTimeoutSec      int
	GenerateTimeoutSec      int
	SinkMaxAttempts         int
	SinkInitialDelayMs      int
	SinkMaxDelayMs          int
}

type RetrievalConfig struct {
	TopK         int
	MinRelevance float64
}

type IngestionConfig struct {
	ChunkSize        int
	OverlapSentences int
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
	viper.AddConfigPath("/etc/hr-assistant")

	viper.SetEnvPrefix("HR_ASSISTANT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

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

	// The no-context ceiling must sit below the escalation threshold,
	// otherwise an answer with zero supporting evidence could pass.
	if config.Pipeline.NoContextCeiling >= config.Pipeline.EscalationThreshold {
		return nil, fmt.Errorf("pipeline.noContextCeiling (%.2f) must be below pipeline.escalationThreshold (%.2f)",
			config.Pipeline.NoContextCeiling, config.Pipeline.EscalationThreshold)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "hr_policy_chunks")
	viper.SetDefault("milvus.vectorDim", 1536)

	viper.SetDefault("sqlite.path", "./data/hr_assistant.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("llm.model", "gpt-4")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.maxTokens", 2048)
	viper.SetDefault("llm.embeddingModel", "text-embedding-3-large")
	viper.SetDefault("llm.embeddingDim", 1536)

	viper.SetDefault("pipeline.escalationThreshold", 0.6)
	viper.SetDefault("pipeline.noContextCeiling", 0.4)
	viper.SetDefault("pipeline.alwaysComplexCategories", []string{"onboarding"})
	viper.SetDefault("pipeline.classifyTimeoutSec", 15)
	viper.SetDefault("pipeline.retrieveTimeoutSec", 10)
	viper.SetDefault("pipeline.generateTimeoutSec", 45)
	viper.SetDefault("pipeline.sinkMaxAttempts", 3)
	viper.SetDefault("pipeline.sinkInitialDelayMs", 100)
	viper.SetDefault("pipeline.sinkMaxDelayMs", 2000)

	viper.SetDefault("retrieval.topK", 6)
	viper.SetDefault("retrieval.minRelevance", 0.0)

	viper.SetDefault("ingestion.chunkSize", 1000)
	viper.SetDefault("ingestion.overlapSentences", 2)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
