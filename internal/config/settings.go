package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "DOCRAG"

// Settings is the runtime configuration. Every field falls back to the defaults in environmentVariables.go.
type Settings struct {
	IsProd     bool   `mapstructure:"is_prod"`
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`
	UploadDir  string `mapstructure:"upload_dir" validate:"required"`

	AuthToken    string `mapstructure:"auth_token"`
	NoAuthBypass bool   `mapstructure:"no_auth_bypass"`

	RateLimitPerSecond float64       `mapstructure:"rate_limit_per_second" validate:"gt=0"`
	RateLimitBurst     int           `mapstructure:"rate_limit_burst" validate:"gt=0"`
	RateLimiterIdle    time.Duration `mapstructure:"rate_limiter_idle"`

	Provider       string `mapstructure:"provider" validate:"oneof=gemini openai"`
	GoogleAPIKey   string `mapstructure:"google_api_key"`
	OpenAIAPIKey   string `mapstructure:"openai_api_key"`
	ChatModel      string `mapstructure:"chat_model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	Dimension      int32  `mapstructure:"embedding_dimension" validate:"gt=0"`

	VectorBackend   string `mapstructure:"vector_backend" validate:"oneof=qdrant memory"`
	QdrantHost      string `mapstructure:"qdrant_host"`
	QdrantPort      int    `mapstructure:"qdrant_port" validate:"gt=0"`
	QdrantAPIKey    string `mapstructure:"qdrant_api_key"`
	QdrantUseTLS    bool   `mapstructure:"qdrant_use_tls"`
	Collection      string `mapstructure:"collection" validate:"required"`
	CacheCollection string `mapstructure:"cache_collection" validate:"required"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`

	ChunkSize    int    `mapstructure:"chunk_size" validate:"gt=0"`
	ChunkOverlap int    `mapstructure:"chunk_overlap" validate:"gte=0"`
	SQLiteRowCap int    `mapstructure:"sqlite_row_cap" validate:"gt=0"`
	OCRBinary    string `mapstructure:"ocr_binary"`

	PDFPageTimeout     time.Duration `mapstructure:"pdf_page_timeout"`
	VisionMaxDimension int           `mapstructure:"vision_max_dimension" validate:"gt=0"`
	StatsScanLimit     int           `mapstructure:"stats_scan_limit" validate:"gt=0"`
	SystemInstruction  string        `mapstructure:"system_instruction" validate:"required"`

	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	IngestTimeout   time.Duration `mapstructure:"ingest_timeout"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
}

// Load reads .env, an optional config file and DOCRAG_* environment variables, in increasing priority.
func Load(configFile string) (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Settings{}, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile == "" {
		configFile = os.Getenv(envPrefix + "_CONFIG_FILE")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Defaults returns the settings Load would produce with an empty environment.
func Defaults() Settings {
	v := viper.New()
	setDefaults(v)
	var s Settings
	_ = v.Unmarshal(&s)
	return s
}

func (s Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// APIKey returns the key for the configured provider.
func (s Settings) APIKey() string {
	if s.Provider == ProviderOpenAI {
		return s.OpenAIAPIKey
	}
	return s.GoogleAPIKey
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("is_prod", IS_PROD)
	v.SetDefault("listen_addr", ServerListenAddr)
	v.SetDefault("upload_dir", UploadDir)
	v.SetDefault("auth_token", "")
	v.SetDefault("no_auth_bypass", false)
	v.SetDefault("rate_limit_per_second", RATE_LIMIT_PER_SECOND)
	v.SetDefault("rate_limit_burst", BURST_RATE_LIMIT_PER_SECOND)
	v.SetDefault("rate_limiter_idle", RateLimiterIdleTTL)

	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("google_api_key", "")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("chat_model", "")
	v.SetDefault("embedding_model", "")
	v.SetDefault("embedding_dimension", EmbeddingOutputDimensionality)

	v.SetDefault("vector_backend", "qdrant")
	v.SetDefault("qdrant_host", QdrantHost)
	v.SetDefault("qdrant_port", QdrantGrpcPort)
	v.SetDefault("qdrant_api_key", "")
	v.SetDefault("qdrant_use_tls", QdrantUseTLS)
	v.SetDefault("collection", EmbeddingDBName)
	v.SetDefault("cache_collection", SemanticCacheDBName)

	v.SetDefault("redis_addr", RedisAddr)
	v.SetDefault("redis_password", "")

	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("sqlite_row_cap", SQLiteRowCap)
	v.SetDefault("ocr_binary", OCRBinary)

	v.SetDefault("pdf_page_timeout", PDFPageTimeout)
	v.SetDefault("vision_max_dimension", VisionMaxDimension)
	v.SetDefault("stats_scan_limit", StatsScrollLimit)
	v.SetDefault("system_instruction", ModelContext)

	v.SetDefault("provider_timeout", ProviderCallTimeout)
	v.SetDefault("ingest_timeout", IngestJobTimeout)
	v.SetDefault("query_timeout", QueryJobTimeout)
}

// ModelNames resolves empty model settings to the provider defaults.
func (s Settings) ModelNames() (chat string, embedding string) {
	chat, embedding = s.ChatModel, s.EmbeddingModel
	if s.Provider == ProviderOpenAI {
		if chat == "" {
			chat = OpenAIChatModel
		}
		if embedding == "" {
			embedding = OpenAIEmbeddingModel
		}
		return chat, embedding
	}
	if chat == "" {
		chat = GeminiModelName
	}
	if embedding == "" {
		embedding = GoogleEmbeddingModel
	}
	return chat, embedding
}
