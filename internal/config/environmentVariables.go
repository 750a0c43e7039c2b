package config

import (
	"log/slog"
	"time"
)

// Defaults. Anything that differs per deployment is overridable through Settings.
const (
	IS_PROD                         = false
	LOG_LEVEL_PROD                  = slog.LevelInfo
	FALLBACK_REDIS_TO_INTERNALSTORE = true //if redis init fails, it falls back to an internal in-memory store
	TRACE_ID_KEY                    = "traceId"
	RATE_LIMIT_PER_SECOND           = 2
	BURST_RATE_LIMIT_PER_SECOND     = 5
	RateLimiterIdleTTL              = 10 * time.Minute //per-ip limiters unused this long are dropped
	CacheSimilarityCutoff           = 0.97

	//TODO:this will differ based on the provider, gemini-embedding-001 and text-embedding-3-small both accept 1536
	EmbeddingOutputDimensionality int32 = 1536
	EmbeddingDBName                     = "docrag-chunks"
	SemanticCacheDBName                 = "docrag-semantic-cache"

	//chunking
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200

	//gateway
	EmbeddingBatchSize        = 100
	EmbeddingBatchConcurrency = 2
	HugeDocumentChunkCount    = 100000 //above this the provider batch-job api is used
	StatsScrollLimit          = 10000
	KeywordScanLimit          = 5000 //matching points read before keyword ranking

	//retrieval
	DefaultMaxSources        = 5
	MaxSourcesLimit          = 20
	SourcePreviewLength      = 200
	ConversationHistoryTurns = 5
	ContextSeparator         = "\n\n---\n\n"
	RRFConstant              = 60
	NoRelevantContentAnswer  = "No relevant documents found for this query."

	//extraction
	SQLiteRowCap       = 1000
	PDFPageTimeout     = 10 * time.Second
	VisionMaxDimension = 1024
	VisionJPEGQuality  = 85
	OCRBinary          = "tesseract"

	//jobs
	IngestJobTimeout    = 10 * time.Minute
	QueryJobTimeout     = 60 * time.Second
	ProviderCallTimeout = 30 * time.Second
	BatchJobPollPeriod  = 15 * time.Second

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	//serverTimeouts
	ReadTimeout            = 15 * time.Second
	WriteTimeout           = 30 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//uploads
	MaxUploadSize = 32 << 20 //32mb
	UploadDir     = "temporary_data"

	//job requests buffer limit
	BufferLimit = 100

	//vectorDB
	QdrantConnectionTimeout = 30 * time.Second
	QdrantHost              = "localhost"
	QdrantPort              = 6333 //http
	QdrantGrpcPort          = 6334
	QdrantUseTLS            = false //set for https
	QdrantPoolSize          = 1     //2-5 is preferred for prod according to documentation

	//llm
	ProviderGemini       = "gemini"
	ProviderOpenAI       = "openai"
	GeminiModelName      = "gemini-2.5-flash"
	GoogleEmbeddingModel = "gemini-embedding-001"
	OpenAIChatModel      = "gpt-4o-mini"
	OpenAIEmbeddingModel = "text-embedding-3-small"

	ModelTemperature float32 = 0.7
	MaxOutputTokens          = 1024
	ModelContext             = "You are a document assistant. Answer the question using ONLY the context provided below. " +
		"If the context does not contain enough information to answer, say that the provided documents do not contain the answer. " +
		"Do not guess and do not use outside knowledge. Keep the tone professional."

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisJobStore      = 0
	RedisMessageStore  = 1
	RedisDocumentStore = 2

	//redis timeouts
	RedisJobStoreTTL     = 24 * time.Hour
	RedisMessageStoreTTL = 24 * time.Hour
)
