package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Database   DatabaseConfig
	Qdrant     QdrantConfig
	Gemini     GeminiConfig
	Generation GenerationConfig
	Storage    StorageConfig
	Worker     WorkerConfig
	Matching   MatchingConfig
	Timeouts   TimeoutConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type LogConfig struct {
	JSON  bool
	Debug bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	VectorSize uint64
}

type GeminiConfig struct {
	APIKey     string
	Model      string
	EmbedModel string
}

// GenerationConfig holds defaults applied to every text-generation call.
type GenerationConfig struct {
	MaxTokens    int32
	Temperature  float32
	RateLimit    float64
	RetryAttempt int
}

type StorageConfig struct {
	UploadPath     string
	MaxFileSize    int64
	MaxUploadFiles int
}

type WorkerConfig struct {
	Concurrency  int
	PollInterval time.Duration
	StaleAfter   time.Duration
}

type MatchingConfig struct {
	ScoringConcurrency int
	DefaultCandidates  int
}

type TimeoutConfig struct {
	Generation time.Duration
	Embedding  time.Duration
	Store      time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_JSON", false)
	v.SetDefault("LOG_DEBUG", false)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "talent_graph")

	v.SetDefault("QDRANT_URL", "http://localhost:6334")
	v.SetDefault("QDRANT_API_KEY", "")
	v.SetDefault("QDRANT_COLLECTION", "talent_resumes")
	v.SetDefault("QDRANT_VECTOR_SIZE", 768)

	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("GEMINI_EMBED_MODEL", "text-embedding-004")

	v.SetDefault("GENERATION_MAX_TOKENS", 2000)
	v.SetDefault("GENERATION_TEMPERATURE", 0.7)
	v.SetDefault("GENERATION_RATE_LIMIT", 2.0)
	v.SetDefault("RETRY_MAX_ATTEMPTS", 3)

	v.SetDefault("GENERATION_TIMEOUT", "60s")
	v.SetDefault("EMBEDDING_TIMEOUT", "15s")
	v.SetDefault("STORE_TIMEOUT", "10s")

	v.SetDefault("UPLOAD_PATH", "./uploads")
	v.SetDefault("MAX_FILE_SIZE", 10485760)
	v.SetDefault("MAX_UPLOAD_FILES", 10)

	v.SetDefault("WORKER_CONCURRENCY", 3)
	v.SetDefault("WORKER_POLL_INTERVAL", "10s")
	v.SetDefault("WORKER_STALE_AFTER", "15m")

	v.SetDefault("SCORING_CONCURRENCY", 4)
	v.SetDefault("DEFAULT_NUMBER_CANDIDATE", 5)
}

// Load reads .env (when present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using environment and default values.")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Log: LogConfig{
			JSON:  v.GetBool("LOG_JSON"),
			Debug: v.GetBool("LOG_DEBUG"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
		},
		Qdrant: QdrantConfig{
			URL:        v.GetString("QDRANT_URL"),
			APIKey:     v.GetString("QDRANT_API_KEY"),
			Collection: v.GetString("QDRANT_COLLECTION"),
			VectorSize: v.GetUint64("QDRANT_VECTOR_SIZE"),
		},
		Gemini: GeminiConfig{
			APIKey:     v.GetString("GEMINI_API_KEY"),
			Model:      v.GetString("GEMINI_MODEL"),
			EmbedModel: v.GetString("GEMINI_EMBED_MODEL"),
		},
		Generation: GenerationConfig{
			MaxTokens:    v.GetInt32("GENERATION_MAX_TOKENS"),
			Temperature:  float32(v.GetFloat64("GENERATION_TEMPERATURE")),
			RateLimit:    v.GetFloat64("GENERATION_RATE_LIMIT"),
			RetryAttempt: v.GetInt("RETRY_MAX_ATTEMPTS"),
		},
		Storage: StorageConfig{
			UploadPath:     v.GetString("UPLOAD_PATH"),
			MaxFileSize:    v.GetInt64("MAX_FILE_SIZE"),
			MaxUploadFiles: v.GetInt("MAX_UPLOAD_FILES"),
		},
		Worker: WorkerConfig{
			Concurrency:  v.GetInt("WORKER_CONCURRENCY"),
			PollInterval: v.GetDuration("WORKER_POLL_INTERVAL"),
			StaleAfter:   v.GetDuration("WORKER_STALE_AFTER"),
		},
		Matching: MatchingConfig{
			ScoringConcurrency: v.GetInt("SCORING_CONCURRENCY"),
			DefaultCandidates:  v.GetInt("DEFAULT_NUMBER_CANDIDATE"),
		},
		Timeouts: TimeoutConfig{
			Generation: v.GetDuration("GENERATION_TIMEOUT"),
			Embedding:  v.GetDuration("EMBEDDING_TIMEOUT"),
			Store:      v.GetDuration("STORE_TIMEOUT"),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}
