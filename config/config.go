package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backends de armazenamento suportados.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config armazena todas as configurações do SIAM.
type Config struct {
	// Geral
	Port        string
	Environment string
	LogLevel    string

	// Armazenamento (escolhido uma única vez no startup)
	StorageBackend string
	DatabaseURL    string
	SQLitePath     string
	DBTimeout      time.Duration

	// Cache (Redis)
	CacheEnabled bool
	RedisAddr    string
	CacheTTL     time.Duration
	CacheTimeout time.Duration

	// Rate Limiting
	RateLimitEnabled     bool
	RateLimitMaxRequests int
	RateLimitPeriod      time.Duration

	// Carga inicial do catálogo (backend em memória)
	SeedFile string
	SeedUser string

	// Observabilidade
	TracingEnabled bool
}

// LoadConfig carrega as configurações a partir das variáveis de ambiente.
// O .env, quando existe, já foi carregado pelo godotenv no cmd.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := &Config{
		// 1. Geral
		Port:        v.GetString("PORT"),
		Environment: v.GetString("ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),

		// 2. Armazenamento
		StorageBackend: strings.ToLower(v.GetString("STORAGE_BACKEND")),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		SQLitePath:     v.GetString("SQLITE_PATH"),
		DBTimeout:      time.Duration(v.GetInt("DB_TIMEOUT_SEC")) * time.Second,

		// 3. Cache (Redis)
		CacheEnabled: v.GetBool("CACHE_ENABLED"),
		RedisAddr:    v.GetString("REDIS_ADDR"),
		CacheTTL:     time.Duration(v.GetInt("CACHE_TTL_SEC")) * time.Second,
		CacheTimeout: time.Duration(v.GetInt("CACHE_TIMEOUT_SEC")) * time.Second,

		// 4. Rate Limiting
		RateLimitEnabled:     v.GetBool("RATE_LIMIT_ENABLED"),
		RateLimitMaxRequests: v.GetInt("RATE_LIMIT_MAX_REQUESTS"),
		RateLimitPeriod:      time.Duration(v.GetInt("RATE_LIMIT_PERIOD_MIN")) * time.Minute,

		// 5. Seed
		SeedFile: v.GetString("SEED_FILE"),
		SeedUser: v.GetString("SEED_USER"),

		// 6. Observabilidade
		TracingEnabled: v.GetBool("TRACING_ENABLED"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE_BACKEND", BackendMemory)
	v.SetDefault("SQLITE_PATH", "siam.db")
	v.SetDefault("DB_TIMEOUT_SEC", 5)
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("CACHE_TTL_SEC", 300)
	v.SetDefault("CACHE_TIMEOUT_SEC", 2)
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_MAX_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_PERIOD_MIN", 1)
	v.SetDefault("SEED_USER", "seed")
	v.SetDefault("TRACING_ENABLED", false)
}

// Validate verifica combinações que impedem o startup.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL deve ser definida para o backend %q", BackendPostgres)
		}
	default:
		return fmt.Errorf("config: STORAGE_BACKEND %q não suportado (use memory, postgres ou sqlite)", c.StorageBackend)
	}

	if c.DBTimeout <= 0 {
		return fmt.Errorf("config: DB_TIMEOUT_SEC deve ser positivo")
	}
	if c.RateLimitEnabled && !c.CacheEnabled {
		return fmt.Errorf("config: RATE_LIMIT_ENABLED requer CACHE_ENABLED (o contador fica no Redis)")
	}
	return nil
}
