package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noah-isme/sidang-scheduler-api/internal/scheduler"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Cache       CacheConfig
	Persistence PersistenceConfig
	Scheduler   SchedulerConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig toggles Redis caching of generated schedules.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// PersistenceConfig toggles storing schedule runs in Postgres.
type PersistenceConfig struct {
	Enabled bool
}

// SchedulerConfig carries the engine tuning exposed through the environment.
type SchedulerConfig struct {
	DefaultStrategy string
	DailyCap        int
	CapPolicy       string
	Epsilon         float64
	MaxIterations   int
	Workers         int
	TimeBudget      time.Duration
	Seed            uint64
	Roles           []string
	SlotConflicts   bool
	MaxSessions     int
	MaxUploadBytes  int64
}

// EngineOptions converts the configuration into engine options.
func (c SchedulerConfig) EngineOptions() (scheduler.Options, error) {
	opts := scheduler.DefaultOptions()
	opts.DailyCap = c.DailyCap
	opts.Epsilon = c.Epsilon
	opts.MaxIterations = c.MaxIterations
	opts.Workers = c.Workers
	opts.TimeBudget = c.TimeBudget
	opts.Seed = c.Seed
	opts.SlotConflicts = c.SlotConflicts

	policy, err := scheduler.ParseCapPolicy(c.CapPolicy)
	if err != nil {
		return opts, err
	}
	opts.CapPolicy = policy

	if len(c.Roles) > 0 {
		roles, err := scheduler.ParseRoles(strings.Join(c.Roles, ","))
		if err != nil {
			return opts, err
		}
		opts.Roles = roles
	}
	return opts, opts.Validate()
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 30*time.Minute),
	}

	cfg.Persistence = PersistenceConfig{
		Enabled: v.GetBool("ENABLE_PERSISTENCE"),
	}

	cfg.Scheduler = SchedulerConfig{
		DefaultStrategy: v.GetString("SCHEDULER_DEFAULT_STRATEGY"),
		DailyCap:        v.GetInt("SCHEDULER_DAILY_CAP"),
		CapPolicy:       v.GetString("SCHEDULER_CAP_POLICY"),
		Epsilon:         v.GetFloat64("SCHEDULER_EPSILON"),
		MaxIterations:   v.GetInt("SCHEDULER_MAX_ITERATIONS"),
		Workers:         v.GetInt("SCHEDULER_WORKERS"),
		TimeBudget:      parseDuration(v.GetString("SCHEDULER_TIME_BUDGET"), 0),
		Seed:            v.GetUint64("SCHEDULER_SEED"),
		Roles:           splitAndTrim(v.GetString("SCHEDULER_ROLES")),
		SlotConflicts:   v.GetBool("SCHEDULER_SLOT_CONFLICTS"),
		MaxSessions:     v.GetInt("SCHEDULER_MAX_SESSIONS"),
		MaxUploadBytes:  v.GetInt64("SCHEDULER_MAX_UPLOAD_BYTES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sidang_scheduler")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_TTL", "30m")
	v.SetDefault("ENABLE_PERSISTENCE", false)

	v.SetDefault("SCHEDULER_DEFAULT_STRATEGY", "capacity")
	v.SetDefault("SCHEDULER_DAILY_CAP", 2)
	v.SetDefault("SCHEDULER_CAP_POLICY", "")
	v.SetDefault("SCHEDULER_EPSILON", 0.1)
	v.SetDefault("SCHEDULER_MAX_ITERATIONS", 500)
	v.SetDefault("SCHEDULER_WORKERS", 0)
	v.SetDefault("SCHEDULER_TIME_BUDGET", "")
	v.SetDefault("SCHEDULER_SEED", 1)
	v.SetDefault("SCHEDULER_ROLES", "examiner1,examiner2,supervisor1,supervisor2")
	v.SetDefault("SCHEDULER_SLOT_CONFLICTS", true)
	v.SetDefault("SCHEDULER_MAX_SESSIONS", 2000)
	v.SetDefault("SCHEDULER_MAX_UPLOAD_BYTES", 5*1024*1024)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
