package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"
	_ "time/tzdata"

	"hallbook/pkg/client"
	kafka_config "hallbook/pkg/kafka/config"
	"hallbook/pkg/logger"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	LogLevel string

	StoreBackend  string
	LockBackend   string
	EventsBackend string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MySQLDSN string

	StoreTimeout time.Duration
	LockTTL      time.Duration
	LockWait     time.Duration

	KafkaTopic    string
	KafkaGroupID  string
	RabbitMQURL   string
	RabbitMQQueue string

	JWTSecret     string
	BcryptCost    int
	SessionTTL    time.Duration
	RememberMeTTL time.Duration
	ResetTokenTTL time.Duration
	ResetTokenKey string

	AdminName     string
	AdminEmail    string
	AdminPassword string

	ReminderWindow   time.Duration
	ReminderInterval time.Duration
	// Timezone names the campus IANA zone booking dates and times are read in.
	Timezone string

	RateLimitBackend  string
	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Kafka  *kafka_config.Config
	Log    *logger.Logger
	Client *client.Client
}

// Load reads .env (when present) and the process environment, validates the
// result and exits on invalid configuration.
func Load(serviceName string) *Config {
	dotenvErr := godotenv.Load()

	cfg := FromEnv()
	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    logger.JSON,
		AddSource: true,
		Service:   serviceName,
	})
	cfg.Client = client.NewClient()

	if dotenvErr != nil {
		cfg.Log.Debug("No .env file loaded, using process environment only")
	}

	if cfg.EventsBackend == EventsKafka {
		kcfg, err := kafka_config.Load()
		if err != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
		}
		cfg.Kafka = kcfg
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromEnv builds a Config from the environment without a logger or
// connections attached.
func FromEnv() *Config {
	return &Config{
		Port:     getEnvStr(EnvPort, DefaultPort),
		LogLevel: getEnvStr(EnvLogLevel, DefaultLogLevel),

		StoreBackend:  getEnvStr(EnvStoreBackend, DefaultStoreBackend),
		LockBackend:   getEnvStr(EnvLockBackend, DefaultLockBackend),
		EventsBackend: getEnvStr(EnvEventsBackend, DefaultEventsBackend),

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		MySQLDSN: getEnvStr(EnvMySQLDSN, ""),

		StoreTimeout: getEnvDuration(EnvStoreTimeout, DefaultStoreTimeout),
		LockTTL:      getEnvDuration(EnvLockTTL, DefaultLockTTL),
		LockWait:     getEnvDuration(EnvLockWait, DefaultLockWait),

		KafkaTopic:    getEnvStr(EnvKafkaTopic, DefaultKafkaTopic),
		KafkaGroupID:  getEnvStr(EnvKafkaGroupID, DefaultKafkaGroupID),
		RabbitMQURL:   getEnvStr(EnvRabbitMQURL, DefaultRabbitMQURL),
		RabbitMQQueue: getEnvStr(EnvRabbitMQQueue, DefaultRabbitMQQueue),

		JWTSecret:     getEnvStr(EnvJWTSecret, DefaultJWTSecret),
		BcryptCost:    getEnvNum(EnvBcryptCost, DefaultBcryptCost),
		SessionTTL:    getEnvDuration(EnvSessionTTL, DefaultSessionTTL),
		RememberMeTTL: getEnvDuration(EnvRememberMeTTL, DefaultRememberMeTTL),
		ResetTokenTTL: getEnvDuration(EnvResetTokenTTL, DefaultResetTokenTTL),
		ResetTokenKey: getEnvStr(EnvResetTokenKey, DefaultResetTokenKey),

		AdminName:     getEnvStr(EnvAdminName, DefaultAdminName),
		AdminEmail:    getEnvStr(EnvAdminEmail, ""),
		AdminPassword: getEnvStr(EnvAdminPassword, ""),

		ReminderWindow:   getEnvDuration(EnvReminderWindow, DefaultReminderWindow),
		ReminderInterval: getEnvDuration(EnvReminderInterval, DefaultReminderInterval),
		Timezone:         getEnvStr(EnvTimezone, DefaultTimezone),

		RateLimitBackend:  getEnvStr(EnvRateLimitBackend, DefaultRateLimitBackend),
		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),
	}
}

// Connect opens every connection the selected backends need.
func (cfg *Config) Connect() {
	if cfg.Uses(BackendMongo) {
		cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
	}
	if cfg.Uses(BackendRedis) {
		cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.StoreTimeout)
	}
	if cfg.Uses(BackendMySQL) {
		cfg.Client.SetMySQL(cfg.Log, cfg.MySQLDSN, cfg.StoreTimeout)
	}
}

// Location resolves Timezone, falling back to UTC when it is unset or
// unknown.
func (cfg *Config) Location() *time.Location {
	if cfg == nil || cfg.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Uses reports whether any configured component runs on backend.
func (cfg *Config) Uses(backend string) bool {
	return cfg.StoreBackend == backend || cfg.LockBackend == backend || cfg.RateLimitBackend == backend
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StoreBackend {
	case BackendMemory, BackendMongo, BackendRedis, BackendMySQL:
	default:
		errors = append(errors, fmt.Sprintf("StoreBackend must be one of [memory, mongo, redis, mysql], got: %s", cfg.StoreBackend))
	}
	switch cfg.LockBackend {
	case BackendNone, BackendMemory, BackendMongo, BackendRedis:
	default:
		errors = append(errors, fmt.Sprintf("LockBackend must be one of [none, memory, mongo, redis], got: %s", cfg.LockBackend))
	}
	switch cfg.EventsBackend {
	case EventsInProcess, EventsKafka, EventsRabbitMQ:
	default:
		errors = append(errors, fmt.Sprintf("EventsBackend must be one of [inprocess, kafka, rabbitmq], got: %s", cfg.EventsBackend))
	}
	switch cfg.RateLimitBackend {
	case BackendNone, BackendMemory, BackendRedis:
	default:
		errors = append(errors, fmt.Sprintf("RateLimitBackend must be one of [none, memory, redis], got: %s", cfg.RateLimitBackend))
	}
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			errors = append(errors, fmt.Sprintf("Timezone must be an IANA zone name, got: %s", cfg.Timezone))
		}
	}

	if _, err := logger.ParseLevel(cfg.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("LogLevel must be one of [debug, info, warn, error], got: %s", cfg.LogLevel))
	}

	if cfg.Uses(BackendMongo) {
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
		if cfg.MongoConnTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	}
	if cfg.Uses(BackendRedis) && cfg.RedisAddr == "" {
		errors = append(errors, "RedisAddr cannot be empty")
	}
	if cfg.Uses(BackendMySQL) {
		if cfg.MySQLDSN == "" {
			errors = append(errors, "MySQLDSN cannot be empty when the mysql backend is selected")
		} else if _, err := mysql.ParseDSN(cfg.MySQLDSN); err != nil {
			errors = append(errors, fmt.Sprintf("MySQLDSN is invalid: %v", err))
		}
	}
	if cfg.EventsBackend == EventsKafka && cfg.KafkaTopic == "" {
		errors = append(errors, "KafkaTopic cannot be empty")
	}
	if cfg.EventsBackend == EventsRabbitMQ {
		if cfg.RabbitMQURL == "" {
			errors = append(errors, "RabbitMQURL cannot be empty")
		}
		if cfg.RabbitMQQueue == "" {
			errors = append(errors, "RabbitMQQueue cannot be empty")
		}
	}

	if len(cfg.JWTSecret) < 16 {
		errors = append(errors, "JWTSecret must be at least 16 characters")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		errors = append(errors, fmt.Sprintf("BcryptCost must be between 4 and 31, got: %d", cfg.BcryptCost))
	}
	switch len(cfg.ResetTokenKey) {
	case 16, 24, 32:
	default:
		errors = append(errors, fmt.Sprintf("ResetTokenKey must be 16, 24 or 32 bytes, got: %d", len(cfg.ResetTokenKey)))
	}
	if cfg.AdminEmail != "" && len(cfg.AdminPassword) < 6 {
		errors = append(errors, "AdminPassword must be at least 6 characters when AdminEmail is set")
	}

	positive := []struct {
		name  string
		value time.Duration
	}{
		{"StoreTimeout", cfg.StoreTimeout},
		{"LockTTL", cfg.LockTTL},
		{"LockWait", cfg.LockWait},
		{"SessionTTL", cfg.SessionTTL},
		{"RememberMeTTL", cfg.RememberMeTTL},
		{"ResetTokenTTL", cfg.ResetTokenTTL},
		{"ReminderWindow", cfg.ReminderWindow},
		{"ReminderInterval", cfg.ReminderInterval},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", p.name, p.value))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"port", cfg.Port,
		"store_backend", cfg.StoreBackend,
		"lock_backend", cfg.LockBackend,
		"events_backend", cfg.EventsBackend,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"redis_addr", cfg.RedisAddr,
		"redis_db", cfg.RedisDB,
		"mysql_dsn_set", cfg.MySQLDSN != "",
		"store_timeout", cfg.StoreTimeout,
		"lock_ttl", cfg.LockTTL,
		"kafka_topic", cfg.KafkaTopic,
		"rabbitmq_queue", cfg.RabbitMQQueue,
		"jwt_secret_default", cfg.JWTSecret == DefaultJWTSecret,
		"bcrypt_cost", cfg.BcryptCost,
		"session_ttl", cfg.SessionTTL,
		"remember_me_ttl", cfg.RememberMeTTL,
		"reset_token_ttl", cfg.ResetTokenTTL,
		"admin_bootstrap", cfg.AdminEmail != "",
		"reminder_window", cfg.ReminderWindow,
		"timezone", cfg.Timezone,
		"rate_limit_backend", cfg.RateLimitBackend,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = DefaultPageSize
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int) int {
	return max(0, offset)
}
