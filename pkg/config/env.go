package config

const (
	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvStoreBackend  = "STORE_BACKEND"
	EnvLockBackend   = "LOCK_BACKEND"
	EnvEventsBackend = "EVENTS_BACKEND"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvMySQLDSN = "MYSQL_DSN"

	EnvStoreTimeout = "STORE_TIMEOUT"
	EnvLockTTL      = "LOCK_TTL"
	EnvLockWait     = "LOCK_WAIT"

	EnvKafkaTopic    = "KAFKA_TOPIC"
	EnvKafkaGroupID  = "KAFKA_GROUP_ID"
	EnvRabbitMQURL   = "RABBITMQ_URL"
	EnvRabbitMQQueue = "RABBITMQ_QUEUE"

	EnvJWTSecret     = "JWT_SECRET"
	EnvBcryptCost    = "BCRYPT_COST"
	EnvSessionTTL    = "SESSION_TTL"
	EnvRememberMeTTL = "REMEMBER_ME_TTL"
	EnvResetTokenTTL = "RESET_TOKEN_TTL"
	EnvResetTokenKey = "RESET_TOKEN_KEY"

	EnvAdminName     = "ADMIN_NAME"
	EnvAdminEmail    = "ADMIN_EMAIL"
	EnvAdminPassword = "ADMIN_PASSWORD"

	EnvReminderWindow   = "REMINDER_WINDOW"
	EnvReminderInterval = "REMINDER_INTERVAL"
	EnvTimezone         = "CAMPUS_TIMEZONE"

	EnvRateLimitBackend  = "RATE_LIMIT_BACKEND"
	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
