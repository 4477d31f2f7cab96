package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config содержит все настройки сервиса
type Config struct {
	AppName  string
	Version  string
	LogLevel string
	ENV      string

	Server struct {
		Host            string
		Port            int `validate:"min=1,max=65535"`
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		RequestTimeout  time.Duration `validate:"gt=0"` // таймаут обработки запроса
		ShutdownTimeout time.Duration
	}

	Postgres struct {
		Host       string
		Port       int
		User       string
		Password   string
		DBName     string
		SSLMode    string
		Timeout    time.Duration
		PoolSize   int  // размер пула соединений
		InitSchema bool // создавать таблицы при старте
	}

	Redis struct {
		Enabled  bool
		Host     string
		Port     int
		Password string
		DB       int
	}

	Kafka struct {
		Enabled       bool
		Brokers       []string `validate:"required_if=Enabled true"`
		GroupID       string
		ClientID      string
		ProducerTopic string // события импорта
		ConsumerTopic string // управляющие команды воркера
		CreateTopics  bool
	}

	Metrics struct {
		Enabled bool
		Port    int // порт HTTP сервера метрик воркера
	}

	Security struct {
		JWTSecret        string
		JWTExpiration    time.Duration
		AdminRole        string `validate:"required"`
		CORSAllowOrigins []string
		RateLimit        int           `validate:"min=1"` // запросов за RateWindow на один IP
		RateWindow       time.Duration `validate:"gt=0"`
	}

	Keycloak KeycloakConfig

	Marketplace MarketplaceConfig

	Importer struct {
		UnresolvedPolicy string        `validate:"oneof=accept reject"`
		PublishTimeout   time.Duration `validate:"gt=0"` // ожидание подтверждения брокера на одно событие
	}

	Scheduler struct {
		Enabled     bool
		Interval    time.Duration `validate:"gt=0"`
		RunOnEnable bool
		LockTTL     time.Duration `validate:"gt=0"`
	}

	Products struct {
		CacheTTL time.Duration // 0 отключает кэш поиска товаров
	}
}

// MarketplaceConfig настройки доступа к API маркетплейса
type MarketplaceConfig struct {
	APIKey     string        `validate:"required"`
	BaseURL    string        `validate:"required,url"`
	WindowDays int           `validate:"min=1"`
	Timeout    time.Duration `validate:"gt=0"`
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	configFile := "config"
	if configPath != "" {
		configFile = configPath
	}

	v := viper.New()
	v.SetConfigName(configFile)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")
	v.AddConfigPath("../../config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
		// Файл не найден, используем значения по умолчанию и переменные окружения
	}

	setDefaults(v)

	if err := bindEnvVariables(v); err != nil {
		return nil, fmt.Errorf("ошибка привязки переменных окружения: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка десериализации конфигурации: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет обязательные значения конфигурации
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("некорректная конфигурация: %w", err)
	}
	if !c.Keycloak.Enabled && c.Security.JWTSecret == "" {
		return errors.New("некорректная конфигурация: security.jwtSecret обязателен, если keycloak отключен")
	}
	return nil
}

// IsProduction запущен ли сервис в production окружении
func (c *Config) IsProduction() bool {
	return c.ENV == "production"
}

// setDefaults устанавливает значения по умолчанию
func setDefaults(v *viper.Viper) {
	// Основные настройки
	v.SetDefault("appName", "order-import-service")
	v.SetDefault("version", "1.0.0")
	v.SetDefault("logLevel", "info")
	v.SetDefault("env", "development")

	// Настройки сервера
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "5m") // ручной запуск импорта отвечает после завершения цикла
	v.SetDefault("server.requestTimeout", "5m")
	v.SetDefault("server.shutdownTimeout", "15s")

	// Настройки Postgres
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "orders")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timeout", "5s")
	v.SetDefault("postgres.poolSize", 10)
	v.SetDefault("postgres.initSchema", true)

	// Настройки Redis
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Настройки Kafka
	v.SetDefault("kafka.enabled", true)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.groupID", "order-import-service")
	v.SetDefault("kafka.clientID", "order-import-service")
	v.SetDefault("kafka.producerTopic", "order-import-events")
	v.SetDefault("kafka.consumerTopic", "order-import-commands")
	v.SetDefault("kafka.createTopics", false)

	// Настройки метрик
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Настройки безопасности
	v.SetDefault("security.jwtSecret", "")
	v.SetDefault("security.jwtExpiration", "60m")
	v.SetDefault("security.adminRole", "order-import-admin")
	v.SetDefault("security.corsAllowOrigins", []string{"*"})
	v.SetDefault("security.rateLimit", 1000)
	v.SetDefault("security.rateWindow", "1m")

	// Настройки Keycloak
	v.SetDefault("keycloak.enabled", false)
	v.SetDefault("keycloak.serverURL", "http://localhost:8180")
	v.SetDefault("keycloak.realm", "gomarket")
	v.SetDefault("keycloak.clientID", "order-import-service")

	// Настройки маркетплейса
	v.SetDefault("marketplace.apiKey", "")
	v.SetDefault("marketplace.baseURL", "https://api.market.yandex.ru/v2/orders")
	v.SetDefault("marketplace.windowDays", 7)
	v.SetDefault("marketplace.timeout", "30s")

	// Настройки импорта
	v.SetDefault("importer.unresolvedPolicy", "accept")
	v.SetDefault("importer.publishTimeout", "5s")

	// Настройки планировщика
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", "24h")
	v.SetDefault("scheduler.runOnEnable", true)
	v.SetDefault("scheduler.lockTTL", "30m")

	// Поиск товаров
	v.SetDefault("products.cacheTTL", "0s")
}

// bindEnvVariables привязывает переменные окружения к конфигурации
func bindEnvVariables(v *viper.Viper) error {
	bindings := map[string]string{
		// Основные настройки
		"appName":  "APP_NAME",
		"version":  "APP_VERSION",
		"logLevel": "LOG_LEVEL",
		"env":      "APP_ENV",

		// Настройки сервера
		"server.host":            "SERVER_HOST",
		"server.port":            "SERVER_PORT",
		"server.readTimeout":     "SERVER_READ_TIMEOUT",
		"server.writeTimeout":    "SERVER_WRITE_TIMEOUT",
		"server.requestTimeout":  "SERVER_REQUEST_TIMEOUT",
		"server.shutdownTimeout": "SERVER_SHUTDOWN_TIMEOUT",

		// Настройки Postgres
		"postgres.host":       "POSTGRES_HOST",
		"postgres.port":       "POSTGRES_PORT",
		"postgres.user":       "POSTGRES_USER",
		"postgres.password":   "POSTGRES_PASSWORD",
		"postgres.dbname":     "POSTGRES_DBNAME",
		"postgres.sslmode":    "POSTGRES_SSLMODE",
		"postgres.timeout":    "POSTGRES_TIMEOUT",
		"postgres.poolSize":   "POSTGRES_POOL_SIZE",
		"postgres.initSchema": "POSTGRES_INIT_SCHEMA",

		// Настройки Redis
		"redis.enabled":  "REDIS_ENABLED",
		"redis.host":     "REDIS_HOST",
		"redis.port":     "REDIS_PORT",
		"redis.password": "REDIS_PASSWORD",
		"redis.db":       "REDIS_DB",

		// Настройки Kafka
		"kafka.enabled":       "KAFKA_ENABLED",
		"kafka.brokers":       "KAFKA_BROKERS",
		"kafka.groupID":       "KAFKA_GROUP_ID",
		"kafka.clientID":      "KAFKA_CLIENT_ID",
		"kafka.producerTopic": "KAFKA_PRODUCER_TOPIC",
		"kafka.consumerTopic": "KAFKA_CONSUMER_TOPIC",
		"kafka.createTopics":  "KAFKA_CREATE_TOPICS",

		// Настройки метрик
		"metrics.enabled": "METRICS_ENABLED",
		"metrics.port":    "METRICS_PORT",

		// Настройки безопасности
		"security.jwtSecret":        "JWT_SECRET",
		"security.jwtExpiration":    "JWT_EXPIRATION",
		"security.adminRole":        "ADMIN_ROLE",
		"security.corsAllowOrigins": "CORS_ALLOW_ORIGINS",
		"security.rateLimit":        "RATE_LIMIT",
		"security.rateWindow":       "RATE_WINDOW",

		// Настройки Keycloak
		"keycloak.enabled":   "KEYCLOAK_ENABLED",
		"keycloak.serverURL": "KEYCLOAK_SERVER_URL",
		"keycloak.realm":     "KEYCLOAK_REALM",
		"keycloak.clientID":  "KEYCLOAK_CLIENT_ID",

		// Настройки маркетплейса
		"marketplace.apiKey":     "MARKETPLACE_API_KEY",
		"marketplace.baseURL":    "MARKETPLACE_BASE_URL",
		"marketplace.windowDays": "MARKETPLACE_WINDOW_DAYS",
		"marketplace.timeout":    "MARKETPLACE_TIMEOUT",

		// Настройки импорта
		"importer.unresolvedPolicy": "IMPORTER_UNRESOLVED_POLICY",
		"importer.publishTimeout":   "IMPORTER_PUBLISH_TIMEOUT",

		// Настройки планировщика
		"scheduler.enabled":     "SCHEDULER_ENABLED",
		"scheduler.interval":    "SCHEDULER_INTERVAL",
		"scheduler.runOnEnable": "SCHEDULER_RUN_ON_ENABLE",
		"scheduler.lockTTL":     "SCHEDULER_LOCK_TTL",

		// Поиск товаров
		"products.cacheTTL": "PRODUCTS_CACHE_TTL",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}
