// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// MaxQuestionCount верхняя граница количества вопросов в одном интервью
const MaxQuestionCount = 10

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	Gemini                  `yaml:"gemini"`
	Razorpay                `yaml:"razorpay"`
	ObjectStorage           `yaml:"object_storage"`
	Report                  `yaml:"report"`
	Interview               `yaml:"interview"`
	Fulfillment             `yaml:"fulfillment"`
	RateLimit               `yaml:"rate_limit"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`

	// AllowedOrigins допустимые Origin для websocket, пустой список пропускает любой
	AllowedOrigins []string `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:","`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env-default:"10m"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RabbitMQ настройки брокера для очереди фоновых задач.
// Пустой URL означает, что задачи выполняются в процессе API.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	MaxRetries int           `yaml:"max_retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// Gemini настройки клиента генеративной модели
type Gemini struct {
	APIKey  string        `yaml:"api_key" env:"GEMINI_API_KEY"`
	Model   string        `yaml:"model" env-default:"gemini-1.5-flash"`
	BaseURL string        `yaml:"base_url" env-default:"https://generativelanguage.googleapis.com/v1beta"`
	Timeout time.Duration `yaml:"timeout" env-default:"30s"`
	// MaxElapsed ограничивает суммарное время повторов одного запроса
	MaxElapsed time.Duration `yaml:"max_elapsed" env-default:"45s"`
}

// Razorpay настройки платежного провайдера
type Razorpay struct {
	APIURL        string        `yaml:"api_url" env-default:"https://api.razorpay.com/v1"`
	KeyID         string        `yaml:"key_id" env:"RAZORPAY_KEY_ID"`
	KeySecret     string        `yaml:"key_secret" env:"RAZORPAY_KEY_SECRET"`
	WebhookSecret string        `yaml:"webhook_secret" env:"RAZORPAY_WEBHOOK_SECRET"`
	PremiumAmount int64         `yaml:"premium_amount" env-default:"100"`
	Currency      string        `yaml:"currency" env-default:"INR"`
	Timeout       time.Duration `yaml:"timeout" env-default:"15s"`
}

// ObjectStorage настройки S3-совместимого хранилища отчетов
type ObjectStorage struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
	SecretKey     string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
	Bucket        string `yaml:"bucket" env-default:"reports"`
	UseSSL        bool   `yaml:"use_ssl"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// Report настройки генерации PDF
type Report struct {
	ChromePath    string        `yaml:"chrome_path"`
	RenderTimeout time.Duration `yaml:"render_timeout" env-default:"60s"`
}

// Interview настройки интервью
type Interview struct {
	QuestionCount int `yaml:"question_count" env-default:"5"`
}

// Fulfillment настройки фоновых задач после завершения интервью
type Fulfillment struct {
	TaskTimeout time.Duration `yaml:"task_timeout" env-default:"2m"`
}

// RateLimit ограничение частоты запросов к генерации вопросов на пользователя
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"0.2"`
	Burst int     `yaml:"burst" env-default:"3"`
}

// MustLoad функция для загрузки конфига, возвращает конфиг, сгенерированный из config/config.go
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}
	return &cfg
}

// Validate проверяет значения, которые нельзя выразить тегами
func (c *Config) Validate() error {
	if c.QuestionCount < 1 || c.QuestionCount > MaxQuestionCount {
		return fmt.Errorf("interview.question_count must be in [1, %d], got %d", MaxQuestionCount, c.QuestionCount)
	}
	if c.PremiumAmount <= 0 {
		return fmt.Errorf("razorpay.premium_amount must be positive, got %d", c.PremiumAmount)
	}
	return nil
}

// PaymentsConfigured сообщает, заданы ли ключи платежного провайдера
func (c *Config) PaymentsConfigured() bool {
	return c.KeyID != "" && c.KeySecret != ""
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  JWTSecretKey: %s\n"+
			"  TokenTTL: %s\n"+
			"RabbitMQ: %s\n"+
			"Gemini: model=%s key=%s\n"+
			"Razorpay: key_id=%s secret=%s webhook_secret=%s amount=%d %s\n"+
			"ObjectStorage: %s/%s\n"+
			"Interview: questions=%d\n",
		c.Env,
		mask(c.StorageConnectionString),
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		mask(c.JWTSecretKey),
		c.TokenTTL,
		mask(c.URL),
		c.Model,
		mask(c.APIKey),
		c.KeyID,
		mask(c.KeySecret),
		mask(c.WebhookSecret),
		c.PremiumAmount,
		c.Currency,
		c.Endpoint,
		c.Bucket,
		c.QuestionCount,
	)
}
