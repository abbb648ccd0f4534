// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	MigrationsPath          string `yaml:"migrations_path"`
	RabbitConnectionString  string `yaml:"rabbit_connection_string"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	PaymentProcessor        `yaml:"payment_processor"`
	IdentityProvider        `yaml:"identity_provider"`
	GenerationService       `yaml:"generation_service"`
	FreeTier                `yaml:"free_tier"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// PaymentProcessor структура с настройками платёжного провайдера.
// Цены задаются инлайн при создании checkout-сессии, поэтому суммы
// и валюта живут в конфиге, а не в каталоге провайдера.
type PaymentProcessor struct {
	APIURL            string `yaml:"api_url" env:"PROCESSOR_API_URL"`
	SecretKey         string `yaml:"secret_key" env:"PROCESSOR_SECRET_KEY"`
	WebhookSecret     string `yaml:"webhook_secret" env:"PROCESSOR_WEBHOOK_SECRET"`
	Currency          string `yaml:"currency" env-default:"usd"`
	MonthlyUnitAmount int    `yaml:"monthly_unit_amount"` // В минорных единицах валюты
	YearlyUnitAmount  int    `yaml:"yearly_unit_amount"`  // В минорных единицах валюты
	ProductName       string `yaml:"product_name" env-default:"StudySnap Premium"`
	PublicBaseURL     string `yaml:"public_base_url"` // База для redirect-адресов
}

// IdentityProvider структура с настройками внешнего identity-провайдера.
type IdentityProvider struct {
	ProviderURL  string        `yaml:"provider_url" env:"IDENTITY_PROVIDER_URL"`
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"IDENTITY_JWT_SECRET"`
	TrialPeriod  time.Duration `yaml:"trial_period" env-default:"168h"` // 7 дней
}

// GenerationService структура с настройками сервиса генерации контента.
type GenerationService struct {
	GenerationURL string        `yaml:"generation_url" env:"GENERATION_URL"`
	APIKey        string        `yaml:"api_key" env:"GENERATION_API_KEY"`
	Timeout       time.Duration `yaml:"timeout" env-default:"60s"`
}

// FreeTier структура с настройками бесплатного лимита для анонимных
// и неподписанных запросов.
type FreeTier struct {
	MaxFreeUsage int `yaml:"max_free_usage" env-default:"3"`
}

// MustLoad функция для загрузки конфига, путь берётся из CONFIG_PATH
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
	return &cfg
}
