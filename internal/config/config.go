// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	FrontendURL             string `yaml:"frontend_url" env:"FRONTEND_URL" env-default:"http://localhost:3000"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RateLimit               `yaml:"rate_limit"`
	RabbitMQ                RabbitMQ       `yaml:"rabbitmq"`
	SMTP                    SMTP           `yaml:"smtp"`
	PaymentGateway          PaymentGateway `yaml:"payment_gateway"`
	Scheduler               Scheduler      `yaml:"scheduler"`
	BootstrapAdmin          BootstrapAdmin `yaml:"bootstrap_admin"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с jwt-токенами доступа и обновления
type JWTToken struct {
	JWTSecretKey     string        `yaml:"jwt_secret_key" env:"JWT_SECRET"`
	TokenTTL         time.Duration `yaml:"token_ttl" env-default:"1h"`
	RefreshSecretKey string        `yaml:"refresh_secret_key" env:"JWT_REFRESH_SECRET"`
	RefreshTokenTTL  time.Duration `yaml:"refresh_token_ttl" env-default:"168h"`
}

// RateLimit настройки ограничения частоты запросов на одного клиента
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"5"`
	Burst int     `yaml:"burst" env-default:"10"`
}

// RabbitMQ настройки подключения к брокеру
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Retries    int           `yaml:"retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// SMTP настройки почтового сервера
type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	User     string `yaml:"user" env:"SMTP_USER"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
}

// PaymentGateway настройки шлюза криптоплатежей. Пустой APIURL означает
// ручное подтверждение платежей.
type PaymentGateway struct {
	APIURL       string        `yaml:"api_url" env:"PAYMENT_GATEWAY_URL"`
	APIKey       string        `yaml:"api_key" env:"PAYMENT_GATEWAY_API_KEY"`
	PollInterval time.Duration `yaml:"poll_interval" env-default:"1m"`
	CheckoutTTL  time.Duration `yaml:"checkout_ttl" env-default:"1h"`
}

// Scheduler настройки периодических задач
type Scheduler struct {
	ExpiringInterval time.Duration `yaml:"expiring_interval" env-default:"12h"`
	ExpiringWindow   time.Duration `yaml:"expiring_window" env-default:"24h"`
}

// BootstrapAdmin учётная запись администратора, создаваемая при старте,
// если её ещё нет. Пустой Email отключает создание.
type BootstrapAdmin struct {
	Email    string `yaml:"email" env:"ADMIN_EMAIL"`
	Nickname string `yaml:"nickname" env:"ADMIN_NICKNAME" env-default:"admin"`
	Password string `yaml:"password" env:"ADMIN_PASSWORD"`
}

// ErrConfigPathNotSet возвращается, если не задана переменная CONFIG_PATH.
var ErrConfigPathNotSet = errors.New("CONFIG_PATH is not set")

// Load загружает конфиг из файла CONFIG_PATH. Перед этим подхватывается .env, если он есть.
func Load() (*Config, error) {
	const op = "config.Load"
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrConfigPathNotSet)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file: %s - does not exist", op, configPath)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: cannot read config: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad функция для загрузки конфига, завершает процесс при ошибке
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// GatewayEnabled сообщает, настроен ли внешний платёжный шлюз.
func (c *Config) GatewayEnabled() bool {
	return c.PaymentGateway.APIURL != ""
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  TokenTTL: %s\n"+
			"  RefreshTokenTTL: %s\n"+
			"PaymentGateway:\n"+
			"  Enabled: %t\n",
		c.Env,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.TokenTTL,
		c.RefreshTokenTTL,
		c.GatewayEnabled(),
	)
}
