package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseDSN   string `env:"DATABASE_URI"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`
	// PublicURL - внешний адрес сервиса; из него собираются return-адреса для
	// редиректов провайдеров.
	PublicURL      string `env:"PUBLIC_URL"`
	JWTAdminSecret string `env:"JWT_ADMIN_SECRET"`
	// PaymentWindow - срок, в течение которого неоплаченный заказ ждет оплату,
	// прежде чем фоновая сверка закроет его как failed.
	PaymentWindow time.Duration `env:"PAYMENT_WINDOW"`
	// GatewayTimeout - лимит на один запрос к платежному провайдеру.
	GatewayTimeout time.Duration `env:"GATEWAY_TIMEOUT"`

	// Параметры ценовой цепочки. Денежные значения в минорных единицах.
	TaxRateBasisPoints    int64 `env:"TAX_RATE_BP"             envDefault:"0"`
	ShippingCost          int64 `env:"SHIPPING_COST"           envDefault:"0"`
	FreeShippingThreshold int64 `env:"FREE_SHIPPING_THRESHOLD" envDefault:"0"`
}

func LoadConfig() (*Config, error) {
	// .env опционален: в продакшене конфигурация приходит из окружения.
	_ = godotenv.Load()

	var flagsConfig, envConfig Config

	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	loadFlags(&flagsConfig)

	conf := mergeConfig(&envConfig, &flagsConfig)
	if conf.DatabaseDSN == "" {
		return nil, errors.New("database DSN is not set")
	}
	if conf.JWTAdminSecret == "" {
		return nil, errors.New("admin JWT secret is not set")
	}
	return conf, nil
}

func MustLoadConfig() *Config {
	config, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return config
}

func loadFlags(flagConfig *Config) {
	flag.StringVar(&flagConfig.RunAddress, "a", "localhost:8080", "Run address in format host:port")
	flag.StringVar(&flagConfig.DatabaseDSN, "d", "", "Database DSN")
	flag.StringVar(&flagConfig.MigrationsDir, "m", "db/migrations", "Database migrations directory")
	flag.StringVar(&flagConfig.PublicURL, "u", "http://localhost:8080", "Public base URL of the service")
	flag.StringVar(&flagConfig.JWTAdminSecret, "j", "", "Admin JWT secret key")
	flag.DurationVar(&flagConfig.PaymentWindow, "w", 30*time.Minute, "Payment window duration")
	flag.DurationVar(&flagConfig.GatewayTimeout, "t", 10*time.Second, "Gateway request timeout")

	flag.Parse()
}

func mergeConfig(envConfig, flagsConfig *Config) *Config {
	return &Config{
		RunAddress:     defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress),
		DatabaseDSN:    defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN),
		MigrationsDir:  defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir),
		PublicURL:      defaultIfBlank(envConfig.PublicURL, flagsConfig.PublicURL),
		JWTAdminSecret: defaultIfBlank(envConfig.JWTAdminSecret, flagsConfig.JWTAdminSecret),
		PaymentWindow:  defaultIfZero(envConfig.PaymentWindow, flagsConfig.PaymentWindow),
		GatewayTimeout: defaultIfZero(envConfig.GatewayTimeout, flagsConfig.GatewayTimeout),

		TaxRateBasisPoints:    envConfig.TaxRateBasisPoints,
		ShippingCost:          envConfig.ShippingCost,
		FreeShippingThreshold: envConfig.FreeShippingThreshold,
	}
}

func defaultIfBlank(value string, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func defaultIfZero(value, defaultValue time.Duration) time.Duration {
	if value == 0 {
		return defaultValue
	}
	return value
}
