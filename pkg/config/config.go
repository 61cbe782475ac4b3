package config

import (
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type AppConfig struct {
	Port              string        `mapstructure:"PORT"`
	StorageDriver     string        `mapstructure:"STORAGE_DRIVER"`
	PostgresUsername  string        `mapstructure:"POSTGRES_USERNAME"`
	PostgresPassword  string        `mapstructure:"POSTGRES_PASSWORD"`
	PostgresDatabase  string        `mapstructure:"POSTGRES_DATABASE"`
	PostgresSSLMode   string        `mapstructure:"POSTGRES_SSLMODE"`
	PostgresHost      string        `mapstructure:"POSTGRES_HOST"`
	PostgresPort      string        `mapstructure:"POSTGRES_PORT"`
	RabbitMQURL       string        `mapstructure:"RABBITMQ_URL"`
	ServiceName       string        `mapstructure:"SERVICE_NAME"`
	AWSEndpoint       string        `mapstructure:"AWS_ENDPOINT"`
	AWSBucket         string        `mapstructure:"AWS_BUCKET"`
	AWSDefaultRegion  string        `mapstructure:"AWS_DEFAULT_REGION"`
	AWSAccessKey      string        `mapstructure:"AWS_ACCESS_KEY"`
	AWSSecretKey      string        `mapstructure:"AWS_SECRET_KEY"`
	GRPCPort          string        `mapstructure:"GRPC_PORT"`
	RedisAddr         string        `mapstructure:"REDIS_ADDR"`
	SummaryTTL        time.Duration `mapstructure:"SUMMARY_TTL"`
	BidMaxAttempts    int           `mapstructure:"BID_MAX_ATTEMPTS"`
	PoolStatsSchedule string        `mapstructure:"POOL_STATS_SCHEDULE"`
}

func Read() *AppConfig {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()

	bindEnvVariables()
	setDefaults()

	var appConfig AppConfig
	err := viper.Unmarshal(&appConfig)
	if err != nil {
		panic(fmt.Errorf("fatal error unmarshalling config: %w", err))
	}

	return &appConfig
}

// PostgresDSN builds a postgres:// connection URL. Credentials are
// percent-encoded, so any character is allowed in them.
func (c *AppConfig) PostgresDSN() string {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUsername, c.PostgresPassword),
		Host:     net.JoinHostPort(c.PostgresHost, c.PostgresPort),
		Path:     "/" + c.PostgresDatabase,
		RawQuery: url.Values{"sslmode": {c.PostgresSSLMode}}.Encode(),
	}
	return dsn.String()
}

// ImageURL returns the public URL of an object stored under key.
func (c *AppConfig) ImageURL(key string) string {
	// MinIO / custom endpoint: http(s)://endpoint/bucket/key
	if c.AWSEndpoint != "" {
		return fmt.Sprintf("%s/%s/%s", c.AWSEndpoint, c.AWSBucket, key)
	}

	if c.AWSDefaultRegion != "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.AWSBucket, c.AWSDefaultRegion, key)
	}

	return key
}

func bindEnvVariables() {
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("STORAGE_DRIVER")
	_ = viper.BindEnv("POSTGRES_USERNAME")
	_ = viper.BindEnv("POSTGRES_PASSWORD")
	_ = viper.BindEnv("POSTGRES_DATABASE")
	_ = viper.BindEnv("POSTGRES_SSLMODE")
	_ = viper.BindEnv("POSTGRES_HOST")
	_ = viper.BindEnv("POSTGRES_PORT")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("SERVICE_NAME")
	_ = viper.BindEnv("AWS_ENDPOINT")
	_ = viper.BindEnv("AWS_BUCKET")
	_ = viper.BindEnv("AWS_DEFAULT_REGION")
	_ = viper.BindEnv("AWS_ACCESS_KEY")
	_ = viper.BindEnv("AWS_SECRET_KEY")
	_ = viper.BindEnv("GRPC_PORT")
	_ = viper.BindEnv("REDIS_ADDR")
	_ = viper.BindEnv("SUMMARY_TTL")
	_ = viper.BindEnv("BID_MAX_ATTEMPTS")
	_ = viper.BindEnv("POOL_STATS_SCHEDULE")
}

func setDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("STORAGE_DRIVER", StoragePostgres)
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", "5432")
	viper.SetDefault("SERVICE_NAME", "auctions")
	viper.SetDefault("GRPC_PORT", "9090")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("SUMMARY_TTL", "10m")
	viper.SetDefault("BID_MAX_ATTEMPTS", 3)
	viper.SetDefault("POOL_STATS_SCHEDULE", "@every 30s")
}
