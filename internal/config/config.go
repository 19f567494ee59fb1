package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string     `yaml:"env" env-required:"true" env-default:"production"`
	PGSQL      PQSQL      `yaml:"pgsql" env-required:"true"`
	Redis      Redis      `yaml:"redis"`
	HTTPServer HTTPServer `yaml:"http_server" env-required:"true"`
	JWTSecret  string     `yaml:"jwt_secret" env-required:"true"`
	Encoder    Encoder    `yaml:"encoder" env-required:"true"`
	MinIO      MinIO      `yaml:"minio"`
}

type HTTPServer struct {
	Address string `yaml:"address" env-required:"true" env-default:"localhost:8080"`
}

type PQSQL struct {
	Host     string `yaml:"host" env-required:"true" env-default:"localhost"`
	Port     string `yaml:"port" env-required:"true" env-default:"5432"`
	User     string `yaml:"user" env-required:"true" env-default:"postgres"`
	Password string `yaml:"password" env-required:"true" env-default:"password"`
	DBName   string `yaml:"dbname" env-required:"true" env-default:"vod_db"`
	SSLMode  string `yaml:"sslmode" env-required:"true" env-default:"disable"`
}

type Redis struct {
	Address  string `yaml:"address" env-default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" env-default:"0"`
}

// Encoder holds credentials and tuning for the external encoding provider.
// Token pair and webhook secret are required: starting without them would
// leave the service unable to mint uploads or authenticate callbacks.
type Encoder struct {
	BaseURL          string        `yaml:"base_url" env-required:"true"`
	TokenID          string        `yaml:"token_id" env-required:"true"`
	TokenSecret      string        `yaml:"token_secret" env-required:"true"`
	WebhookSecret    string        `yaml:"webhook_secret" env-required:"true"`
	RequestTimeout   time.Duration `yaml:"request_timeout" env-default:"10s"`
	UploadExpiry     time.Duration `yaml:"upload_expiry" env-default:"1h"`
	WebhookTolerance time.Duration `yaml:"webhook_tolerance" env-default:"5m"`
}

// MinIO configures the bucket where verified webhook payloads are archived.
type MinIO struct {
	Endpoint        string `yaml:"endpoint" env-default:"localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env-default:"minioadmin"`
	SecretAccessKey string `yaml:"secret_access_key" env-default:"minioadmin"`
	UseSSL          bool   `yaml:"use_ssl" env-default:"false"`
	BucketName      string `yaml:"bucket_name" env-default:"webhook-archive"`
}

func MustLoad() *Config {
	var configPath string

	configPath = os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to config file")
		flag.Parse()
		configPath = *flags

		if configPath == "" {
			log.Fatal("config path must be provided")
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist at path: %s", configPath)
	}

	var cfg Config

	err := cleanenv.ReadConfig(configPath, &cfg)

	if err != nil {
		log.Fatalf("failed to read config: %s", err)
	}

	return &cfg
}
