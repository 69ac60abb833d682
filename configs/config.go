package config

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func Config(key string) string {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("Warning: .env file not found, reading from system environment variables")
	}

	return os.Getenv(key)
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	Port        int    `yaml:"port"`
	CORSOrigins string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret   string `yaml:"secret"`
	TTLHours int    `yaml:"ttl_hours"`
}

type MidtransConfig struct {
	ServerKey  string `yaml:"server_key"`
	ClientKey  string `yaml:"client_key"`
	Production bool   `yaml:"production"`
	SnapURL    string `yaml:"snap_url"`
	CoreURL    string `yaml:"core_url"`
}

type StorageConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Region       string `yaml:"region"`
	Bucket       string `yaml:"bucket"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
	PresignTTL   int    `yaml:"presign_ttl_minutes"`
}

type CloudinaryConfig struct {
	URL    string `yaml:"url"`
	Folder string `yaml:"folder"`
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type EmailConfig struct {
	BrevoAPIKey string `yaml:"brevo_api_key"`
	Sender      string `yaml:"sender"`
	SenderName  string `yaml:"sender_name"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// PlatformConfig holds the admin-tunable marketplace settings. Values
// stored through the admin settings endpoint take precedence.
type PlatformConfig struct {
	CommissionRate       float64 `yaml:"commission_rate"`
	MinPayoutAmount      float64 `yaml:"min_payout_amount"`
	PayoutProcessingDays int     `yaml:"payout_processing_days"`
}

type JobsConfig struct {
	ReminderSpec       string `yaml:"reminder_spec"`
	PaymentSyncSpec    string `yaml:"payment_sync_spec"`
	PaymentSyncMinutes int    `yaml:"payment_sync_after_minutes"`
}

type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	FullName string `yaml:"full_name"`
}

type Settings struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	JWT        JWTConfig        `yaml:"jwt"`
	Midtrans   MidtransConfig   `yaml:"midtrans"`
	Storage    StorageConfig    `yaml:"storage"`
	Cloudinary CloudinaryConfig `yaml:"cloudinary"`
	NATS       NATSConfig       `yaml:"nats"`
	Email      EmailConfig      `yaml:"email"`
	Logging    LoggingConfig    `yaml:"logging"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Platform   PlatformConfig   `yaml:"platform"`
	Jobs       JobsConfig       `yaml:"jobs"`
	Admin      AdminConfig      `yaml:"admin"`
}

// Load reads the YAML file at path with ${VAR} references expanded from
// the environment. An empty path or a missing file yields a config built
// from environment variables and defaults only.
func Load(path string) (*Settings, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: .env file not found, reading from system environment variables")
	}

	var cfg Settings
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			expanded := []byte(os.ExpandEnv(string(data)))
			if err := yaml.Unmarshal(expanded, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Settings) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt secret is required")
	}
	if c.Platform.CommissionRate < 0 || c.Platform.CommissionRate >= 1 {
		return fmt.Errorf("platform.commission_rate must be in [0,1), got %v", c.Platform.CommissionRate)
	}
	if c.Platform.MinPayoutAmount < 0 {
		return errors.New("platform.min_payout_amount must not be negative")
	}
	return nil
}

// applyEnv fills blanks from the plain environment keys used by the
// deployment scripts.
func (c *Settings) applyEnv() {
	setIfEmpty(&c.Database.DSN, "DATABASE_URL")
	setIfEmpty(&c.JWT.Secret, "JWT_SECRET")
	setIfEmpty(&c.Redis.Address, "REDIS_ADDR")
	setIfEmpty(&c.Midtrans.ServerKey, "MIDTRANS_SERVER_KEY")
	setIfEmpty(&c.Midtrans.ClientKey, "MIDTRANS_CLIENT_KEY")
	setIfEmpty(&c.Storage.Endpoint, "S3_ENDPOINT")
	setIfEmpty(&c.Storage.Region, "AWS_REGION")
	setIfEmpty(&c.Storage.Bucket, "S3_BUCKET_NAME")
	setIfEmpty(&c.Storage.AccessKey, "AWS_ACCESS_KEY_ID")
	setIfEmpty(&c.Storage.SecretKey, "AWS_SECRET_ACCESS_KEY")
	setIfEmpty(&c.Cloudinary.URL, "CLOUDINARY_URL")
	setIfEmpty(&c.NATS.URL, "NATS_URL")
	setIfEmpty(&c.Email.BrevoAPIKey, "BREVO_API_KEY")
	setIfEmpty(&c.Email.Sender, "EMAIL_SENDER")
	setIfEmpty(&c.Email.SenderName, "EMAIL_SENDER_NAME")
	setIfEmpty(&c.Admin.Email, "ADMIN_EMAIL")
	setIfEmpty(&c.Admin.Password, "ADMIN_PASSWORD")
	setIfEmpty(&c.Admin.FullName, "ADMIN_FULL_NAME")
	if !c.Storage.UsePathStyle && os.Getenv("S3_USE_PATH_STYLE") == "true" {
		c.Storage.UsePathStyle = true
	}
}

func setIfEmpty(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}

func (c *Settings) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "Teacherin"
	}
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.App.CORSOrigins == "" {
		c.App.CORSOrigins = "*"
	}
	if c.JWT.TTLHours == 0 {
		c.JWT.TTLHours = 72
	}
	if c.Midtrans.SnapURL == "" {
		c.Midtrans.SnapURL = "https://app.sandbox.midtrans.com/snap/v1"
		if c.Midtrans.Production {
			c.Midtrans.SnapURL = "https://app.midtrans.com/snap/v1"
		}
	}
	if c.Midtrans.CoreURL == "" {
		c.Midtrans.CoreURL = "https://api.sandbox.midtrans.com/v2"
		if c.Midtrans.Production {
			c.Midtrans.CoreURL = "https://api.midtrans.com/v2"
		}
	}
	if c.Storage.PresignTTL == 0 {
		c.Storage.PresignTTL = 15
	}
	if c.Cloudinary.Folder == "" {
		c.Cloudinary.Folder = "teacherin_avatars"
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 10
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}
	if c.Platform.CommissionRate == 0 {
		c.Platform.CommissionRate = 0.1
	}
	if c.Platform.MinPayoutAmount == 0 {
		c.Platform.MinPayoutAmount = 50000
	}
	if c.Platform.PayoutProcessingDays == 0 {
		c.Platform.PayoutProcessingDays = 3
	}
	if c.Jobs.ReminderSpec == "" {
		c.Jobs.ReminderSpec = "*/5 * * * *"
	}
	if c.Jobs.PaymentSyncSpec == "" {
		c.Jobs.PaymentSyncSpec = "*/10 * * * *"
	}
	if c.Jobs.PaymentSyncMinutes == 0 {
		c.Jobs.PaymentSyncMinutes = 15
	}
	if c.Admin.FullName == "" {
		c.Admin.FullName = "Administrator"
	}
}
