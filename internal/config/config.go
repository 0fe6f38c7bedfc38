package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Capture  CaptureConfig  `mapstructure:"capture"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration for host/guest accounts.
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// CaptureConfig tunes the photo-capture hand-off flow. TargetPhotoCount is
// only the default for sessions created without an explicit target; the
// desktop and mobile flows may ask for different counts.
type CaptureConfig struct {
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
	TargetPhotoCount int           `mapstructure:"target_photo_count"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	BaseURL          string        `mapstructure:"base_url"`
	PathPrefix       string        `mapstructure:"path_prefix"`
	DevLocation      DevLocation   `mapstructure:"dev_location"`
}

// DevLocation is the fixed coordinate substituted for real GPS in
// non-production environments. Enabled must never be set in production.
type DevLocation struct {
	Enabled   bool    `mapstructure:"enabled"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Environment overrides, e.g. capture.session_ttl -> CAPTURE_SESSION_TTL
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "stayfinder_capture")
	viper.SetDefault("s3.use_ssl", true)
	viper.SetDefault("jwt.expiration", "24h")
	viper.SetDefault("capture.session_ttl", "1h")
	viper.SetDefault("capture.target_photo_count", 2)
	viper.SetDefault("capture.poll_interval", "2s")
	viper.SetDefault("capture.base_url", "http://localhost:8080")
	viper.SetDefault("capture.path_prefix", "/capture/")
	viper.SetDefault("capture.dev_location.enabled", false)
	// Ibiza town center, handy when exercising the flow without real GPS.
	viper.SetDefault("capture.dev_location.latitude", 38.9067)
	viper.SetDefault("capture.dev_location.longitude", 1.4206)

	err = viper.ReadInConfig()
	// A missing config file is fine; defaults and env vars carry the day.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}
