package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	APIPort int `mapstructure:"apiPort"`

	Database struct {
		Type            string `mapstructure:"type"` // "sqlite" or "postgres"
		Path            string `mapstructure:"path"`
		Host            string `mapstructure:"host"`
		Port            string `mapstructure:"port"`
		Name            string `mapstructure:"name"`
		User            string `mapstructure:"user"`
		Password        string `mapstructure:"password"`
		SSLMode         string `mapstructure:"sslMode"`
		MaxConns        int    `mapstructure:"maxConns"`
		MaxIdle         int    `mapstructure:"maxIdle"`
		ConnMaxLifetime string `mapstructure:"connMaxLifetime"`
	} `mapstructure:"database"`

	Auth struct {
		SigningSecret    string `mapstructure:"signingSecret"`
		SigningAlgorithm string `mapstructure:"signingAlgorithm"`
		// Access tokens are stateless and measured in minutes; refresh
		// sessions are persisted and measured in days.
		AccessTokenMinutes int `mapstructure:"accessTokenMinutes"`
		RefreshTokenDays   int `mapstructure:"refreshTokenDays"`
		// RotateRefreshTokens revokes a refresh session on each successful
		// refresh and hands out a new secret in its place.
		RotateRefreshTokens bool `mapstructure:"rotateRefreshTokens"`
		// PrehashPasswords reduces the password to a sha256 hex digest before
		// bcrypt. Only for compatibility with stores written that way: it
		// caps useful input entropy at the sha256 output space. Hashes
		// written in one mode do not verify in the other.
		PrehashPasswords bool `mapstructure:"prehashPasswords"`
	} `mapstructure:"auth"`

	Export struct {
		S3Endpoint        string `mapstructure:"s3Endpoint"`
		S3Region          string `mapstructure:"s3Region"`
		S3Bucket          string `mapstructure:"s3Bucket"`
		S3AccessKeyID     string `mapstructure:"s3AccessKeyId"`
		S3SecretAccessKey string `mapstructure:"s3SecretAccessKey"`
	} `mapstructure:"export"`
}

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		log.Printf("Warning: Could not read config file: %s. Using defaults or environment variables.", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.APIPort == 0 {
		cfg.APIPort = 8080
		log.Println("apiPort not specified, using default 8080")
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/calendar.db"
		log.Println("Database path not specified, using default ./data/calendar.db")
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = "5432"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	if cfg.Auth.SigningAlgorithm == "" {
		cfg.Auth.SigningAlgorithm = "HS256"
	}
	if cfg.Auth.AccessTokenMinutes == 0 {
		cfg.Auth.AccessTokenMinutes = 15
	}
	if cfg.Auth.RefreshTokenDays == 0 {
		cfg.Auth.RefreshTokenDays = 30
	}

	return &cfg, nil
}
