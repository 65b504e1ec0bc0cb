package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/term"
)

const (
	AppName     = "telegram-tryon-bot"
	EnvFileName = "config.env"

	DefaultDBPath      = "tryon.db"
	DefaultHTTPTimeout = 60 * time.Second
	DefaultMediaRegion = "us-east-1"
)

// Required lists the environment variables the bot cannot start without.
var Required = []string{"BOT_TOKEN", "TRYON_TOKEN_KEY", "ADMIN_TELEGRAM_ID"}

// envOrder is the order keys are written to the env file.
var envOrder = []string{
	"BOT_TOKEN",
	"ADMIN_TELEGRAM_ID",
	"TRYON_TOKEN_KEY",
	"GEMINI_API_KEY",
	"TRYON_DB_PATH",
	"CODE_GENERATOR_URL",
	"SELLER_API_BASE_URL",
	"AVATAR_API_URL",
	"VIDEO_API_URL",
	"PRODUCT_TEMPLATE_PATH",
	"HTTP_TIMEOUT",
	"ACTIVITY_LOG_DIR",
	"MEDIA_S3_BUCKET",
	"MEDIA_S3_ENDPOINT",
	"MEDIA_S3_REGION",
	"MEDIA_S3_ACCESS_KEY",
	"MEDIA_S3_SECRET_KEY",
}

// Config is the runtime configuration read from the environment.
type Config struct {
	BotToken string
	TokenKey string // Passphrase the session cookie key is derived from
	AdminID  int64
	DBPath   string

	CodeGeneratorURL string
	SellerAPIBaseURL string
	AvatarAPIURL     string
	VideoAPIURL      string // Empty disables /video

	TemplatePath   string
	GeminiAPIKey   string // Empty disables /suggest
	HTTPTimeout    time.Duration
	ActivityLogDir string

	// Bucket Telegram photos are copied to before they are sent to the
	// try-on and video services. Empty disables both for Telegram photos.
	MediaBucket    string
	MediaEndpoint  string
	MediaRegion    string
	MediaAccessKey string
	MediaSecretKey string
}

// ConfigDir returns the application's config directory, creating it if needed.
func ConfigDir() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	configDir := filepath.Join(configBase, AppName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// EnvFilePath returns the full path to the env file.
func EnvFilePath() (string, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, EnvFileName), nil
}

// LoadEnvFile loads environment variables from the env file in the user's
// config directory. Errors are ignored since the file may not exist.
// Variables already set in the environment win.
func LoadEnvFile() {
	path, err := EnvFilePath()
	if err != nil {
		return
	}
	_ = godotenv.Load(path)
}

// CheckRequired returns the names of required variables that are not set.
func CheckRequired() []string {
	var missing []string
	for _, v := range Required {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	return missing
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	if missing := CheckRequired(); len(missing) > 0 {
		return nil, fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	adminID, err := strconv.ParseInt(os.Getenv("ADMIN_TELEGRAM_ID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID must be a valid integer: %w", err)
	}

	timeout := DefaultHTTPTimeout
	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		timeout, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("HTTP_TIMEOUT must be a duration like 30s: %w", err)
		}
		if timeout <= 0 {
			return nil, errors.New("HTTP_TIMEOUT must be positive")
		}
	}

	return &Config{
		BotToken:         os.Getenv("BOT_TOKEN"),
		TokenKey:         os.Getenv("TRYON_TOKEN_KEY"),
		AdminID:          adminID,
		DBPath:           envOr("TRYON_DB_PATH", DefaultDBPath),
		CodeGeneratorURL: os.Getenv("CODE_GENERATOR_URL"),
		SellerAPIBaseURL: os.Getenv("SELLER_API_BASE_URL"),
		AvatarAPIURL:     os.Getenv("AVATAR_API_URL"),
		VideoAPIURL:      os.Getenv("VIDEO_API_URL"),
		TemplatePath:     os.Getenv("PRODUCT_TEMPLATE_PATH"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		HTTPTimeout:      timeout,
		ActivityLogDir:   envOr("ACTIVITY_LOG_DIR", "."),
		MediaBucket:      os.Getenv("MEDIA_S3_BUCKET"),
		MediaEndpoint:    os.Getenv("MEDIA_S3_ENDPOINT"),
		MediaRegion:      envOr("MEDIA_S3_REGION", DefaultMediaRegion),
		MediaAccessKey:   os.Getenv("MEDIA_S3_ACCESS_KEY"),
		MediaSecretKey:   os.Getenv("MEDIA_S3_SECRET_KEY"),
	}, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// WriteEnvFile writes values to path with owner-only permissions since the
// file contains secrets. Known keys come first in a fixed order.
func WriteEnvFile(path string, values map[string]string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	written := make(map[string]bool, len(values))
	for _, key := range envOrder {
		val, ok := values[key]
		if !ok || val == "" {
			continue
		}
		if _, err := fmt.Fprintf(f, "%s=%q\n", key, val); err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
		written[key] = true
	}
	for key, val := range values {
		if written[key] || val == "" {
			continue
		}
		if _, err := fmt.Fprintf(f, "%s=%q\n", key, val); err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
	}
	return nil
}

// IsInteractiveTerminal returns true if both stdin and stdout are TTYs.
func IsInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
