package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pricelist/internal"
)

type Config struct {
	DBPath     string
	RawMailDir string
	OutputDir  string

	LogLevel  string
	LogFormat string

	ExtractDefaultCurrency  string
	ExtractMinConfidence    float64
	ExtractSkipInvalidRows  bool
	ExtractStrictMode       bool
	ExtractMaxRows          int
	ExtractSupplierPrefixes []string
	ExtractMaxFileMB        int

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string
	GmailRateLimitRPS int

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	MailListenerProvider     string
	MailListenerLabel        string
	MailListenerIntervalSec  int
	MailListenerFetchMax     int
	MailListenerProcessBatch int
	MailListenerAutoExport   bool

	ProcessWorkers        int
	ProcessMaxAttempts    int
	ProcessRetryBackoffMs int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "pricelist.db")),
		RawMailDir: getEnv("MAIL_RAW_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		ExtractDefaultCurrency:  strings.ToUpper(getEnv("EXTRACT_DEFAULT_CURRENCY", internal.DefaultCurrency)),
		ExtractMinConfidence:    getEnvFloat("EXTRACT_MIN_CONFIDENCE", internal.DefaultMinConfidence),
		ExtractSkipInvalidRows:  getEnvBool("EXTRACT_SKIP_INVALID_ROWS", false),
		ExtractStrictMode:       getEnvBool("EXTRACT_STRICT_MODE", false),
		ExtractMaxRows:          getEnvInt("EXTRACT_MAX_ROWS", 0),
		ExtractSupplierPrefixes: getEnvList("EXTRACT_SUPPLIER_PREFIXES"),
		ExtractMaxFileMB:        getEnvInt("EXTRACT_MAX_FILE_MB", 50),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),
		GmailRateLimitRPS: getEnvInt("GMAIL_RATE_LIMIT_RPS", 5),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		MailListenerProvider:     getEnv("MAIL_LISTENER_PROVIDER", "imap"),
		MailListenerLabel:        getEnv("MAIL_LISTENER_LABEL", "INBOX"),
		MailListenerIntervalSec:  getEnvInt("MAIL_LISTENER_INTERVAL_SEC", 60),
		MailListenerFetchMax:     getEnvInt("MAIL_LISTENER_FETCH_MAX", 20),
		MailListenerProcessBatch: getEnvInt("MAIL_LISTENER_PROCESS_BATCH", 20),
		MailListenerAutoExport:   getEnvBool("MAIL_LISTENER_AUTO_EXPORT", false),

		ProcessWorkers:        getEnvInt("PROCESS_WORKERS", 3),
		ProcessMaxAttempts:    getEnvInt("PROCESS_MAX_ATTEMPTS", 3),
		ProcessRetryBackoffMs: getEnvInt("PROCESS_RETRY_BACKOFF_MS", 500),
	}

	return cfg, nil
}

// Extraction builds the per-call extraction settings from the environment.
func (c Config) Extraction() internal.ExtractionConfig {
	return internal.ExtractionConfig{
		DefaultCurrency:  c.ExtractDefaultCurrency,
		MinConfidence:    c.ExtractMinConfidence,
		SkipInvalidRows:  c.ExtractSkipInvalidRows,
		StrictMode:       c.ExtractStrictMode,
		MaxRows:          c.ExtractMaxRows,
		SupplierPrefixes: c.ExtractSupplierPrefixes,
	}.WithDefaults()
}

func (c Config) ProcessRetryBackoff() time.Duration {
	return time.Duration(c.ProcessRetryBackoffMs) * time.Millisecond
}

func (c Config) MaxFileBytes() int64 {
	return int64(c.ExtractMaxFileMB) << 20
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
