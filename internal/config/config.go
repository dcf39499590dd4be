// Package config reads runtime settings from the environment, loading a
// .env file first when one is present.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every setting the binaries read.
type Config struct {
	DBPath   string
	LogLevel string
	HTTPPort string

	DefaultIntervalDays int
	ReminderDaysAhead   int
	JobWorkers          int

	GCSBucket    string
	GCPProjectID string
	BQDataset    string

	NotionToken     string
	NotionDebtsDBID string
	GeminiModel     string
	ClassifyWithAI  bool
	TelegramToken   string
	TelegramChatID  int64
}

// Load reads .env (if it exists) and then the process environment.
func Load() Config {
	// A missing .env is normal outside development.
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// LoadFile reads the given env files into the environment before loading.
func LoadFile(paths ...string) (Config, error) {
	if err := godotenv.Load(paths...); err != nil {
		return Config{}, err
	}
	return FromLookup(os.LookupEnv), nil
}

// FromLookup builds a Config from lookup, applying defaults for unset or
// malformed values.
func FromLookup(lookup func(string) (string, bool)) Config {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}
	getInt := func(key string, def int) int {
		n, err := strconv.Atoi(get(key, ""))
		if err != nil || n <= 0 {
			return def
		}
		return n
	}

	chatID, _ := strconv.ParseInt(get("TELEGRAM_CHAT_ID", "0"), 10, 64)
	classify, _ := strconv.ParseBool(get("PFM_CLASSIFY_WITH_AI", "false"))

	return Config{
		DBPath:              get("PFM_DB_PATH", "finance.db"),
		LogLevel:            get("PFM_LOG_LEVEL", "info"),
		HTTPPort:            get("PFM_HTTP_PORT", "8080"),
		DefaultIntervalDays: getInt("PFM_DEFAULT_INTERVAL_DAYS", 30),
		ReminderDaysAhead:   getInt("PFM_REMINDER_DAYS_AHEAD", 3),
		JobWorkers:          getInt("PFM_JOB_WORKERS", 5),
		GCSBucket:           get("PFM_GCS_BUCKET", ""),
		GCPProjectID:        get("GCP_PROJECT_ID", ""),
		BQDataset:           get("PFM_BQ_DATASET", "finance"),
		NotionToken:         get("PFM_NOTION_TOKEN", ""),
		NotionDebtsDBID:     get("PFM_NOTION_DEBTS_DB_ID", ""),
		GeminiModel:         get("PFM_GEMINI_MODEL", "gemini-2.5-flash"),
		ClassifyWithAI:      classify,
		TelegramToken:       get("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:      chatID,
	}
}

// TelegramEnabled reports whether both the bot token and chat are set.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// NotionEnabled reports whether Notion sync is configured.
func (c Config) NotionEnabled() bool {
	return c.NotionToken != "" && c.NotionDebtsDBID != ""
}
