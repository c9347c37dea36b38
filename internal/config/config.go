package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath     string
	OutputDir  string
	OutputFile string

	ItemFeedURL      string
	ItemNamesFeedURL string
	HeroFeedURL      string
	ItemWikiURL      string

	FeedTimeoutMs      int
	FeedRetryMax       int
	FeedRetryWaitMinMs int
	FeedRetryWaitMaxMs int
	FeedRateLimitRPS   int

	DropUselessItems  bool
	NeutralDropStrict bool
	ItemRulesFile     string

	OpenAfterExport bool
	ViewerPath      string
	// ViewerTarget is opened instead of the export, e.g. a macro workbook
	// that reads it.
	ViewerTarget string

	WatchIntervalSec int
	LogLevel         string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		OutputFile: getEnv("OUTPUT_FILE", "Dota2Data.xlsx"),

		ItemFeedURL:      getEnv("ITEM_FEED_URL", "https://raw.githubusercontent.com/dotabuff/d2vpkr/master/dota/scripts/npc/items.json"),
		ItemNamesFeedURL: getEnv("ITEM_NAMES_FEED_URL", "https://raw.githubusercontent.com/odota/dotaconstants/master/build/items.json"),
		HeroFeedURL:      getEnv("HERO_FEED_URL", "https://raw.githubusercontent.com/odota/dotaconstants/master/build/heroes.json"),
		ItemWikiURL:      getEnv("ITEM_WIKI_URL", "https://dota2.fandom.com/wiki/Items"),

		FeedTimeoutMs:      getEnvInt("FEED_TIMEOUT_MS", 30000),
		FeedRetryMax:       getEnvInt("FEED_RETRY_MAX", 4),
		FeedRetryWaitMinMs: getEnvInt("FEED_RETRY_WAIT_MIN_MS", 250),
		FeedRetryWaitMaxMs: getEnvInt("FEED_RETRY_WAIT_MAX_MS", 5000),
		FeedRateLimitRPS:   getEnvInt("FEED_RATE_LIMIT_RPS", 2),

		DropUselessItems:  getEnvBool("DROP_USELESS_ITEMS", true),
		NeutralDropStrict: getEnvBool("NEUTRAL_DROP_STRICT", false),
		ItemRulesFile:     getEnv("ITEM_RULES_FILE", ""),

		OpenAfterExport: getEnvBool("OPEN_AFTER_EXPORT", false),
		ViewerPath:      getEnv("VIEWER_PATH", ""),
		ViewerTarget:    getEnv("VIEWER_TARGET", ""),

		WatchIntervalSec: getEnvInt("WATCH_INTERVAL_SEC", 3600),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// OutputPath is the default workbook location.
func (c Config) OutputPath() string {
	if filepath.IsAbs(c.OutputFile) {
		return c.OutputFile
	}
	return filepath.Join(c.OutputDir, c.OutputFile)
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
