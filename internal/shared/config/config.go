package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// FallbackRanges bounds the approximate values used when remote analysis
// fails. The exact numbers are a product decision, not a contract.
type FallbackRanges struct {
	CaloriesMin int
	CaloriesMax int
	ProteinMin  int
	ProteinMax  int
	FatMin      int
	FatMax      int
	CarbsMin    int
	CarbsMax    int
	// Exercise fallback is a flat per-minute burn rate.
	BurnPerMinute int
}

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string

	// Persistence.
	StoreType  string // file | sqlite | memory
	StoreDir   string
	SQLitePath string

	// Remote analysis backend.
	BackendBaseURL string
	RequestTimeout time.Duration

	// Analysis lifecycle.
	AnalysisTimeout time.Duration
	TickInterval    time.Duration
	Fallback        FallbackRanges

	// Google sign-in.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:             normalizeEnv(getEnv("ENV", "dev")),
		StoreType:       normalizeStoreType(getEnv("LOG_STORE", "file")),
		StoreDir:        getEnv("LOG_STORE_DIR", "./data"),
		SQLitePath:      getEnv("LOG_STORE_SQLITE_PATH", "./data/calotrack.db"),
		BackendBaseURL:  getEnv("ANALYSIS_BACKEND_URL", "http://localhost:8000"),
		RequestTimeout:  durationEnv("REQUEST_TIMEOUT_SECONDS", 30*time.Second, time.Second),
		AnalysisTimeout: durationEnv("ANALYSIS_TIMEOUT_SECONDS", 30*time.Second, time.Second),
		TickInterval:    durationEnv("ANALYSIS_TICK_MS", time.Second, time.Millisecond),
		Fallback: FallbackRanges{
			CaloriesMin:   intEnv("FALLBACK_CALORIES_MIN", 300),
			CaloriesMax:   intEnv("FALLBACK_CALORIES_MAX", 600),
			ProteinMin:    intEnv("FALLBACK_PROTEIN_MIN", 15),
			ProteinMax:    intEnv("FALLBACK_PROTEIN_MAX", 35),
			FatMin:        intEnv("FALLBACK_FAT_MIN", 10),
			FatMax:        intEnv("FALLBACK_FAT_MAX", 25),
			CarbsMin:      intEnv("FALLBACK_CARBS_MIN", 30),
			CarbsMax:      intEnv("FALLBACK_CARBS_MAX", 60),
			BurnPerMinute: intEnv("FALLBACK_BURN_PER_MINUTE", 5),
		},
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", ""),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func intEnv(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return parsed
}

func durationEnv(key string, def time.Duration, unit time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return def
	}
	return time.Duration(parsed) * unit
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqlite":
		return "sqlite"
	case "memory":
		return "memory"
	default:
		return "file"
	}
}
