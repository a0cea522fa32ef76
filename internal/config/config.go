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
	DBPath    string
	OutputDir string
	VocabPath string

	HTTPAddr string
	BaseURL  string
	Debug    bool

	MinSimilarity   float64
	ExactLimit      int
	FuzzyLimit      int
	AlternatesLimit int
	MatchWorkers    int

	ReportCapacity int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "dsr.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		VocabPath: getEnv("VOCAB_PATH", ""),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		BaseURL:  getEnv("BASE_URL", ""),
		Debug:    getEnvBool("DEBUG", false),

		MinSimilarity:   getEnvFloat("MATCH_MIN_SIMILARITY", 0.3),
		ExactLimit:      getEnvInt("MATCH_EXACT_LIMIT", 5),
		FuzzyLimit:      getEnvInt("MATCH_FUZZY_LIMIT", 10),
		AlternatesLimit: getEnvInt("MATCH_ALTERNATES_LIMIT", 3),
		MatchWorkers:    getEnvInt("MATCH_WORKERS", 4),

		ReportCapacity: getEnvInt("REPORT_STORE_CAPACITY", 100),
	}

	return cfg, nil
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
