package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	AWS        AWSConfig
	Conference ConferenceConfig
	Photos     PhotoConfig
	Arxiv      ArxivConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig selects the store. Driver is "sqlite3" (single-file, default) or "pgx" (PostgreSQL).
type DatabaseConfig struct {
	Driver string
	Path   string // sqlite3 file path
	URL    string // pgx connection string, e.g. postgres://localhost:5432/conference?sslmode=disable
}

// RedisConfig holds Redis connection settings. Empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AWSConfig holds AWS credentials and the photo bucket.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	PhotosBucket    string
}

// ConferenceConfig describes the event the directory serves.
type ConferenceConfig struct {
	Name          string
	Start         time.Time
	End           time.Time
	MaxArxivLinks int
	BlackboardURL string
}

// PhotoConfig controls where uploaded photos go and what is accepted.
type PhotoConfig struct {
	Backend      string // "local" or "s3"
	UploadDir    string // local backend root; photo paths are stored relative to its parent
	MaxBytes     int64
	AllowedTypes []string // lower-case extensions without dot
}

// ArxivConfig configures the arXiv metadata client.
type ArxivConfig struct {
	APIURL       string
	RequestDelay time.Duration
	Timeout      time.Duration
	CacheTTL     time.Duration
	Disabled     bool
}

// DSN returns the data source name for the configured driver.
func (c DatabaseConfig) DSN() string {
	if c.Driver == "pgx" {
		return c.URL
	}
	if c.Path == ":memory:" {
		return c.Path
	}
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", c.Path)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	start, err := parseDate("CONFERENCE_START", getEnv("CONFERENCE_START", "2025-07-20"))
	if err != nil {
		return nil, err
	}
	end, err := parseDate("CONFERENCE_END", getEnv("CONFERENCE_END", "2025-08-02"))
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("CONFERENCE_END %s is before CONFERENCE_START %s", end.Format(dateLayout), start.Format(dateLayout))
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "sqlite3"),
			Path:   getEnv("DB_PATH", "data/conference.db"),
			URL:    getEnv("DATABASE_URL", "postgres://localhost:5432/conference?sslmode=disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			PhotosBucket:    getEnv("AWS_S3_PHOTOS_BUCKET", "conference-photos"),
		},
		Conference: ConferenceConfig{
			Name:          getEnv("CONFERENCE_NAME", "Conference"),
			Start:         start,
			End:           end,
			MaxArxivLinks: getEnvInt("MAX_ARXIV_LINKS", 3),
			BlackboardURL: getEnv("VIRTUAL_BLACKBOARD_URL", ""),
		},
		Photos: PhotoConfig{
			Backend:      getEnv("PHOTO_BACKEND", "local"),
			UploadDir:    getEnv("UPLOAD_DIR", "uploads"),
			MaxBytes:     int64(getEnvInt("PHOTO_MAX_BYTES", 10*1024*1024)),
			AllowedTypes: splitTrim(strings.ToLower(getEnv("PHOTO_ALLOWED_TYPES", "jpg,jpeg,png,gif")), ","),
		},
		Arxiv: ArxivConfig{
			APIURL:       getEnv("ARXIV_API_URL", "http://export.arxiv.org/api/query"),
			RequestDelay: time.Duration(getEnvInt("ARXIV_REQUEST_DELAY_MS", 350)) * time.Millisecond,
			Timeout:      time.Duration(getEnvInt("ARXIV_TIMEOUT_SEC", 10)) * time.Second,
			CacheTTL:     time.Duration(getEnvInt("ARXIV_CACHE_TTL_HOURS", 24*7)) * time.Hour,
			Disabled:     getEnv("ARXIV_DISABLED", "") == "1",
		},
	}
	if cfg.Database.Driver != "sqlite3" && cfg.Database.Driver != "pgx" {
		return nil, fmt.Errorf("DB_DRIVER must be sqlite3 or pgx, got %q", cfg.Database.Driver)
	}
	if cfg.Photos.Backend != "local" && cfg.Photos.Backend != "s3" {
		return nil, fmt.Errorf("PHOTO_BACKEND must be local or s3, got %q", cfg.Photos.Backend)
	}
	if cfg.Conference.MaxArxivLinks <= 0 {
		cfg.Conference.MaxArxivLinks = 3
	}
	return cfg, nil
}

const dateLayout = "2006-01-02"

func parseDate(key, v string) (time.Time, error) {
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: expected YYYY-MM-DD, got %q", key, v)
	}
	return t, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
