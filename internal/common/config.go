package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config is the runtime configuration of the server process. Database
// settings live in internal/db.
type Config struct {
	Port     string
	GinMode  string
	LogLevel string
	LogJSON  bool
	Location *time.Location

	JWTSecret  string
	SessionTTL time.Duration

	ESVAPIKey      string
	ESVAPIURL      string
	BibleAPIKey    string
	BibleAPIURL    string
	ProviderRPS    float64
	TranslationTTL time.Duration

	RemindersEnabled   bool
	ReminderWebhookURL string

	HunyuanToken         string
	HunyuanModel         string
	HunyuanBaseURL       string
	TencentSecretID      string
	TencentSecretKey     string
	MaxReflectionsPerDay int
}

// LoadEnvFile loads ENV_FILE (default .env) into the process environment.
// A missing file is not an error.
func LoadEnvFile() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return errors.Wrapf(godotenv.Load(path), "load %s", path)
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:               getenv("PORT", "8080"),
		GinMode:            os.Getenv("GIN_MODE"),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		LogJSON:            strings.EqualFold(os.Getenv("LOG_FORMAT"), "json"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		ESVAPIKey:          os.Getenv("ESV_API_KEY"),
		ESVAPIURL:          getenv("ESV_API_URL", "https://api.esv.org/v3"),
		BibleAPIKey:        os.Getenv("BIBLE_API_KEY"),
		BibleAPIURL:        getenv("BIBLE_API_URL", "https://api.scripture.api.bible/v1"),
		ReminderWebhookURL: os.Getenv("REMINDER_WEBHOOK_URL"),
		HunyuanToken:       os.Getenv("HUNYUAN_TOKEN"),
		HunyuanModel:       getenv("HUNYUAN_MODEL", DefaultHunyuanModel),
		HunyuanBaseURL:     getenv("HUNYUAN_BASE_URL", DefaultHunyuanBaseURL),
		TencentSecretID:    os.Getenv("TENCENTCLOUD_SECRETID"),
		TencentSecretKey:   os.Getenv("TENCENTCLOUD_SECRETKEY"),
	}

	var err error
	if cfg.Location, err = loadLocation(os.Getenv("APP_TIMEZONE")); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", DefaultSessionTTL); err != nil {
		return nil, err
	}
	if cfg.TranslationTTL, err = durationEnv("TRANSLATION_CACHE_TTL", DefaultTranslationCacheTTL); err != nil {
		return nil, err
	}
	if cfg.ProviderRPS, err = floatEnv("PROVIDER_RPS", 5); err != nil {
		return nil, err
	}
	if cfg.RemindersEnabled, err = boolEnv("REMINDERS_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.MaxReflectionsPerDay, err = intEnv("MAX_REFLECTIONS_PER_DAY", DefaultReflectionsCap); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the HTTP server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("Port:", c.Port)
	fmt.Println("Timezone:", c.Location.String())
	fmt.Println("ESV API:", c.ESVAPIURL, "key set:", c.ESVAPIKey != "")
	fmt.Println("API.Bible:", c.BibleAPIURL, "key set:", c.BibleAPIKey != "")
	fmt.Println("Translation cache TTL:", c.TranslationTTL)
	fmt.Println("Reminders enabled:", c.RemindersEnabled, "webhook set:", c.ReminderWebhookURL != "")
	fmt.Println("Reflection assistant:", c.HunyuanToken != "" || c.TencentSecretID != "")
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	return loc, errors.Wrapf(err, "APP_TIMEZONE %q", name)
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "%s", key)
	}
	return d, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "%s", key)
	}
	return f, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "%s", key)
	}
	return n, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrapf(err, "%s", key)
	}
	return b, nil
}
