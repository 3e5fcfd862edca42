package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tinypal/internal/store"
)

// Files read by Load, in order. Variables already set in the process win.
var DefaultFiles = []string{"tinypal.env", ".env"}

const (
	EngineSQLite = store.EngineSQLite
	EngineJSON   = store.EngineJSON

	LogFormatText = "text"
	LogFormatJSON = "json"
)

type Config struct {
	ListenHost string
	ListenPort int

	APIBaseURL string
	APITimeout time.Duration
	ModuleID   string
	Topic      string
	ParentID   string
	ChildID    string

	StoreEngine string
	DataFile    string
	LogFormat   string

	COSSecretID   string
	COSSecretKey  string
	COSRegion     string
	COSBucketName string
}

// Load reads the env files that exist and builds a Config from the environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = DefaultFiles
	}
	for _, path := range files {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return Config{}, err
		}
		if err := godotenv.Load(path); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	host, port := ParseListenAddr(envOrDefault("TINYPAL_ADDR", ":8080"))
	if port <= 0 {
		port = 8080
	}
	host = strings.TrimSpace(envOrDefault("TINYPAL_HOST", host))
	port = parseEnvInt("TINYPAL_PORT", port)

	engine := strings.ToLower(strings.TrimSpace(envOrDefault("TINYPAL_STORE", EngineSQLite)))
	logFormat := strings.ToLower(strings.TrimSpace(envOrDefault("TINYPAL_LOG_FORMAT", LogFormatText)))

	return Config{
		ListenHost:    host,
		ListenPort:    port,
		APIBaseURL:    envOrDefault("TINYPAL_API_BASE_URL", "https://genai-images-4ea9c0ca90c8.herokuapp.com"),
		APITimeout:    time.Duration(parseEnvInt("TINYPAL_API_TIMEOUT_SECONDS", 10)) * time.Second,
		ModuleID:      envOrDefault("TINYPAL_MODULE_ID", "1"),
		Topic:         envOrDefault("TINYPAL_TOPIC", "nutrition_impacts_mood"),
		ParentID:      envOrDefault("TINYPAL_PARENT_ID", "EXAMPLEPARENT"),
		ChildID:       envOrDefault("TINYPAL_CHILD_ID", "EXAMPLECHILD"),
		StoreEngine:   engine,
		DataFile:      envOrDefault("TINYPAL_DATA_FILE", store.DefaultPath(engine)),
		LogFormat:     logFormat,
		COSSecretID:   strings.TrimSpace(os.Getenv("TINYPAL_COS_SECRET_ID")),
		COSSecretKey:  strings.TrimSpace(os.Getenv("TINYPAL_COS_SECRET_KEY")),
		COSRegion:     envOrDefault("TINYPAL_COS_REGION", "ap-hongkong"),
		COSBucketName: strings.TrimSpace(os.Getenv("TINYPAL_COS_BUCKET_NAME")),
	}
}

func (c Config) ListenAddr() string {
	return JoinListenAddr(c.ListenHost, c.ListenPort)
}

// NewLogger builds the process logger for the configured format.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	if c.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, nil))
	}
	return slog.New(slog.NewTextHandler(w, nil))
}

// LogValue keeps secrets out of startup logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("listen", c.ListenAddr()),
		slog.String("api_base_url", c.APIBaseURL),
		slog.Duration("api_timeout", c.APITimeout),
		slog.String("module_id", c.ModuleID),
		slog.String("topic", c.Topic),
		slog.String("store", c.StoreEngine),
		slog.String("data_file", c.DataFile),
		slog.String("cos_bucket", c.COSBucketName),
		slog.String("cos_secret_id", SafeKeyMeta(c.COSSecretID)),
		slog.String("cos_secret_key", SafeKeyMeta(c.COSSecretKey)),
	)
}

func ParseListenAddr(addr string) (string, int) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", 0
	}
	if strings.HasPrefix(addr, ":") {
		return "", parseIntValue(strings.TrimPrefix(addr, ":"), 0)
	}
	if host, port, err := net.SplitHostPort(addr); err == nil {
		return host, parseIntValue(port, 0)
	}
	if portOnly := parseIntValue(addr, 0); portOnly > 0 {
		return "", portOnly
	}
	return addr, 0
}

func JoinListenAddr(host string, port int) string {
	if port <= 0 {
		port = 8080
	}
	if host == "" {
		return fmt.Sprintf(":%d", port)
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func SafeKeyMeta(key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "empty=true"
	}
	hasQuotes := (strings.HasPrefix(trimmed, "\"") && strings.HasSuffix(trimmed, "\"")) ||
		(strings.HasPrefix(trimmed, "'") && strings.HasSuffix(trimmed, "'"))
	return fmt.Sprintf(
		"empty=false,len=%d,has_quotes=%t,has_whitespace=%t",
		len(trimmed),
		hasQuotes,
		strings.Contains(trimmed, " "),
	)
}

func envOrDefault(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func parseEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	return parseIntValue(raw, fallback)
}

func parseIntValue(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}
