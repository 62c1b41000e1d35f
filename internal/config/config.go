package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"

	// DevTokenSecret is the signing secret used when ACCESS_TOKEN_SECRET is unset.
	DevTokenSecret = "dev-access-token-secret"
)

type Config struct {
	Addr        string
	Store       string
	DBPath      string
	MongoURI    string
	MongoDB     string
	TokenSecret string
	TokenTTL    time.Duration
	PaymentKey  string
	CORSOrigins []string
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Only enable it behind a proxy that overwrites those headers.
	TrustProxy  bool
	RateLimits  RateLimits
	LogLevel    string
	LogFormat   string
}

type RateLimits struct {
	WritePerMinute int
}

// Load reads the environment, after merging a .env file from the working
// directory when one exists. Variables already set win over the file.
func Load() Config {
	_ = godotenv.Load()

	addr := envString("BLOGS_ADDR", "")
	if addr == "" {
		addr = ":" + envString("PORT", "5000")
	}
	cfg := Config{
		Addr:        addr,
		Store:       strings.ToLower(envString("BLOGS_STORE", StoreSQLite)),
		DBPath:      envString("BLOGS_DB", "blogs.db"),
		MongoURI:    envString("MONGO_URI", mongoURI(os.Getenv("DB_USER"), os.Getenv("DB_PASS"))),
		MongoDB:     envString("MONGO_DB", "blogsOnlineDb"),
		TokenSecret: envString("ACCESS_TOKEN_SECRET", DevTokenSecret),
		TokenTTL:    envDuration("BLOGS_TOKEN_TTL", 0),
		PaymentKey:  os.Getenv("PAYMENT_SECRET_KEY"),
		CORSOrigins: envList("BLOGS_CORS_ORIGINS", []string{"*"}),
		TrustProxy:  envBool("BLOGS_TRUST_PROXY", false),
		RateLimits: RateLimits{
			WritePerMinute: envInt("BLOGS_RL_WRITE_PER_MIN", 60),
		},
		LogLevel:  envString("BLOGS_LOG_LEVEL", "info"),
		LogFormat: envString("BLOGS_LOG_FORMAT", "text"),
	}

	return cfg
}

func mongoURI(user, pass string) string {
	if user == "" {
		return "mongodb://localhost:27017"
	}
	return fmt.Sprintf("mongodb+srv://%s:%s@cluster0.faeap.mongodb.net/?retryWrites=true&w=majority&appName=Cluster0",
		url.QueryEscape(user), url.QueryEscape(pass))
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
