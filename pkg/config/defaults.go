// Package config provides centralized default values for leadtrack
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

// loadEnvFile applies .env overrides without clobbering variables already set
// in the process environment.
func loadEnvFile() {
	envLoaded.Do(func() {
		if err := godotenv.Load(); err != nil {
			return
		}
		log.Println("Loaded configuration overrides from .env file")
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

// getEnvSecret reads a value without echoing it to the log.
func getEnvSecret(key string) string {
	val := os.Getenv(key)
	if val != "" {
		log.Printf("Config override: %s=****", key)
	}
	return val
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	log.Printf("Config override: %s=%s", key, strings.Join(out, ","))
	return out
}

// Backend names accepted by STATE_BACKEND and LEAD_STORE_BACKEND.
const (
	BackendBadger   = "badger"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
	BackendTurso    = "turso"
	BackendDynamoDB = "dynamodb"
	BackendNone     = "none"
)

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	CORSAllowOrigins   []string

	// Tracker Semantics
	SessionTimeout     time.Duration
	ReturnVisitWindow  time.Duration
	TimelineCapacity   int
	LeadsCollection    string
	TrackerIdleTimeout time.Duration
	TrackerCleanup     time.Duration

	// Storage
	StateBackend     string
	StateDir         string
	LeadStoreBackend string
	SQLitePath       string
	TursoDatabaseURL string
	TursoAuthToken   string
	DynamoDBTable    string
	AWSRegion        string

	// Database Pool
	DBMaxOpenConns     int
	DBMaxIdleConns     int
	SlowQueryThreshold time.Duration

	// Admin & Notifications
	AdminToken      string
	ResendAPIKey    string
	LeadNotifyEmail string
	EmailFrom       string
	EmailFromName   string

	// Logging
	LogDirectory string
	LogToFile    bool
	LogJSON      bool
	LogLevel     string
	// LogChannelLevels holds "channel:level" overrides, e.g. "tracker:debug".
	LogChannelLevels []string
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	CORSAllowOrigins = getEnvList("CORS_ALLOW_ORIGINS", []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	})

	// Tracker Semantics
	SessionTimeout = time.Duration(getEnvInt("SESSION_TIMEOUT_MINUTES", 30)) * time.Minute
	ReturnVisitWindow = time.Duration(getEnvInt("RETURN_VISIT_WINDOW_MINUTES", 30)) * time.Minute
	TimelineCapacity = getEnvInt("TIMELINE_CAPACITY", 100)
	LeadsCollection = getEnvString("LEADS_COLLECTION", "leads")
	TrackerIdleTimeout = getEnvDuration("TRACKER_IDLE_TIMEOUT", 45*time.Minute)
	TrackerCleanup = getEnvDuration("TRACKER_CLEANUP_INTERVAL", 5*time.Minute)

	// Storage
	StateBackend = getEnvString("STATE_BACKEND", BackendBadger)
	StateDir = getEnvString("STATE_DIR", "data/state")
	LeadStoreBackend = getEnvString("LEAD_STORE_BACKEND", BackendSQLite)
	SQLitePath = getEnvString("SQLITE_PATH", "data/leadtrack.db")
	TursoDatabaseURL = getEnvString("TURSO_DATABASE_URL", "")
	TursoAuthToken = getEnvSecret("TURSO_AUTH_TOKEN")
	DynamoDBTable = getEnvString("DYNAMODB_TABLE", "leadtrack-leads")
	AWSRegion = getEnvString("AWS_REGION", "us-east-1")

	// Database Pool
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 500*time.Millisecond)

	// Admin & Notifications
	AdminToken = getEnvSecret("ADMIN_TOKEN")
	ResendAPIKey = getEnvSecret("RESEND_API_KEY")
	LeadNotifyEmail = getEnvString("LEAD_NOTIFY_EMAIL", "")
	EmailFrom = getEnvString("EMAIL_FROM", "noreply@leadtrack.local")
	EmailFromName = getEnvString("EMAIL_FROM_NAME", "Leadtrack")

	// Logging
	LogDirectory = getEnvString("LOG_DIRECTORY", "logs")
	LogToFile = getEnvBool("LOG_TO_FILE", false)
	LogJSON = getEnvBool("LOG_JSON", true)
	LogLevel = getEnvString("LOG_LEVEL", "info")
	LogChannelLevels = getEnvList("LOG_CHANNEL_LEVELS", nil)
}
