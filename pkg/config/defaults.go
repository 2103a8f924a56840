// Package config provides centralized default values for CanvasFlow
package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		if err := godotenv.Load(); err != nil {
			return
		}
		log.Println("Loading configuration overrides from .env file...")
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

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Board Management
	MaxBoards    int
	BoardTimeout time.Duration

	// Media / Compositor
	MediaBasePath  string
	RenderQuality  int
	CompositorTime time.Duration

	// Database
	DBDriver                 string
	DBURL                    string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	SlowQueryThreshold       time.Duration

	// SSE / WebSocket
	SSEHeartbeatIntervalSeconds int
	MaxStreamConnections        int

	// Cleanup
	CleanupInterval        time.Duration
	CleanupVerboseReports  bool
	RenderCacheTTL         time.Duration
	PublishedResultMaxKeep int

	// Auth
	JWTSecret         string
	AdminPasswordHash string
	TokenTTL          time.Duration

	// Email
	EmailFrom     string
	EmailFromName string

	// Logging
	LogDirectory string
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Board Management
	MaxBoards = getEnvInt("MAX_BOARDS", 25)
	BoardTimeout = time.Duration(getEnvInt("BOARD_TIMEOUT_HOURS", 4)) * time.Hour

	// Media / Compositor
	MediaBasePath = getEnvString("MEDIA_BASE_PATH", "media")
	RenderQuality = getEnvInt("RENDER_QUALITY", 90)
	CompositorTime = getEnvDuration("COMPOSITOR_TIMEOUT", 30*time.Second)

	// Database
	DBDriver = getEnvString("DB_DRIVER", "sqlite3")
	DBURL = getEnvString("DB_URL", "canvasflow.db")
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 50*time.Millisecond)

	// SSE / WebSocket
	SSEHeartbeatIntervalSeconds = getEnvInt("SSE_HEARTBEAT_INTERVAL_SECONDS", 30)
	MaxStreamConnections = getEnvInt("MAX_STREAM_CONNECTIONS", 3)

	// Cleanup
	CleanupInterval = time.Duration(getEnvInt("CACHE_CLEANUP_INTERVAL_MINUTES", 30)) * time.Minute
	CleanupVerboseReports = getEnvBool("CACHE_CLEANUP_VERBOSE", false)
	RenderCacheTTL = time.Duration(getEnvInt("RENDER_CACHE_TTL_HOURS", 24)) * time.Hour
	PublishedResultMaxKeep = getEnvInt("PUBLISHED_RESULT_MAX_KEEP", 500)

	// Auth
	JWTSecret = getEnvString("JWT_SECRET", "")
	AdminPasswordHash = getEnvString("ADMIN_PASSWORD_HASH", "")
	TokenTTL = time.Duration(getEnvInt("TOKEN_TTL_HOURS", 24)) * time.Hour

	// Email
	EmailFrom = getEnvString("SHARE_EMAIL_FROM", "noreply@canvasflow.app")
	EmailFromName = getEnvString("SHARE_EMAIL_FROM_NAME", "CanvasFlow")

	// Logging
	LogDirectory = getEnvString("LOG_DIRECTORY", "logs")
}
