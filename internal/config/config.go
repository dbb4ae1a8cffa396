package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"inbox-engine/internal/models"
)

// Config holds everything the engine needs from the environment.
type Config struct {
	APIBaseURL string
	WSURL      string
	AuthToken  string

	UserID string
	Role   models.Role

	PageSize  int
	UndoGrace time.Duration
	ToastTTL  time.Duration

	AMQPURL      string
	AMQPExchange string
	OTLPEndpoint string
	Environment  string

	DebugAddr      string
	DebugEndpoints bool
}

// Load reads configuration from the environment, with a best-effort .env load.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		WSURL:      getEnv("WS_URL", "ws://localhost:8080/ws/inbox"),
		AuthToken:  os.Getenv("AUTH_TOKEN"),

		UserID: os.Getenv("USER_ID"),
		Role:   models.Role(getEnv("USER_ROLE", string(models.RoleHousehold))),

		PageSize:  getEnvInt("PAGE_SIZE", 20),
		UndoGrace: getEnvDuration("UNDO_GRACE", 7*time.Second),
		ToastTTL:  getEnvDuration("TOAST_TTL", 5*time.Second),

		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "inbox.audit"),
		OTLPEndpoint: os.Getenv("OTLP_ENDPOINT"),
		Environment:  getEnv("ENV", "development"),

		DebugAddr:      getEnv("DEBUG_ADDR", "localhost:9093"),
		DebugEndpoints: getEnvBool("DEBUG_ENDPOINTS", false),
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return d
}
