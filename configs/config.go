package configs

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort   int
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBNameTest string
	RedisHost  string
	RedisPort  int

	// JWTSecret signs session tokens; it is process-wide configuration,
	// never hardcoded in handlers.
	JWTSecret string

	// CORSOrigins is the comma-separated allow-list of frontend origins.
	CORSOrigins string

	// Superadmin seed account, created at startup if missing. The register
	// endpoint never produces this role.
	SuperadminName     string
	SuperadminEmail    string
	SuperadminPassword string
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		// Only log when not running tests
		if os.Getenv("GO_ENV") != "test" {
			log.Println("No .env file found, using default values")
		}
	}

	httpPort, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		httpPort = 3004
	}

	dbPort, err := strconv.Atoi(os.Getenv("DB_PORT"))
	if err != nil {
		dbPort = 5432
	}

	redisPort, err := strconv.Atoi(os.Getenv("REDIS_PORT"))
	if err != nil {
		redisPort = 6379
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "secret"
	}

	origins := os.Getenv("CORS_ORIGINS")
	if origins == "" {
		origins = "http://localhost:5173,https://prime-trade-six.vercel.app"
	}

	return Config{
		HTTPPort:           httpPort,
		DBHost:             os.Getenv("DB_HOST"),
		DBPort:             dbPort,
		DBUser:             os.Getenv("DB_USER"),
		DBPassword:         os.Getenv("DB_PASSWORD"),
		DBName:             os.Getenv("DB_NAME"),
		DBNameTest:         os.Getenv("DB_NAME_TEST"),
		RedisHost:          os.Getenv("REDIS_HOST"),
		RedisPort:          redisPort,
		JWTSecret:          secret,
		CORSOrigins:        origins,
		SuperadminName:     os.Getenv("SUPERADMIN_NAME"),
		SuperadminEmail:    os.Getenv("SUPERADMIN_EMAIL"),
		SuperadminPassword: os.Getenv("SUPERADMIN_PASSWORD"),
	}
}
