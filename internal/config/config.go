package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	_ "time/tzdata" // zone database for minimal images
)

// Supported values of DB_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations and costs.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBDriver       string // "mysql" or "sqlite"
	DBUser         string // database username (mysql)
	DBPass         string // database password (optional)
	DBHost         string // database host address (mysql)
	DBPort         string // database port number (mysql)
	DBName         string // database name (mysql)
	SQLitePath     string // database file (sqlite)
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time‑to‑live in minutes
	RefreshTTLDays int    // refresh token time‑to‑live in days
	BcryptCost     int    // bcrypt cost for password hashing
	Timezone       string // IANA zone that defines "today" for the team
	ElevatedGroups string // comma separated resource groups allowed to validate any check-in
	AMQPURL        string // RabbitMQ URL; empty keeps notifications in-process
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  The MySQL settings
// are only required when DB_DRIVER is mysql.
func Load() Config {
	cfg := Config{
		Env:            must("APP_ENV"),                       // environment (dev/test/prod)
		Port:           must("APP_PORT"),                      // port to bind the HTTP server
		DBDriver:       strings.ToLower(getenv("DB_DRIVER", DriverMySQL)),
		DBPass:         os.Getenv("DB_PASS"),                  // database password (empty allowed)
		JWTSecret:      must("JWT_SECRET"),                    // secret used for signing JWTs
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),       // TTL for access tokens in minutes
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),     // TTL for refresh tokens in days
		BcryptCost:     mustInt("BCRYPT_COST"),                // bcrypt cost factor
		Timezone:       getenv("APP_TIMEZONE", "UTC"),         // team timezone
		ElevatedGroups: getenv("ELEVATED_GROUPS", "head,lead"), // senior validators
		AMQPURL:        amqpURL(),                             // broker, optional
	}
	switch cfg.DBDriver {
	case DriverMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case DriverSQLite:
		cfg.SQLitePath = getenv("SQLITE_PATH", "presence.db")
	default:
		log.Fatalf("unsupported DB_DRIVER: %q", cfg.DBDriver)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		log.Fatalf("invalid APP_TIMEZONE %q: %v", cfg.Timezone, err)
	}
	return cfg
}

// Location resolves Timezone.  Load has already validated it, so a
// failure here falls back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
