// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"zpexk-rewards/internal/domain"
	"zpexk-rewards/pkg/db" // Import db package for its Config struct
)

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	ServerPort string
	DB         db.Config

	// Redis backs the optional cross-process trade lock. An empty
	// address leaves market trades on the versioned write alone.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TasksFile points at the JSON task catalog. Empty means an empty
	// task wall.
	TasksFile string

	// PromosFile points at the JSON promo-code table. Empty means no
	// active promos.
	PromosFile string
}

// LoadConfig loads configuration from environment variables.
// It returns an AppConfig instance or an error if any required variable is missing or invalid.
func LoadConfig() (*AppConfig, error) {
	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080" // Default port
	}

	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost" // Default to localhost for local development
	}
	dbPortStr := os.Getenv("DB_PORT")
	if dbPortStr == "" {
		dbPortStr = "5432" // Default PostgreSQL port
	}
	dbPort, err := strconv.Atoi(dbPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	dbUser := os.Getenv("DB_USER")
	if dbUser == "" {
		dbUser = "user" // Default user for local development
	}
	dbPassword := os.Getenv("DB_PASSWORD")
	if dbPassword == "" {
		dbPassword = "password" // Default password for local development
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "zpexkdb" // Default database name for local development
	}
	dbSSLMode := os.Getenv("DB_SSLMODE")
	if dbSSLMode == "" {
		dbSSLMode = "disable" // Default to disable for local development
	}

	redisDB := 0
	if redisDBStr := os.Getenv("REDIS_DB"); redisDBStr != "" {
		redisDB, err = strconv.Atoi(redisDBStr)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
	}

	return &AppConfig{
		ServerPort: serverPort,
		DB: db.Config{
			Host:     dbHost,
			Port:     dbPort,
			User:     dbUser,
			Password: dbPassword,
			DBName:   dbName,
			SSLMode:  dbSSLMode,
		},
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		TasksFile:     os.Getenv("TASKS_FILE"),
		PromosFile:    os.Getenv("PROMOS_FILE"),
	}, nil
}

// LoadTaskCatalog reads the task-wall catalog from the configured JSON
// file. A missing path yields an empty catalog.
func LoadTaskCatalog(path string) ([]domain.Task, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task catalog %s: %w", path, err)
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse task catalog %s: %w", path, err)
	}
	return tasks, nil
}

// LoadPromoCatalog reads the promo-code table from the configured JSON
// file. A missing path yields no active promos.
func LoadPromoCatalog(path string) ([]domain.PromoCode, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read promo catalog %s: %w", path, err)
	}
	var promos []domain.PromoCode
	if err := json.Unmarshal(data, &promos); err != nil {
		return nil, fmt.Errorf("failed to parse promo catalog %s: %w", path, err)
	}
	return promos, nil
}
