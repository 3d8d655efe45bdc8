package config

import (
	"encoding/json"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	ServerAddress string   `json:"serverAddress"`
	DatabasePath  string   `json:"databasePath"`
	DatabaseURL   string   `json:"databaseUrl"`
	Board         Board    `json:"board"`
	Sync          Sync     `json:"sync"`
	Webhook       Webhook  `json:"webhook"`
	Security      Security `json:"security"`
}

// Board configuration for the external board API
type Board struct {
	Endpoint         string `json:"endpoint"`
	APIKey           string `json:"apiKey"`
	WorkItemBoardID  string `json:"workItemBoardId"`
	StaffBoardID     string `json:"staffBoardId"`
	OwnerEmailColumn string `json:"ownerEmailColumn"`
	PageSize         int    `json:"pageSize"`
	PageDelayMs      int    `json:"pageDelayMs"`
}

// Sync configuration for background runs
type Sync struct {
	ChunkSize     int `json:"chunkSize"`
	UpdateWorkers int `json:"updateWorkers"`
}

// Webhook configuration
type Webhook struct {
	Secret string `json:"secret"`
}

// Security configuration
type Security struct {
	APIKey       string `json:"apiKey"`
	APIKeyHeader string `json:"apiKeyHeader"`
}

// UsePostgres returns true if PostgreSQL should be used
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		ServerAddress: ":5000",
		DatabasePath:  "boardsync.db",
		Board: Board{
			OwnerEmailColumn: "email5__1",
			PageSize:         100,
			PageDelayMs:      500,
		},
		Sync: Sync{
			ChunkSize:     100,
			UpdateWorkers: 5,
		},
		Security: Security{
			APIKey:       "CHANGE_THIS_TO_A_SECURE_API_KEY_AT_LEAST_32_CHARS",
			APIKeyHeader: "X-API-Key",
		},
	}
}

// Load loads configuration from file or environment
func Load() (*Config, error) {
	cfg := defaultConfig()

	// Try to load from config file
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override from environment variables
	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		cfg.ServerAddress = addr
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if endpoint := os.Getenv("BOARD_API_ENDPOINT"); endpoint != "" {
		cfg.Board.Endpoint = endpoint
	}
	if key := os.Getenv("BOARD_API_KEY"); key != "" {
		cfg.Board.APIKey = key
	}
	if id := os.Getenv("BOARD_WORK_ITEM_BOARD_ID"); id != "" {
		cfg.Board.WorkItemBoardID = id
	}
	if id := os.Getenv("BOARD_STAFF_BOARD_ID"); id != "" {
		cfg.Board.StaffBoardID = id
	}
	if col := os.Getenv("BOARD_OWNER_EMAIL_COLUMN"); col != "" {
		cfg.Board.OwnerEmailColumn = col
	}
	if size := os.Getenv("SYNC_CHUNK_SIZE"); size != "" {
		if n, err := strconv.Atoi(size); err == nil && n > 0 {
			cfg.Sync.ChunkSize = n
		}
	}
	if workers := os.Getenv("SYNC_UPDATE_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			cfg.Sync.UpdateWorkers = n
		}
	}
	if secret := os.Getenv("WEBHOOK_SECRET"); secret != "" {
		cfg.Webhook.Secret = secret
	}
	if apiKey := os.Getenv("API_KEY"); apiKey != "" {
		cfg.Security.APIKey = apiKey
	}

	return cfg, nil
}
