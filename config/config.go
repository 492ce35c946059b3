package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/ddr4869/fabricsim/common/logger"
	"github.com/pkg/errors"
)

type ServerConfig struct {
	Address        string
	ProfilePath    string
	EventQueueSize int
}

type LedgerConfig struct {
	// Number of leading zero characters a sealed block hash must carry
	Difficulty int
}

type LogConfig struct {
	Level       string
	Development bool
}

type Config struct {
	Server *ServerConfig
	Ledger *LedgerConfig
	Log    *LogConfig
}

// Load reads configuration from the environment, loading a .env file first if
// one is present next to the binary or under config/
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		logger.Debugf("no .env file loaded: %v", err)
	}

	difficulty, err := getEnvIntOrDefault("LEDGER_DIFFICULTY", 2)
	if err != nil {
		return nil, errors.Wrap(err, "invalid LEDGER_DIFFICULTY")
	}

	queueSize, err := getEnvIntOrDefault("EVENT_QUEUE_SIZE", 64)
	if err != nil {
		return nil, errors.Wrap(err, "invalid EVENT_QUEUE_SIZE")
	}

	config := &Config{
		Server: &ServerConfig{
			Address:        getEnvOrDefault("SERVER_ADDRESS", ":4000"),
			ProfilePath:    getEnvOrDefault("NETWORK_PROFILE", ""),
			EventQueueSize: queueSize,
		},
		Ledger: &LedgerConfig{
			Difficulty: difficulty,
		},
		Log: &LogConfig{
			Level:       getEnvOrDefault("LOG_LEVEL", "info"),
			Development: getEnvBoolOrDefault("LOG_DEVELOPMENT", false),
		},
	}

	return config, nil
}

// loadEnvFile loads KEY=VALUE pairs from the first .env file found
func loadEnvFile() error {
	possiblePaths := []string{
		"config/.env",
		".env",
		"../config/.env",
	}

	var envPath string
	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			envPath = path
			break
		}
	}

	if envPath == "" {
		return errors.New("no .env file found")
	}

	file, err := os.Open(envPath)
	if err != nil {
		return errors.Wrapf(err, "failed to open .env file: %s", envPath)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
			value = value[1 : len(value)-1]
		}

		os.Setenv(key, value)
	}

	return scanner.Err()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(value)
}

func (c *Config) PrintConfig() {
	logger.Infof("=== Configuration ===")
	logger.Infof(" > Server Address: %s", c.Server.Address)
	logger.Infof(" > Network Profile: %s", c.Server.ProfilePath)
	logger.Infof(" > Event Queue Size: %d", c.Server.EventQueueSize)
	logger.Infof(" > Mining Difficulty: %d", c.Ledger.Difficulty)
	logger.Infof(" > Log Level: %s", c.Log.Level)
}
