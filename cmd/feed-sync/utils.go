package main

import (
	"os"
	"strings"

	"go.uber.org/zap"
)

const (
	defaultConfigPath   = "/app/feed_sync.yaml"
	defaultKeyDBURL     = "redis://keydb:6379"
	defaultKeyDBURLFile = "/app/.keydb-url"
	configPathEnv       = "FEED_SYNC_CONFIG"
	keydbURLFileEnv     = "FEED_SYNC_KEYDB_URL_FILE"
	apiTokenEnv         = "FEED_SYNC_TOKEN"
)

// GetConfigPath resolves the config file. The second result reports whether
// the path was chosen explicitly rather than defaulted.
func GetConfigPath(flagValue string) (string, bool) {
	if flagValue != "" {
		return flagValue, true
	}
	if path := os.Getenv(configPathEnv); path != "" {
		return path, true
	}
	return defaultConfigPath, false
}

// GetKeyDBURL returns KeyDB URL with the following priority:
// 1. KEYDB_URL environment variable
// 2. keydb.url from the config file
// 3. FEED_SYNC_KEYDB_URL_FILE file content
// 4. Default value
func GetKeyDBURL(configured string, logger *zap.Logger) string {
	if keydbURL := os.Getenv("KEYDB_URL"); keydbURL != "" {
		logger.Debug("Using KeyDB URL from environment variable")
		return keydbURL
	}

	if configured != "" {
		return configured
	}

	connectionFile := os.Getenv(keydbURLFileEnv)
	if connectionFile == "" {
		connectionFile = defaultKeyDBURLFile
	}

	if content := readTrimmed(connectionFile); content != "" {
		logger.Debug("Using KeyDB URL from connection file", zap.String("file", connectionFile))
		return content
	}

	logger.Debug("Using default KeyDB URL")
	return defaultKeyDBURL
}

// GetAPIToken returns the bearer token from FEED_SYNC_TOKEN or the token
// file. An empty result means requests go out unauthenticated.
func GetAPIToken(tokenFile string, logger *zap.Logger) string {
	if token := os.Getenv(apiTokenEnv); token != "" {
		logger.Debug("Using API token from environment variable")
		return token
	}
	if tokenFile == "" {
		return ""
	}

	token := readTrimmed(tokenFile)
	if token == "" {
		logger.Warn("API token file not found or empty", zap.String("file", tokenFile))
	}
	return token
}

func readTrimmed(path string) string {
	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(content))
}
