// Package config provides configuration loading for the cochange application.
// It handles era policy settings, the GitHub token, the optional ClickHouse sink
// and other application settings from environment variables, a .env file and
// HashiCorp Vault.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	ch "github.com/MyCarrier-DevOps/goLibMyCarrier/clickhouse"
	"github.com/MyCarrier-DevOps/goLibMyCarrier/vault"
	"github.com/joho/godotenv"

	"github.com/MyCarrier-DevOps/cochange/internal/domain"
)

// Environment variable names.
const (
	// EnvLogLevel is the log level (debug, info, error).
	EnvLogLevel = "LOG_LEVEL"

	// EnvLogAppName is the application name for log context.
	EnvLogAppName = "LOG_APP_NAME"

	// EnvGitHubToken is a GitHub token used for API calls and clones.
	EnvGitHubToken = "GITHUB_TOKEN"

	// EnvClonePath is the directory batch runs clone into.
	EnvClonePath = "COCHANGE_CLONE_PATH"

	// EnvEraMinCommits is the number of commits an era must exceed before it may close.
	EnvEraMinCommits = "COCHANGE_ERA_MIN_COMMITS"

	// EnvEraMax caps the number of eras per repository.
	EnvEraMax = "COCHANGE_ERA_MAX"

	// EnvEraTopFiles is the size of the important-files set.
	EnvEraTopFiles = "COCHANGE_ERA_TOP_FILES"

	// EnvEraDeletionRatio is the share of important files whose deletion closes an era.
	EnvEraDeletionRatio = "COCHANGE_ERA_DELETION_RATIO"

	// EnvDetectRenames toggles rename detection in commit diffs.
	EnvDetectRenames = "COCHANGE_DETECT_RENAMES"

	// EnvClickHouseEnabled enables the ClickHouse graph sink.
	EnvClickHouseEnabled = "COCHANGE_CLICKHOUSE_ENABLED"

	// EnvClickHouseDatabase is the ClickHouse database of the graph sink.
	EnvClickHouseDatabase = "COCHANGE_CLICKHOUSE_DATABASE"

	// EnvVaultGitHubTokenPath is the path in Vault KV where the GitHub token is stored.
	// Supports "path#key" syntax; the key defaults to DefaultSecretKey.
	EnvVaultGitHubTokenPath = "VAULT_GITHUB_TOKEN_PATH"

	// EnvVaultGitHubTokenMount is the Vault KV mount point (defaults to "secret").
	EnvVaultGitHubTokenMount = "VAULT_GITHUB_TOKEN_MOUNT"
)

// Default values.
const (
	DefaultLogLevel           = "info"
	DefaultLogAppName         = "cochange"
	DefaultClickHouseDatabase = "analytics"
	DefaultVaultMount         = "secret"
	DefaultSecretKey          = "token"
	DefaultEnvFile            = ".env"
)

// Configuration errors.
var (
	// ErrInvalidPolicy indicates an era policy setting is not a valid number or out of range.
	ErrInvalidPolicy = errors.New("invalid era policy setting")

	// ErrInvalidSetting indicates a non-policy setting could not be parsed.
	ErrInvalidSetting = errors.New("invalid configuration setting")

	// ErrVaultClientFailed indicates failure to create or authenticate with Vault.
	ErrVaultClientFailed = errors.New("failed to create Vault client")

	// ErrVaultSecretNotFound indicates the secret was not found in Vault.
	ErrVaultSecretNotFound = errors.New("GitHub token not found in Vault")
)

// VaultClient defines the interface for Vault operations.
// This interface allows for dependency injection and testing.
type VaultClient interface {
	// GetKVSecret retrieves a secret from Vault's KV v2 secrets engine.
	GetKVSecret(ctx context.Context, path, mount string) (map[string]interface{}, error)
}

// VaultClientFactory creates a VaultClient using AppRole authentication.
// This is the default factory used in production.
type VaultClientFactory func(ctx context.Context) (VaultClient, error)

// DefaultVaultClientFactory creates a VaultClient using goLibMyCarrier/vault with AppRole auth.
func DefaultVaultClientFactory(ctx context.Context) (VaultClient, error) {
	// Uses: VAULT_ADDRESS, VAULT_ROLE_ID, VAULT_SECRET_ID
	vaultConfig, err := vault.VaultLoadConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultClientFailed, err)
	}

	client, err := vault.CreateVaultClient(ctx, vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultClientFailed, err)
	}

	return client, nil
}

// Config holds all application configuration.
type Config struct {
	// Policy holds the era segmentation constants.
	Policy domain.EraPolicy

	// DetectRenames enables rename detection in commit diffs.
	DetectRenames bool

	// ClonePath is where batch runs clone each repository.
	ClonePath string

	// GitHubToken authenticates API calls and clones. May be empty.
	GitHubToken string

	// ClickHouseEnabled turns on the ClickHouse graph sink.
	ClickHouseEnabled bool

	// ClickHouse holds the connection configuration; nil unless the sink is enabled.
	ClickHouse *ch.ClickhouseConfig

	// Database is the ClickHouse database of the graph sink.
	Database string

	// LogLevel is the logging level (debug, info, error).
	LogLevel string

	// LogAppName is the application name for log context.
	LogAppName string
}

// Load loads the application configuration from a .env file (when present),
// environment variables and Vault.
//
// The GitHub token is read from GITHUB_TOKEN, or from Vault when
// VAULT_GITHUB_TOKEN_PATH is set (with VAULT_ADDRESS, VAULT_ROLE_ID, VAULT_SECRET_ID).
func Load() (*Config, error) {
	if err := LoadEnvFile(DefaultEnvFile); err != nil {
		return nil, err
	}
	return LoadWithVaultClient(context.Background(), nil)
}

// LoadEnvFile copies the variables of path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: failed to read %s: %w", ErrInvalidSetting, path, err)
	}
	return nil
}

// LoadWithVaultClient loads configuration using the provided VaultClient factory.
// If vaultClientFactory is nil, DefaultVaultClientFactory is used.
// This function enables dependency injection for testing.
func LoadWithVaultClient(ctx context.Context, vaultClientFactory VaultClientFactory) (*Config, error) {
	policy, err := loadPolicy()
	if err != nil {
		return nil, err
	}

	detectRenames, err := boolEnv(EnvDetectRenames, true)
	if err != nil {
		return nil, err
	}

	chEnabled, err := boolEnv(EnvClickHouseEnabled, false)
	if err != nil {
		return nil, err
	}

	var chConfig *ch.ClickhouseConfig
	if chEnabled {
		chConfig, err = ch.ClickhouseLoadConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load ClickHouse config: %w", err)
		}
	}

	token, err := loadGitHubToken(ctx, vaultClientFactory)
	if err != nil {
		return nil, err
	}

	return &Config{
		Policy:            policy,
		DetectRenames:     detectRenames,
		ClonePath:         stringEnv(EnvClonePath, domain.DefaultClonePath),
		GitHubToken:       token,
		ClickHouseEnabled: chEnabled,
		ClickHouse:        chConfig,
		Database:          stringEnv(EnvClickHouseDatabase, DefaultClickHouseDatabase),
		LogLevel:          stringEnv(EnvLogLevel, DefaultLogLevel),
		LogAppName:        stringEnv(EnvLogAppName, DefaultLogAppName),
	}, nil
}

// loadPolicy reads the era policy overrides on top of the defaults.
func loadPolicy() (domain.EraPolicy, error) {
	policy := domain.DefaultEraPolicy()

	var err error
	if policy.MinEraCommits, err = intEnv(EnvEraMinCommits, policy.MinEraCommits, 0); err != nil {
		return policy, err
	}
	if policy.MaxEras, err = intEnv(EnvEraMax, policy.MaxEras, 1); err != nil {
		return policy, err
	}
	if policy.TopFiles, err = intEnv(EnvEraTopFiles, policy.TopFiles, 1); err != nil {
		return policy, err
	}

	if raw := strings.TrimSpace(os.Getenv(EnvEraDeletionRatio)); raw != "" {
		ratio, perr := strconv.ParseFloat(raw, 64)
		if perr != nil || ratio <= 0 || ratio > 1 {
			return policy, fmt.Errorf("%w: %s=%q must be a number in (0, 1]", ErrInvalidPolicy, EnvEraDeletionRatio, raw)
		}
		policy.DeletionRatio = ratio
	}

	return policy, nil
}

func intEnv(key string, def, minimum int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < minimum {
		return 0, fmt.Errorf("%w: %s=%q must be an integer >= %d", ErrInvalidPolicy, key, raw, minimum)
	}
	return v, nil
}

func boolEnv(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidSetting, key, raw)
	}
	return v, nil
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// loadGitHubToken prefers GITHUB_TOKEN and falls back to Vault when a path is configured.
func loadGitHubToken(ctx context.Context, vaultClientFactory VaultClientFactory) (string, error) {
	if token := strings.TrimSpace(os.Getenv(EnvGitHubToken)); token != "" {
		return token, nil
	}

	fullPath := os.Getenv(EnvVaultGitHubTokenPath)
	if fullPath == "" {
		return "", nil
	}

	if vaultClientFactory == nil {
		vaultClientFactory = DefaultVaultClientFactory
	}
	client, err := vaultClientFactory(ctx)
	if err != nil {
		return "", err
	}

	mount := stringEnv(EnvVaultGitHubTokenMount, DefaultVaultMount)
	path, key := parseVaultPath(fullPath)

	secretData, err := client.GetKVSecret(ctx, path, mount)
	if err != nil {
		return "", fmt.Errorf("%w at path %s: %w", ErrVaultSecretNotFound, path, err)
	}

	token, ok := secretData[key].(string)
	if !ok || token == "" {
		return "", fmt.Errorf("%w: key %q missing at path %s", ErrVaultSecretNotFound, key, path)
	}
	return token, nil
}

// parseVaultPath splits "path#key" into its path and key.
// Without a '#' the key defaults to DefaultSecretKey. The last '#' separates the key.
func parseVaultPath(fullPath string) (path, key string) {
	idx := strings.LastIndex(fullPath, "#")
	if idx < 0 {
		return fullPath, DefaultSecretKey
	}
	return fullPath[:idx], fullPath[idx+1:]
}
