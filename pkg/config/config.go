package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/doodlesbykumbi/scanstore/pkg/report"
)

const (
	DefaultConfigPath = "/etc/scanstore/config"
	ConfigFileName    = "scanstore.yml"

	// FeatureFindingSignatures enables tracking signature based identity.
	FeatureFindingSignatures = "vulnerability_finding_signatures"
)

// ScanstoreConfig holds all scanstore configuration settings
type ScanstoreConfig struct {
	// DatabaseURL is the PostgreSQL connection URL
	DatabaseURL string `yaml:"database_url" json:"database_url"`

	// LicensedFeatures lists the enabled features. Report type names enable
	// vulnerability ingestion for that report type.
	LicensedFeatures []string `yaml:"licensed_features" json:"licensed_features"`

	// UUIDNamespace is the UUIDv5 namespace of finding UUIDs
	UUIDNamespace string `yaml:"uuid_namespace" json:"uuid_namespace"`

	FindingsBatchSize        int   `yaml:"findings_batch_size" json:"findings_batch_size"`
	FindingsPartitionMaxRows int64 `yaml:"findings_partition_max_rows" json:"findings_partition_max_rows"`

	// ScanRetentionDays is how long scans are kept before they are purged
	ScanRetentionDays int `yaml:"scan_retention_days" json:"scan_retention_days"`

	TokenRevocationEnabled bool   `yaml:"token_revocation_enabled" json:"token_revocation_enabled"`
	TokenRevocationURL     string `yaml:"token_revocation_url" json:"token_revocation_url"`
	TokenRevocationToken   string `yaml:"token_revocation_token" json:"-"`

	// WorkerCount is the number of background worker goroutines
	WorkerCount int `yaml:"worker_count" json:"worker_count"`

	// JWTSecret signs API bearer tokens
	JWTSecret string `yaml:"jwt_secret" json:"-"`

	MetricsEnabled bool `yaml:"metrics_enabled" json:"metrics_enabled"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Global singleton config
var (
	globalConfig *ScanstoreConfig
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary
func Get() *ScanstoreConfig {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			// Return defaults on error
			globalConfig = newDefault()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment
func Reload() error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return nil
}

// Set replaces the global configuration. Used by tests and the CLI.
func Set(cfg *ScanstoreConfig) {
	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
}

// Default returns a config with default values
func Default() *ScanstoreConfig {
	return newDefault()
}

func newDefault() *ScanstoreConfig {
	features := []string{FeatureFindingSignatures}
	for _, t := range report.ReportTypes() {
		features = append(features, t.String())
	}
	return &ScanstoreConfig{
		LicensedFeatures:         features,
		UUIDNamespace:            report.DefaultNamespace.String(),
		FindingsBatchSize:        100,
		FindingsPartitionMaxRows: 10_000_000,
		ScanRetentionDays:        90,
		WorkerCount:              4,
		MetricsEnabled:           true,
		sources:                  make(map[string]string),
	}
}

// Load loads configuration from file and environment variables.
// Environment variables take precedence over file values. A .env file in
// the working directory is loaded first when present.
func Load() (*ScanstoreConfig, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	config := newDefault()

	for _, name := range attributeNames() {
		config.sources[name] = "default"
	}

	configPath := os.Getenv("SCANSTORE_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var fileConfig ScanstoreConfig
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&fileConfig)
	}

	config.applyEnvConfig()

	return config, nil
}

func attributeNames() []string {
	return []string{
		"database_url", "licensed_features", "uuid_namespace",
		"findings_batch_size", "findings_partition_max_rows", "scan_retention_days",
		"token_revocation_enabled", "token_revocation_url", "token_revocation_token",
		"worker_count", "jwt_secret", "metrics_enabled",
	}
}

func (c *ScanstoreConfig) applyFileConfig(file *ScanstoreConfig) {
	if file.DatabaseURL != "" {
		c.DatabaseURL = file.DatabaseURL
		c.sources["database_url"] = "file"
	}
	if len(file.LicensedFeatures) > 0 {
		c.LicensedFeatures = file.LicensedFeatures
		c.sources["licensed_features"] = "file"
	}
	if file.UUIDNamespace != "" {
		c.UUIDNamespace = file.UUIDNamespace
		c.sources["uuid_namespace"] = "file"
	}
	if file.FindingsBatchSize != 0 {
		c.FindingsBatchSize = file.FindingsBatchSize
		c.sources["findings_batch_size"] = "file"
	}
	if file.FindingsPartitionMaxRows != 0 {
		c.FindingsPartitionMaxRows = file.FindingsPartitionMaxRows
		c.sources["findings_partition_max_rows"] = "file"
	}
	if file.ScanRetentionDays != 0 {
		c.ScanRetentionDays = file.ScanRetentionDays
		c.sources["scan_retention_days"] = "file"
	}
	if file.TokenRevocationEnabled {
		c.TokenRevocationEnabled = true
		c.sources["token_revocation_enabled"] = "file"
	}
	if file.TokenRevocationURL != "" {
		c.TokenRevocationURL = file.TokenRevocationURL
		c.sources["token_revocation_url"] = "file"
	}
	if file.TokenRevocationToken != "" {
		c.TokenRevocationToken = file.TokenRevocationToken
		c.sources["token_revocation_token"] = "file"
	}
	if file.WorkerCount != 0 {
		c.WorkerCount = file.WorkerCount
		c.sources["worker_count"] = "file"
	}
	if file.JWTSecret != "" {
		c.JWTSecret = file.JWTSecret
		c.sources["jwt_secret"] = "file"
	}
}

func (c *ScanstoreConfig) applyEnvConfig() {
	if val := firstEnv("SCANSTORE_DATABASE_URL", "DATABASE_URL"); val != "" {
		c.DatabaseURL = val
		c.sources["database_url"] = "environment"
	}
	if val := os.Getenv("SCANSTORE_LICENSED_FEATURES"); val != "" {
		c.LicensedFeatures = splitAndTrim(val)
		c.sources["licensed_features"] = "environment"
	}
	if val := os.Getenv("SCANSTORE_UUID_NAMESPACE"); val != "" {
		c.UUIDNamespace = val
		c.sources["uuid_namespace"] = "environment"
	}
	if val := os.Getenv("SCANSTORE_FINDINGS_BATCH_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.FindingsBatchSize = i
			c.sources["findings_batch_size"] = "environment"
		}
	}
	if val := os.Getenv("SCANSTORE_FINDINGS_PARTITION_MAX_ROWS"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.FindingsPartitionMaxRows = i
			c.sources["findings_partition_max_rows"] = "environment"
		}
	}
	if val := os.Getenv("SCANSTORE_SCAN_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.ScanRetentionDays = i
			c.sources["scan_retention_days"] = "environment"
		}
	}
	if val := os.Getenv("SCANSTORE_TOKEN_REVOCATION_ENABLED"); val != "" {
		c.TokenRevocationEnabled = val == "true" || val == "1"
		c.sources["token_revocation_enabled"] = "environment"
	}
	if val := os.Getenv("SCANSTORE_TOKEN_REVOCATION_URL"); val != "" {
		c.TokenRevocationURL = val
		c.sources["token_revocation_url"] = "environment"
	}
	if val := os.Getenv("SCANSTORE_TOKEN_REVOCATION_TOKEN"); val != "" {
		c.TokenRevocationToken = val
		c.sources["token_revocation_token"] = "environment"
	}
	if val := os.Getenv("SCANSTORE_WORKER_COUNT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.WorkerCount = i
			c.sources["worker_count"] = "environment"
		}
	}
	if val := os.Getenv("SCANSTORE_JWT_SECRET"); val != "" {
		c.JWTSecret = val
		c.sources["jwt_secret"] = "environment"
	}
	if val := os.Getenv("SCANSTORE_METRICS_ENABLED"); val != "" {
		c.MetricsEnabled = val == "true" || val == "1"
		c.sources["metrics_enabled"] = "environment"
	}
}

// ConfigFilePath returns the path to the config file
func (c *ScanstoreConfig) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *ScanstoreConfig) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// FeatureAvailable reports whether a licensed feature is enabled
func (c *ScanstoreConfig) FeatureAvailable(feature string) bool {
	for _, f := range c.LicensedFeatures {
		if f == feature {
			return true
		}
	}
	return false
}

// SecurityReportFeatureAvailable reports whether any report type feature is
// licensed.
func (c *ScanstoreConfig) SecurityReportFeatureAvailable() bool {
	for _, t := range report.ReportTypes() {
		if c.FeatureAvailable(t.String()) {
			return true
		}
	}
	return false
}

// Namespace returns the finding UUID namespace, falling back to the default
// namespace when unset or invalid.
func (c *ScanstoreConfig) Namespace() uuid.UUID {
	ns, err := uuid.Parse(c.UUIDNamespace)
	if err != nil {
		return report.DefaultNamespace
	}
	return ns
}

// RetentionPeriod returns the scan retention as a duration
func (c *ScanstoreConfig) RetentionPeriod() time.Duration {
	return time.Duration(c.ScanRetentionDays) * 24 * time.Hour
}

// Validate validates the configuration
func (c *ScanstoreConfig) Validate() error {
	if _, err := uuid.Parse(c.UUIDNamespace); err != nil {
		return fmt.Errorf("invalid uuid_namespace value: %s", c.UUIDNamespace)
	}
	if c.FindingsBatchSize <= 0 {
		return fmt.Errorf("findings_batch_size must be positive")
	}
	if c.FindingsPartitionMaxRows <= 0 {
		return fmt.Errorf("findings_partition_max_rows must be positive")
	}
	if c.ScanRetentionDays <= 0 {
		return fmt.Errorf("scan_retention_days must be positive")
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("worker_count must be positive")
	}
	if c.TokenRevocationEnabled {
		u, err := url.Parse(c.TokenRevocationURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid token_revocation_url value: %s", c.TokenRevocationURL)
		}
	}
	return nil
}

// Attributes returns all configuration attributes with their values and sources
func (c *ScanstoreConfig) Attributes() []Attribute {
	return []Attribute{
		{Name: "database_url", Value: redactURL(c.DatabaseURL), Source: c.Source("database_url")},
		{Name: "licensed_features", Value: strings.Join(c.LicensedFeatures, ","), Source: c.Source("licensed_features")},
		{Name: "uuid_namespace", Value: c.UUIDNamespace, Source: c.Source("uuid_namespace")},
		{Name: "findings_batch_size", Value: strconv.Itoa(c.FindingsBatchSize), Source: c.Source("findings_batch_size")},
		{Name: "findings_partition_max_rows", Value: strconv.FormatInt(c.FindingsPartitionMaxRows, 10), Source: c.Source("findings_partition_max_rows")},
		{Name: "scan_retention_days", Value: strconv.Itoa(c.ScanRetentionDays), Source: c.Source("scan_retention_days")},
		{Name: "token_revocation_enabled", Value: strconv.FormatBool(c.TokenRevocationEnabled), Source: c.Source("token_revocation_enabled")},
		{Name: "token_revocation_url", Value: c.TokenRevocationURL, Source: c.Source("token_revocation_url")},
		{Name: "token_revocation_token", Value: redact(c.TokenRevocationToken), Source: c.Source("token_revocation_token")},
		{Name: "worker_count", Value: strconv.Itoa(c.WorkerCount), Source: c.Source("worker_count")},
		{Name: "jwt_secret", Value: redact(c.JWTSecret), Source: c.Source("jwt_secret")},
		{Name: "metrics_enabled", Value: strconv.FormatBool(c.MetricsEnabled), Source: c.Source("metrics_enabled")},
	}
}

// FormatText returns a text representation of the configuration
func (c *ScanstoreConfig) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-30s %-40s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-30s %-40s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-30s %-40s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *ScanstoreConfig) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
