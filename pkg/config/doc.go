// Package config provides configuration management for scanstore.
//
// # Configuration Sources
//
// Configuration is loaded from, in increasing precedence:
//
//   - Built-in defaults
//   - $SCANSTORE_CONFIG_PATH/scanstore.yml (default /etc/scanstore/config)
//   - A .env file in the working directory
//   - Environment variables
//
// # Key Configuration Options
//
//   - SCANSTORE_DATABASE_URL or DATABASE_URL: Database connection
//   - SCANSTORE_LICENSED_FEATURES: Enabled features
//   - SCANSTORE_UUID_NAMESPACE: Finding UUID namespace
//   - SCANSTORE_SCAN_RETENTION_DAYS: Days before scans are purged
//   - SCANSTORE_TOKEN_REVOCATION_*: Leaked secret revocation
//   - SCANSTORE_JWT_SECRET: API token signing secret
package config
