// Command scanctl runs the scanstore security report ingestion service.
//
// # Quick Start
//
//	# Run database migrations
//	scanctl db migrate
//
//	# Start the API server and its workers
//	SCANSTORE_JWT_SECRET=... scanctl server
//
//	# Ingest the reports of a pipeline without the server
//	scanctl ingest 42
//
// # Environment Variables
//
//   - DATABASE_URL or SCANSTORE_DATABASE_URL: PostgreSQL connection string
//   - SCANSTORE_JWT_SECRET: HS256 secret of API bearer tokens
//   - SCANSTORE_LICENSED_FEATURES: Comma-separated licensed features
//   - SCANSTORE_TOKEN_REVOCATION_URL: Leaked token revocation endpoint
//   - LOG_LEVEL, LOG_FORMAT: Structured log level and format
//   - PORT, BIND_ADDRESS: Server listen address
package main
