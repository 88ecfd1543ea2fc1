// Package db opens the PostgreSQL connection used by the GORM stores.
//
// The connection uses the simple query protocol so that it works through
// connection poolers such as PgBouncer.
package db
