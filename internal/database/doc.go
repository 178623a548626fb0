// Package database opens the PostgreSQL pool behind the postgres store
// backend and prepares its schema.
package database
