// Package storage holds the persistence backends of the acquisitions API.
//
// # Overview
//
// The postgres subpackage implements users.Directory with the bun query
// builder over PostgreSQL (lib/pq), ships the schema as goose migrations
// embedded in the binary, and owns the Redis client used by the policy
// window store.
//
// # Usage
//
//	cm, err := postgres.NewConnectionManager(postgres.ConnectionConfig{URL: dsn})
//	if err != nil {
//		return err
//	}
//	if err := postgres.Migrate(ctx, cm.SQL()); err != nil {
//		return err
//	}
//	store := postgres.NewUserStore(cm.DB())
//
// Update and Delete are single UPDATE/DELETE ... RETURNING statements, so a
// concurrent delete surfaces as users.ErrNotFound rather than a stale write.
//
// # Testing
//
// Unit tests run the store against an in-memory SQLite database through
// bun's sqlitedialect. The PostgreSQL integration test starts a container
// with testcontainers and is skipped under -short or without Docker.
package storage
