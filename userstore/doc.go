// Package userstore provides [loginguard.UserStore] implementations: an
// in-memory store for tests and development, and a PostgreSQL store backed
// by a pgx connection pool.
//
// Both stores match identifiers case-insensitively and implement
// [loginguard.PasswordHashUpdater] so the engine can upgrade weak hashes on
// login.
package userstore
