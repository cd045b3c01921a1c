// Package store holds the Postgres repositories for user and timer records.
package store

import "errors"

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrUsernameTaken is returned by UserStore.Create on a username conflict.
var ErrUsernameTaken = errors.New("username already taken")
