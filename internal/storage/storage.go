// Package storage provides durable key/value storage for client credentials.
package storage

// TokenKey is the single well-known key the session token lives under.
const TokenKey = "authToken"

// Storage is durable client-side storage.
// Get reports ok=false for a missing key without an error.
type Storage interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}
