package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// GenerateKey joins a namespace and key parts with ':', e.g. "lock:sweep:ab12".
func GenerateKey(prefix string, parts ...string) string {
	return strings.Join(append([]string{prefix}, parts...), ":")
}

// HashKey returns the hex SHA-256 of key. Request fingerprints are hashed so
// keys stay short whatever the request carries.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
