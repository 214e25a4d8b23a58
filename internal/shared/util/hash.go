package util

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
)

// userKeyNamespace keeps storage keys for users distinct from other hashed values.
const userKeyNamespace = "resume-builder/user:"

// HashUserKey returns a filesystem-safe identifier for a user ID. User IDs
// never appear in object keys directly.
func HashUserKey(userID string) string {
	sum := sha256.Sum256([]byte(userKeyNamespace + userID))
	return hex.EncodeToString(sum[:16])
}

// ObjectKey is the slash-separated storage key for a user's file.
// name must already be sanitized.
func ObjectKey(userID, name string) string {
	return path.Join(HashUserKey(userID), name)
}
