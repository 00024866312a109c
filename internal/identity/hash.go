// ABOUTME: One-way session id pseudonymization for outbound side channels
// ABOUTME: SHA-256 hex digest, matching what feedback/lead/support endpoints expect

package identity

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the lowercase hex SHA-256 digest of a session id. The raw
// id only ever goes to the chat and history endpoints; everything else
// receives this digest.
func Hash(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}
