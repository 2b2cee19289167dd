package jarir

import (
	"crypto/sha1"
	"encoding/hex"
)

// headerKeySuffix is appended to the account token before hashing.
const headerKeySuffix = "platform"

// DeriveHeaderKey derives the AES-256 key that protects a book's header blob.
//
// The key is the first 32 characters of the lowercase hex SHA-1 digest of
// token+"platform", used as raw key bytes. The textual form is what the
// vendor format expects.
func DeriveHeaderKey(token string) []byte {
	sum := sha1.Sum([]byte(token + headerKeySuffix))
	digest := hex.EncodeToString(sum[:])
	return []byte(digest[:32])
}
