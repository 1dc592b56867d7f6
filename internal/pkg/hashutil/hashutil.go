package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded sha256 of text. Equal output means the
// content is treated as identical.
func Sum(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
