package cryptox

import (
	"crypto/subtle"
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Checksum returns the hex BLAKE3-256 digest of b.
func Checksum(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum reports whether b hashes to the expected hex digest.
func VerifyChecksum(b []byte, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(Checksum(b)), []byte(expected)) == 1
}
