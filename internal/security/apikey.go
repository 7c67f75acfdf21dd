package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// GenerateAPIKey creates a 256-bit random application API key. The plaintext is
// returned exactly once and never persisted; only the salted digest is stored.
func GenerateAPIKey() (plain, digest string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	plain = base64.RawURLEncoding.EncodeToString(b)
	digest, err = HashAPIKey(plain)
	if err != nil {
		return "", "", err
	}
	return plain, digest, nil
}

// HashAPIKey returns a salted SHA-256 digest of plain in "salt$hash" hex form.
func HashAPIKey(plain string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	sum := sha256.Sum256(append(salt, []byte(plain)...))
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(sum[:]), nil
}

// APIKeyEqual reports whether plain matches the stored salted digest.
// Comparison of the hashes is constant-time.
func APIKeyEqual(plain, digest string) bool {
	i := strings.IndexByte(digest, '$')
	if i <= 0 {
		return false
	}
	salt, err := hex.DecodeString(digest[:i])
	if err != nil {
		return false
	}
	sum := sha256.Sum256(append(salt, []byte(plain)...))
	want := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(want), []byte(digest[i+1:])) == 1
}
