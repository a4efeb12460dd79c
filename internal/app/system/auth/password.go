package auth

import "golang.org/x/crypto/bcrypt"

// Password length bounds. bcrypt ignores input beyond 72 bytes, so longer
// passwords are rejected rather than silently truncated.
const (
	MinPasswordLength = 6
	MaxPasswordBytes  = 72
)

// HashPassword one-way hashes a raw password for storage.
func HashPassword(raw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword compares raw against a stored hash. A malformed hash is a
// mismatch.
func CheckPassword(hash, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}
