package crypto

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

// EnvBcryptCost tunes the bcrypt cost factor. Values below the library
// default are ignored; the cost never goes down.
const EnvBcryptCost = "UMOB_BCRYPT_COST"

// HashCost returns the effective bcrypt cost factor
func HashCost() int {
	cost := bcrypt.DefaultCost
	if v := os.Getenv(EnvBcryptCost); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > cost && n <= bcrypt.MaxCost {
			cost = n
		}
	}
	return cost
}

// HashPassword hashes a password with bcrypt (salted, adaptive cost)
func HashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), HashCost())
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// VerifyPassword reports whether password matches the stored bcrypt
// hash. A malformed or truncated hash verifies as false; it never
// surfaces an error to the login path.
func VerifyPassword(password string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
