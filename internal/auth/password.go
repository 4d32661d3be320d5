package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// bcrypt cost 10 matches the hashes already issued to existing accounts.
const hashCost = 10

// Hash generates a salted bcrypt hash.
func Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify compares a password against its bcrypt hash.
func Verify(password, encodedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
}
