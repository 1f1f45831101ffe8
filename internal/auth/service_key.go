package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// ServiceKeyChecker validates the elevated credential used by bulk tally operations
type ServiceKeyChecker struct {
	hash []byte
}

func NewServiceKeyChecker(hash string) *ServiceKeyChecker {
	return &ServiceKeyChecker{hash: []byte(hash)}
}

// Check reports whether key matches the configured hash. No hash configured means no key is valid.
func (c *ServiceKeyChecker) Check(key string) bool {
	if c == nil || len(c.hash) == 0 || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(c.hash, []byte(key)) == nil
}

// HashServiceKey produces the value to put in SERVICE_KEY_HASH
func HashServiceKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
