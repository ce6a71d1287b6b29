package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinLength is the shortest plaintext accepted for hashing
const MinLength = 6

var (
	// ErrTooShort is returned when a plaintext is shorter than MinLength
	ErrTooShort = fmt.Errorf("password must be at least %d characters", MinLength)
	// ErrAlreadyHashed is returned when Hash is handed a bcrypt hash
	ErrAlreadyHashed = errors.New("password is already hashed")
)

// Hasher hashes and verifies passwords with bcrypt. Hashing is explicit:
// callers hash before persisting, nothing hashes on save.
type Hasher struct {
	cost int
}

// NewHasher returns a hasher using cost, or bcrypt.DefaultCost when cost is out of range
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt hash of plaintext
func (h *Hasher) Hash(plaintext string) (string, error) {
	if IsHash(plaintext) {
		return "", ErrAlreadyHashed
	}
	if len(plaintext) < MinLength {
		return "", ErrTooShort
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hash
func (h *Hasher) Verify(hash, plaintext string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	return err == nil
}

// IsHash reports whether value already parses as a bcrypt hash
func IsHash(value string) bool {
	_, err := bcrypt.Cost([]byte(value))
	return err == nil
}
