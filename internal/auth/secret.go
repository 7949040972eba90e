package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// SharedSecret guards admin actions with one static code. When a bcrypt hash is
// configured it wins over the plain value.
type SharedSecret struct {
	plain string
	hash  []byte
}

func NewSharedSecret(plain, bcryptHash string) *SharedSecret {
	s := &SharedSecret{plain: plain}
	if bcryptHash != "" {
		s.hash = []byte(bcryptHash)
	}
	return s
}

// Verify reports whether code matches. An unconfigured secret matches nothing.
func (s *SharedSecret) Verify(code string) bool {
	if code == "" {
		return false
	}
	if len(s.hash) > 0 {
		return bcrypt.CompareHashAndPassword(s.hash, []byte(code)) == nil
	}
	if s.plain == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.plain), []byte(code)) == 1
}

// HashSecret produces a value suitable for SAVE_TEST_CODE_HASH.
func HashSecret(code string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(code), 12)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
