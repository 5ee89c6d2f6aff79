package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrAlreadyModern is returned when migrating a credential that is already
// a bcrypt hash.
var ErrAlreadyModern = errors.New("credential is already migrated")

// Kind tells a legacy credential from a bcrypt one.
type Kind int

const (
	Legacy Kind = iota
	Modern
)

func (k Kind) String() string {
	if k == Modern {
		return "modern"
	}
	return "legacy"
}

// Credential is a stored password in one of two forms. Legacy values are
// plaintext or a hex SHA-256 digest; modern values are bcrypt hashes.
type Credential struct {
	kind  Kind
	value string
}

// Parse classifies a stored password. Anything without the bcrypt "$2"
// prefix is legacy.
func Parse(stored string) Credential {
	if strings.HasPrefix(stored, "$2") {
		return Credential{kind: Modern, value: stored}
	}
	return Credential{kind: Legacy, value: stored}
}

// Hash returns a modern credential for plaintext.
func Hash(plaintext string, cost int) (Credential, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return Credential{}, err
	}
	return Credential{kind: Modern, value: string(h)}, nil
}

func (c Credential) Kind() Kind { return c.kind }

// String returns the form to store.
func (c Credential) String() string { return c.value }

// Verify reports whether plaintext matches the credential.
func (c Credential) Verify(plaintext string) bool {
	if c.kind == Modern {
		return bcrypt.CompareHashAndPassword([]byte(c.value), []byte(plaintext)) == nil
	}
	if c.value == "" {
		return false
	}
	if isDigest(c.value) {
		sum := sha256.Sum256([]byte(plaintext))
		digest := hex.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(strings.ToLower(c.value)), []byte(digest)) == 1
	}
	return subtle.ConstantTimeCompare([]byte(c.value), []byte(plaintext)) == 1
}

// isDigest reports whether a legacy value is a hex SHA-256 digest. Such a
// value only ever matches the digest of the password, never the value
// itself.
func isDigest(v string) bool {
	if len(v) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(v)
	return err == nil
}

// Migrate turns a verified legacy credential into a modern one for the same
// plaintext. Callers verify first.
func Migrate(c Credential, plaintext string, cost int) (Credential, error) {
	if c.kind == Modern {
		return c, ErrAlreadyModern
	}
	return Hash(plaintext, cost)
}
