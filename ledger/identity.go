package ledger

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// RoleAdmin grants unrestricted access to documents and user management
const RoleAdmin = "ADMIN"

// Organization is a member organization of the network. Created once at
// bootstrap; only the user membership list grows afterwards.
type Organization struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Domain string   `json:"domain"`
	MSPID  string   `json:"mspId"`
	Users  []string `json:"users"`
}

// User is a network identity. The password is stored only as a one-way
// SHA-256 digest.
type User struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	PasswordHash string   `json:"-"`
	Organization string   `json:"organization"`
	Roles        []string `json:"roles"`
	MSPID        string   `json:"mspId"`
}

func (u *User) hasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Identity is the assertion returned by a successful authentication
type Identity struct {
	UserID       string   `json:"userId"`
	Roles        []string `json:"roles"`
	Organization string   `json:"organization"`
}

// hashPassword derives the stored digest of a password
func hashPassword(password string) string {
	digest := sha256.Sum256([]byte(password))
	return hex.EncodeToString(digest[:])
}

// randomID allocates a 16-byte random identifier in hex
func randomID() string {
	buf := make([]byte, 16)
	// crypto/rand.Read only fails when the platform entropy source is broken
	if _, err := rand.Read(buf); err != nil {
		panic("failed to read random bytes: " + err.Error())
	}
	return hex.EncodeToString(buf)
}
