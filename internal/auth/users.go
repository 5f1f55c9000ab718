package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// User is a dashboard staff account. The email doubles as the user id.
type User struct {
	Email        string
	Role         string
	PasswordHash []byte
}

// Directory is the fixed set of staff accounts allowed to sign in.
type Directory struct {
	users map[string]User
}

// dummyHash is compared against when the email is unknown so both paths cost one bcrypt check.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("restaurant-ops"), bcrypt.MinCost)

// ParseDirectory reads "email:role:bcrypt_hash" entries separated by ';'.
// Emails are matched case-insensitively.
func ParseDirectory(raw string, validRole func(string) bool) (*Directory, error) {
	d := &Directory{users: map[string]User{}}
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return nil, fmt.Errorf("auth: malformed user entry %q", redact(entry))
		}
		email := strings.ToLower(strings.TrimSpace(parts[0]))
		role := strings.TrimSpace(parts[1])
		if validRole != nil && !validRole(role) {
			return nil, fmt.Errorf("auth: unknown role %q for %s", role, email)
		}
		if _, err := bcrypt.Cost([]byte(parts[2])); err != nil {
			return nil, fmt.Errorf("auth: invalid password hash for %s: %w", email, err)
		}
		d.users[email] = User{Email: email, Role: role, PasswordHash: []byte(parts[2])}
	}
	return d, nil
}

// Authenticate checks the password and returns the matching user.
func (d *Directory) Authenticate(email, password string) (User, error) {
	u, ok := d.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Lookup returns the user for a token subject.
func (d *Directory) Lookup(userID string) (User, bool) {
	u, ok := d.users[strings.ToLower(userID)]
	return u, ok
}

func (d *Directory) Len() int { return len(d.users) }

func redact(entry string) string {
	if i := strings.LastIndex(entry, ":"); i >= 0 {
		return entry[:i] + ":***"
	}
	return entry
}
