package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func hash(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return string(h)
}

func TestParseDirectoryAndAuthenticate(t *testing.T) {
	raw := "Ana@Example.com:owner:" + hash(t, "s3cret") + "; ivo@example.com:staff:" + hash(t, "pw") + ";"
	d, err := ParseDirectory(raw, func(r string) bool { return r == "owner" || r == "staff" })
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Len() != 2 {
		t.Fatalf("expected 2 users, got %d", d.Len())
	}

	u, err := d.Authenticate("ana@example.com", "s3cret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if u.Role != "owner" || u.Email != "ana@example.com" {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := d.Authenticate("ana@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := d.Authenticate("nobody@example.com", "s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, ok := d.Lookup("IVO@example.com"); !ok {
		t.Fatalf("expected case-insensitive lookup")
	}
}

func TestParseDirectoryRejectsBadEntries(t *testing.T) {
	for _, raw := range []string{
		"ana@example.com:owner",
		"ana@example.com:owner:not-a-hash",
		"ana@example.com:chef:" + hash(t, "pw"),
	} {
		_, err := ParseDirectory(raw, func(r string) bool { return r == "owner" })
		if err == nil {
			t.Fatalf("%q: expected error", raw)
		}
		if strings.Contains(err.Error(), "$2a$") {
			t.Fatalf("error leaks password hash: %v", err)
		}
	}
}
