package utils

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/team-presence/internal/model"
)

func TestPasswordHashing(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("password123", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyPassword(hash, "password123") {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword(hash, "password124") {
		t.Fatal("wrong password accepted")
	}

	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := HashPassword(string(long), bcrypt.MinCost); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("long password err = %v, want ErrPasswordTooLong", err)
	}
}

func TestRefreshTokensAreRandomAndHashed(t *testing.T) {
	t.Parallel()

	a, err := NewRefreshToken(7)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	b, err := NewRefreshToken(7)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if a.Raw == b.Raw || len(a.Raw) != 96 {
		t.Fatalf("raw tokens = %q, %q", a.Raw, b.Raw)
	}
	if HashRefreshRaw(a.Raw) != HashRefreshRaw(a.Raw) || HashRefreshRaw(a.Raw) == a.Raw {
		t.Fatal("hash is not a stable digest")
	}
}

func TestAccessTokenCarriesClaims(t *testing.T) {
	t.Parallel()

	tok, err := NewAccessToken("secret", model.User{ID: 3, Role: model.RoleAdmin, ResourceGroup: model.GroupLead}, 15)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if tok.Token == "" || tok.Exp.IsZero() {
		t.Fatalf("token = %+v", tok)
	}
}
