package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, exp time.Time) string {
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("whatever"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestResolveToken_Priority(t *testing.T) {
	t.Setenv("UG_TEST_TOKEN", "from-env")
	got, err := ResolveToken("from-flag", "UG_TEST_TOKEN", "")
	if err != nil || got != "from-flag" {
		t.Fatalf("flag wins: %q %v", got, err)
	}
	got, err = ResolveToken("", "UG_TEST_TOKEN", "")
	if err != nil || got != "from-env" {
		t.Fatalf("env: %q %v", got, err)
	}
}

func TestResolveToken_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "cred.env")
	if err := os.WriteFile(envPath, []byte("UG_FILE_TOKEN=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	got, err := ResolveToken("", "UG_FILE_TOKEN", envPath)
	if err != nil || got != "from-file" {
		t.Fatalf("env file: %q %v", got, err)
	}
	t.Cleanup(func() { os.Unsetenv("UG_FILE_TOKEN") })
}

func TestResolveToken_Missing(t *testing.T) {
	_, err := ResolveToken("", "UG_SURELY_UNSET_TOKEN", "")
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("want ErrNoToken, got %v", err)
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	if !Expired(signToken(t, now.Add(-time.Hour)), now) {
		t.Fatalf("expired token not detected")
	}
	if Expired(signToken(t, now.Add(time.Hour)), now) {
		t.Fatalf("valid token flagged expired")
	}
	// 非 JWT：不判过期，交给接口侧 401
	if Expired("not-a-jwt", now) {
		t.Fatalf("opaque token flagged expired")
	}
}

func TestInspectExpiry(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	got, err := InspectExpiry(signToken(t, exp))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !got.Equal(exp) {
		t.Fatalf("exp=%v want %v", got, exp)
	}
}
