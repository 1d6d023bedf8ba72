package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

func newTestAuthority(t *testing.T, clock clockwork.Clock) *Authority {
	t.Helper()
	a, err := NewAuthority("test-secret", time.Hour, 16, clock)
	if err != nil {
		t.Fatalf("NewAuthority failed: %v", err)
	}
	return a
}

func TestNewAuthority_RequiresSecret(t *testing.T) {
	if _, err := NewAuthority("", time.Hour, 16, nil); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestAuthority_IssueVerify(t *testing.T) {
	a := newTestAuthority(t, clockwork.NewFakeClock())

	token, err := a.Issue("alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	owner, err := a.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if owner != "alice" {
		t.Errorf("owner = %q, want alice", owner)
	}

	// Second call is served from cache.
	owner, err = a.Verify(token)
	if err != nil || owner != "alice" {
		t.Errorf("cached Verify = %q, %v", owner, err)
	}
}

func TestAuthority_VerifyErrors(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := newTestAuthority(t, clock)
	other, err := NewAuthority("other-secret", time.Hour, 16, clock)
	if err != nil {
		t.Fatalf("NewAuthority failed: %v", err)
	}

	forged, err := other.Issue("alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Owner: "alice"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrAuthRequired},
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"wrong secret", forged, ErrInvalidToken},
		{"alg none", unsigned, ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.Verify(tt.token); !errors.Is(err, tt.want) {
				t.Errorf("Verify error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAuthority_Expiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := newTestAuthority(t, clock)

	token, err := a.Issue("alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := a.Verify(token); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	clock.Advance(2 * time.Hour)

	if _, err := a.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token error = %v, want ErrInvalidToken", err)
	}
}

func TestAuthority_IssueRequiresOwner(t *testing.T) {
	a := newTestAuthority(t, clockwork.NewFakeClock())
	if _, err := a.Issue(""); err == nil {
		t.Error("expected error for empty owner")
	}
}
