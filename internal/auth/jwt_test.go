package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerify(t *testing.T) {
	secret := []byte("studio-secret")

	token, err := IssueToken("studio", secret, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	subject, err := VerifyToken(token, secret)
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}
	if subject != "studio" {
		t.Errorf("subject = %q, want %q", subject, "studio")
	}
}

func TestVerifyToken_Errors(t *testing.T) {
	secret := []byte("studio-secret")

	expired, err := IssueToken("studio", secret, -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	valid, err := IssueToken("studio", secret, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "studio"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to build unsigned token: %v", err)
	}

	tests := []struct {
		name    string
		token   string
		secret  []byte
		wantErr error
	}{
		{"expired", expired, secret, ErrTokenExpired},
		{"wrong secret", valid, []byte("other"), ErrInvalidToken},
		{"garbage", "not-a-token", secret, ErrInvalidToken},
		{"alg none", none, secret, ErrInvalidToken},
		{"empty secret", valid, nil, ErrEmptySecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyToken(tt.token, tt.secret)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("VerifyToken() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIssueToken_EmptySecret(t *testing.T) {
	if _, err := IssueToken("studio", nil, time.Hour); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("IssueToken() error = %v, want %v", err, ErrEmptySecret)
	}
}
