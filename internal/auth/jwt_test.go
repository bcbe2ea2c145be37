package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func TestGenerateAndParseJWT(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateJWT(testSecret, "marketplace", userID, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ParseJWT(testSecret, "marketplace", token)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("expected user %s, got %s", userID, claims.UserID)
	}
	if claims.Subject != userID.String() {
		t.Errorf("expected subject %s, got %s", userID, claims.Subject)
	}
}

func TestParseJWT_Rejects(t *testing.T) {
	userID := uuid.New()
	valid, _ := GenerateJWT(testSecret, "marketplace", userID, time.Hour)
	expired, _ := GenerateJWT(testSecret, "marketplace", userID, -time.Hour)
	nilUser, _ := GenerateJWT(testSecret, "marketplace", uuid.Nil, time.Hour)

	// expiration <= 0 defaults to 24h, so build an expired token by hand.
	expiredClaims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			Issuer:    "marketplace",
		},
	}
	reallyExpired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, expiredClaims).SignedString([]byte(testSecret))

	noneToken, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: userID}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name   string
		secret string
		issuer string
		token  string
	}{
		{"wrong secret", "other-secret", "marketplace", valid},
		{"wrong issuer", testSecret, "someone-else", valid},
		{"expired", testSecret, "marketplace", reallyExpired},
		{"nil user", testSecret, "marketplace", nilUser},
		{"alg none", testSecret, "", noneToken},
		{"garbage", testSecret, "", "not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseJWT(tt.secret, tt.issuer, tt.token); err == nil {
				t.Errorf("expected %s token to be rejected", tt.name)
			}
		})
	}

	// negative expiration falls back to the default lifetime
	if _, err := ParseJWT(testSecret, "marketplace", expired); err != nil {
		t.Errorf("expected default expiration to apply, got %v", err)
	}
}

func TestCaller_Authenticated(t *testing.T) {
	var nilCaller *Caller
	if nilCaller.Authenticated() {
		t.Error("nil caller must not be authenticated")
	}
	if (&Caller{}).Authenticated() {
		t.Error("caller with nil user id must not be authenticated")
	}
	if !(&Caller{UserID: uuid.New()}).Authenticated() {
		t.Error("caller with user id must be authenticated")
	}
}
