package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidateAccessToken(t *testing.T) {
	mgr := NewJWTManager("test-secret-key-123")
	token, err := mgr.GenerateAccessToken("user-42")
	if err != nil {
		t.Fatalf("generate access token: %v", err)
	}
	claims, err := mgr.ValidateToken(token, KindAccess)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.UserID != "user-42" || claims.Subject != "user-42" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Issuer != "iron-alliance" {
		t.Errorf("issuer = %q", claims.Issuer)
	}
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	mgr := NewJWTManager("test-secret-key-123")
	pair, err := mgr.GenerateTokenPair("user-7")
	if err != nil {
		t.Fatal(err)
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatal("access and refresh tokens should be different")
	}
	if pair.ExpiresIn != 900 {
		t.Errorf("expires_in = %d, want 900", pair.ExpiresIn)
	}
	if _, err := mgr.ValidateToken(pair.RefreshToken, KindAccess); err != ErrInvalidToken {
		t.Errorf("refresh token accepted as access: %v", err)
	}
	if _, err := mgr.ValidateToken(pair.AccessToken, KindRefresh); err != ErrInvalidToken {
		t.Errorf("access token accepted as refresh: %v", err)
	}
}

func TestRefresh(t *testing.T) {
	mgr := NewJWTManager("s")
	pair, _ := mgr.GenerateTokenPair("user-9")
	next, err := mgr.Refresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := mgr.ValidateToken(next.AccessToken, KindAccess)
	if err != nil || claims.UserID != "user-9" {
		t.Fatalf("refreshed access token: %+v, %v", claims, err)
	}
	if _, err := mgr.Refresh(pair.AccessToken); err == nil {
		t.Error("access token used for refresh")
	}
}

func TestValidateTokenRejects(t *testing.T) {
	mgr := NewJWTManager("secret-a")
	other := NewJWTManager("secret-b")
	token, _ := other.GenerateAccessToken("user-1")

	expired := NewJWTManager("secret-a")
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _ := expired.GenerateAccessToken("user-1")

	tests := map[string]string{
		"wrong secret": token,
		"expired":      old,
		"garbage":      "not.a.token",
		"empty":        "",
	}
	for name, tok := range tests {
		if _, err := mgr.ValidateToken(tok, KindAccess); err != ErrInvalidToken {
			t.Errorf("%s: err = %v, want ErrInvalidToken", name, err)
		}
	}
}
