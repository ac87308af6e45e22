package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func TestOAuthExchange(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "no token", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"id":"g-1","email":"a@example.com","name":"Ada","picture":"https://p"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := newOAuthProvider("google", &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
	}, srv.URL+"/userinfo")

	info, err := p.Exchange(context.Background(), "code")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if info.ID != "g-1" || info.Name != "Ada" {
		t.Errorf("info = %+v", info)
	}
	if !p.Configured() {
		t.Error("provider with credentials reports unconfigured")
	}
	if u := p.LoginURL("xyz"); !strings.Contains(u, "state=xyz") || !strings.HasPrefix(u, srv.URL+"/auth") {
		t.Errorf("LoginURL = %q", u)
	}
}

func TestNewState(t *testing.T) {
	a, b := NewState(), NewState()
	if a == b || len(a) != 22 {
		t.Errorf("states %q %q", a, b)
	}
	if NewGoogleOAuth("", "", "").Configured() {
		t.Error("empty credentials reported configured")
	}
}
