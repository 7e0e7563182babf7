package simulator

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAuthorizeIssuesCodeAndEchoesState(t *testing.T) {
	s, _ := newTestServer(t)

	rec := performAuthorize(t, s, defaultAuthorizeParams())
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	location, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
	if err != nil {
		t.Fatal(err)
	}
	if location.Query().Get("code") == "" {
		t.Error("redirect is missing a code")
	}
	if got := location.Query().Get("state"); got != "test-state" {
		t.Errorf("state = %q, want test-state", got)
	}
	if s.contextStore.(*memoryContextStore).len() != 1 {
		t.Error("request context not persisted")
	}
}

func TestAuthorizeRejectsUnknownClient(t *testing.T) {
	s, _ := newTestServer(t)

	params := defaultAuthorizeParams()
	params.Set("client_id", "not-the-client")

	e := echo.New()
	req, rec := newAuthorizeRequest(params)
	err := s.AuthorizeEndpoint(e.NewContext(req, rec))

	oauthErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error = %v, want *Error", err)
	}
	if oauthErr.HttpStatus != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", oauthErr.HttpStatus)
	}
	if s.contextStore.(*memoryContextStore).len() != 0 {
		t.Error("context persisted for a rejected request")
	}
}

func TestAuthorizeRejectsUnregisteredRedirectUri(t *testing.T) {
	s, _ := newTestServer(t)

	params := defaultAuthorizeParams()
	params.Set("redirect_uri", "http://attacker.example.com/callback")

	e := echo.New()
	req, rec := newAuthorizeRequest(params)
	err := s.AuthorizeEndpoint(e.NewContext(req, rec))

	oauthErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error = %v, want *Error", err)
	}
	if oauthErr.HttpStatus != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", oauthErr.HttpStatus)
	}
	if rec.Header().Get(echo.HeaderLocation) != "" {
		t.Error("redirected to an unregistered redirect_uri")
	}
	if s.contextStore.(*memoryContextStore).len() != 0 {
		t.Error("context persisted for a rejected request")
	}
}

func TestAuthorizeRedirectsScopeError(t *testing.T) {
	s, _ := newTestServer(t)

	params := defaultAuthorizeParams()
	params.Set("scope", "openid offline_access")

	rec := performAuthorize(t, s, params)
	location, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
	if err != nil {
		t.Fatal(err)
	}
	if got := location.Query().Get("error"); got != "invalid_scope" {
		t.Errorf("error = %q, want invalid_scope", got)
	}
	if got := location.Query().Get("state"); got != "test-state" {
		t.Errorf("state = %q, want test-state", got)
	}
}

func TestAuthorizeRedirectsInvalidVtr(t *testing.T) {
	s, _ := newTestServer(t)

	for _, vtr := range []string{`["Xx.Yy"]`, `not-json`, `["Cl.Cm.P1"]`} {
		params := defaultAuthorizeParams()
		params.Set("vtr", vtr)

		rec := performAuthorize(t, s, params)
		location, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
		if err != nil {
			t.Fatal(err)
		}
		if got := location.Query().Get("error"); got != "invalid_request" {
			t.Errorf("vtr %s: error = %q, want invalid_request", vtr, got)
		}
		if got := location.Query().Get("error_description"); got != "Request vtr not valid" {
			t.Errorf("vtr %s: description = %q", vtr, got)
		}
	}
}

func TestAuthorizeRedirectsUnsupportedResponseType(t *testing.T) {
	s, _ := newTestServer(t)

	params := defaultAuthorizeParams()
	params.Set("response_type", "token")

	rec := performAuthorize(t, s, params)
	location, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
	if err != nil {
		t.Fatal(err)
	}
	if got := location.Query().Get("error"); got != "unsupported_response_type" {
		t.Errorf("error = %q, want unsupported_response_type", got)
	}
}
