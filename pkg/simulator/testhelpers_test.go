package simulator

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/govuk-one-login/go-simulator/pkg/config"
)

const testClientID = "HGIOgho9HIRhgoepdIOPFdIUWgewi0jw"

// newTestServer builds a server whose registered client key pair is
// under the test's control, so client assertions can be signed.
func newTestServer(t *testing.T) (*Server, *rsa.PrivateKey) {
	t.Helper()

	clientKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	publicDER, err := x509.MarshalPKIXPublicKey(&clientKey.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	publicPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER}))

	cfg := config.NewFromEnv()
	cfg.Apply(&config.UpdateRequest{
		ClientConfiguration: &config.ClientPatch{PublicKey: &publicPEM},
	})

	server, err := NewServer(WithConfig(cfg))
	if err != nil {
		t.Fatal(err)
	}
	return server, clientKey
}

func defaultAuthorizeParams() url.Values {
	return url.Values{
		"client_id":     {testClientID},
		"redirect_uri":  {"http://localhost:8080/oidc/authorization-code/callback"},
		"response_type": {"code"},
		"scope":         {"openid email phone"},
		"nonce":         {"test-nonce-1234"},
		"state":         {"test-state"},
	}
}

// authorize drives the authorization endpoint and returns the issued
// code from the redirect.
func authorize(t *testing.T, s *Server, params url.Values) string {
	t.Helper()

	rec := performAuthorize(t, s, params)
	if rec.Code != http.StatusFound {
		t.Fatalf("authorize status = %d, want 302", rec.Code)
	}
	location, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
	if err != nil {
		t.Fatal(err)
	}
	if errCode := location.Query().Get("error"); errCode != "" {
		t.Fatalf("authorize redirected with error %q (%s)", errCode, location.Query().Get("error_description"))
	}
	code := location.Query().Get("code")
	if code == "" {
		t.Fatal("authorize redirect is missing a code")
	}
	return code
}

func newAuthorizeRequest(params url.Values) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/authorize?"+params.Encode(), nil)
	return req, httptest.NewRecorder()
}

func performAuthorize(t *testing.T, s *Server, params url.Values) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req, rec := newAuthorizeRequest(params)
	c := e.NewContext(req, rec)

	if err := s.AuthorizeEndpoint(c); err != nil {
		t.Fatalf("AuthorizeEndpoint returned %v", err)
	}
	return rec
}

// signClientAssertion produces a private_key_jwt assertion for the test
// client with the given key.
func signClientAssertion(t *testing.T, s *Server, key *rsa.PrivateKey) string {
	t.Helper()

	token, err := jwt.NewBuilder().
		Issuer(testClientID).
		Subject(testClientID).
		Audience([]string{s.cfg.ExpectedPrivateKeyJWTAudience()}).
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(5 * time.Minute)).
		JwtID("assertion-jti").
		Build()
	if err != nil {
		t.Fatal(err)
	}

	jwkKey, err := jwk.FromRaw(key)
	if err != nil {
		t.Fatal(err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256, jwkKey))
	if err != nil {
		t.Fatal(err)
	}
	return string(signed)
}

// exchange drives the token endpoint. It returns the recorder and the
// handler error, letting tests assert either a response body or an
// OAuth error.
func exchange(s *Server, code, redirectUri, assertion string) (*httptest.ResponseRecorder, error) {
	form := url.Values{
		"grant_type":            {"authorization_code"},
		"code":                  {code},
		"redirect_uri":          {redirectUri},
		"client_assertion_type": {clientAssertionTypeJWTBearer},
		"client_assertion":      {assertion},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	return rec, s.TokenEndpoint(c)
}
