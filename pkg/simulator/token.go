package simulator

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/segmentio/ksuid"

	"github.com/govuk-one-login/go-simulator/pkg/config"
)

const (
	clientAssertionTypeJWTBearer = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
	accessTokenValidity          = time.Hour
)

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// TokenEndpoint redeems an authorization code for an ID token and an
// access token. The client assertion is verified before the code is
// consumed, so a failed authentication never burns the code; everything
// after redemption is final.
func (s *Server) TokenEndpoint(c echo.Context) error {
	var grantType, code, redirectUri, assertionType, assertion string
	binderr := echo.FormFieldBinder(c).
		MustString("grant_type", &grantType).
		MustString("code", &code).
		MustString("redirect_uri", &redirectUri).
		MustString("client_assertion_type", &assertionType).
		MustString("client_assertion", &assertion).
		BindError()

	if binderr != nil {
		return &Error{
			HttpStatus:  http.StatusBadRequest,
			Code:        "invalid_request",
			Description: binderr.Error(),
		}
	}

	if grantType != "authorization_code" {
		return &Error{
			HttpStatus:  http.StatusBadRequest,
			Code:        "unsupported_grant_type",
			Description: fmt.Sprintf("unsupported grant_type: %s", grantType),
		}
	}

	if assertionType != clientAssertionTypeJWTBearer {
		return &Error{
			HttpStatus:  http.StatusBadRequest,
			Code:        "invalid_request",
			Description: "client_assertion_type must be " + clientAssertionTypeJWTBearer,
		}
	}

	client := s.cfg.Client()

	if err := s.verifyClientAssertion(assertion, client); err != nil {
		slog.Warn("client authentication failed", "error", err)
		return &Error{
			HttpStatus:  http.StatusUnauthorized,
			Code:        "invalid_client",
			Description: "client authentication failed",
		}
	}

	rc, err := s.contextStore.Redeem(code)
	if err != nil {
		description := "invalid authorization code"
		if errors.Is(err, ErrCodeExpired) {
			description = "authorization code expired"
		}
		return &Error{
			HttpStatus:  http.StatusBadRequest,
			Code:        "invalid_grant",
			Description: description,
		}
	}

	if rc.RedirectURI != redirectUri {
		return &Error{
			HttpStatus:  http.StatusBadRequest,
			Code:        "invalid_grant",
			Description: "redirect_uri does not match the authorization request",
		}
	}

	user := s.cfg.User(rc.Sub)

	if err := authoriseInjection(user.Error.AuthoriseErrors); err != nil {
		return err
	}

	idToken, err := s.buildIDToken(rc, client, user)
	if err != nil {
		return fmt.Errorf("build id token: %w", err)
	}

	accessToken, err := s.issueAccessToken(rc, client)
	if err != nil {
		return fmt.Errorf("issue access token: %w", err)
	}
	s.tokenStore.Append(client.ClientID, rc.Sub, accessToken)

	slog.Info("tokens issued", "sub", rc.Sub, "client_id", client.ClientID)

	return c.JSON(http.StatusOK, &TokenResponse{
		AccessToken: accessToken,
		IDToken:     idToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(accessTokenValidity.Seconds()),
	})
}

// authoriseInjection aborts the exchange before any claims are
// assembled when the subject is configured to simulate provider-side
// refusal.
func authoriseInjection(injected []config.AuthoriseError) error {
	for _, e := range injected {
		switch e {
		case config.AuthoriseAccessDenied:
			return &Error{
				HttpStatus:  http.StatusForbidden,
				Code:        "access_denied",
				Description: "Access denied by the provider",
			}
		case config.AuthoriseTemporarilyUnavailable:
			return &Error{
				HttpStatus:  http.StatusServiceUnavailable,
				Code:        "temporarily_unavailable",
				Description: "The provider is temporarily unavailable",
			}
		}
	}
	return nil
}

// verifyClientAssertion checks a private_key_jwt client assertion: a
// valid signature under the registered client key, iss and sub both
// equal to the client identifier, the token endpoint as audience, and
// an expiry that has not passed.
func (s *Server) verifyClientAssertion(assertion string, client config.ClientConfiguration) error {
	key, err := parseClientKey(client.PublicKey)
	if err != nil {
		return fmt.Errorf("parse registered client key: %w", err)
	}

	msg, err := jws.Parse([]byte(assertion))
	if err != nil {
		return fmt.Errorf("parse client assertion: %w", err)
	}
	if len(msg.Signatures()) != 1 {
		return fmt.Errorf("client assertion must carry exactly one signature")
	}
	alg := msg.Signatures()[0].ProtectedHeaders().Algorithm()
	switch alg {
	case jwa.RS256, jwa.PS256, jwa.ES256:
	default:
		return fmt.Errorf("client assertion signed with unsupported algorithm %s", alg)
	}

	token, err := jwt.Parse([]byte(assertion),
		jwt.WithKey(alg, key),
		jwt.WithAudience(s.cfg.ExpectedPrivateKeyJWTAudience()),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
		jwt.WithValidate(true),
	)
	if err != nil {
		return fmt.Errorf("verify client assertion: %w", err)
	}

	if token.Issuer() != client.ClientID {
		return fmt.Errorf("client assertion iss %q does not match client", token.Issuer())
	}
	if token.Subject() != client.ClientID {
		return fmt.Errorf("client assertion sub %q does not match client", token.Subject())
	}
	return nil
}

// parseClientKey reads the registered client public key, either as a
// PEM block or a bare JWK document.
func parseClientKey(material string) (jwk.Key, error) {
	data := []byte(strings.TrimSpace(material))
	if strings.HasPrefix(string(data), "-----BEGIN") {
		return jwk.ParseKey(data, jwk.WithPEM(true))
	}
	return jwk.ParseKey(data)
}

// issueAccessToken mints the bearer token the relying party presents at
// the userinfo endpoint.
func (s *Server) issueAccessToken(rc *RequestContext, client config.ClientConfiguration) (string, error) {
	now := time.Now()
	token, err := jwt.NewBuilder().
		Subject(rc.Sub).
		Issuer(s.cfg.IssuerValue()).
		IssuedAt(now).
		Expiration(now.Add(accessTokenValidity)).
		JwtID(ksuid.New().String()).
		Claim("client_id", client.ClientID).
		Claim("scope", rc.Scopes).
		Claim("claims", rc.Claims).
		Claim("sid", ksuid.New().String()).
		Build()
	if err != nil {
		return "", fmt.Errorf("assemble access token: %w", err)
	}
	return s.keyProvider.Sign(token, s.keyProvider.Algorithm())
}
