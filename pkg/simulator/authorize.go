package simulator

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/govuk-one-login/go-simulator/pkg/vot"
)

// AuthorizeEndpoint simulates a user who has already authenticated and
// consented: it validates the request against the trusted client's
// policy, mints a single-use code bound to the request context, and
// redirects back to the relying party.
//
// redirect_uri and client_id failures are terminal responses; once both
// are known-good every later failure redirects back to the client.
func (s *Server) AuthorizeEndpoint(c echo.Context) error {
	var clientID, redirectUri, responseType, scope, state, nonce, vtr, claims string
	binderr := echo.FormFieldBinder(c).
		MustString("client_id", &clientID).
		MustString("redirect_uri", &redirectUri).
		MustString("response_type", &responseType).
		MustString("scope", &scope).
		MustString("nonce", &nonce).
		String("state", &state).
		String("vtr", &vtr).
		String("claims", &claims).
		BindError()

	if binderr != nil {
		return &Error{
			HttpStatus:  http.StatusBadRequest,
			Code:        "invalid_request",
			Description: binderr.Error(),
		}
	}

	client := s.cfg.Client()

	if clientID != client.ClientID {
		return &Error{
			HttpStatus:  http.StatusBadRequest,
			Code:        "invalid_request",
			Description: "unknown client_id",
		}
	}

	if !contains(client.RedirectURLs, redirectUri) {
		return &Error{
			HttpStatus:  http.StatusBadRequest,
			Code:        "invalid_request",
			Description: "invalid redirect_uri",
		}
	}

	if responseType != "code" {
		return redirectWithError(c, redirectUri, state, Error{
			Code:        "unsupported_response_type",
			Description: fmt.Sprintf("unsupported response_type: %s", responseType),
		})
	}

	scopes := strings.Split(scope, " ")
	if !subset(scopes, client.Scopes) {
		return redirectWithError(c, redirectUri, state, Error{
			Code:        "invalid_scope",
			Description: "scope not allowed for client",
		})
	}

	requestedVtr, err := vot.Parse(vtr)
	if err != nil {
		return redirectWithError(c, redirectUri, state, Error{
			Code:        "invalid_request",
			Description: "Request vtr not valid",
		})
	}
	if !vot.LevelAllowed(requestedVtr.LevelOfConfidence, client.ClientLoCs) {
		return redirectWithError(c, redirectUri, state, Error{
			Code:        "invalid_request",
			Description: "Request vtr not valid",
		})
	}

	sub := s.cfg.DefaultSub()
	achievedVtr := requestedVtr.Achieved(client.IdentityVerificationSupported)

	rc := &RequestContext{
		Sub:         sub,
		RedirectURI: redirectUri,
		Nonce:       nonce,
		Scopes:      scopes,
		Claims:      requestedClaims(claims, client.Claims),
		VTR:         achievedVtr,
	}

	code, err := s.contextStore.Issue(rc)
	if err != nil {
		return redirectWithError(c, redirectUri, state, Error{
			Code:        "server_error",
			Description: fmt.Errorf("unable to issue code: %w", err).Error(),
		})
	}

	slog.Info("authorization code issued", "sub", sub, "vtr", achievedVtr.String(), "scopes", scopes)

	params := url.Values{}
	params.Set("code", code)
	if state != "" {
		params.Set("state", state)
	}
	return c.Redirect(http.StatusFound, redirectUri+"?"+params.Encode())
}

// requestedClaims parses the claims request parameter (either an OIDC
// claims object with a userinfo member, or a plain JSON array of claim
// names) and keeps only claims the client is registered for.
func requestedClaims(raw string, clientClaims []string) []string {
	names := []string{}
	if raw == "" {
		return names
	}

	switch {
	case strings.HasPrefix(raw, "{"):
		var obj struct {
			Userinfo map[string]json.RawMessage `json:"userinfo"`
		}
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			slog.Warn("ignoring malformed claims parameter", "error", err)
			return names
		}
		for name := range obj.Userinfo {
			if contains(clientClaims, name) {
				names = append(names, name)
			}
		}
	default:
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			slog.Warn("ignoring malformed claims parameter", "error", err)
			return names
		}
		for _, name := range list {
			if contains(clientClaims, name) {
				names = append(names, name)
			}
		}
	}
	return names
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func subset(sub, super []string) bool {
	for _, s := range sub {
		if !contains(super, s) {
			return false
		}
	}
	return true
}
