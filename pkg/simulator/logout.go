package simulator

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const defaultLogoutRedirect = "https://gov.uk"

// LogoutEndpoint ends the simulated session. A post_logout_redirect_uri
// is honored only when registered for the client and when the id_token
// hint verifies; anything else falls back to the default destination,
// carrying the failure in the query string so the caller can see why.
func (s *Server) LogoutEndpoint(c echo.Context) error {
	var idTokenHint, postLogoutRedirectUri, state string
	echo.QueryParamsBinder(c).
		String("id_token_hint", &idTokenHint).
		String("post_logout_redirect_uri", &postLogoutRedirectUri).
		String("state", &state)

	if postLogoutRedirectUri == "" {
		return c.Redirect(http.StatusFound, defaultLogoutRedirect)
	}

	if idTokenHint != "" {
		_, err := jwt.Parse([]byte(idTokenHint),
			jwt.WithKey(s.keyProvider.Algorithm(), s.keyProvider.PublicKey()),
			jwt.WithValidate(false),
		)
		if err != nil {
			slog.Warn("rejecting logout id_token_hint", "error", err)
			return logoutErrorRedirect(c, state, "invalid_request", "unable to validate id_token_hint")
		}
	}

	if _, err := url.ParseRequestURI(postLogoutRedirectUri); err != nil {
		return logoutErrorRedirect(c, state, "invalid_request", "invalid post logout redirect uri")
	}
	if !contains(s.cfg.Client().PostLogoutRedirectURLs, postLogoutRedirectUri) {
		return logoutErrorRedirect(c, state, "invalid_request", "client not registered for post_logout_redirect_uri")
	}

	target := postLogoutRedirectUri
	if state != "" {
		target += "?" + url.Values{"state": []string{state}}.Encode()
	}
	return c.Redirect(http.StatusFound, target)
}

func logoutErrorRedirect(c echo.Context, state, code, description string) error {
	params := url.Values{}
	params.Set("error_code", code)
	params.Set("error_description", description)
	if state != "" {
		params.Set("state", state)
	}
	return c.Redirect(http.StatusFound, defaultLogoutRedirect+"?"+params.Encode())
}
