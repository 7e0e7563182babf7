// Package simulator implements a configurable stand-in for an OpenID
// Connect identity provider: authorization-code issuance, private-key-JWT
// client authentication, signed ID token and access token production,
// per-subject error injection, and the published key material.
package simulator

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/govuk-one-login/go-simulator/pkg/config"
	"github.com/govuk-one-login/go-simulator/pkg/keys"
)

const Version = "0.1.0"

type Server struct {
	cfg          *config.Config
	keyProvider  *keys.Provider
	contextStore RequestContextStore
	tokenStore   AccessTokenStore
}

// Error is an OAuth-shaped error. Returned from handlers, it is
// converted to a JSON body by ErrorHandlerMiddleware.
type Error struct {
	HttpStatus  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func ErrorHandlerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err == nil {
			return nil
		}
		slog.Error("request failed", "error", err, "path", c.Path(), "remote_addr", c.RealIP())

		if oauthErr, ok := err.(*Error); ok {
			return c.JSON(oauthErr.HttpStatus, oauthErr)
		}
		if echoErr, ok := err.(*echo.HTTPError); ok {
			return c.JSON(echoErr.Code, &Error{
				Code:        "invalid_request",
				Description: fmt.Sprintf("%v", echoErr.Message),
			})
		}
		return c.JSON(http.StatusInternalServerError, &Error{
			Code:        "server_error",
			Description: err.Error(),
		})
	}
}

func NewServer(opts ...Option) (*Server, error) {
	s := &Server{}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.cfg == nil {
		s.cfg = config.NewFromEnv()
	}
	if s.keyProvider == nil {
		if err := WithGeneratedKey()(s); err != nil {
			return nil, err
		}
	}
	if s.contextStore == nil {
		store, err := newMemoryContextStore()
		if err != nil {
			return nil, fmt.Errorf("create request context store: %w", err)
		}
		s.contextStore = store
	}
	if s.tokenStore == nil {
		s.tokenStore = newMemoryTokenStore()
	}

	return s, nil
}

func (s *Server) MountRoutes(group *echo.Group) {
	group.Use(
		middleware.Logger(),
		ErrorHandlerMiddleware,
	)
	group.GET("/", s.Home)
	group.GET("/authorize", s.AuthorizeEndpoint)
	group.POST("/token", s.TokenEndpoint)
	group.GET("/userinfo", s.UserInfoEndpoint)
	group.GET("/trustmark", s.TrustmarkEndpoint)
	group.GET("/logout", s.LogoutEndpoint)
	group.GET("/.well-known/openid-configuration", s.DiscoveryEndpoint)
	group.GET("/.well-known/jwks.json", s.JWKS)
	group.GET("/.well-known/did.json", s.DIDDocumentEndpoint)
	group.POST("/config", s.UpdateConfigEndpoint)
	group.GET("/config", s.GetConfigEndpoint)
	group.GET("/config/delete/:sub", s.DeleteUserConfigEndpoint)
}

func (s *Server) Home(c echo.Context) error {
	return c.String(http.StatusOK, "GOV.UK One Login Simulator")
}

func (s *Server) JWKS(c echo.Context) error {
	return c.JSON(http.StatusOK, s.keyProvider.PublicKeySet())
}

func redirectWithError(c echo.Context, redirectUri string, state string, err Error) error {
	params := url.Values{}
	if state != "" {
		params.Add("state", state)
	}
	params.Add("error", err.Code)
	params.Add("error_description", err.Description)

	return c.Redirect(http.StatusFound, redirectUri+"?"+params.Encode())
}
