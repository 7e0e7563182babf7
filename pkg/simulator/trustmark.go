package simulator

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// TrustmarkEndpoint publishes the trustmark document referenced by the
// vtm claim of every issued ID token.
func (s *Server) TrustmarkEndpoint(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"idp":                s.cfg.IssuerValue(),
		"trustmark_provider": s.cfg.IssuerValue(),
		"C":                  []string{"Cl", "Cl.Cm"},
		"P":                  s.cfg.Client().ClientLoCs,
	})
}
