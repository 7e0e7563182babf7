package simulator

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// DiscoveryEndpoint publishes the provider metadata document. Values
// mirror what the simulated provider advertises, scoped to the flows
// the simulator actually implements.
func (s *Server) DiscoveryEndpoint(c echo.Context) error {
	base := s.cfg.SimulatorURL()
	return c.JSON(http.StatusOK, map[string]any{
		"issuer":                 s.cfg.IssuerValue(),
		"authorization_endpoint": base + "/authorize",
		"token_endpoint":         base + "/token",
		"userinfo_endpoint":      base + "/userinfo",
		"jwks_uri":               base + "/.well-known/jwks.json",
		"end_session_endpoint":   base + "/logout",
		"trustmarks":             s.cfg.TrustmarkURL(),
		"scopes_supported":       []string{"openid", "email", "phone"},
		"response_types_supported": []string{
			"code",
		},
		"grant_types_supported": []string{
			"authorization_code",
		},
		"token_endpoint_auth_methods_supported": []string{
			"private_key_jwt",
		},
		"token_endpoint_auth_signing_alg_values_supported": []string{
			"RS256", "PS256", "ES256",
		},
		"id_token_signing_alg_values_supported": []string{
			"ES256", "RS256",
		},
		"subject_types_supported": []string{"public", "pairwise"},
		"claims_supported": []string{
			"sub", "email", "email_verified",
			"phone_number", "phone_number_verified",
			claimCoreIdentity, claimAddress, claimPassport,
			claimDrivingPermit, claimReturnCode,
		},
		"vot_supported": []string{"Cl", "Cl.Cm", "Cl.Cm.P2"},
	})
}
